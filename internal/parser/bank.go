package parser

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/statement-importer/internal/models"
)

// bankTokenizer handles UK current-account statements (Metro Bank, HSBC,
// Barclays and lookalikes).
//
// They typically have this layout:
//
//	Date | Description | Paid out | Paid in | Balance
//
// Date format: DD/MM/YYYY or DD Mon YYYY
// Example line: "15/01/2024 CARD PAYMENT TESCO STORES 25.99 1,234.56"
//
// Amount columns carry no sign, so the direction of a single amount is read
// from the running balance.
type bankTokenizer struct {
	// currency is the account currency when the caller knows it.
	currency string
}

// bankAmountPattern matches numbers like £1,234.56 or 25.99
var bankAmountPattern = regexp.MustCompile(`^[£$€]?[\d,]+\.\d{2}$`)

func (t *bankTokenizer) Tokenize(text string) []TokenLine {
	currency := t.currency
	if currency == "" {
		currency = currencyFromSymbol(text)
	}
	if currency == "" {
		currency = "GBP"
	}

	var out []TokenLine
	inTransactionSection := false
	var lastBalance int64
	haveBalance := false

	for _, tl := range splitLines(text) {
		// Try to extract opening balance before skipping summary lines
		if bal, ok := extractOpeningBalance(tl.Text, currency); ok {
			lastBalance, haveBalance = bal, true
			continue
		}

		// Detect start of transaction table
		if containsTransactionHeader(tl.Text) {
			inTransactionSection = true
			continue
		}

		rest, dated := readHead(&tl)
		if !dated {
			// Handle multi-line descriptions: a dateless line inside the table
			// continues the previous description.
			if inTransactionSection && len(out) > 0 && !isSummaryLine(tl.Text) && !amountLike.MatchString(tl.Text) {
				last := &out[len(out)-1]
				last.Description += " " + tl.Text
			}
			continue
		}
		inTransactionSection = true

		desc, amounts := splitTrailingAmounts(rest)
		if len(amounts) == 0 {
			if amountLike.MatchString(rest) {
				tl.Malformed = models.ErrUnrecognizedLine
				out = append(out, tl)
			}
			continue
		}
		tl.Description = desc

		values := make([]int64, len(amounts))
		for i, a := range amounts {
			m, err := money(currency, a, FormatDot)
			if err != nil {
				tl.Malformed = err
				break
			}
			values[i] = m.Amount
		}
		if tl.Malformed != nil {
			out = append(out, tl)
			continue
		}

		var signed int64
		switch len(values) {
		case 3:
			// Paid out, paid in and balance all present
			signed = values[1] - values[0]
			tl.Balance = balance(currency, values[2])
		case 2:
			// One amount column + balance. The column cannot be told apart
			// positionally, so use balance progression to decide.
			amt, bal := values[0], values[1]
			if isDebit(amt, bal, lastBalance, haveBalance, desc) {
				signed = -amt
			} else {
				signed = amt
			}
			tl.Balance = balance(currency, bal)
		default:
			// Just an amount: the description decides.
			signed = values[0]
			if isDebitDescription(desc) {
				signed = -signed
			}
		}

		if tl.Balance != nil {
			lastBalance, haveBalance = tl.Balance.Amount, true
		}
		tl.Amount = models.NewMoney(currency, signed)
		out = append(out, tl)
	}
	return out
}

func balance(currency string, minor int64) *models.Money {
	m := models.NewMoney(currency, minor)
	return &m
}

// splitTrailingAmounts peels up to three amount columns off the end of rest.
func splitTrailingAmounts(rest string) (string, []string) {
	fields := strings.Fields(rest)
	var amounts []string
	for len(fields) > 1 && len(amounts) < 3 && bankAmountPattern.MatchString(fields[len(fields)-1]) {
		amounts = append([]string{fields[len(fields)-1]}, amounts...)
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " "), amounts
}

// isDebit determines whether an amount left the account by comparing it and
// the new balance against the previous balance. Falls back to the
// description when the balance cannot decide.
func isDebit(amt, bal, prevBal int64, havePrev bool, desc string) bool {
	if havePrev {
		debit := prevBal-amt == bal
		credit := prevBal+amt == bal
		if debit != credit {
			return debit
		}
	}
	return isDebitDescription(desc)
}

// extractOpeningBalance looks for opening/brought-forward balance lines and
// returns the balance in minor units.
func extractOpeningBalance(line, currency string) (int64, bool) {
	lower := strings.ToLower(line)
	if !strings.Contains(lower, "opening balance") &&
		!strings.Contains(lower, "brought forward") {
		return 0, false
	}

	fields := strings.Fields(line)
	for i := len(fields) - 1; i >= 0; i-- {
		if bankAmountPattern.MatchString(fields[i]) {
			m, err := money(currency, fields[i], FormatDot)
			if err != nil {
				return 0, false
			}
			return m.Amount, true
		}
	}
	return 0, false
}

func containsTransactionHeader(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "date") &&
		(strings.Contains(lower, "description") || strings.Contains(lower, "details") || strings.Contains(lower, "paid")) &&
		(strings.Contains(lower, "paid") || strings.Contains(lower, "balance") || strings.Contains(lower, "money"))
}

var debitKeywords = []string{
	"card payment", "direct debit", "debit", "payment", "withdrawal",
	"transfer out", "standing order", "dd ", "pos ", "atm ",
	"purchase", "fee", "charge",
}

func isDebitDescription(desc string) bool {
	lower := strings.ToLower(desc)
	if strings.Contains(lower, "payment received") {
		return false
	}
	for _, kw := range debitKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var summaryKeywords = []string{
	"opening balance", "closing balance", "total paid in",
	"total paid out", "total payments", "total receipts",
	"statement period", "page ", "continued",
}

func isSummaryLine(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range summaryKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
