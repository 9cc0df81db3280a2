package parser

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-importer/internal/models"
)

// TokenLine is the positional extraction of one statement line. Fields a
// layout does not print stay zero.
type TokenLine struct {
	Num         int
	Text        string
	DateTime    time.Time
	HasTime     bool
	ValueDate   time.Time
	Name        string
	ISIN        string
	Description string
	Amount      models.Money
	Balance     *models.Money
	// Rate is a bare number trailing the description; exchange lines print
	// their rate there.
	Rate  decimal.Decimal
	Trade *TradeColumns

	// Malformed is set when the line starts with a date and carries an
	// amount, yet its columns do not parse.
	Malformed error
}

// TradeColumns are the extra columns of a transaction overview row.
type TradeColumns struct {
	Venue         string
	Shares        decimal.Decimal // signed: negative for sales
	Price         decimal.Decimal
	PriceCurrency string
	Value         models.Money // trade currency, signed
	Local         models.Money // account currency, signed
	Rate          decimal.Decimal
	Fee           *models.Money
	Total         models.Money
}

const numberClass = `[-+−]?\d[\d.,'\x{00A0}\x{202F}]*-?`

// amountLike spots a decimal number; lines with a date and one of these are
// statement content even when their columns do not parse.
var amountLike = regexp.MustCompile(`\d[.,]\d{1,}`)

var trailingRate = regexp.MustCompile(`\s(\d+[.,]\d+)$`)

// splitLines returns trimmed lines with their 1-based numbers, skipping blanks.
func splitLines(text string) []TokenLine {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []TokenLine
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		out = append(out, TokenLine{Num: i + 1, Text: line})
	}
	return out
}

// readHead parses DATE [TIME] [VALUE-DATE] from the start of a line.
func readHead(tl *TokenLine) (string, bool) {
	day, rest, ok := extractDate(tl.Text)
	if !ok {
		return "", false
	}
	tl.DateTime = day
	tl.DateTime, rest, tl.HasTime = extractTime(day, rest)
	if vd, after, ok := extractDate(rest); ok {
		tl.ValueDate = vd
		rest = after
	}
	return rest, true
}

// splitProduct separates "PRODUCT NAME ISIN DESCRIPTION".
func splitProduct(tl *TokenLine, s string) {
	isin, start, end := findISIN(s)
	if isin == "" {
		tl.Description = strings.TrimSpace(s)
		return
	}
	tl.ISIN = isin
	tl.Name = strings.TrimSpace(s[:start])
	tl.Description = strings.TrimSpace(s[end:])
}

func money(currency, amount string, nf NumberFormat) (models.Money, error) {
	d, err := parseNumber(amount, nf)
	if err != nil {
		return models.Money{}, errors.Join(models.ErrInvalidAmount, err)
	}
	return models.MoneyFromDecimal(currency, d)
}

// attachContinuation folds a dateless line that carries only a product name
// and ISIN into the previous token line, as PDF renderings wrap long product
// names onto their own line.
func attachContinuation(prev *TokenLine, text string) bool {
	if prev == nil || prev.ISIN != "" || amountLike.MatchString(text) {
		return false
	}
	isin, start, _ := findISIN(text)
	if isin == "" {
		return false
	}
	prev.ISIN = isin
	if prev.Name == "" {
		prev.Name = strings.TrimSpace(text[:start])
	}
	return true
}
