package parser

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/statement-importer/internal/models"
)

// accountTail matches "DESCRIPTION CUR AMOUNT [CUR BALANCE]" at the end of an
// account statement line. The description is matched lazily so the first
// currency column that completes the line wins.
var accountTail = regexp.MustCompile(
	`^(.*?)\s+([A-Z]{3})\s+(` + numberClass + `)` +
		`(?:\s+([A-Z]{3})\s+(` + numberClass + `))?\s*$`,
)

// accountTokenizer reads broker cash account statements:
//
//	DATE [TIME] [VALUE-DATE] [PRODUCT ISIN] DESCRIPTION [FX] CUR AMOUNT [CUR BALANCE]
//
// Example: "02-08-2017 08:00 02-08-2017 ISHARES CORE IE0008471009 Dividende EUR 1,52 EUR 351,52"
type accountTokenizer struct {
	locale *Locale
}

func (t *accountTokenizer) Tokenize(text string) []TokenLine {
	var out []TokenLine
	var prev *TokenLine

	for _, tl := range splitLines(text) {
		rest, ok := readHead(&tl)
		if !ok {
			if attachContinuation(prev, tl.Text) {
				continue
			}
			prev = nil
			continue
		}

		m := accountTail.FindStringSubmatch(" " + rest)
		if m == nil {
			// Headers such as "01-01-2020 Kontoauszug" carry no amount.
			if !amountLike.MatchString(rest) {
				prev = nil
				continue
			}
			tl.Malformed = models.ErrUnrecognizedLine
			out = append(out, tl)
			prev = nil
			continue
		}

		splitProduct(&tl, m[1])
		if r := trailingRate.FindStringSubmatch(tl.Description); r != nil {
			if rate, err := parseNumber(r[1], t.locale.Number); err == nil {
				tl.Rate = rate
			}
		}

		amount, err := money(m[2], m[3], t.locale.Number)
		if err != nil {
			tl.Malformed = err
			out = append(out, tl)
			prev = nil
			continue
		}
		tl.Amount = amount

		if m[4] != "" {
			if bal, err := money(m[4], m[5], t.locale.Number); err == nil {
				tl.Balance = &bal
			}
		}

		out = append(out, tl)
		prev = &out[len(out)-1]
	}
	return out
}

// tradeDetail reads quantity and price from a trade description such as
// "Kauf 10 zu je 150,25 USD" or "Buy 0.5 @ 312.10 USD".
func tradeDetail(description string, loc *Locale) (qty, price string, ok bool) {
	fields := strings.Fields(description)
	for i, f := range fields {
		if !isNumberToken(f) {
			continue
		}
		qty = f
		for j := i + 1; j < len(fields); j++ {
			n := loc.connectorAt(fields[j:])
			if n == 0 {
				continue
			}
			if j+n < len(fields) && isNumberToken(fields[j+n]) {
				price = fields[j+n]
			}
			break
		}
		return qty, price, true
	}
	return "", "", false
}

var numberToken = regexp.MustCompile(`^` + numberClass + `$`)

func isNumberToken(s string) bool {
	return numberToken.MatchString(s)
}

// connectorAt returns how many leading fields form a price connector ("zu je", "@").
func (l *Locale) connectorAt(fields []string) int {
	for _, c := range l.connectors {
		words := strings.Count(c, " ") + 1
		if words > len(fields) {
			continue
		}
		if Normalize(strings.Join(fields[:words], " ")) == c {
			return words
		}
	}
	return 0
}
