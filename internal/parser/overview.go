package parser

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/statement-importer/internal/models"
)

// overviewTail matches the numeric columns of a transaction overview row:
//
//	QTY PRICE CUR VALUE CUR LOCAL CUR [RATE] [FEE CUR] TOTAL CUR
var overviewTail = regexp.MustCompile(
	`^(.*?)\s+(` + numberClass + `)\s+(` + numberClass + `)\s+([A-Z]{3})` +
		`\s+(` + numberClass + `)\s+([A-Z]{3})` +
		`\s+(` + numberClass + `)\s+([A-Z]{3})` +
		`(?:\s+(` + numberClass + `))?` +
		`(?:\s+(` + numberClass + `)\s+([A-Z]{3}))?` +
		`\s+(` + numberClass + `)\s+([A-Z]{3})\s*$`,
)

// overviewTokenizer reads transaction overviews, one execution per row:
//
//	DATE TIME PRODUCT ISIN VENUE QTY PRICE CUR VALUE CUR LOCAL CUR [RATE] [FEE CUR] TOTAL CUR
//
// Example: "05-03-2021 15:30 APPLE INC US0378331005 NDQ XNAS 10 120,50 USD -1.205,00 USD -1.010,26 EUR 1,1928 -0,54 EUR -1.010,80 EUR"
type overviewTokenizer struct {
	locale *Locale
}

func (t *overviewTokenizer) Tokenize(text string) []TokenLine {
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

		m := overviewTail.FindStringSubmatch(" " + rest)
		if m == nil {
			if amountLike.MatchString(rest) {
				tl.Malformed = models.ErrUnrecognizedLine
				out = append(out, tl)
			}
			prev = nil
			continue
		}

		if err := t.readColumns(&tl, m); err != nil {
			tl.Malformed = err
			out = append(out, tl)
			prev = nil
			continue
		}
		out = append(out, tl)
		prev = &out[len(out)-1]
	}
	return out
}

func (t *overviewTokenizer) readColumns(tl *TokenLine, m []string) error {
	nf := t.locale.Number
	tc := &TradeColumns{}

	isin, start, end := findISIN(m[1])
	if isin == "" {
		return models.ErrMalformedTrade
	}
	tl.ISIN = isin
	tl.Name = strings.TrimSpace(m[1][:start])
	tc.Venue = strings.TrimSpace(m[1][end:])
	tl.Description = tl.Name

	var err error
	if tc.Shares, err = parseNumber(m[2], nf); err != nil || tc.Shares.IsZero() {
		return models.ErrMalformedTrade
	}
	if tc.Price, err = parseNumber(m[3], nf); err != nil {
		return models.ErrMalformedTrade
	}
	tc.PriceCurrency = m[4]
	if tc.Value, err = money(m[6], m[5], nf); err != nil {
		return err
	}
	if tc.Local, err = money(m[8], m[7], nf); err != nil {
		return err
	}
	if m[9] != "" {
		if tc.Rate, err = parseNumber(m[9], nf); err != nil {
			return models.ErrInvalidAmount
		}
	}
	if m[10] != "" {
		fee, err := money(m[11], m[10], nf)
		if err != nil {
			return err
		}
		if !fee.IsZero() {
			tc.Fee = &fee
		}
	}
	if tc.Total, err = money(m[13], m[12], nf); err != nil {
		return err
	}

	tl.Amount = tc.Value
	tl.Trade = tc
	return nil
}
