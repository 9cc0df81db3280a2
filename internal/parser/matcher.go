package parser

import (
	"fmt"
	"strings"

	"github.com/insightdelivered/statement-importer/internal/models"
)

// Result is the matcher's output for one statement.
type Result struct {
	Events []RawEvent
	Errors []*models.ExtractError
	Trace  []models.LineTrace
}

// Match runs the family's rule table over the token lines. Malformed lines and
// lines whose events cannot be built are recorded as errors; matching then
// continues with the next line.
func Match(layout Layout, lines []TokenLine) Result {
	var res Result
	rules := RulesFor(layout.Family)

	cands := make([]*candidate, len(lines))
	for i, tl := range lines {
		if tl.Malformed == nil {
			c := classify(layout, tl)
			cands[i] = &c
		}
	}

	cluster := 0
	for i := 0; i < len(lines); {
		if lines[i].Malformed != nil {
			res.fail(lines[i], lines[i].Malformed)
			i++
			continue
		}
		for _, rule := range rules {
			window, ok := windowAt(cands, i, rule.Lines)
			if !ok || !rule.Match(layout, window) {
				continue
			}
			cluster++
			res.apply(layout, rule, window, cluster)
			i += rule.Lines
			break
		}
	}
	return res
}

// windowAt returns n consecutive well-formed candidates starting at i.
func windowAt(cands []*candidate, i, n int) ([]candidate, bool) {
	if i+n > len(cands) {
		return nil, false
	}
	window := make([]candidate, 0, n)
	for _, c := range cands[i : i+n] {
		if c == nil {
			return nil, false
		}
		window = append(window, *c)
	}
	return window, true
}

func (r *Result) apply(layout Layout, rule Rule, window []candidate, cluster int) {
	defer func() {
		if p := recover(); p != nil {
			for _, c := range window {
				r.fail(c.line, fmt.Errorf("%w: %v", models.ErrBlockPanic, p))
			}
		}
	}()

	var events []RawEvent
	for _, c := range window {
		evs, err := toEvents(layout, c)
		if err != nil {
			r.fail(c.line, err)
			continue
		}
		if len(evs) == 0 {
			r.trace(c.line, "ignored", rule.Name)
			continue
		}
		for _, ev := range evs {
			ev.Cluster = cluster
			if rule.Link && ev.Type.IsFX() {
				ev.Link = cluster
			}
			events = append(events, ev)
		}
		r.trace(c.line, "matched", rule.Name)
	}
	r.Events = append(r.Events, events...)
}

func (r *Result) fail(tl TokenLine, err error) {
	r.Errors = append(r.Errors, models.NewExtractError(tl.Num, tl.Text, err))
	r.trace(tl, "error", "")
}

func (r *Result) trace(tl TokenLine, result, rule string) {
	r.Trace = append(r.Trace, models.LineTrace{LineNum: tl.Num, Text: tl.Text, Result: result, Rule: rule})
}

func classify(l Layout, tl TokenLine) candidate {
	c := candidate{line: tl}
	if tl.Trade != nil {
		c.event = EventBuy
		if tl.Trade.Shares.IsNegative() {
			c.event = EventSell
		}
		return c
	}
	if ev, kw, ok := l.Locale.Classify(tl.Description); ok {
		c.event, c.keyword = ev, kw
		return c
	}
	c.generic = true
	c.event = fallback(l.Family, tl.Amount)
	return c
}

// fallback types a line whose description the dictionary does not know.
// Broker statements book such lines as fees; bank statements as plain cash
// movements.
func fallback(f Family, amount models.Money) EventType {
	if f == FamilyBank {
		if amount.IsNegative() {
			return EventRemoval
		}
		return EventDeposit
	}
	if amount.IsNegative() {
		return EventFee
	}
	return EventFeeRefund
}

func toEvents(l Layout, c candidate) ([]RawEvent, error) {
	tl := c.line
	base := RawEvent{
		Type:        c.event,
		Line:        tl.Num,
		Text:        tl.Text,
		DateTime:    tl.DateTime,
		Amount:      tl.Amount,
		Description: tl.Description,
		ISIN:        tl.ISIN,
		Name:        tl.Name,
		Rate:        tl.Rate,
		Generic:     c.generic,
	}

	switch {
	case tl.Trade != nil:
		return tradeRowEvents(base, tl.Trade), nil

	case c.event.IsTrade():
		qty, _, ok := tradeDetail(tl.Description, l.Locale)
		if !ok {
			return nil, models.ErrMalformedTrade
		}
		shares, err := parseNumber(qty, l.Locale.Number)
		if err != nil || shares.IsZero() {
			return nil, models.ErrMalformedTrade
		}
		base.Shares = shares.Abs()
		return []RawEvent{base}, nil

	case c.event == EventSecurity:
		if base.ISIN == "" {
			return nil, nil
		}
		return []RawEvent{base}, nil

	default:
		if tl.Amount.IsZero() {
			return nil, nil
		}
		return []RawEvent{base}, nil
	}
}

// tradeRowEvents turns one overview row into the trade and its fee. The row
// prints its own local value, so the conversion is known without exchange legs.
func tradeRowEvents(base RawEvent, tc *TradeColumns) []RawEvent {
	trade := base
	trade.Type = EventBuy
	if tc.Shares.IsNegative() {
		trade.Type = EventSell
	}
	trade.Shares = tc.Shares.Abs()
	trade.Amount = tc.Value
	trade.Rate = tc.Rate
	trade.Description = strings.TrimSpace(base.Name + " " + tc.Venue)
	if tc.Value.Currency != tc.Local.Currency {
		trade.Conversion = NewConversion(tc.Local, tc.Value, tc.Rate)
	}

	events := []RawEvent{trade}
	if tc.Fee != nil {
		fee := base
		fee.Type = EventFee
		// The fee column is a charge however it is signed.
		fee.Amount = tc.Fee.Abs().Neg()
		fee.Description = ""
		fee.Conversion = trade.Conversion
		events = append(events, fee)
	}
	return events
}
