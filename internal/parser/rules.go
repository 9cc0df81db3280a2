package parser

// candidate is a token line together with its dictionary classification.
type candidate struct {
	line    TokenLine
	event   EventType
	keyword string
	generic bool
}

// Rule is one entry of a family's matcher table. It spans Lines consecutive
// token lines and fires when Match accepts their classifications.
type Rule struct {
	Name  string
	Lines int
	Match func(l Layout, c []candidate) bool
	// Link marks rules whose exchange legs convert the event they were
	// matched with.
	Link bool
}

// Rules are tried in order at every cursor position; the first match wins.
var (
	accountRules = []Rule{
		{Name: "fx-pair+event", Lines: 3, Match: matchPairEvent, Link: true},
		{Name: "dividend+tax", Lines: 2, Match: matchDividendTax},
		{Name: "trade+fee", Lines: 2, Match: matchTradeFee},
		{Name: "fx-pair", Lines: 2, Match: matchPair},
		{Name: "single", Lines: 1, Match: matchSingle},
	}
	overviewRules = []Rule{
		{Name: "trade-row", Lines: 1, Match: matchTradeRow},
		{Name: "single", Lines: 1, Match: matchSingle},
	}
	bankRules = []Rule{
		{Name: "single", Lines: 1, Match: matchSingle},
	}
)

// RulesFor returns the matcher table of a layout family.
func RulesFor(f Family) []Rule {
	switch f {
	case FamilyOverview:
		return overviewRules
	case FamilyBank:
		return bankRules
	default:
		return accountRules
	}
}

// IsPair reports whether two exchange legs form one currency conversion.
func IsPair(a, b RawEvent) bool {
	return a.Type.IsFX() && b.Type.IsFX() && a.Type != b.Type &&
		a.Amount.Currency != b.Amount.Currency &&
		a.DateTime.Equal(b.DateTime)
}

// ForexLeg returns which leg of a pair carries the currency of a converted
// event: money flowing in is exchanged out of its currency, money flowing out
// was exchanged into it.
func ForexLeg(inflow bool) EventType {
	if inflow {
		return EventFXOut
	}
	return EventFXIn
}

func (c candidate) raw() RawEvent {
	return RawEvent{Type: c.event, Amount: c.line.Amount, DateTime: c.line.DateTime}
}

func matchPairEvent(l Layout, c []candidate) bool {
	legs, ev := c[0:2], c[2]
	if l.Direction == PairAfter {
		ev, legs = c[0], c[1:3]
	}
	if !IsPair(legs[0].raw(), legs[1].raw()) || ev.event.IsFX() || ev.event == EventSecurity {
		return false
	}
	want := ForexLeg(!ev.line.Amount.IsNegative())
	for _, leg := range legs {
		if leg.event == want {
			return leg.line.Amount.Currency == ev.line.Amount.Currency
		}
	}
	return false
}

func matchDividendTax(_ Layout, c []candidate) bool {
	a, b := c[0], c[1]
	if a.event == EventDividendTax {
		a, b = b, a
	}
	return a.event == EventDividend && b.event == EventDividendTax &&
		sameBlock(a.line, b.line) &&
		a.line.Amount.Currency == b.line.Amount.Currency
}

func matchTradeFee(_ Layout, c []candidate) bool {
	a, b := c[0], c[1]
	if !a.event.IsTrade() {
		a, b = b, a
	}
	return a.event.IsTrade() && (b.event == EventFee || b.event == EventTradeTax) &&
		sameBlock(a.line, b.line)
}

func matchPair(_ Layout, c []candidate) bool {
	return IsPair(c[0].raw(), c[1].raw())
}

func matchTradeRow(_ Layout, c []candidate) bool {
	return c[0].line.Trade != nil
}

func matchSingle(_ Layout, _ []candidate) bool {
	return true
}

// sameBlock: same timestamp and no conflicting ISIN.
func sameBlock(a, b TokenLine) bool {
	if !a.DateTime.Equal(b.DateTime) {
		return false
	}
	return a.ISIN == "" || b.ISIN == "" || a.ISIN == b.ISIN
}
