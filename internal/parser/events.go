package parser

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-importer/internal/models"
)

// EventType is the canonical, language-independent meaning of a statement line.
type EventType string

const (
	EventDeposit        EventType = "DEPOSIT"
	EventRemoval        EventType = "REMOVAL"
	EventFee            EventType = "FEE"
	EventFeeRefund      EventType = "FEE_REFUND"
	EventInterest       EventType = "INTEREST"
	EventInterestCharge EventType = "INTEREST_CHARGE"
	EventDividend       EventType = "DIVIDEND"
	EventDividendTax    EventType = "DIVIDEND_TAX"
	EventTradeTax       EventType = "TRADE_TAX"
	EventBuy            EventType = "BUY"
	EventSell           EventType = "SELL"
	EventFXIn           EventType = "FX_IN"
	EventFXOut          EventType = "FX_OUT"
	EventSecurity       EventType = "SECURITY"
)

func (t EventType) IsFX() bool {
	return t == EventFXIn || t == EventFXOut
}

func (t EventType) IsTrade() bool {
	return t == EventBuy || t == EventSell
}

// IsPrincipal reports whether the event anchors a multi-event cluster that
// taxes and fees attach to.
func (t EventType) IsPrincipal() bool {
	return t == EventDividend || t.IsTrade()
}

// Conversion describes how amounts of a cluster translate into the account
// currency: local = forex × Rate. LocalLeg and ForexLeg are the two absolute
// amounts the statement printed for the exchange.
type Conversion struct {
	Local    string          // account currency
	Forex    string          // currency printed on the statement line
	Rate     decimal.Decimal // local units per forex unit
	LocalLeg models.Money
	ForexLeg models.Money
}

// Convert translates the absolute value of m into the local currency. Amounts
// already in the local currency pass through. The printed local leg is used
// as-is when m is exactly the converted leg.
func (c *Conversion) Convert(m models.Money) (models.Money, error) {
	abs := m.Abs()
	switch abs.Currency {
	case c.Local:
		return abs, nil
	case c.Forex:
		if abs == c.ForexLeg {
			return c.LocalLeg, nil
		}
		return models.RoundMoney(c.Local, abs.Decimal().Mul(c.Rate)), nil
	default:
		return models.Money{}, fmt.Errorf("%w: %s amount in a %s/%s conversion", models.ErrCurrencyMismatch, abs.Currency, c.Forex, c.Local)
	}
}

// RateDigits is the precision exchange rates are stored with.
const RateDigits = 10

// NewConversion derives the rate from the two legs of an exchange. A printed
// rate is preferred when it agrees with the legs in either orientation, as
// statements quote it with more precision than the rounded legs carry.
func NewConversion(local, forex models.Money, printed decimal.Decimal) *Conversion {
	local, forex = local.Abs(), forex.Abs()
	c := &Conversion{Local: local.Currency, Forex: forex.Currency, LocalLeg: local, ForexLeg: forex}
	if forex.IsZero() {
		return c
	}
	c.Rate = local.Decimal().DivRound(forex.Decimal(), RateDigits)

	if printed.IsPositive() {
		best := c.Rate
		bestDiff := decimal.NewFromInt(1)
		for _, r := range []decimal.Decimal{printed, decimal.NewFromInt(1).DivRound(printed, RateDigits)} {
			diff := forex.Decimal().Mul(r).Sub(local.Decimal()).Abs()
			if diff.LessThan(bestDiff) {
				best, bestDiff = r, diff
			}
		}
		// Within one minor unit of the local leg.
		if bestDiff.LessThanOrEqual(decimal.New(1, -models.Exponent(local.Currency))) {
			c.Rate = best
		}
	}
	return c
}

// RawEvent is one economic fact extracted from one statement line, before
// exchange legs are reconciled and before clusters are assembled.
type RawEvent struct {
	Type        EventType
	Line        int
	Text        string
	DateTime    time.Time
	Amount      models.Money // signed as printed
	Description string
	ISIN        string
	Name        string
	Shares      decimal.Decimal
	Rate        decimal.Decimal // FX rate printed on the line, zero if none
	Generic     bool            // description unknown, type inferred from the sign

	// Cluster is shared by events that one matcher rule consumed together.
	Cluster int
	// Link is set on FX legs that a rule tied to a specific cluster.
	Link int

	Conversion *Conversion
}

// Key is the grouping key used to bundle events into one economic transaction.
type Key struct {
	DateTime time.Time
	ISIN     string
}

func (e RawEvent) Key() Key {
	return Key{DateTime: e.DateTime, ISIN: e.ISIN}
}

// Clusters splits a stream of non-FX events into groups that belong to the same
// economic transaction: consecutive events sharing a matcher cluster, or
// sharing a (dateTime, isin) key with a non-empty ISIN. Lines without an ISIN
// only join a group a matcher rule put them in. A second principal (dividend,
// buy, sell) always opens a new group.
func Clusters(events []RawEvent) [][]RawEvent {
	var groups [][]RawEvent
	var current []RawEvent
	hasPrincipal := false

	for _, ev := range events {
		if len(current) > 0 {
			last := current[len(current)-1]
			sameGroup := (ev.Cluster != 0 && ev.Cluster == last.Cluster) ||
				(ev.ISIN != "" && ev.Key() == last.Key())
			if !sameGroup || (ev.Type.IsPrincipal() && hasPrincipal) {
				groups = append(groups, current)
				current = nil
				hasPrincipal = false
			}
		}
		current = append(current, ev)
		if ev.Type.IsPrincipal() {
			hasPrincipal = true
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// Principal returns the index of the cluster's principal event, or -1.
func Principal(group []RawEvent) int {
	for i, ev := range group {
		if ev.Type.IsPrincipal() {
			return i
		}
	}
	return -1
}

// GroupCurrency is the currency a cluster is denominated in: the principal's,
// or the first event's when there is no principal.
func GroupCurrency(group []RawEvent) string {
	if i := Principal(group); i >= 0 {
		return group[i].Amount.Currency
	}
	if len(group) == 0 {
		return ""
	}
	return group[0].Amount.Currency
}
