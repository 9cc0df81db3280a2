// Package validate re-checks extracted items for the consistency rules the
// importing application relies on. It looks only at the items themselves.
package validate

import (
	"fmt"

	"github.com/insightdelivered/statement-importer/internal/models"
)

// Options configure a check.
type Options struct {
	// AccountCurrency, when set, is the only currency converted amounts may be in.
	AccountCurrency string
	// Known lists securities that exist outside the items, such as catalog entries.
	Known []models.Security
}

// Error is one violated rule, tied to the item at Index.
type Error struct {
	Index int
	Rule  string
	Msg   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("item %d: %s: %s", e.Index, e.Rule, e.Msg)
}

// Rules
const (
	RuleDecomposition = "decomposition"
	RuleExchangeRate  = "exchange-rate"
	RuleTradePairing  = "trade-pairing"
	RuleSecurity      = "security"
	RuleAmount        = "amount"
	RuleCurrency      = "currency"
)

type checker struct {
	opts   Options
	known  map[string]bool
	errs   []error
	cursor int
}

// Check returns every violation found in items, in item order.
func Check(items []models.Item, opts Options) []error {
	c := &checker{opts: opts, known: make(map[string]bool)}
	for _, s := range opts.Known {
		c.known[s.ISIN] = true
	}

	for i, it := range items {
		c.cursor = i
		switch v := it.(type) {
		case models.SecurityItem:
			if c.known[v.Security.ISIN] {
				c.fail(RuleSecurity, "security %s announced twice", v.Security.ISIN)
			}
			c.known[v.Security.ISIN] = true
		case models.TransactionItem:
			c.transaction(v.Transaction)
		case models.BuySellEntryItem:
			c.entry(v.Entry)
		}
	}
	return c.errs
}

func (c *checker) fail(rule, format string, args ...any) {
	c.errs = append(c.errs, &Error{Index: c.cursor, Rule: rule, Msg: fmt.Sprintf(format, args...)})
}

func (c *checker) transaction(tx models.AccountTransaction) {
	c.common(tx.Amount, tx.GrossValue, tx.Security, tx.Units)

	if tx.Type == models.TypeDividends {
		taxes := models.SumUnits(tx.Units, models.UnitTax)
		fees := models.SumUnits(tx.Units, models.UnitFee)
		if tx.Amount.Amount != tx.GrossValue.Amount-taxes-fees {
			c.fail(RuleDecomposition, "dividend %s != gross %s - taxes %d - fees %d", tx.Amount, tx.GrossValue, taxes, fees)
		}
	}
}

func (c *checker) entry(e models.BuySellEntry) {
	p, a := e.Portfolio, e.Account
	if p.Type != models.TypeBuy && p.Type != models.TypeSell {
		c.fail(RuleTradePairing, "portfolio type %s", p.Type)
	}
	if p.Type != a.Type {
		c.fail(RuleTradePairing, "portfolio %s vs account %s", p.Type, a.Type)
	}
	if !p.DateTime.Equal(a.DateTime) {
		c.fail(RuleTradePairing, "dates differ: %s vs %s", p.DateTime, a.DateTime)
	}
	if !p.Shares.Equal(a.Shares) {
		c.fail(RuleTradePairing, "shares differ: %s vs %s", p.Shares, a.Shares)
	}
	if !p.Shares.IsPositive() {
		c.fail(RuleAmount, "trade without shares")
	}
	if p.Amount != a.Amount {
		c.fail(RuleTradePairing, "amounts differ: %s vs %s", p.Amount, a.Amount)
	}

	c.common(p.Amount, p.GrossValue, p.Security, p.Units)

	costs := models.SumUnits(p.Units, models.UnitFee) + models.SumUnits(p.Units, models.UnitTax)
	want := p.GrossValue.Amount + costs
	if p.Type == models.TypeSell {
		want = p.GrossValue.Amount - costs
	}
	if p.Amount.Amount != want {
		c.fail(RuleDecomposition, "%s amount %s != gross %s with costs %d", p.Type, p.Amount, p.GrossValue, costs)
	}
}

// common checks what every transaction shares: signs, currencies, units and
// the referenced security.
func (c *checker) common(amount, gross models.Money, sec *models.Security, units []models.Unit) {
	if amount.IsNegative() || gross.IsNegative() {
		c.fail(RuleAmount, "negative amount %s / gross %s", amount, gross)
	}
	if gross.Currency != amount.Currency {
		c.fail(RuleCurrency, "gross value %s in another currency than %s", gross, amount)
	}
	if sec != nil && !c.known[sec.ISIN] {
		c.fail(RuleSecurity, "security %s used before it exists", sec.ISIN)
	}

	for _, u := range units {
		if u.Amount.IsNegative() {
			c.fail(RuleAmount, "negative %s unit %s", u.Type, u.Amount)
		}
		if u.Amount.Currency != amount.Currency {
			c.fail(RuleCurrency, "%s unit %s on a %s transaction", u.Type, u.Amount, amount.Currency)
		}
		if u.Forex != nil {
			c.roundTrip(u)
		}
	}

	if fx, ok := models.ExchangeRateUnit(units); ok {
		if fx.Amount != gross {
			c.fail(RuleExchangeRate, "exchange unit %s differs from gross value %s", fx.Amount, gross)
		}
		if c.opts.AccountCurrency != "" && amount.Currency != c.opts.AccountCurrency {
			c.fail(RuleCurrency, "converted into %s instead of %s", amount.Currency, c.opts.AccountCurrency)
		}
	}
}

// roundTrip verifies round(forex × rate) is within one minor unit of the unit amount.
func (c *checker) roundTrip(u models.Unit) {
	if !u.ExchangeRate.IsPositive() {
		c.fail(RuleExchangeRate, "%s unit without a positive rate", u.Type)
		return
	}
	local := models.RoundMoney(u.Amount.Currency, u.Forex.Decimal().Mul(u.ExchangeRate))
	if diff := local.Amount - u.Amount.Amount; diff < -1 || diff > 1 {
		c.fail(RuleExchangeRate, "%s × %s = %s, booked %s", u.Forex, u.ExchangeRate.String(), local, u.Amount)
	}
}
