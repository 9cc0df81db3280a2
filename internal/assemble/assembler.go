// Package assemble turns reconciled raw events into finished transactions.
package assemble

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-importer/internal/models"
	"github.com/insightdelivered/statement-importer/internal/parser"
	"github.com/insightdelivered/statement-importer/internal/security"
)

// Assembler builds items for one statement. It is not safe for concurrent use.
type Assembler struct {
	source   string
	resolver *security.Resolver
	log      zerolog.Logger
}

// New creates an assembler stamping source onto every transaction.
func New(source string, resolver *security.Resolver, log zerolog.Logger) *Assembler {
	return &Assembler{source: source, resolver: resolver, log: log}
}

// Assemble groups events into economic transactions. A group that cannot be
// assembled is reported and skipped; the other groups are still emitted.
func (a *Assembler) Assemble(ctx context.Context, events []parser.RawEvent) ([]models.Item, []*models.ExtractError) {
	var items []models.Item
	var errs []*models.ExtractError

	for _, group := range parser.Clusters(events) {
		out, groupErrs := a.assembleGroup(ctx, group)
		items = append(items, out...)
		errs = append(errs, groupErrs...)
	}
	return items, errs
}

func (a *Assembler) assembleGroup(ctx context.Context, group []parser.RawEvent) (items []models.Item, errs []*models.ExtractError) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error().Interface("panic", r).Int("line", group[0].Line).Msg("recovered while assembling block")
			items = nil
			errs = []*models.ExtractError{models.NewExtractError(group[0].Line, group[0].Text, models.ErrBlockPanic)}
		}
	}()

	b := &builder{Assembler: a, ctx: ctx}
	p := parser.Principal(group)
	switch {
	case p < 0:
		for _, ev := range group {
			b.standalone(ev)
		}
	case group[p].Type == parser.EventDividend:
		b.dividend(group, p)
	default:
		b.trade(group, p)
	}
	return b.items, b.errs
}

// builder collects the output of one group.
type builder struct {
	*Assembler
	ctx   context.Context
	items []models.Item
	errs  []*models.ExtractError
}

func (b *builder) fail(ev parser.RawEvent, err error) {
	b.errs = append(b.errs, models.NewExtractError(ev.Line, ev.Text, err))
}

// security resolves the event's ISIN, announcing new securities.
func (b *builder) security(ev parser.RawEvent) (*models.Security, bool) {
	if ev.ISIN == "" {
		return nil, true
	}
	currency := ev.Amount.Currency
	if currency == "" && ev.Conversion != nil {
		currency = ev.Conversion.Forex
	}
	s, created, err := b.resolver.Resolve(b.ctx, ev.ISIN, ev.Name, currency)
	if err != nil {
		b.fail(ev, err)
		return nil, false
	}
	if created {
		b.items = append(b.items, models.SecurityItem{Security: s})
	}
	return &s, true
}

// standaloneTypes maps an event to its transaction type for positive and
// negative amounts. A withheld dividend tax needs its dividend; a refunded one
// is dividend income.
var standaloneTypes = map[parser.EventType][2]models.TransactionType{
	parser.EventDeposit:        {models.TypeDeposit, models.TypeRemoval},
	parser.EventRemoval:        {models.TypeDeposit, models.TypeRemoval},
	parser.EventInterest:       {models.TypeInterest, models.TypeInterestCharge},
	parser.EventInterestCharge: {models.TypeInterest, models.TypeInterestCharge},
	parser.EventFee:            {models.TypeFeesRefund, models.TypeFees},
	parser.EventFeeRefund:      {models.TypeFeesRefund, models.TypeFees},
	parser.EventTradeTax:       {models.TypeFeesRefund, models.TypeFees},
	parser.EventDividendTax:    {models.TypeDividends, ""},
}

func (b *builder) standalone(ev parser.RawEvent) {
	if ev.Type == parser.EventSecurity {
		b.security(ev)
		return
	}

	types, ok := standaloneTypes[ev.Type]
	if !ok {
		b.fail(ev, fmt.Errorf("%w: %s outside of a transaction", models.ErrUnrecognizedLine, ev.Type))
		return
	}
	typ := types[1]
	if ev.Amount.Amount > 0 {
		typ = types[0]
	}
	if typ == "" {
		b.fail(ev, models.ErrOrphanTax)
		return
	}

	sec, ok := b.security(ev)
	if !ok {
		return
	}

	amount, unit, err := convert(ev.Conversion, ev.Amount)
	if err != nil {
		b.fail(ev, err)
		return
	}

	tx := models.AccountTransaction{
		Type:       typ,
		DateTime:   ev.DateTime,
		Amount:     amount,
		GrossValue: amount,
		Shares:     decimal.Zero,
		Security:   sec,
		Note:       note(ev),
		Source:     b.source,
	}
	if unit != nil {
		tx.Units = []models.Unit{*unit}
	}
	b.items = append(b.items, models.TransactionItem{Transaction: tx})
}

func note(ev parser.RawEvent) string {
	if ev.Generic {
		return ev.Text
	}
	return ev.Description
}

// convert brings m into the conversion's local currency. The returned unit
// records the forex original when a conversion took place.
func convert(c *parser.Conversion, m models.Money) (models.Money, *models.Unit, error) {
	if c == nil || m.Currency != c.Forex {
		return m.Abs(), nil, nil
	}
	local, err := c.Convert(m)
	if err != nil {
		return models.Money{}, nil, err
	}
	forex := m.Abs()
	return local, &models.Unit{
		Type:         models.UnitGrossValue,
		Amount:       local,
		Forex:        &forex,
		ExchangeRate: c.Rate,
	}, nil
}

// components holds the parts of a dividend or trade in the transaction
// currency.
type components struct {
	// ok is false when the principal itself could not be converted.
	ok       bool
	currency string
	gross    models.Money
	grossFX  *models.Unit
	units    []models.Unit
	taxes    models.Money
	fees     models.Money
	// before and after hold the group's other events on either side of the
	// principal, in statement order.
	before, after []parser.RawEvent

	// forex principal and the converted units in the principal's currency,
	// for settling rounding against the exchanged leg.
	forexGross models.Money
	forexUnits models.Money
	converted  int
}

// collect converts the principal and attaches the charges (negative taxes and
// fees) of its group. Every other event is kept in before or after.
func (b *builder) collect(group []parser.RawEvent, p int, attach func(parser.EventType) (models.UnitType, bool)) *components {
	principal := group[p]
	conv := principal.Conversion
	c := &components{}
	keep := func(i int, ev parser.RawEvent) {
		if i < p {
			c.before = append(c.before, ev)
		} else {
			c.after = append(c.after, ev)
		}
	}

	gross, fx, err := convert(conv, principal.Amount)
	if err != nil {
		b.fail(principal, err)
		for i, ev := range group {
			if i != p {
				keep(i, ev)
			}
		}
		return c
	}
	c.ok = true
	c.currency = gross.Currency
	c.gross, c.grossFX = gross, fx
	c.taxes = models.NewMoney(c.currency, 0)
	c.fees = models.NewMoney(c.currency, 0)
	c.forexGross = principal.Amount.Abs()
	c.forexUnits = models.NewMoney(principal.Amount.Currency, 0)

	for i, ev := range group {
		if i == p {
			continue
		}
		typ, ok := attach(ev.Type)
		// Refunds do not reduce the principal and are booked on their own.
		if !ok || !ev.Amount.IsNegative() {
			keep(i, ev)
			continue
		}

		evConv := ev.Conversion
		if evConv == nil {
			evConv = conv
		}
		amount, forex, err := convert(evConv, ev.Amount)
		if err == nil && amount.Currency != c.currency {
			err = fmt.Errorf("%w: %s %s on a %s transaction", models.ErrCurrencyMismatch, typ, amount.Currency, c.currency)
		}
		if err != nil {
			if ev.Type == parser.EventDividendTax {
				b.fail(ev, err)
			} else {
				// A fee the statement charged in another currency is still a fee.
				b.log.Debug().Int("line", ev.Line).Err(err).Msg("booking fee separately")
				keep(i, ev)
			}
			continue
		}

		taxes, fees := c.taxes, c.fees
		if typ == models.UnitTax {
			taxes, err = taxes.Add(amount)
		} else {
			fees, err = fees.Add(amount)
		}
		forexUnits := c.forexUnits
		sameForex := forex != nil && ev.Amount.Currency == principal.Amount.Currency
		if err == nil && sameForex {
			forexUnits, err = forexUnits.Add(ev.Amount.Abs())
		}
		if err != nil {
			b.fail(ev, err)
			continue
		}
		c.taxes, c.fees, c.forexUnits = taxes, fees, forexUnits

		unit := models.Unit{Type: typ, Amount: amount}
		if forex != nil {
			unit.Forex = forex.Forex
			unit.ExchangeRate = forex.ExchangeRate
			if sameForex {
				c.converted++
			}
		}
		c.units = append(c.units, unit)
	}
	return c
}

// total sums amounts of one currency.
func total(first models.Money, rest ...models.Money) (models.Money, error) {
	sum := first
	for _, m := range rest {
		var err error
		if sum, err = sum.Add(m); err != nil {
			return models.Money{}, err
		}
	}
	return sum, nil
}

// settle makes the net amount equal the exchanged local leg when the leg
// converted exactly the net forex amount and the separately rounded parts
// miss it by one minor unit. The difference is absorbed by the gross value.
func (c *components) settle(conv *parser.Conversion, net, forexNet models.Money) models.Money {
	if conv == nil || c.grossFX == nil || len(c.units) == 0 || c.converted != len(c.units) {
		return net
	}
	if conv.ForexLeg != forexNet || conv.LocalLeg.Currency != c.currency {
		return net
	}
	diff := conv.LocalLeg.Amount - net.Amount
	if diff == 0 || diff < -1 || diff > 1 {
		return net
	}
	c.gross.Amount += diff
	c.grossFX.Amount = c.gross
	return conv.LocalLeg
}

func (b *builder) units(c *components) []models.Unit {
	units := append([]models.Unit(nil), c.units...)
	if c.grossFX != nil {
		units = append(units, *c.grossFX)
	}
	return units
}

func dividendUnit(t parser.EventType) (models.UnitType, bool) {
	switch t {
	case parser.EventDividendTax, parser.EventTradeTax:
		return models.UnitTax, true
	case parser.EventFee:
		return models.UnitFee, true
	}
	return "", false
}

func tradeUnit(t parser.EventType) (models.UnitType, bool) {
	switch t {
	case parser.EventTradeTax:
		return models.UnitTax, true
	case parser.EventFee:
		return models.UnitFee, true
	}
	return "", false
}

// dividend books the group's events in statement order around the dividend.
func (b *builder) dividend(group []parser.RawEvent, p int) {
	if group[p].Amount.IsNegative() {
		b.reversal(group, p)
		return
	}
	c := b.collect(group, p, dividendUnit)
	b.remainder(c.before)
	if c.ok {
		b.bookDividend(group[p], c)
	}
	b.remainder(c.after)
}

// reversal reports a cancelled dividend together with its tax lines. The
// group's other events are booked as usual.
func (b *builder) reversal(group []parser.RawEvent, p int) {
	err := fmt.Errorf("%w: dividend reversal of %s", models.ErrInvalidAmount, group[p].Amount.Abs())
	for i, ev := range group {
		if i == p || ev.Type == parser.EventDividendTax {
			b.fail(ev, err)
			continue
		}
		b.standalone(ev)
	}
}

func (b *builder) bookDividend(div parser.RawEvent, c *components) {
	sec, ok := b.security(div)
	if !ok {
		return
	}

	net, err := total(c.gross, c.taxes.Neg(), c.fees.Neg())
	forexNet, ferr := total(c.forexGross, c.forexUnits.Neg())
	if err == nil {
		err = ferr
	}
	if err != nil {
		b.fail(div, err)
		return
	}
	net = c.settle(div.Conversion, net, forexNet)
	if net.IsNegative() {
		b.fail(div, fmt.Errorf("%w: dividend %s is smaller than its taxes and fees", models.ErrInvalidAmount, c.gross))
		return
	}

	tx := models.AccountTransaction{
		Type:       models.TypeDividends,
		DateTime:   div.DateTime,
		Amount:     net,
		GrossValue: c.gross,
		Shares:     div.Shares,
		Security:   sec,
		Note:       note(div),
		Source:     b.source,
		Units:      b.units(c),
	}
	b.items = append(b.items, models.TransactionItem{Transaction: tx})
}

// trade books the group's events in statement order around the trade.
func (b *builder) trade(group []parser.RawEvent, p int) {
	c := b.collect(group, p, tradeUnit)
	b.remainder(c.before)
	if c.ok {
		b.bookTrade(group[p], c)
	}
	b.remainder(c.after)
}

func (b *builder) bookTrade(principal parser.RawEvent, c *components) {
	sec, ok := b.security(principal)
	if !ok {
		return
	}

	typ := models.TypeBuy
	costs, err := total(c.taxes, c.fees)
	if err != nil {
		b.fail(principal, err)
		return
	}
	forexCosts := c.forexUnits
	if principal.Type == parser.EventSell {
		typ = models.TypeSell
		costs, forexCosts = costs.Neg(), forexCosts.Neg()
	}
	// BUY: principal + costs, SELL: principal - costs.
	net, err := total(c.gross, costs)
	forexNet, ferr := total(c.forexGross, forexCosts)
	if err == nil {
		err = ferr
	}
	if err != nil {
		b.fail(principal, err)
		return
	}
	net = c.settle(principal.Conversion, net, forexNet)
	if net.IsNegative() {
		b.fail(principal, fmt.Errorf("%w: sale proceeds %s are smaller than its costs", models.ErrInvalidAmount, c.gross))
		return
	}

	units := b.units(c)
	entry := models.BuySellEntry{
		Portfolio: models.PortfolioTransaction{
			Type:       typ,
			DateTime:   principal.DateTime,
			Shares:     principal.Shares,
			Security:   sec,
			Amount:     net,
			GrossValue: c.gross,
			Note:       note(principal),
			Source:     b.source,
			Units:      units,
		},
		Account: models.AccountTransaction{
			Type:       typ,
			DateTime:   principal.DateTime,
			Amount:     net,
			GrossValue: c.gross,
			Shares:     principal.Shares,
			Security:   sec,
			Note:       note(principal),
			Source:     b.source,
			Units:      append([]models.Unit(nil), units...),
		},
	}
	b.items = append(b.items, models.BuySellEntryItem{Entry: entry})
}

// remainder books events that shared a group with a principal but are not
// part of its transaction.
func (b *builder) remainder(rest []parser.RawEvent) {
	for _, ev := range rest {
		b.standalone(ev)
	}
}
