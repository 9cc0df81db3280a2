// Package reconcile ties currency-exchange legs to the foreign-currency
// transactions they convert.
package reconcile

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-importer/internal/parser"
)

// DefaultWindow is how many stream positions a pair may sit away from the
// event it converts.
const DefaultWindow = 3

// Reconciler pairs FX_IN/FX_OUT legs and attaches the resulting conversion to
// the nearest foreign-currency cluster.
type Reconciler struct {
	accountCurrency string
	window          int
	direction       parser.Direction
	log             zerolog.Logger
}

// New creates a reconciler. An empty account currency accepts whatever
// currency the local leg of a pair is in.
func New(accountCurrency string, window int, direction parser.Direction, log zerolog.Logger) *Reconciler {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Reconciler{
		accountCurrency: accountCurrency,
		window:          window,
		direction:       direction,
		log:             log,
	}
}

// Result is the event stream with exchange legs folded into conversions.
type Result struct {
	Events []parser.RawEvent
	// Paired counts clusters that received a conversion.
	Paired int
	// Unpaired counts exchange legs that converted nothing and were dropped.
	Unpaired int
}

type pair struct {
	in, out    parser.RawEvent
	start, end int // stream positions
	link       int
	used       bool
}

func (p *pair) leg(t parser.EventType) parser.RawEvent {
	if t == parser.EventFXIn {
		return p.in
	}
	return p.out
}

func (p *pair) rate() decimal.Decimal {
	if p.out.Rate.IsPositive() {
		return p.out.Rate
	}
	return p.in.Rate
}

type group struct {
	events     []parser.RawEvent
	start, end int
}

// Reconcile scans the stream once for adjacent exchange legs, then assigns each
// pair to at most one foreign-currency cluster: the cluster a matcher rule
// linked it to, else the nearest one within the window on the layout's
// preferred side, else the nearest on the other side.
func (r *Reconciler) Reconcile(events []parser.RawEvent) Result {
	var res Result
	pairs, econ, positions := r.split(events, &res)

	for _, g := range r.groups(econ, positions) {
		if p := r.pairFor(g, pairs); p != nil {
			forex := p.leg(parser.ForexLeg(inflow(g.events)))
			local := p.leg(otherLeg(forex.Type))
			conv := parser.NewConversion(local.Amount, forex.Amount, p.rate())
			for i := range g.events {
				g.events[i].Conversion = conv
			}
			p.used = true
			res.Paired++
			r.log.Debug().
				Int("line", g.events[0].Line).
				Str("forex", forex.Amount.String()).
				Str("local", local.Amount.String()).
				Str("rate", conv.Rate.String()).
				Msg("attached exchange rate")
		}
		res.Events = append(res.Events, g.events...)
	}

	for _, p := range pairs {
		if !p.used {
			res.Unpaired += 2
			r.log.Debug().Int("line", p.in.Line).Msg("dropping unpaired exchange legs")
		}
	}
	return res
}

// split separates exchange legs from economic events. Adjacent opposite legs
// in different currencies form a pair; a lone leg is dropped.
func (r *Reconciler) split(events []parser.RawEvent, res *Result) ([]*pair, []parser.RawEvent, []int) {
	var pairs []*pair
	var econ []parser.RawEvent
	var positions []int

	for i := 0; i < len(events); i++ {
		ev := events[i]
		if !ev.Type.IsFX() {
			econ = append(econ, ev)
			positions = append(positions, i)
			continue
		}
		if i+1 < len(events) && parser.IsPair(ev, events[i+1]) {
			p := &pair{start: i, end: i + 1, link: ev.Link}
			p.in, p.out = ev, events[i+1]
			if ev.Type == parser.EventFXOut {
				p.in, p.out = events[i+1], ev
			}
			pairs = append(pairs, p)
			i++
			continue
		}
		res.Unpaired++
		r.log.Debug().Int("line", ev.Line).Msg("dropping exchange leg without counterpart")
	}
	return pairs, econ, positions
}

func (r *Reconciler) groups(econ []parser.RawEvent, positions []int) []group {
	var out []group
	offset := 0
	for _, evs := range parser.Clusters(econ) {
		out = append(out, group{
			events: evs,
			start:  positions[offset],
			end:    positions[offset+len(evs)-1],
		})
		offset += len(evs)
	}
	return out
}

func (r *Reconciler) pairFor(g group, pairs []*pair) *pair {
	currency := parser.GroupCurrency(g.events)
	if currency == "" || currency == r.accountCurrency {
		return nil
	}
	for _, ev := range g.events {
		if ev.Conversion != nil {
			return nil
		}
	}

	want := parser.ForexLeg(inflow(g.events))
	qualifies := func(p *pair) bool {
		if p.used {
			return false
		}
		forex := p.leg(want)
		local := p.leg(otherLeg(want))
		if forex.Amount.Currency != currency {
			return false
		}
		return r.accountCurrency == "" || local.Amount.Currency == r.accountCurrency
	}

	clusters := map[int]bool{}
	for _, ev := range g.events {
		clusters[ev.Cluster] = true
	}
	for _, p := range pairs {
		if p.link != 0 && clusters[p.link] && qualifies(p) {
			return p
		}
	}

	first, second := r.before, r.after
	if r.direction == parser.PairAfter {
		first, second = r.after, r.before
	}
	if p := first(g, pairs, qualifies); p != nil {
		return p
	}
	return second(g, pairs, qualifies)
}

// before finds the nearest qualifying pair that ends ahead of the group.
func (r *Reconciler) before(g group, pairs []*pair, ok func(*pair) bool) *pair {
	var best *pair
	for _, p := range pairs {
		dist := g.start - p.end
		if dist < 1 || dist > r.window || !ok(p) {
			continue
		}
		if best == nil || dist < g.start-best.end {
			best = p
		}
	}
	return best
}

// after finds the nearest qualifying pair that starts behind the group.
func (r *Reconciler) after(g group, pairs []*pair, ok func(*pair) bool) *pair {
	var best *pair
	for _, p := range pairs {
		dist := p.start - g.end
		if dist < 1 || dist > r.window || !ok(p) {
			continue
		}
		if best == nil || dist < best.start-g.end {
			best = p
		}
	}
	return best
}

// inflow reports whether the cluster brings money into the account.
func inflow(events []parser.RawEvent) bool {
	ev := events[0]
	if i := parser.Principal(events); i >= 0 {
		ev = events[i]
	}
	return !ev.Amount.IsNegative()
}

func otherLeg(t parser.EventType) parser.EventType {
	if t == parser.EventFXIn {
		return parser.EventFXOut
	}
	return parser.EventFXIn
}
