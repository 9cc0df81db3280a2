// Package extract is the entry point of the engine: one call turns the text
// of one statement into items and a list of non-fatal errors.
package extract

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/insightdelivered/statement-importer/internal/assemble"
	"github.com/insightdelivered/statement-importer/internal/metrics"
	"github.com/insightdelivered/statement-importer/internal/models"
	"github.com/insightdelivered/statement-importer/internal/parser"
	"github.com/insightdelivered/statement-importer/internal/reconcile"
	"github.com/insightdelivered/statement-importer/internal/security"
)

// Options tune extraction. The zero value detects everything from the text.
type Options struct {
	// AccountCurrency is the currency exchange legs convert into. Empty
	// accepts whatever the statement exchanges into.
	AccountCurrency string
	// FXWindow bounds how far an exchange pair may sit from its event.
	FXWindow int
	// Direction is the side of an event its exchange legs are searched on
	// first.
	Direction parser.Direction
}

// Request is one statement to extract.
type Request struct {
	Source string
	Text   string
	// Layout forces a layout name such as "account/de" instead of detection.
	Layout string
	// AccountCurrency overrides Options.AccountCurrency for this statement.
	AccountCurrency string
}

// Extractor runs the tokenizer, matcher, reconciler and assembler over one
// statement at a time. It is safe for concurrent use as long as the catalog is.
type Extractor struct {
	catalog security.Catalog
	metrics *metrics.Metrics
	log     zerolog.Logger
	opts    Options
}

// New creates an extractor. catalog and m may be nil.
func New(catalog security.Catalog, m *metrics.Metrics, log zerolog.Logger, opts Options) *Extractor {
	return &Extractor{catalog: catalog, metrics: m, log: log, opts: opts}
}

// Extract returns the items of one statement and the problems met on the way.
// Only a statement that has no content at all yields no items and a single
// error; otherwise errors describe individual lines or blocks.
func (e *Extractor) Extract(ctx context.Context, source, text string) ([]models.Item, []*models.ExtractError) {
	st := e.Run(ctx, Request{Source: source, Text: text})
	return st.Items, st.Errors
}

// Run extracts one statement and reports how it was read.
func (e *Extractor) Run(ctx context.Context, req Request) (st *models.Statement) {
	start := time.Now()
	st = &models.Statement{
		RunID:  ulid.Make().String(),
		Source: req.Source,
	}
	log := e.log.With().Str("run_id", st.RunID).Str("source", req.Source).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered while extracting statement")
			st.Items = nil
			st.Errors = []*models.ExtractError{models.NewExtractError(0, "", models.ErrBlockPanic)}
		}
		e.observe(st, time.Since(start))
	}()

	if strings.TrimSpace(req.Text) == "" {
		st.Errors = fatal(models.ErrEmptyStatement)
		return st
	}

	layout, err := e.layout(req)
	if err != nil {
		st.Errors = fatal(err)
		return st
	}
	layout.Direction = e.opts.Direction
	if layout.Family == parser.FamilyBank && req.AccountCurrency != "" {
		layout.Currency = strings.ToUpper(req.AccountCurrency)
	}
	st.Layout = layout.Name()
	st.Locale = layout.Locale.Code

	lines := layout.Tokenizer().Tokenize(req.Text)
	if len(lines) == 0 {
		log.Info().Str("layout", st.Layout).Msg("no statement lines recognized")
		st.Errors = fatal(models.ErrNoStatementContent)
		return st
	}

	matched := parser.Match(layout, lines)
	st.Trace = matched.Trace
	st.AccountCurrency = e.accountCurrency(req, layout, lines)

	rec := reconcile.New(st.AccountCurrency, e.opts.FXWindow, layout.Direction, log).Reconcile(matched.Events)
	if e.metrics != nil {
		e.metrics.FXPairs.WithLabelValues("paired").Add(float64(rec.Paired))
		e.metrics.FXPairs.WithLabelValues("unpaired").Add(float64(rec.Unpaired))
	}

	resolver := security.NewResolver(e.catalog, log)
	items, errs := assemble.New(req.Source, resolver, log).Assemble(ctx, rec.Events)

	st.Items = items
	st.Errors = append(matched.Errors, errs...)
	slices.SortStableFunc(st.Errors, func(a, b *models.ExtractError) int {
		return a.Line - b.Line
	})

	log.Info().
		Str("layout", st.Layout).
		Str("account_currency", st.AccountCurrency).
		Int("lines", len(lines)).
		Int("items", len(st.Items)).
		Int("errors", len(st.Errors)).
		Msg("extracted statement")
	return st
}

// RunAll extracts statements concurrently with at most workers in flight.
// Results are in request order.
func (e *Extractor) RunAll(ctx context.Context, reqs []Request, workers int) []*models.Statement {
	out := make([]*models.Statement, len(reqs))
	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			out[i] = e.Run(ctx, req)
			return nil
		})
	}
	// Run reports problems inside each statement; the group never fails.
	_ = g.Wait()
	return out
}

func (e *Extractor) layout(req Request) (parser.Layout, error) {
	if req.Layout == "" {
		return parser.AutoDetect(req.Text), nil
	}
	layout, err := parser.ParseLayout(req.Layout)
	if err != nil {
		return parser.Layout{}, fmt.Errorf("layout %q: %w", req.Layout, err)
	}
	return layout, nil
}

// accountCurrency picks the currency exchange legs convert into. Bank
// statements are single-currency; their tokenizer already settled it.
func (e *Extractor) accountCurrency(req Request, layout parser.Layout, lines []parser.TokenLine) string {
	if layout.Family == parser.FamilyBank {
		for _, tl := range lines {
			if tl.Amount.Currency != "" {
				return tl.Amount.Currency
			}
		}
	}
	if req.AccountCurrency != "" {
		return strings.ToUpper(req.AccountCurrency)
	}
	return strings.ToUpper(e.opts.AccountCurrency)
}

func (e *Extractor) observe(st *models.Statement, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.ExtractDuration.Observe(elapsed.Seconds())
	if st.Layout == "" || Fatal(st.Errors) {
		e.metrics.StatementsFailed.Inc()
		return
	}
	e.metrics.StatementsProcessed.WithLabelValues(st.Layout).Inc()
	for _, it := range st.Items {
		e.metrics.ItemsEmitted.WithLabelValues(string(it.Kind())).Inc()
	}
	for _, err := range st.Errors {
		e.metrics.ExtractErrors.WithLabelValues(ErrorKind(err)).Inc()
	}
}

func fatal(err error) []*models.ExtractError {
	return []*models.ExtractError{models.NewExtractError(0, "", err)}
}
