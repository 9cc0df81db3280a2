package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/insightdelivered/statement-importer/internal/extract"
	"github.com/insightdelivered/statement-importer/internal/extractor"
	"github.com/insightdelivered/statement-importer/internal/models"
	"github.com/insightdelivered/statement-importer/internal/parser"
	"github.com/insightdelivered/statement-importer/internal/security"
	"github.com/insightdelivered/statement-importer/internal/validate"
	"github.com/insightdelivered/statement-importer/internal/writer"
)

// Output formats.
const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

type extractOptions struct {
	currency string
	format   string
	layout   string
	output   string
	header   bool
	verify   bool
	trace    bool
	workers  int
	fxDir    string
}

func newExtractCmd(a *app) *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "extract <statement>...",
		Short: "Extract transactions from statement files",
		Long: `Extract transactions from PDF or text statements.

The statement layout and language are detected from the text unless --layout
is given. Exchange legs are converted into the account currency.`,
		Example: `  # Show the transactions of a statement
  statement-importer extract konto.pdf

  # Write one CSV per statement next to the input
  statement-importer extract --format csv jan.pdf feb.pdf

  # JSON to stdout, re-checking the result
  statement-importer extract --format json --verify --currency USD overview.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExtract(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.currency, "currency", "", "account currency (defaults to ACCOUNT_CURRENCY)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatTable, "output format: table, csv or json")
	cmd.Flags().StringVar(&opts.layout, "layout", "", "force a layout such as account/de or overview/nl")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "CSV output path for a single statement, or - for stdout")
	cmd.Flags().BoolVar(&opts.header, "header", true, "include statement metadata rows in CSV")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "re-check the extracted items and fail on violations")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "include the per-line trace in JSON output")
	cmd.Flags().IntVar(&opts.workers, "workers", 4, "statements extracted in parallel")
	cmd.Flags().StringVar(&opts.fxDir, "fx-direction", "", "where exchange legs are printed: before or after the event (defaults to FX_DIRECTION)")
	return cmd
}

// extractOptions builds the engine options from the configuration. A non-empty
// direction overrides FX_DIRECTION.
func (a *app) extractOptions(direction string) (extract.Options, error) {
	if direction == "" {
		direction = a.cfg.FXDirection
	}
	d, err := parser.ParseDirection(direction)
	if err != nil {
		return extract.Options{}, err
	}
	return extract.Options{
		AccountCurrency: a.cfg.AccountCurrency,
		FXWindow:        a.cfg.FXWindow,
		Direction:       d,
	}, nil
}

func (a *app) runExtract(ctx context.Context, out io.Writer, opts *extractOptions, paths []string) error {
	switch opts.format {
	case formatTable, formatCSV, formatJSON:
	default:
		return fmt.Errorf("unknown format %q, use table, csv or json", opts.format)
	}
	if opts.output != "" && opts.format == formatCSV && len(paths) > 1 && opts.output != "-" {
		return errors.New("--output needs a single statement; omit it to write one CSV per input")
	}
	exOpts, err := a.extractOptions(opts.fxDir)
	if err != nil {
		return err
	}

	catalog, closeCatalog, err := a.openCatalog(ctx)
	if err != nil {
		return err
	}
	defer closeCatalog()

	reqs := make([]extract.Request, 0, len(paths))
	for _, path := range paths {
		text, err := extractor.ReadStatement(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		reqs = append(reqs, extract.Request{
			Source:          filepath.Base(path),
			Text:            text,
			Layout:          opts.layout,
			AccountCurrency: opts.currency,
		})
	}

	ex := extract.New(catalog, nil, a.log, exOpts)
	statements := ex.RunAll(ctx, reqs, opts.workers)

	switch opts.format {
	case formatJSON:
		if err := (&writer.JSONWriter{Indent: true, Trace: opts.trace}).Write(out, statements...); err != nil {
			return err
		}
	case formatCSV:
		if err := writeCSV(out, opts, paths, statements); err != nil {
			return err
		}
	default:
		for _, st := range statements {
			if err := printStatement(out, st); err != nil {
				return err
			}
		}
	}

	failed := 0
	for _, st := range statements {
		if extract.Fatal(st.Errors) || st.Layout == "" {
			failed++
		}
	}

	if opts.verify {
		violations := 0
		for _, st := range statements {
			known := knownSecurities(ctx, catalog, st.Items)
			for _, v := range validate.Check(st.Items, validate.Options{AccountCurrency: st.AccountCurrency, Known: known}) {
				pterm.Error.WithWriter(out).Printfln("%s: %v", st.Source, v)
				violations++
			}
		}
		if violations > 0 {
			return fmt.Errorf("%d consistency violation(s)", violations)
		}
		pterm.Success.WithWriter(out).Println("All items passed verification")
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d statement(s) could not be read", failed, len(statements))
	}
	return nil
}

// knownSecurities returns the catalog entries for securities the items refer
// to without announcing them.
func knownSecurities(ctx context.Context, catalog security.Catalog, items []models.Item) []models.Security {
	announced := make(map[string]bool)
	var known []models.Security
	for _, it := range items {
		var sec *models.Security
		switch v := it.(type) {
		case models.SecurityItem:
			announced[v.Security.ISIN] = true
		case models.TransactionItem:
			sec = v.Transaction.Security
		case models.BuySellEntryItem:
			sec = v.Entry.Portfolio.Security
		}
		if sec == nil || announced[sec.ISIN] {
			continue
		}
		if s, err := catalog.FindByISIN(ctx, sec.ISIN); err == nil {
			known = append(known, s)
			announced[s.ISIN] = true
		}
	}
	return known
}

func writeCSV(out io.Writer, opts *extractOptions, paths []string, statements []*models.Statement) error {
	w := &writer.CSVWriter{IncludeHeader: opts.header}
	for i, st := range statements {
		if opts.output == "-" {
			if err := w.Write(out, st); err != nil {
				return err
			}
			continue
		}
		path := opts.output
		if path == "" {
			path = strings.TrimSuffix(paths[i], filepath.Ext(paths[i])) + ".csv"
		}
		if err := w.WriteToFile(path, st); err != nil {
			return fmt.Errorf("CSV write failed: %w", err)
		}
		pterm.Info.WithWriter(out).Printfln("%s: %d item(s) written to %s", st.Source, len(st.Items), path)
	}
	return nil
}

func printStatement(out io.Writer, st *models.Statement) error {
	pterm.DefaultSection.WithWriter(out).Printfln("%s (%s, %s)", st.Source, layoutName(st), st.AccountCurrency)

	if len(st.Items) == 0 {
		pterm.Warning.WithWriter(out).Println("No items found")
	} else {
		data := pterm.TableData{{"Date", "Type", "Security", "Shares", "Amount", "Gross", "Taxes", "Fees", "Forex", "Rate"}}
		for _, it := range st.Items {
			r := writer.Row(it)
			data = append(data, []string{r[0], r[1], r[2], r[4], amountCell(r[5], r[6]), r[7], r[8], r[9], strings.TrimSpace(r[10] + " " + r[11]), r[12]})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithWriter(out).WithData(data).Render(); err != nil {
			return err
		}
	}

	for _, e := range st.Errors {
		pterm.Warning.WithWriter(out).Printfln("[%s] %v", extract.ErrorKind(e), e)
	}
	return nil
}

func amountCell(amount, currency string) string {
	if amount == "" {
		return ""
	}
	return amount + " " + currency
}

func layoutName(st *models.Statement) string {
	if st.Layout == "" {
		return "unknown layout"
	}
	return st.Layout
}
