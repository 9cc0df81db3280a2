package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-importer/internal/models"
)

// CSVWriter writes extracted items to CSV, one row per item.
type CSVWriter struct {
	IncludeHeader bool
}

// Header lists the CSV columns.
var Header = []string{
	"Date", "Type", "Security", "ISIN", "Shares", "Amount", "Currency",
	"Gross Value", "Taxes", "Fees", "Forex Amount", "Forex Currency", "Exchange Rate", "Note",
}

// WriteToFile writes the statement to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, st *models.Statement) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, st)
}

// Write writes the statement in CSV format to the given writer.
func (w *CSVWriter) Write(out io.Writer, st *models.Statement) error {
	writer := csv.NewWriter(out)

	if w.IncludeHeader {
		meta := [][2]string{
			{"# Source", st.Source},
			{"# Layout", st.Layout},
			{"# Account Currency", st.AccountCurrency},
		}
		for _, m := range meta {
			if m[1] == "" {
				continue
			}
			if err := writer.Write(m[:]); err != nil {
				return fmt.Errorf("failed to write CSV metadata: %w", err)
			}
		}
	}

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, it := range st.Items {
		if err := writer.Write(Row(it)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// Row flattens an item into the Header columns. A trade is written from its
// portfolio side.
func Row(it models.Item) []string {
	switch v := it.(type) {
	case models.SecurityItem:
		return []string{"", "SECURITY", v.Security.Name, v.Security.ISIN, "", "", v.Security.Currency, "", "", "", "", "", "", ""}
	case models.TransactionItem:
		tx := v.Transaction
		return row(tx.DateTime, tx.Type, tx.Security, tx.Shares, tx.Amount, tx.GrossValue, tx.Units, tx.Note)
	case models.BuySellEntryItem:
		p := v.Entry.Portfolio
		return row(p.DateTime, p.Type, p.Security, p.Shares, p.Amount, p.GrossValue, p.Units, p.Note)
	}
	return make([]string, len(Header))
}

func row(at time.Time, typ models.TransactionType, sec *models.Security, shares decimal.Decimal,
	amount, gross models.Money, units []models.Unit, note string) []string {
	var name, isin string
	if sec != nil {
		name, isin = sec.Name, sec.ISIN
	}
	var forexAmount, forexCurrency, rate string
	if u, ok := models.ExchangeRateUnit(units); ok {
		forexAmount = formatDecimal(u.Forex.Decimal(), models.Exponent(u.Forex.Currency))
		forexCurrency = u.Forex.Currency
		rate = u.ExchangeRate.String()
	}
	var sharesText string
	if !shares.IsZero() {
		sharesText = shares.String()
	}
	return []string{
		formatDate(at),
		string(typ),
		name,
		isin,
		sharesText,
		formatAmount(amount),
		amount.Currency,
		formatAmount(gross),
		formatAmount(models.NewMoney(amount.Currency, models.SumUnits(units, models.UnitTax))),
		formatAmount(models.NewMoney(amount.Currency, models.SumUnits(units, models.UnitFee))),
		forexAmount,
		forexCurrency,
		rate,
		note,
	}
}

func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04")
}

func formatAmount(m models.Money) string {
	if m.Amount == 0 {
		return ""
	}
	return formatDecimal(m.Decimal(), models.Exponent(m.Currency))
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
