package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-importer/internal/metrics"
	"github.com/insightdelivered/statement-importer/internal/models"
	"github.com/insightdelivered/statement-importer/internal/parser"
	"github.com/insightdelivered/statement-importer/internal/security"
)

const accountStatement = `Kontoauszug
02-08-2017 08:00 ISHARES CORE EURO STOXX 50 IE0008471009 Dividende EUR 1,52 EUR 351,52
02-08-2017 08:00 ISHARES CORE EURO STOXX 50 IE0008471009 Dividendensteuer EUR -0,23 EUR 351,29
03-08-2017 14:02 Währungswechsel (Einbuchung) EUR 5,87 EUR 357,16
03-08-2017 14:02 Währungswechsel (Ausbuchung) 1,2212 USD -7,18 USD 0,00
03-08-2017 08:00 APPLE INC US0378331005 Dividende USD 1,23 USD 7,18
04-08-2017 10:00 APPLE INC US0378331005 Kauf 2 zu je 150,00 USD USD -300,00
04-08-2017 10:00 APPLE INC US0378331005 Transaktionsgebühr EUR -0,50
05-08-2017 Einzahlung EUR 350,00
05-08-2017 Sonderaktion EUR -1,00
06-08-2017 Einzahlung 12,00`

const overviewStatement = `Transaktionsübersicht
Datum Uhrzeit Produkt ISIN Börse Ausführungsort Anzahl Kurs Wert Wert Wechselkurs Transaktionskosten Gesamt
05-03-2021 15:30 APPLE INC US0378331005 NDQ XNAS 10 120,50 USD -1.205,00 USD -1.010,26 EUR 1,1928 -0,54 EUR -1.010,80 EUR
06-03-2021 09:04 APPLE INC US0378331005 NDQ XNAS -4 125,00 USD 500,00 USD 419,18 EUR 1,1928 -0,51 EUR 418,67 EUR
07-03-2021 10:00 ISHARES CORE EURO STOXX 50 IE0008471009 XET XETA 3 40,10 EUR -120,30 EUR -120,30 EUR -2,00 EUR -122,30 EUR
08-03-2021 11:00 UNKNOWN PRODUCT XET XETA 3 40,10 EUR -120,30 EUR -120,30 EUR -122,30 EUR`

func newExtractor(catalog security.Catalog) *Extractor {
	return New(catalog, nil, zerolog.Nop(), Options{AccountCurrency: "EUR"})
}

func TestExtract_SingleDeposit(t *testing.T) {
	items, errs := newExtractor(nil).Extract(context.Background(), "deposit.txt", "02-08-2017 Einzahlung EUR 350,00")

	require.Empty(t, errs)
	require.Len(t, items, 1)
	tx, ok := items[0].(models.TransactionItem)
	require.True(t, ok)
	assert.Equal(t, models.TypeDeposit, tx.Transaction.Type)
	assert.Equal(t, models.NewMoney("EUR", 35000), tx.Transaction.Amount)
	assert.Equal(t, "deposit.txt", tx.Transaction.Source)
}

func TestExtract_AccountStatement(t *testing.T) {
	items, errs := newExtractor(nil).Extract(context.Background(), "konto.txt", accountStatement)

	// The stray line without a currency is reported once and nothing else fails.
	require.Len(t, errs, 1)
	assert.Equal(t, 11, errs[0].Line)
	assert.ErrorIs(t, errs[0], models.ErrUnrecognizedLine)

	kinds := make([]models.ItemKind, len(items))
	for i, it := range items {
		kinds[i] = it.Kind()
	}
	assert.Equal(t, []models.ItemKind{
		models.KindSecurity, models.KindTransaction,
		models.KindSecurity, models.KindTransaction,
		models.KindBuySellEntry, models.KindTransaction,
		models.KindTransaction,
		models.KindTransaction,
	}, kinds)

	// Dividend with withholding tax.
	div := items[1].(models.TransactionItem).Transaction
	assert.Equal(t, models.TypeDividends, div.Type)
	assert.Equal(t, models.NewMoney("EUR", 129), div.Amount)
	assert.Equal(t, models.NewMoney("EUR", 152), div.GrossValue)
	assert.Equal(t, int64(23), models.SumUnits(div.Units, models.UnitTax))

	// Foreign dividend converted with the exchange legs before it.
	usd := items[3].(models.TransactionItem).Transaction
	assert.Equal(t, models.TypeDividends, usd.Type)
	assert.Equal(t, models.NewMoney("EUR", 101), usd.Amount)
	fx, ok := models.ExchangeRateUnit(usd.Units)
	require.True(t, ok)
	assert.Equal(t, models.NewMoney("USD", 123), *fx.Forex)
	assert.True(t, fx.ExchangeRate.Equal(decimal.RequireFromString("0.8188666885")), "rate %s", fx.ExchangeRate)

	buy := items[4].(models.BuySellEntryItem).Entry
	assert.Equal(t, models.TypeBuy, buy.Account.Type)
	assert.Equal(t, models.NewMoney("USD", 30000), buy.Account.Amount)
	assert.True(t, buy.Portfolio.Shares.Equal(decimal.NewFromInt(2)))

	fee := items[5].(models.TransactionItem).Transaction
	assert.Equal(t, models.TypeFees, fee.Type)
	assert.Equal(t, models.NewMoney("EUR", 50), fee.Amount)

	generic := items[7].(models.TransactionItem).Transaction
	assert.Equal(t, models.TypeFees, generic.Type)
	assert.Equal(t, "05-08-2017 Sonderaktion EUR -1,00", generic.Note)
}

func TestExtract_OverviewTotalsMatchStatement(t *testing.T) {
	st := newExtractor(nil).Run(context.Background(), Request{Source: "overview.txt", Text: overviewStatement})

	assert.Equal(t, "overview/de", st.Layout)
	require.Len(t, st.Errors, 1)
	assert.ErrorIs(t, st.Errors[0], models.ErrMalformedTrade)

	var totals []models.Money
	for _, it := range st.Items {
		if e, ok := it.(models.BuySellEntryItem); ok {
			totals = append(totals, e.Entry.Account.Amount)
		}
	}
	assert.Equal(t, []models.Money{
		models.NewMoney("EUR", 101080),
		models.NewMoney("EUR", 41867),
		models.NewMoney("EUR", 12230),
	}, totals)
}

func TestExtract_BankStatement(t *testing.T) {
	text := `Metro Bank
Date Description Money out Money in Balance
Opening balance 100.00
10/01/2024 CARD PAYMENT ASDA 35.50 64.50
11/01/2024 FASTER PAYMENT RECEIVED 100.00 164.50
13/01/2024 INTEREST PAYMENT 0.25 164.75`

	st := newExtractor(nil).Run(context.Background(), Request{Source: "metro.pdf", Text: text})
	require.Empty(t, st.Errors)
	assert.Equal(t, "GBP", st.AccountCurrency)

	want := []models.TransactionType{models.TypeRemoval, models.TypeDeposit, models.TypeInterest}
	require.Len(t, st.Items, len(want))
	for i, typ := range want {
		tx := st.Items[i].(models.TransactionItem).Transaction
		assert.Equal(t, typ, tx.Type)
		assert.Equal(t, "GBP", tx.Currency())
	}
}

func TestExtract_BankStatementCurrency(t *testing.T) {
	text := `Date Description Paid out Paid in Balance
Opening balance £100.00
02/02/2024 CARD PAYMENT AMAZON $ US 40.00 60.00
03/02/2024 TRANSFER IN 10.00 70.00`

	e := newExtractor(nil)
	for i := 0; i < 20; i++ {
		st := e.Run(context.Background(), Request{Source: "bank.txt", Text: text})
		require.Equal(t, "GBP", st.AccountCurrency, "run %d", i)
	}

	st := e.Run(context.Background(), Request{Source: "bank.txt", Text: text, AccountCurrency: "usd"})
	assert.Equal(t, "USD", st.AccountCurrency)
	require.Len(t, st.Items, 2)
	for _, it := range st.Items {
		assert.Equal(t, "USD", it.(models.TransactionItem).Transaction.Currency())
	}
}

func TestExtract_SameDateLinesStaySeparate(t *testing.T) {
	text := `Kontoauszug
02-08-2017 Verbindungsgebühr EUR -2,50
02-08-2017 Dividende EUR 1,52
02-08-2017 Einzahlung EUR 350,00`

	items, errs := newExtractor(nil).Extract(context.Background(), "konto.txt", text)
	require.Empty(t, errs)

	want := []struct {
		typ    models.TransactionType
		amount int64
	}{
		{models.TypeFees, 250},
		{models.TypeDividends, 152},
		{models.TypeDeposit, 35000},
	}
	require.Len(t, items, len(want))
	for i, w := range want {
		tx := items[i].(models.TransactionItem).Transaction
		assert.Equal(t, w.typ, tx.Type)
		assert.Equal(t, models.NewMoney("EUR", w.amount), tx.Amount)
	}
}

func TestExtract_DividendTaxRefund(t *testing.T) {
	text := `Kontoauszug
02-08-2017 08:00 ISHARES CORE EURO STOXX 50 IE0008471009 Dividende EUR 1,52
02-08-2017 08:00 ISHARES CORE EURO STOXX 50 IE0008471009 Dividendensteuer EUR 0,23`

	items, errs := newExtractor(nil).Extract(context.Background(), "konto.txt", text)
	require.Empty(t, errs)

	var income int64
	for _, it := range items {
		if tx, ok := it.(models.TransactionItem); ok {
			assert.Equal(t, models.TypeDividends, tx.Transaction.Type)
			income += tx.Transaction.Amount.Amount
		}
	}
	assert.Equal(t, int64(175), income)
}

func TestExtract_ExchangeAfterDividend(t *testing.T) {
	text := `Kontoauszug
03-08-2017 08:00 APPLE INC US0378331005 Dividende USD 1,23 USD 7,18
03-08-2017 14:02 Währungswechsel (Ausbuchung) 1,2212 USD -7,18 USD 0,00
03-08-2017 14:02 Währungswechsel (Einbuchung) EUR 5,87 EUR 357,16`

	e := New(nil, nil, zerolog.Nop(), Options{AccountCurrency: "EUR", Direction: parser.PairAfter})
	st := e.Run(context.Background(), Request{Source: "konto.txt", Text: text})
	require.Empty(t, st.Errors)

	rules := map[int]string{}
	for _, tr := range st.Trace {
		rules[tr.LineNum] = tr.Rule
	}
	assert.Equal(t, "fx-pair+event", rules[2])

	txs := 0
	for _, it := range st.Items {
		tx, ok := it.(models.TransactionItem)
		if !ok {
			continue
		}
		txs++
		assert.Equal(t, models.TypeDividends, tx.Transaction.Type)
		assert.Equal(t, models.NewMoney("EUR", 101), tx.Transaction.Amount)
		fx, ok := models.ExchangeRateUnit(tx.Transaction.Units)
		require.True(t, ok)
		assert.Equal(t, models.NewMoney("USD", 123), *fx.Forex)
		assert.True(t, fx.ExchangeRate.Equal(decimal.RequireFromString("0.8188666885")), "rate %s", fx.ExchangeRate)
	}
	assert.Equal(t, 1, txs)
}

func TestExtract_FatalErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{"empty", "", models.ErrEmptyStatement},
		{"whitespace", " \n\t\n", models.ErrEmptyStatement},
		{"prose", "Dear customer,\nplease find enclosed your documents.", models.ErrNoStatementContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, errs := newExtractor(nil).Extract(context.Background(), "x.txt", tt.text)
			assert.Empty(t, items)
			require.Len(t, errs, 1)
			assert.ErrorIs(t, errs[0], tt.want)
			assert.True(t, Fatal(errs))
		})
	}
}

func TestExtract_ForcedLayout(t *testing.T) {
	e := newExtractor(nil)

	st := e.Run(context.Background(), Request{Text: "02-08-2017 Storting EUR 350,00", Layout: "account/nl"})
	require.Empty(t, st.Errors)
	assert.Equal(t, "account/nl", st.Layout)
	require.Len(t, st.Items, 1)

	st = e.Run(context.Background(), Request{Text: "02-08-2017 Storting EUR 350,00", Layout: "ledger/nl"})
	require.Len(t, st.Errors, 1)
	assert.Equal(t, 0, st.Errors[0].Line)
}

func TestExtract_Idempotent(t *testing.T) {
	e := newExtractor(nil)

	items1, errs1 := e.Extract(context.Background(), "konto.txt", accountStatement)
	items2, errs2 := e.Extract(context.Background(), "konto.txt", accountStatement)

	assert.Equal(t, items1, items2)
	assert.Equal(t, errs1, errs2)
}

func TestExtract_CatalogReuseAcrossStatements(t *testing.T) {
	catalog := security.NewMemoryCatalog()
	e := newExtractor(catalog)

	first, _ := e.Extract(context.Background(), "a.txt", accountStatement)
	second, _ := e.Extract(context.Background(), "b.txt", accountStatement)

	assert.Equal(t, 2, countKind(first, models.KindSecurity))
	assert.Equal(t, 0, countKind(second, models.KindSecurity), "securities already in the catalog are not announced again")
	assert.Equal(t, 2, catalog.Len())
}

func countKind(items []models.Item, kind models.ItemKind) int {
	n := 0
	for _, it := range items {
		if it.Kind() == kind {
			n++
		}
	}
	return n
}

func TestExtract_NeverPanics(t *testing.T) {
	inputs := []string{
		"\x00\x01\x02",
		"02-08-2017",
		"02-08-2017 EUR",
		"02-08-2017 Kauf zu je USD USD -",
		"99-99-9999 Einzahlung EUR 1,00",
		"02-08-2017 Einzahlung EUR 1,001",
		"Transaktionsübersicht\n05-03-2021 15:30 X US0378331005 10 1 USD",
		"Paid out\n01/01/2024 X 1.00",
		strings.Repeat("03-08-2017 14:02 Währungswechsel (Einbuchung) EUR 5,87\n", 50),
		accountStatement[:len(accountStatement)/2],
	}

	e := newExtractor(security.NewMemoryCatalog())
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			e.Extract(context.Background(), "fuzz.txt", in)
		}, "input %q", in)
	}
}

func TestRunAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	e := New(security.NewMemoryCatalog(), m, zerolog.Nop(), Options{AccountCurrency: "EUR"})

	reqs := []Request{
		{Source: "a.txt", Text: accountStatement},
		{Source: "b.txt", Text: overviewStatement},
		{Source: "c.txt", Text: ""},
		{Source: "d.txt", Text: "02-08-2017 Einzahlung EUR 350,00"},
	}
	out := e.RunAll(context.Background(), reqs, 2)

	require.Len(t, out, len(reqs))
	for i, st := range out {
		assert.Equal(t, reqs[i].Source, st.Source)
		assert.NotEmpty(t, st.RunID)
	}
	assert.True(t, Fatal(out[2].Errors))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.StatementsFailed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StatementsProcessed.WithLabelValues("overview/de")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FXPairs.WithLabelValues("paired")))
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{models.NewExtractError(3, "x", models.ErrOrphanTax), "orphan_tax"},
		{models.NewExtractError(0, "", models.ErrEmptyStatement), "empty_statement"},
		{models.ErrCurrencyMismatch, "currency_mismatch"},
		{assert.AnError, "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err))
	}
}
