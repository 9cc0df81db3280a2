package parser

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-importer/internal/models"
)

const overviewStatement = `Transaktionsübersicht
Datum Uhrzeit Produkt ISIN Börse Ausführungsort Anzahl Kurs Wert Wert Wechselkurs Transaktionskosten Gesamt
05-03-2021 15:30 APPLE INC US0378331005 NDQ XNAS 10 120,50 USD -1.205,00 USD -1.010,26 EUR 1,1928 -0,54 EUR -1.010,80 EUR
06-03-2021 09:04 APPLE INC US0378331005 NDQ XNAS -4 125,00 USD 500,00 USD 419,18 EUR 1,1928 -0,51 EUR 418,67 EUR
07-03-2021 10:00 ISHARES CORE EURO STOXX 50 IE0008471009 XET XETA 3 40,10 EUR -120,30 EUR -120,30 EUR -2,00 EUR -122,30 EUR
08-03-2021 11:00 UNKNOWN PRODUCT XET XETA 3 40,10 EUR -120,30 EUR -120,30 EUR -122,30 EUR`

func TestOverviewTokenizer_Tokenize(t *testing.T) {
	layout := AutoDetect(overviewStatement)
	if layout.Family != FamilyOverview || layout.Locale.Code != "de" {
		t.Fatalf("layout: got %s", layout.Name())
	}

	lines := layout.Tokenizer().Tokenize(overviewStatement)
	if len(lines) != 4 {
		t.Fatalf("lines: got %d, want 4", len(lines))
	}

	buy := lines[0]
	if buy.Trade == nil {
		t.Fatalf("row 1 not read as a trade: %v", buy.Malformed)
	}
	tc := buy.Trade
	if buy.ISIN != "US0378331005" || buy.Name != "APPLE INC" || tc.Venue != "NDQ XNAS" {
		t.Errorf("product columns: %q %q %q", buy.Name, buy.ISIN, tc.Venue)
	}
	if !tc.Shares.Equal(decimal.NewFromInt(10)) {
		t.Errorf("shares: got %s", tc.Shares)
	}
	if !tc.Price.Equal(decimal.RequireFromString("120.5")) || tc.PriceCurrency != "USD" {
		t.Errorf("price: got %s %s", tc.Price, tc.PriceCurrency)
	}
	if tc.Value != models.NewMoney("USD", -120500) {
		t.Errorf("value: got %v", tc.Value)
	}
	if tc.Local != models.NewMoney("EUR", -101026) {
		t.Errorf("local: got %v", tc.Local)
	}
	if !tc.Rate.Equal(decimal.RequireFromString("1.1928")) {
		t.Errorf("rate: got %s", tc.Rate)
	}
	if tc.Fee == nil || *tc.Fee != models.NewMoney("EUR", -54) {
		t.Errorf("fee: got %v", tc.Fee)
	}
	if tc.Total != models.NewMoney("EUR", -101080) {
		t.Errorf("total: got %v", tc.Total)
	}

	if sell := lines[1].Trade; sell == nil || !sell.Shares.IsNegative() {
		t.Errorf("row 2: expected a sale")
	}

	eur := lines[2].Trade
	if eur == nil {
		t.Fatalf("row 3 not read as a trade: %v", lines[2].Malformed)
	}
	if !eur.Rate.IsZero() {
		t.Errorf("row 3: no rate column, got %s", eur.Rate)
	}
	if eur.Fee == nil || *eur.Fee != models.NewMoney("EUR", -200) {
		t.Errorf("row 3 fee: got %v", eur.Fee)
	}

	if !errors.Is(lines[3].Malformed, models.ErrMalformedTrade) {
		t.Errorf("row 4: got %v, want malformed trade", lines[3].Malformed)
	}
}
