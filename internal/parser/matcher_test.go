package parser

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-importer/internal/models"
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

func matchText(t *testing.T, text string) (Layout, Result) {
	t.Helper()
	layout := AutoDetect(text)
	return layout, Match(layout, layout.Tokenizer().Tokenize(text))
}

func TestMatch_AccountRules(t *testing.T) {
	_, res := matchText(t, accountStatement)

	wantTypes := []EventType{
		EventDividend, EventDividendTax,
		EventFXIn, EventFXOut, EventDividend,
		EventBuy, EventFee,
		EventDeposit,
		EventFee,
	}
	if len(res.Events) != len(wantTypes) {
		t.Fatalf("events: got %d, want %d", len(res.Events), len(wantTypes))
	}
	for i, want := range wantTypes {
		if res.Events[i].Type != want {
			t.Errorf("event[%d]: got %s, want %s", i, res.Events[i].Type, want)
		}
	}

	clusters := []int{1, 1, 2, 2, 2, 3, 3, 4, 5}
	for i, want := range clusters {
		if res.Events[i].Cluster != want {
			t.Errorf("event[%d].Cluster: got %d, want %d", i, res.Events[i].Cluster, want)
		}
	}

	if res.Events[2].Link != 2 || res.Events[3].Link != 2 || res.Events[4].Link != 0 {
		t.Errorf("exchange legs not linked to their dividend")
	}
	if !res.Events[3].Rate.Equal(decimal.RequireFromString("1.2212")) {
		t.Errorf("fx rate: got %s", res.Events[3].Rate)
	}
	if !res.Events[5].Shares.Equal(decimal.NewFromInt(2)) {
		t.Errorf("buy shares: got %s", res.Events[5].Shares)
	}
	if generic := res.Events[8]; !generic.Generic || generic.Description != "Sonderaktion" {
		t.Errorf("unknown description: generic %v, description %q", generic.Generic, generic.Description)
	}

	if len(res.Errors) != 1 {
		t.Fatalf("errors: got %d, want 1", len(res.Errors))
	}
	if res.Errors[0].Line != 11 || !errors.Is(res.Errors[0], models.ErrUnrecognizedLine) {
		t.Errorf("error: got %v", res.Errors[0])
	}

	rules := map[int]string{}
	for _, tr := range res.Trace {
		rules[tr.LineNum] = tr.Rule
	}
	for line, want := range map[int]string{2: "dividend+tax", 4: "fx-pair+event", 7: "trade+fee", 9: "single"} {
		if rules[line] != want {
			t.Errorf("line %d rule: got %q, want %q", line, rules[line], want)
		}
	}
}

func TestMatch_TradeWithoutQuantity(t *testing.T) {
	text := `Kontoauszug
04-08-2017 10:00 APPLE INC US0378331005 Kauf USD -300,00
05-08-2017 Einzahlung EUR 350,00`

	_, res := matchText(t, text)
	if len(res.Events) != 1 || res.Events[0].Type != EventDeposit {
		t.Fatalf("events: got %+v", res.Events)
	}
	if len(res.Errors) != 1 || !errors.Is(res.Errors[0], models.ErrMalformedTrade) {
		t.Fatalf("errors: got %v", res.Errors)
	}
}

func TestMatch_PairWithoutEvent(t *testing.T) {
	text := `Kontoauszug
03-08-2017 14:02 Währungswechsel (Einbuchung) EUR 5,87
03-08-2017 14:02 Währungswechsel (Ausbuchung) 1,2212 USD -7,18
05-08-2017 Einzahlung EUR 350,00`

	_, res := matchText(t, text)
	if len(res.Events) != 3 {
		t.Fatalf("events: got %d, want 3", len(res.Events))
	}
	if res.Events[0].Link != 0 || res.Events[0].Cluster != res.Events[1].Cluster {
		t.Errorf("stand-alone pair: link %d, clusters %d/%d", res.Events[0].Link, res.Events[0].Cluster, res.Events[1].Cluster)
	}
}

func TestMatch_OverviewRows(t *testing.T) {
	_, res := matchText(t, overviewStatement)

	// Three rows with a fee each; the row without ISIN is an error.
	if len(res.Events) != 6 {
		t.Fatalf("events: got %d, want 6", len(res.Events))
	}
	if len(res.Errors) != 1 {
		t.Fatalf("errors: got %d, want 1", len(res.Errors))
	}

	buy, fee := res.Events[0], res.Events[1]
	if buy.Type != EventBuy || fee.Type != EventFee {
		t.Fatalf("row 1: got %s + %s", buy.Type, fee.Type)
	}
	if buy.Cluster != fee.Cluster {
		t.Error("trade and fee of one row must share a cluster")
	}
	if buy.Conversion == nil || buy.Conversion.Local != "EUR" || buy.Conversion.Forex != "USD" {
		t.Fatalf("row 1 conversion: got %+v", buy.Conversion)
	}
	if buy.Conversion.LocalLeg != models.NewMoney("EUR", 101026) {
		t.Errorf("local leg: got %v", buy.Conversion.LocalLeg)
	}
	if fee.Conversion != buy.Conversion {
		t.Error("fee must share the row's conversion")
	}
	if fee.Amount != models.NewMoney("EUR", -54) {
		t.Errorf("fee is a charge: got %v", fee.Amount)
	}

	if res.Events[2].Type != EventSell || !res.Events[2].Shares.Equal(decimal.NewFromInt(4)) {
		t.Errorf("row 2: got %s %s", res.Events[2].Type, res.Events[2].Shares)
	}
	if res.Events[4].Type != EventBuy || res.Events[4].Conversion != nil || res.Events[5].Type != EventFee {
		t.Errorf("row 3: EUR trade needs no conversion")
	}
}

func TestMatch_BankFallback(t *testing.T) {
	text := `Metro Bank
Date Description Money out Money in Balance
Opening balance 100.00
10/01/2024 CARD PAYMENT ASDA 35.50 64.50
11/01/2024 FASTER PAYMENT RECEIVED 100.00 164.50
13/01/2024 INTEREST PAYMENT 0.25 164.75
14/01/2024 MONTHLY FEE 5.00 159.75`

	_, res := matchText(t, text)
	want := []EventType{EventRemoval, EventDeposit, EventInterest, EventFee}
	if len(res.Events) != len(want) {
		t.Fatalf("events: got %d, want %d", len(res.Events), len(want))
	}
	for i, w := range want {
		if res.Events[i].Type != w {
			t.Errorf("event[%d]: got %s, want %s", i, res.Events[i].Type, w)
		}
	}
}
