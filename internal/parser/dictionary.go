package parser

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds case, composes accents and collapses whitespace so that
// descriptions and dictionary keywords compare byte-for-byte.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

type keyword struct {
	phrase string
	event  EventType
}

// Locale is the vocabulary of one statement language: keyword → canonical
// event, number formatting and the words that introduce a trade quantity.
type Locale struct {
	Code       string
	Number     NumberFormat
	keywords   []keyword
	connectors []string
}

func newLocale(code string, nf NumberFormat, words map[EventType][]string, connectors ...string) *Locale {
	l := &Locale{Code: code, Number: nf}
	for event, phrases := range words {
		for _, p := range phrases {
			l.keywords = append(l.keywords, keyword{phrase: Normalize(p), event: event})
		}
	}
	for _, c := range connectors {
		l.connectors = append(l.connectors, Normalize(c))
	}
	l.sortKeywords()
	return l
}

// Longest phrase first so "Dividendensteuer" wins over "Dividende".
func (l *Locale) sortKeywords() {
	sort.SliceStable(l.keywords, func(i, j int) bool {
		a, b := l.keywords[i].phrase, l.keywords[j].phrase
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
}

// Classify maps a description to a canonical event by substring match against
// the normalized text. The matched keyword is returned for tracing.
func (l *Locale) Classify(description string) (EventType, string, bool) {
	d := Normalize(description)
	for _, kw := range l.keywords {
		if strings.Contains(d, kw.phrase) {
			return kw.event, kw.phrase, true
		}
	}
	return "", "", false
}

var localeDE = newLocale("de", FormatComma, map[EventType][]string{
	EventDeposit:        {"Einzahlung", "SOFORT Einzahlung", "flatex Einzahlung"},
	EventRemoval:        {"Auszahlung", "Abhebung"},
	EventFee:            {"Transaktionsgebühr", "Transaktionskosten", "Verbindungsgebühr", "Weitergabegebühr", "Gebühr"},
	EventFeeRefund:      {"Gebührenerstattung", "Erstattung"},
	EventInterest:       {"Zinsen", "Habenzinsen", "Zinsertrag"},
	EventInterestCharge: {"Sollzinsen", "Zinsbelastung"},
	EventDividend:       {"Dividende", "Ausschüttung", "Kapitalrückzahlung"},
	EventDividendTax:    {"Dividendensteuer", "Quellensteuer", "Kapitalertragsteuer"},
	EventTradeTax:       {"Finanztransaktionssteuer"},
	EventBuy:            {"Kauf"},
	EventSell:           {"Verkauf"},
	EventFXIn:           {"Währungswechsel (Einbuchung)", "FX Gutschrift"},
	EventFXOut:          {"Währungswechsel (Ausbuchung)", "FX Lastschrift"},
	EventSecurity:       {"Produktwechsel", "ISIN-Änderung"},
}, "zu je", "@")

var localeNL = newLocale("nl", FormatComma, map[EventType][]string{
	EventDeposit:        {"Storting", "iDEAL Storting", "iDEAL Deposit"},
	EventRemoval:        {"Terugstorting", "Opname"},
	EventFee:            {"Transactiekosten", "Aansluitingskosten", "Kosten"},
	EventFeeRefund:      {"Terugbetaling kosten", "Restitutie"},
	EventInterest:       {"Rente", "Creditrente"},
	EventInterestCharge: {"Debetrente"},
	EventDividend:       {"Dividend"},
	EventDividendTax:    {"Dividendbelasting"},
	EventTradeTax:       {"Transactiebelasting", "Beurstaks"},
	EventBuy:            {"Koop"},
	EventSell:           {"Verkoop"},
	EventFXIn:           {"Valuta Creditering"},
	EventFXOut:          {"Valuta Debitering"},
	EventSecurity:       {"Productwijziging", "ISIN-wijziging"},
}, "@", "tegen")

var localeEN = newLocale("en", FormatDot, map[EventType][]string{
	EventDeposit:        {"Deposit", "iDEAL Deposit", "SOFORT Deposit"},
	EventRemoval:        {"Withdrawal"},
	EventFee:            {"Transaction Fee", "Connection Fee", "ADR/GDR Pass-Through Fee", "Commission", "Fee"},
	EventFeeRefund:      {"Fee Refund", "Refund"},
	EventInterest:       {"Interest"},
	EventInterestCharge: {"Debit Interest", "Interest Charge"},
	EventDividend:       {"Dividend"},
	EventDividendTax:    {"Dividend Tax", "Withholding Tax"},
	EventTradeTax:       {"Financial Transaction Tax", "Stamp Duty"},
	EventBuy:            {"Buy"},
	EventSell:           {"Sell"},
	EventFXIn:           {"FX Credit"},
	EventFXOut:          {"FX Debit"},
	EventSecurity:       {"Product Change", "ISIN Change"},
}, "@", "at")

var localeFR = newLocale("fr", FormatComma, map[EventType][]string{
	EventDeposit:        {"Dépôt", "Versement"},
	EventRemoval:        {"Retrait"},
	EventFee:            {"Frais de transaction", "Frais", "Commission"},
	EventFeeRefund:      {"Remboursement de frais", "Remboursement"},
	EventInterest:       {"Intérêts"},
	EventInterestCharge: {"Intérêts débiteurs"},
	EventDividend:       {"Dividende"},
	EventDividendTax:    {"Impôts sur dividende", "Retenue à la source"},
	EventTradeTax:       {"Taxe sur les transactions financières"},
	EventBuy:            {"Achat"},
	EventSell:           {"Vente"},
	EventFXIn:           {"Opération de change - Crédit"},
	EventFXOut:          {"Opération de change - Débit"},
	EventSecurity:       {"Changement de produit"},
}, "à", "@")

var localeIT = newLocale("it", FormatComma, map[EventType][]string{
	EventDeposit:        {"Deposito", "Versamento"},
	EventRemoval:        {"Prelievo"},
	EventFee:            {"Commissioni di transazione", "Commissione", "Costi"},
	EventFeeRefund:      {"Rimborso commissioni", "Rimborso"},
	EventInterest:       {"Interessi"},
	EventInterestCharge: {"Interessi passivi"},
	EventDividend:       {"Dividendo"},
	EventDividendTax:    {"Ritenuta sul dividendo", "Ritenuta"},
	EventTradeTax:       {"Tassa sulle transazioni finanziarie", "Tobin Tax"},
	EventBuy:            {"Acquisto"},
	EventSell:           {"Vendita"},
	EventFXIn:           {"Accredito Cambio Valuta"},
	EventFXOut:          {"Addebito Cambio Valuta"},
	EventSecurity:       {"Cambio prodotto"},
}, "@")

var localeES = newLocale("es", FormatComma, map[EventType][]string{
	EventDeposit:        {"Depósito", "Ingreso"},
	EventRemoval:        {"Retirada", "Retiro"},
	EventFee:            {"Costes de transacción", "Comisión", "Costes"},
	EventFeeRefund:      {"Reembolso de comisión", "Reembolso"},
	EventInterest:       {"Intereses"},
	EventInterestCharge: {"Intereses deudores"},
	EventDividend:       {"Dividendo"},
	EventDividendTax:    {"Retención del dividendo", "Retención"},
	EventTradeTax:       {"Impuesto sobre transacciones financieras"},
	EventBuy:            {"Compra"},
	EventSell:           {"Venta"},
	EventFXIn:           {"Ingreso Cambio de Divisa"},
	EventFXOut:          {"Retirada Cambio de Divisa"},
	EventSecurity:       {"Cambio de producto"},
}, "@")

var localePL = newLocale("pl", FormatComma, map[EventType][]string{
	EventDeposit:        {"Wpłata"},
	EventRemoval:        {"Wypłata"},
	EventFee:            {"Opłata transakcyjna", "Opłata", "Prowizja"},
	EventFeeRefund:      {"Zwrot opłaty", "Zwrot"},
	EventInterest:       {"Odsetki"},
	EventInterestCharge: {"Odsetki debetowe"},
	EventDividend:       {"Dywidenda"},
	EventDividendTax:    {"Podatek od dywidendy", "Podatek u źródła"},
	EventTradeTax:       {"Podatek od transakcji finansowych"},
	EventBuy:            {"Kupno", "Zakup"},
	EventSell:           {"Sprzedaż"},
	EventFXIn:           {"Przewalutowanie - uznanie", "Wymiana walut - uznanie"},
	EventFXOut:          {"Przewalutowanie - obciążenie", "Wymiana walut - obciążenie"},
	EventSecurity:       {"Zmiana produktu"},
}, "po", "@")

var localeCS = newLocale("cs", FormatComma, map[EventType][]string{
	EventDeposit:        {"Vklad"},
	EventRemoval:        {"Výběr"},
	EventFee:            {"Transakční poplatek", "Poplatek"},
	EventFeeRefund:      {"Vrácení poplatku"},
	EventInterest:       {"Úrok", "Úroky"},
	EventInterestCharge: {"Debetní úrok"},
	EventDividend:       {"Dividenda"},
	EventDividendTax:    {"Daň z dividendy", "Srážková daň"},
	EventTradeTax:       {"Daň z finančních transakcí"},
	EventBuy:            {"Nákup"},
	EventSell:           {"Prodej"},
	EventFXIn:           {"Převod měny - připsání", "FX připsání"},
	EventFXOut:          {"Převod měny - odepsání", "FX odepsání"},
	EventSecurity:       {"Změna produktu"},
}, "za", "@")

// localeBank is the vocabulary of UK current-account statements. It only
// knows cash events; everything else is typed by the direction of the
// balance movement.
var localeBank = newLocale("en-GB", FormatDot, map[EventType][]string{
	EventInterest:       {"Interest Paid", "Interest Payment", "Credit Interest", "Gross Interest"},
	EventInterestCharge: {"Overdraft Interest", "Debit Interest"},
	EventFee:            {"Account Fee", "Monthly Fee", "Service Charge", "Overdraft Fee", "Non-Sterling Transaction Fee"},
	EventFeeRefund:      {"Fee Refund", "Charge Refund"},
	EventRemoval:        {"Cash Withdrawal", "ATM Withdrawal"},
})

var brokerLocales = []*Locale{localeDE, localeNL, localeEN, localeFR, localeIT, localeES, localePL, localeCS}

// localeAny is the union of every broker vocabulary, used when the statement
// carries no recognizable header.
var localeAny = func() *Locale {
	l := &Locale{Code: "any", Number: FormatAuto}
	seen := map[string]bool{}
	for _, src := range brokerLocales {
		for _, kw := range src.keywords {
			if !seen[kw.phrase] {
				seen[kw.phrase] = true
				l.keywords = append(l.keywords, kw)
			}
		}
		l.connectors = append(l.connectors, src.connectors...)
	}
	l.sortKeywords()
	return l
}()

// LocaleFor returns the locale registered under code.
func LocaleFor(code string) (*Locale, bool) {
	if code == localeAny.Code {
		return localeAny, true
	}
	if code == localeBank.Code {
		return localeBank, true
	}
	for _, l := range brokerLocales {
		if l.Code == code {
			return l, true
		}
	}
	return nil, false
}

// Locales lists the codes of every registered broker locale.
func Locales() []string {
	codes := make([]string, 0, len(brokerLocales))
	for _, l := range brokerLocales {
		codes = append(codes, l.Code)
	}
	return codes
}
