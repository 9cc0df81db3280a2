package parser

import (
	"fmt"
	"strings"
)

// Family is a statement template whose lines share one column structure.
type Family string

const (
	// FamilyAccount is the cash account statement of a broker:
	// DATE [TIME] [VALUE-DATE] [PRODUCT ISIN] DESCRIPTION [FX] CUR AMOUNT [CUR BALANCE]
	FamilyAccount Family = "account"
	// FamilyOverview is the broker's transaction overview with one trade per row.
	FamilyOverview Family = "overview"
	// FamilyBank is a current-account statement with paid out / paid in / balance columns.
	FamilyBank Family = "bank"
)

// Direction says where the exchange legs of a conversion sit relative to the
// event they convert.
type Direction int

const (
	// PairBefore: the legs precede the converted event in the text.
	PairBefore Direction = iota
	// PairAfter: the legs follow the converted event.
	PairAfter
)

func (d Direction) String() string {
	if d == PairAfter {
		return "after"
	}
	return "before"
}

// ParseDirection reads "before" or "after". Empty means before.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "before":
		return PairBefore, nil
	case "after":
		return PairAfter, nil
	default:
		return PairBefore, fmt.Errorf("unknown exchange direction %q, use before or after", s)
	}
}

// Layout is a detected (or forced) family + locale combination.
type Layout struct {
	Family    Family
	Locale    *Locale
	Signature string
	Detected  bool
	// Direction is where this statement prints exchange legs. Statements
	// listed oldest first show the exchange after a foreign dividend.
	Direction Direction
	// Currency is the known account currency of a bank statement. Empty
	// lets the tokenizer read it from the currency symbols.
	Currency string
}

// Name identifies the layout in logs and traces, e.g. "account/de".
func (l Layout) Name() string {
	return string(l.Family) + "/" + l.Locale.Code
}

// Tokenizer splits statement text into token lines for one layout family.
type Tokenizer interface {
	Tokenize(text string) []TokenLine
}

// Tokenizer returns the tokenizer for the layout's family.
func (l Layout) Tokenizer() Tokenizer {
	switch l.Family {
	case FamilyOverview:
		return &overviewTokenizer{locale: l.Locale}
	case FamilyBank:
		return &bankTokenizer{currency: l.Currency}
	default:
		return &accountTokenizer{locale: l.Locale}
	}
}

// New returns the layout for an explicit family and locale code.
func New(family Family, localeCode string) (Layout, error) {
	switch family {
	case FamilyAccount, FamilyOverview:
		if localeCode == "" {
			localeCode = localeAny.Code
		}
		loc, ok := LocaleFor(localeCode)
		if !ok || loc == localeBank {
			return Layout{}, fmt.Errorf("unsupported locale: %q", localeCode)
		}
		return Layout{Family: family, Locale: loc, Direction: PairBefore}, nil
	case FamilyBank:
		return Layout{Family: FamilyBank, Locale: localeBank, Direction: PairBefore}, nil
	default:
		return Layout{}, fmt.Errorf("unsupported layout family: %q", family)
	}
}

// ParseLayout resolves a layout name such as "overview/nl" or "bank". A name
// without a locale uses the family's default vocabulary.
func ParseLayout(name string) (Layout, error) {
	family, locale, _ := strings.Cut(strings.ToLower(strings.TrimSpace(name)), "/")
	if locale == "en-gb" {
		locale = "en-GB"
	}
	return New(Family(family), locale)
}

// signature is a header phrase that identifies a layout.
type signature struct {
	phrase string
	family Family
	locale string
	// strong signatures are column headers that decide the family on their
	// own, wherever they occur in the document.
	strong bool
}

var signatures = []signature{
	{"Paid out", FamilyBank, "en-GB", true},
	{"Money out", FamilyBank, "en-GB", true},
	{"Metro Bank", FamilyBank, "en-GB", false},
	{"HSBC", FamilyBank, "en-GB", false},
	{"Barclays", FamilyBank, "en-GB", false},

	{"Kontoauszug", FamilyAccount, "de", false},
	{"Rekeningoverzicht", FamilyAccount, "nl", false},
	{"Account Statement", FamilyAccount, "en", false},
	{"Relevé de compte", FamilyAccount, "fr", false},
	{"Estratto conto", FamilyAccount, "it", false},
	{"Estado de cuenta", FamilyAccount, "es", false},
	{"Wyciąg z konta", FamilyAccount, "pl", false},
	{"Výpis z účtu", FamilyAccount, "cs", false},

	{"Transaktionsübersicht", FamilyOverview, "de", false},
	{"Transactieoverzicht", FamilyOverview, "nl", false},
	{"Transaction Overview", FamilyOverview, "en", false},
	{"Aperçu des transactions", FamilyOverview, "fr", false},
	{"Panoramica delle transazioni", FamilyOverview, "it", false},
	{"Resumen de transacciones", FamilyOverview, "es", false},
	{"Przegląd transakcji", FamilyOverview, "pl", false},
	{"Přehled transakcí", FamilyOverview, "cs", false},
}

// AutoDetect tries to identify the layout from the statement header.
// Strong signatures win; otherwise the earliest signature in the text does.
// Text without any signature is read as an account statement with the union
// of every broker vocabulary.
func AutoDetect(text string) Layout {
	normalized := Normalize(text)

	best := -1
	bestPos := len(normalized) + 1
	for i, sig := range signatures {
		pos := strings.Index(normalized, Normalize(sig.phrase))
		if pos < 0 {
			continue
		}
		if sig.strong {
			best = i
			break
		}
		if pos < bestPos {
			best, bestPos = i, pos
		}
	}

	if best < 0 {
		return Layout{Family: FamilyAccount, Locale: localeAny, Direction: PairBefore}
	}
	sig := signatures[best]
	loc, _ := LocaleFor(sig.locale)
	return Layout{
		Family:    sig.family,
		Locale:    loc,
		Signature: sig.phrase,
		Detected:  true,
		Direction: PairBefore,
	}
}
