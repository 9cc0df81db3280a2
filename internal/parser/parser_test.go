package parser

import (
	"testing"
)

func TestAutoDetect(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		family   Family
		locale   string
		detected bool
	}{
		{
			name:     "detects Metro Bank",
			text:     "Metro Bank\nAccount Statement\n15/01/2024",
			family:   FamilyBank,
			locale:   "en-GB",
			detected: true,
		},
		{
			name:     "bank column headers win over a later broker phrase",
			text:     "Account Statement\nDate Description Paid out Paid in Balance",
			family:   FamilyBank,
			locale:   "en-GB",
			detected: true,
		},
		{
			name:     "detects German account statement",
			text:     "flatex DEGIRO Bank\nKontoauszug\nDatum Uhrzeit Produkt",
			family:   FamilyAccount,
			locale:   "de",
			detected: true,
		},
		{
			name:     "detects Dutch transaction overview",
			text:     "TRANSACTIEOVERZICHT 01-01-2021 - 31-12-2021",
			family:   FamilyOverview,
			locale:   "nl",
			detected: true,
		},
		{
			name:     "detects Polish account statement with diacritics",
			text:     "Wyciąg z konta\n",
			family:   FamilyAccount,
			locale:   "pl",
			detected: true,
		},
		{
			name:     "earliest phrase decides",
			text:     "Transaction Overview\nsee also your Kontoauszug",
			family:   FamilyOverview,
			locale:   "en",
			detected: true,
		},
		{
			name:   "unknown header falls back to every vocabulary",
			text:   "02-08-2017 Einzahlung EUR 350,00",
			family: FamilyAccount,
			locale: "any",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AutoDetect(tt.text)
			if got.Family != tt.family {
				t.Errorf("family: got %q, want %q", got.Family, tt.family)
			}
			if got.Locale.Code != tt.locale {
				t.Errorf("locale: got %q, want %q", got.Locale.Code, tt.locale)
			}
			if got.Detected != tt.detected {
				t.Errorf("detected: got %v, want %v", got.Detected, tt.detected)
			}
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		family   Family
		locale   string
		wantName string
		wantErr  bool
	}{
		{FamilyAccount, "de", "account/de", false},
		{FamilyOverview, "cs", "overview/cs", false},
		{FamilyAccount, "", "account/any", false},
		{FamilyBank, "", "bank/en-GB", false},
		{FamilyAccount, "xx", "", true},
		{FamilyAccount, "en-GB", "", true},
		{"unknown", "de", "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.family)+"/"+tt.locale, func(t *testing.T) {
			l, err := New(tt.family, tt.locale)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if l.Name() != tt.wantName {
				t.Errorf("got %q, want %q", l.Name(), tt.wantName)
			}
		})
	}
}

func TestParseLayout(t *testing.T) {
	tests := []struct {
		input    string
		wantName string
		wantErr  bool
	}{
		{"account/de", "account/de", false},
		{"Overview/NL", "overview/nl", false},
		{"account", "account/any", false},
		{"bank", "bank/en-GB", false},
		{"bank/en-GB", "bank/en-GB", false},
		{"ledger/de", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			l, err := ParseLayout(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %s", l.Name())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if l.Name() != tt.wantName {
				t.Errorf("got %q, want %q", l.Name(), tt.wantName)
			}
		})
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		input   string
		want    Direction
		wantErr bool
	}{
		{"", PairBefore, false},
		{"before", PairBefore, false},
		{" After ", PairAfter, false},
		{"sideways", PairBefore, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDirection(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error: got %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}
