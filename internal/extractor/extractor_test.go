package extractor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"utf8", []byte("Kontoauszug\n01-02-2024 Einzahlung EUR 10,00"), "Kontoauszug\n01-02-2024 Einzahlung EUR 10,00"},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "Výpis z účtu"...), "Výpis z účtu"},
		{"utf16le bom", []byte{0xFF, 0xFE, 'E', 0, 'U', 0, 'R', 0}, "EUR"},
		{"windows-1252", []byte("Geb\xfchr \x80 1,00"), "Gebühr € 1,00"},
		{"crlf", []byte("a\r\nb\r\n"), "a\nb\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.in)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeBrokenPDF(t *testing.T) {
	_, err := Decode([]byte("%PDF-1.4\nthis is not a document"))
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("expected ErrUnreadable, got %v", err)
	}
}

func TestReadStatement(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statement.txt")
	text := "Account statement\n02-01-2024 Deposit EUR 100.00\n"
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := ReadStatement(path)
	if err != nil {
		t.Fatalf("ReadStatement: %v", err)
	}
	if got != text {
		t.Errorf("got %q", got)
	}

	if _, err := ReadStatement(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestIsReadableText(t *testing.T) {
	statement := "Datum Produkt ISIN Beschreibung Saldo\n03-08-2017 Einzahlung EUR 1.000,00 EUR 1.000,00"

	tests := []struct {
		name  string
		pages []string
		want  bool
	}{
		{"statement", []string{statement}, true},
		{"too short", []string{"Saldo EUR 1,00"}, false},
		{"binary", []string{strings.Repeat("\x00\x01\x02\x03", 40) + " saldo"}, false},
		{"no statement words", []string{strings.Repeat("lorem ipsum ", 10)}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isReadableText(tt.pages); got != tt.want {
				t.Errorf("isReadableText = %v, want %v", got, tt.want)
			}
		})
	}
}
