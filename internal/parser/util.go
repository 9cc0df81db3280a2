package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Common date patterns found in broker and bank statements.
var (
	// DD-MM-YYYY, DD.MM.YYYY or DD/MM/YYYY (two-digit years accepted)
	datePatternNumeric = regexp.MustCompile(`^(\d{1,2})[-./](\d{1,2})[-./](\d{2,4})\b`)
	// DD Mon YYYY (e.g., 15 Jan 2024)
	datePatternText = regexp.MustCompile(`(?i)^(\d{1,2})\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+(\d{2,4})\b`)
	// DD-Mon-YYYY or DD-Mon-YY
	datePatternDash = regexp.MustCompile(`(?i)^(\d{1,2})-(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*-(\d{2,4})\b`)
	// HH:MM
	timePattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})\b`)
)

var monthNumbers = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// extractDate parses the date at the start of a line and returns it together
// with the remainder of the line.
func extractDate(line string) (time.Time, string, bool) {
	line = strings.TrimSpace(line)

	if m := datePatternNumeric.FindStringSubmatchIndex(line); m != nil {
		day, _ := strconv.Atoi(line[m[2]:m[3]])
		month, _ := strconv.Atoi(line[m[4]:m[5]])
		year, _ := strconv.Atoi(line[m[6]:m[7]])
		if t, ok := makeDate(year, time.Month(month), day); ok {
			return t, strings.TrimSpace(line[m[1]:]), true
		}
		return time.Time{}, "", false
	}
	for _, p := range []*regexp.Regexp{datePatternText, datePatternDash} {
		if m := p.FindStringSubmatchIndex(line); m != nil {
			day, _ := strconv.Atoi(line[m[2]:m[3]])
			month := monthNumbers[strings.ToLower(line[m[4]:m[5]])]
			year, _ := strconv.Atoi(line[m[6]:m[7]])
			if t, ok := makeDate(year, month, day); ok {
				return t, strings.TrimSpace(line[m[1]:]), true
			}
			return time.Time{}, "", false
		}
	}
	return time.Time{}, "", false
}

// extractTime applies an HH:MM prefix of rest to day.
func extractTime(day time.Time, rest string) (time.Time, string, bool) {
	m := timePattern.FindStringSubmatchIndex(rest)
	if m == nil {
		return day, rest, false
	}
	hour, _ := strconv.Atoi(rest[m[2]:m[3]])
	minute, _ := strconv.Atoi(rest[m[4]:m[5]])
	if hour > 23 || minute > 59 {
		return day, rest, false
	}
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute), strings.TrimSpace(rest[m[1]:]), true
}

func makeDate(year int, month time.Month, day int) (time.Time, bool) {
	if year < 100 {
		year += 2000
	}
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// Reject dates that time.Date normalised (31-02 → 03-03).
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// NumberFormat describes the separators a locale prints numbers with.
type NumberFormat struct {
	Decimal byte
	Group   byte
}

var (
	// FormatComma is used by continental locales: 1.234,56
	FormatComma = NumberFormat{Decimal: ',', Group: '.'}
	// FormatDot is used by English locales: 1,234.56
	FormatDot = NumberFormat{Decimal: '.', Group: ','}
	// FormatAuto guesses the separators from the number itself.
	FormatAuto = NumberFormat{}
)

// parseNumber converts a string like "1.234,56", "-£1,234.56" or "1 234,56-"
// to a decimal using the given number format.
func parseNumber(s string, nf NumberFormat) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	// Remove currency symbols and whitespace (including Unicode variants)
	for _, sym := range []string{"£", "$", "€", " ", "\u00a0", "\u202f", "'"} {
		s = strings.ReplaceAll(s, sym, "")
	}

	negative := false
	switch {
	case strings.HasPrefix(s, "-"), strings.HasPrefix(s, "−"):
		negative = true
		s = strings.TrimLeft(s, "-−")
	case strings.HasSuffix(s, "-"):
		negative = true
		s = strings.TrimSuffix(s, "-")
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty number")
	}

	if nf == FormatAuto {
		nf = guessFormat(s)
	}
	if nf.Group != 0 {
		s = strings.ReplaceAll(s, string(nf.Group), "")
	}
	if nf.Decimal != '.' {
		if strings.Contains(s, ".") {
			return decimal.Zero, fmt.Errorf("unexpected separator in %q", s)
		}
		s = strings.ReplaceAll(s, string(nf.Decimal), ".")
	}
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, fmt.Errorf("malformed number %q", s)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed number %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// guessFormat picks the separators for a number printed by an unknown locale:
// when both separators occur the later one is the decimal mark; a single
// separator followed by exactly three digits is a thousands separator.
func guessFormat(s string) NumberFormat {
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			return FormatComma
		}
		return FormatDot
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 || len(s)-lastComma-1 == 3 {
			return NumberFormat{Decimal: '.', Group: ','}
		}
		return NumberFormat{Decimal: ',', Group: 0}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 || len(s)-lastDot-1 == 3 {
			return NumberFormat{Decimal: ',', Group: '.'}
		}
		return NumberFormat{Decimal: '.', Group: 0}
	}
	return FormatDot
}

// isinPattern matches a candidate ISIN: country prefix, nine alphanumerics and
// a check digit.
var isinPattern = regexp.MustCompile(`\b[A-Z]{2}[A-Z0-9]{9}\d\b`)

// ValidISIN verifies the ISIN check digit (Luhn over the letter-expanded code).
func ValidISIN(s string) bool {
	if len(s) != 12 || !isinPattern.MatchString(s) {
		return false
	}
	var digits []byte
	for i := 0; i < 11; i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			digits = strconv.AppendInt(digits, int64(c-'A'+10), 10)
		} else {
			digits = append(digits, c)
		}
	}
	sum := 0
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if (len(digits)-1-i)%2 == 0 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return int(s[11]-'0') == check
}

// findISIN returns the first valid ISIN in s and its byte offsets.
func findISIN(s string) (string, int, int) {
	for _, loc := range isinPattern.FindAllStringIndex(s, -1) {
		if candidate := s[loc[0]:loc[1]]; ValidISIN(candidate) {
			return candidate, loc[0], loc[1]
		}
	}
	return "", -1, -1
}

// currencySymbols maps printed currency symbols to ISO codes.
var currencySymbols = []struct {
	symbol, code string
}{
	{"£", "GBP"},
	{"€", "EUR"},
	{"$", "USD"},
}

// currencyFromSymbol returns the code of the symbol printed first in s.
func currencyFromSymbol(s string) string {
	code, first := "", -1
	for _, cs := range currencySymbols {
		if i := strings.Index(s, cs.symbol); i >= 0 && (first < 0 || i < first) {
			code, first = cs.code, i
		}
	}
	return code
}
