package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact amount in the minor unit of its currency (cents for EUR).
type Money struct {
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}

// Currencies whose minor unit is not 1/100.
var minorUnitExponents = map[string]int32{
	"BHD": 3,
	"CLP": 0,
	"ISK": 0,
	"JOD": 3,
	"JPY": 0,
	"KRW": 0,
	"KWD": 3,
	"OMR": 3,
	"TND": 3,
}

// Exponent returns the number of fractional digits of the currency's minor unit.
func Exponent(currency string) int32 {
	if exp, ok := minorUnitExponents[strings.ToUpper(currency)]; ok {
		return exp
	}
	return 2
}

// NewMoney builds a Money value from minor units.
func NewMoney(currency string, minor int64) Money {
	return Money{Currency: strings.ToUpper(currency), Amount: minor}
}

// MoneyFromDecimal converts a decimal major-unit value to Money. It fails if the
// value carries more fractional digits than the currency allows.
func MoneyFromDecimal(currency string, d decimal.Decimal) (Money, error) {
	exp := Exponent(currency)
	shifted := d.Shift(exp)
	if !shifted.Equal(shifted.Truncate(0)) {
		return Money{}, fmt.Errorf("%w: %s has more than %d decimals for %s", ErrInvalidAmount, d.String(), exp, currency)
	}
	if !shifted.BigInt().IsInt64() {
		return Money{}, fmt.Errorf("%w: %s out of range", ErrInvalidAmount, d.String())
	}
	return NewMoney(currency, shifted.IntPart()), nil
}

// RoundMoney converts a decimal major-unit value to Money, rounding half away
// from zero to the currency's minor unit.
func RoundMoney(currency string, d decimal.Decimal) Money {
	exp := Exponent(currency)
	return NewMoney(currency, d.Round(exp).Shift(exp).IntPart())
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -Exponent(m.Currency))
}

// Add returns m + o. Both values must share a currency and the sum must fit
// in an int64.
func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	sum := m.Amount + o.Amount
	if (o.Amount > 0 && sum < m.Amount) || (o.Amount < 0 && sum > m.Amount) {
		return Money{}, fmt.Errorf("%w: %s + %s out of range", ErrInvalidAmount, m, o)
	}
	return Money{Currency: m.Currency, Amount: sum}, nil
}

// Sub returns m - o. Both values must share a currency.
func (m Money) Sub(o Money) (Money, error) {
	return m.Add(o.Neg())
}

func (m Money) Neg() Money {
	return Money{Currency: m.Currency, Amount: -m.Amount}
}

func (m Money) Abs() Money {
	if m.Amount < 0 {
		return m.Neg()
	}
	return m
}

func (m Money) IsZero() bool {
	return m.Amount == 0
}

func (m Money) IsNegative() bool {
	return m.Amount < 0
}

// String formats the value as "EUR 350.00".
func (m Money) String() string {
	return m.Currency + " " + m.Decimal().StringFixed(Exponent(m.Currency))
}
