package models

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_Add(t *testing.T) {
	sum, err := NewMoney("EUR", 152).Add(NewMoney("eur", -23))
	require.NoError(t, err)
	assert.Equal(t, NewMoney("EUR", 129), sum)

	_, err = NewMoney("EUR", 1).Add(NewMoney("USD", 1))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = NewMoney("EUR", math.MaxInt64).Add(NewMoney("EUR", 1))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = NewMoney("EUR", math.MinInt64+1).Sub(NewMoney("EUR", 2))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestMoneyFromDecimal(t *testing.T) {
	m, err := MoneyFromDecimal("JPY", decimal.RequireFromString("1500"))
	require.NoError(t, err)
	assert.Equal(t, NewMoney("JPY", 1500), m)

	_, err = MoneyFromDecimal("EUR", decimal.RequireFromString("1.001"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = MoneyFromDecimal("EUR", decimal.RequireFromString("1e30"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
