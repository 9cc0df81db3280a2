package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the kind of an account or portfolio transaction.
type TransactionType string

const (
	TypeDeposit        TransactionType = "DEPOSIT"
	TypeRemoval        TransactionType = "REMOVAL"
	TypeDividends      TransactionType = "DIVIDENDS"
	TypeFees           TransactionType = "FEES"
	TypeFeesRefund     TransactionType = "FEES_REFUND"
	TypeInterest       TransactionType = "INTEREST"
	TypeInterestCharge TransactionType = "INTEREST_CHARGE"
	TypeBuy            TransactionType = "BUY"
	TypeSell           TransactionType = "SELL"
)

// UnitType tags a sub-amount attached to a transaction.
type UnitType string

const (
	UnitTax UnitType = "TAX"
	UnitFee UnitType = "FEE"
	// UnitGrossValue carries the exchange rate: the gross amount in the
	// transaction currency together with its forex original.
	UnitGrossValue UnitType = "GROSS_VALUE"
)

// Unit is a tax, fee or exchange-rate annotation of a transaction. Amount is
// always non-negative and in the transaction currency. Forex and ExchangeRate
// are set when the amount was converted, with Forex × ExchangeRate ≈ Amount.
type Unit struct {
	Type         UnitType        `json:"type"`
	Amount       Money           `json:"amount"`
	Forex        *Money          `json:"forex,omitempty"`
	ExchangeRate decimal.Decimal `json:"exchangeRate,omitempty"`
}

// AccountTransaction is a cash movement on the account. Amount is non-negative;
// the direction follows from Type.
type AccountTransaction struct {
	Type       TransactionType `json:"type"`
	DateTime   time.Time       `json:"dateTime"`
	Amount     Money           `json:"amount"`
	GrossValue Money           `json:"grossValue"`
	Shares     decimal.Decimal `json:"shares"`
	Security   *Security       `json:"security,omitempty"`
	Note       string          `json:"note,omitempty"`
	Source     string          `json:"source"`
	Units      []Unit          `json:"units,omitempty"`
}

// Currency is the currency the transaction is booked in.
func (t AccountTransaction) Currency() string {
	return t.Amount.Currency
}

// PortfolioTransaction is the security-holding side of a trade.
type PortfolioTransaction struct {
	Type       TransactionType `json:"type"`
	DateTime   time.Time       `json:"dateTime"`
	Shares     decimal.Decimal `json:"shares"`
	Security   *Security       `json:"security,omitempty"`
	Amount     Money           `json:"amount"`
	GrossValue Money           `json:"grossValue"`
	Note       string          `json:"note,omitempty"`
	Source     string          `json:"source"`
	Units      []Unit          `json:"units,omitempty"`
}

// BuySellEntry holds both ledger sides of one trade execution.
type BuySellEntry struct {
	Portfolio PortfolioTransaction `json:"portfolio"`
	Account   AccountTransaction   `json:"account"`
}

// SumUnits adds up the amounts of all units of the given type.
func SumUnits(units []Unit, typ UnitType) int64 {
	var total int64
	for _, u := range units {
		if u.Type == typ {
			total += u.Amount.Amount
		}
	}
	return total
}

// ExchangeRateUnit returns the gross-value unit carrying the exchange rate, if any.
func ExchangeRateUnit(units []Unit) (Unit, bool) {
	for _, u := range units {
		if u.Type == UnitGrossValue && u.Forex != nil {
			return u, true
		}
	}
	return Unit{}, false
}
