package domain

import "github.com/shopspring/decimal"

// MoneyScale is the number of decimal places balances and amounts are stored
// with, matching the NUMERIC(20, 2) columns.
const MoneyScale = 2

// IsMoney reports whether d can be stored at MoneyScale without rounding.
func IsMoney(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}
