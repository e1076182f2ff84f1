package model

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = "USD"

// FormatAmount renders an amount with two decimals and a currency code.
func FormatAmount(amount decimal.Decimal, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	return fmt.Sprintf("%s %s", amount.StringFixed(2), currency)
}

// FormatSignedAmount prefixes income with + and expenses with -.
func FormatSignedAmount(t TransactionType, amount decimal.Decimal, currency string) string {
	sign := "+"
	if t == TypeExpense {
		sign = "-"
	}
	return sign + FormatAmount(amount, currency)
}

// FormatConfidence renders a [0,1] confidence as a whole percentage.
func FormatConfidence(c float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(c*100)))
}
