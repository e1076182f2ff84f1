package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount bounds every transaction amount from above, exclusive.
var MaxAmount = decimal.New(1, 12)

// maxAmountDigits bounds the coefficient of an amount before any arithmetic.
const maxAmountDigits = 32

var (
	errAmountNotPositive = errors.New("amount must be greater than zero")
	errAmountTooLarge    = errors.New("amount must be below 1000000000000")
	errAmountBelowCent   = errors.New("amount must be at least 0.01")
	errAmountTooPrecise  = errors.New("amount has too many digits")
)

// ManualFields is the hand-entered fallback used when no analysis exists.
// Amount stays raw until finalize so partially typed values survive edits.
type ManualFields struct {
	Type        TransactionType `json:"type"`
	Amount      string          `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
}

// IsZero reports whether nothing has been entered.
func (m ManualFields) IsZero() bool {
	return m == ManualFields{}
}

// Missing lists the required fields that are not usable yet.
// Description is optional.
func (m ManualFields) Missing() []string {
	var missing []string
	if !m.Type.Valid() {
		missing = append(missing, "type")
	}
	if _, err := ParseAmount(m.Amount); err != nil {
		missing = append(missing, "amount")
	}
	if strings.TrimSpace(m.Category) == "" {
		missing = append(missing, "category")
	}
	return missing
}

// Complete reports whether the fields can back a transaction.
func (m ManualFields) Complete() bool {
	return len(m.Missing()) == 0
}

// ParseAmount parses a user typed amount into a strictly positive decimal.
// A single comma is accepted as the decimal separator.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errors.New("amount is empty")
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return CheckAmount(d)
}

// CheckAmount rounds d to cents and requires the result to lie in
// (0, MaxAmount). Coefficient length and exponent are bounded before
// rounding, so an extreme exponent is never expanded into digits.
func CheckAmount(d decimal.Decimal) (decimal.Decimal, error) {
	if !d.IsPositive() {
		return decimal.Zero, errAmountNotPositive
	}

	digits := len(d.Coefficient().String())
	if digits > maxAmountDigits {
		return decimal.Zero, errAmountTooPrecise
	}
	// d lies in [10^(magnitude-1), 10^magnitude).
	magnitude := int64(digits) + int64(d.Exponent())
	switch {
	case magnitude > 13:
		return decimal.Zero, errAmountTooLarge
	case magnitude < -2:
		return decimal.Zero, errAmountBelowCent
	}

	rounded := d.Round(2)
	if !rounded.IsPositive() {
		return decimal.Zero, errAmountBelowCent
	}
	if rounded.GreaterThanOrEqual(MaxAmount) {
		return decimal.Zero, errAmountTooLarge
	}
	return rounded, nil
}
