// Package analysis validates classification output before anything trusts it.
package analysis

import (
	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/shopspring/decimal"
)

// Result is a classification that passed Validate. The zero value is never
// returned alongside a nil error.
type Result struct {
	amount      decimal.Decimal
	typ         model.TransactionType
	category    string
	description string
	confidence  float64
}

// Type returns income or expense.
func (r Result) Type() model.TransactionType { return r.typ }

// Amount returns the strictly positive amount.
func (r Result) Amount() decimal.Decimal { return r.amount }

// Category returns the non-empty category.
func (r Result) Category() string { return r.category }

// Description returns the non-empty description.
func (r Result) Description() string { return r.description }

// Confidence returns a value in [0,1].
func (r Result) Confidence() float64 { return r.confidence }

// IsZero reports whether r was produced by Validate.
func (r Result) IsZero() bool { return r.typ == model.TypeUnset }

// Snapshot copies the result into its persisted form.
func (r Result) Snapshot() model.AnalysisSnapshot {
	return model.AnalysisSnapshot{
		Type:        r.typ,
		Amount:      r.amount,
		Category:    r.category,
		Description: r.description,
		Confidence:  r.confidence,
	}
}
