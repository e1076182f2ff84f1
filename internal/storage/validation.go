// Package storage provides the data persistence layer for captured transactions.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-capture/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrInvalidDateRange   = errors.New("start date must be before end date")
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRecord checks the invariants every stored record must satisfy.
func validateRecord(r model.TransactionRecord) error {
	if !r.Type.Valid() {
		return fmt.Errorf("%w: type %q", ErrInvalidTransaction, r.Type)
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidTransaction, r.Amount)
	}
	if strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidTransaction)
	}
	if strings.TrimSpace(r.OwnerID) == "" {
		return fmt.Errorf("%w: missing owner", ErrInvalidTransaction)
	}
	if r.OccurredOn.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if r.InputMethod != "" && !r.InputMethod.Valid() {
		return fmt.Errorf("%w: input method %q", ErrInvalidTransaction, r.InputMethod)
	}
	return nil
}

// validateFilter rejects inverted date ranges.
func validateFilter(f Filter) error {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidDateRange,
			f.To.Format(model.DateLayout), f.From.Format(model.DateLayout))
	}
	if f.Type != model.TypeUnset && !f.Type.Valid() {
		return fmt.Errorf("%w: type %q", ErrInvalidTransaction, f.Type)
	}
	return nil
}
