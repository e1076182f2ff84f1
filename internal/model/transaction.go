// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used for OccurredOn.
const DateLayout = "2006-01-02"

// TransactionType says whether money came in or went out.
type TransactionType string

const (
	// TypeUnset is the zero value of a manual form nobody has filled in yet.
	TypeUnset TransactionType = ""
	// TypeIncome is money received.
	TypeIncome TransactionType = "income"
	// TypeExpense is money spent.
	TypeExpense TransactionType = "expense"
)

// Valid reports whether t is income or expense.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// ParseTransactionType accepts exactly "income" or "expense" after trimming.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.TrimSpace(s))
	if !t.Valid() {
		return TypeUnset, fmt.Errorf("invalid transaction type %q", s)
	}
	return t, nil
}

// InputMode selects which capture path is active.
type InputMode string

const (
	ModeText  InputMode = "text"
	ModeAudio InputMode = "audio"
	ModePhoto InputMode = "photo"
)

// Valid reports whether m is one of the known modes.
func (m InputMode) Valid() bool {
	switch m {
	case ModeText, ModeAudio, ModePhoto:
		return true
	}
	return false
}

// ParseInputMode converts a user supplied mode name.
func ParseInputMode(s string) (InputMode, error) {
	m := InputMode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("invalid input mode %q", s)
	}
	return m, nil
}

// AnalysisSnapshot is the persisted copy of a validated classification.
type AnalysisSnapshot struct {
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Confidence  float64         `json:"confidence"`
}

// TransactionRecord is a finalized transaction ready for the record store.
type TransactionRecord struct {
	OccurredOn     time.Time
	SourceAnalysis *AnalysisSnapshot
	Amount         decimal.Decimal
	Type           TransactionType
	Category       string
	Description    string
	InputMethod    InputMode
	OwnerID        string
	AttachmentURI  string
}

// Date returns OccurredOn in DateLayout.
func (r TransactionRecord) Date() string {
	return r.OccurredOn.Format(DateLayout)
}

// StoredTransaction is a record after the store assigned identity and timestamps.
type StoredTransaction struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	ID        string
	TransactionRecord
}

// Today truncates now to a calendar date in its own location.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
