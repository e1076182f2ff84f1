// Package ledger turns a reviewed capture into a stored transaction.
package ledger

import (
	"context"

	"github.com/Veraticus/spice-capture/internal/analysis"
	"github.com/Veraticus/spice-capture/internal/model"
)

// RecordStore persists finalized records. Create is called at most once per
// confirmation.
type RecordStore interface {
	Create(ctx context.Context, record model.TransactionRecord) (model.StoredTransaction, error)
}

// Notifier is told about every stored transaction so the surrounding
// application can refresh.
type Notifier interface {
	TransactionCreated(ctx context.Context, tx model.StoredTransaction) error
}

// Archiver keeps the original media of a capture and returns where it went.
type Archiver interface {
	Archive(ctx context.Context, name, mimeType string, data []byte) (string, error)
}

// Draft is everything a session knows at confirmation time.
type Draft struct {
	Payload  model.Payload
	Analysis analysis.Result
	Mode     model.InputMode
	Manual   model.ManualFields
}

// HasAnalysis reports whether the draft is backed by a validated analysis.
func (d Draft) HasAnalysis() bool {
	return !d.Analysis.IsZero()
}

// Source names where the record's values come from.
func (d Draft) Source() string {
	if d.HasAnalysis() {
		return "analysis"
	}
	return "manual"
}
