package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/Veraticus/spice-capture/internal/model"
)

// DefaultNotifyTimeout bounds the completion notification.
const DefaultNotifyTimeout = 5 * time.Second

// Finalizer merges a Draft into one record and submits it.
type Finalizer struct {
	store         RecordStore
	notifier      Notifier
	archiver      Archiver
	logger        *slog.Logger
	now           func() time.Time
	ownerID       string
	notifyTimeout time.Duration
}

// Option configures a Finalizer.
type Option func(*Finalizer)

// WithNotifier sets the completion notifier.
func WithNotifier(n Notifier) Option {
	return func(f *Finalizer) { f.notifier = n }
}

// WithNotifyTimeout bounds each notifier call. Zero or less keeps the default.
func WithNotifyTimeout(d time.Duration) Option {
	return func(f *Finalizer) {
		if d > 0 {
			f.notifyTimeout = d
		}
	}
}

// WithArchiver keeps photo and audio payloads alongside the record.
func WithArchiver(a Archiver) Option {
	return func(f *Finalizer) { f.archiver = a }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(f *Finalizer) { f.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Finalizer) { f.logger = l }
}

// NewFinalizer creates a Finalizer that stores records owned by ownerID.
func NewFinalizer(store RecordStore, ownerID string, opts ...Option) *Finalizer {
	f := &Finalizer{
		store:         store,
		ownerID:       ownerID,
		now:           time.Now,
		logger:        slog.Default(),
		notifyTimeout: DefaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Finalize builds the record and calls RecordStore.Create exactly once.
// It fails with common.ErrMissingRequiredField before touching the store,
// or with common.ErrSubmissionFailed when the store rejects the record.
// Archive and notification failures are logged and never fail the call.
func (f *Finalizer) Finalize(ctx context.Context, d Draft) (model.StoredTransaction, error) {
	record, err := BuildRecord(d, f.ownerID, f.now())
	if err != nil {
		return model.StoredTransaction{}, err
	}

	if f.archiver != nil {
		record.AttachmentURI = f.archive(ctx, d.Payload)
	}

	stored, err := f.store.Create(ctx, record)
	if err != nil {
		f.logger.Error("transaction submission failed",
			"source", d.Source(),
			"mode", d.Mode,
			"error", err)
		return model.StoredTransaction{}, fmt.Errorf("%w: %w", common.ErrSubmissionFailed, err)
	}

	f.logger.Info("transaction stored",
		"id", stored.ID,
		"type", stored.Type,
		"amount", stored.Amount.String(),
		"category", stored.Category,
		"source", d.Source())

	if f.notifier != nil {
		f.notify(ctx, stored)
	}

	return stored, nil
}

// notify runs after the record is committed, so it ignores the caller's
// cancellation and is bounded by notifyTimeout instead.
func (f *Finalizer) notify(ctx context.Context, stored model.StoredTransaction) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.notifyTimeout)
	defer cancel()

	if err := f.notifier.TransactionCreated(ctx, stored); err != nil {
		f.logger.Warn("failed to notify transaction created", "id", stored.ID, "error", err)
	}
}

func (f *Finalizer) archive(ctx context.Context, payload model.Payload) string {
	var name, mimeType string
	var data []byte
	switch p := payload.(type) {
	case model.PhotoPayload:
		name, mimeType, data = p.Name, p.MIMEType, p.Data
	case model.AudioPayload:
		name, mimeType, data = "recording", p.MIMEType, p.Data
	default:
		return ""
	}
	if len(data) == 0 {
		return ""
	}

	uri, err := f.archiver.Archive(ctx, name, mimeType, data)
	if err != nil {
		f.logger.Warn("failed to archive capture media, storing without attachment", "error", err)
		return ""
	}
	return uri
}

// BuildRecord merges d into a record dated on now's calendar day. A present
// analysis always wins over manual fields.
func BuildRecord(d Draft, ownerID string, now time.Time) (model.TransactionRecord, error) {
	record := model.TransactionRecord{
		OccurredOn:  model.Today(now),
		InputMethod: d.Mode,
		OwnerID:     ownerID,
	}

	if d.HasAnalysis() {
		snapshot := d.Analysis.Snapshot()
		record.Type = snapshot.Type
		record.Amount = snapshot.Amount
		record.Category = snapshot.Category
		record.Description = snapshot.Description
		record.SourceAnalysis = &snapshot
		return record, nil
	}

	if missing := d.Manual.Missing(); len(missing) > 0 {
		return model.TransactionRecord{}, fmt.Errorf("%w: %s", common.ErrMissingRequiredField, strings.Join(missing, ", "))
	}

	amount, err := model.ParseAmount(d.Manual.Amount)
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("%w: %w", common.ErrMissingRequiredField, err)
	}

	record.Type = d.Manual.Type
	record.Amount = amount
	record.Category = strings.TrimSpace(d.Manual.Category)
	record.Description = strings.TrimSpace(d.Manual.Description)
	return record, nil
}
