package ledger

import (
	"context"
	"errors"

	"github.com/Veraticus/spice-capture/internal/model"
)

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, tx model.StoredTransaction) error

// TransactionCreated calls fn.
func (fn NotifierFunc) TransactionCreated(ctx context.Context, tx model.StoredTransaction) error {
	return fn(ctx, tx)
}

// MultiNotifier fans out to every notifier and joins their errors.
type MultiNotifier []Notifier

// TransactionCreated notifies all, even when one fails.
func (m MultiNotifier) TransactionCreated(ctx context.Context, tx model.StoredTransaction) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.TransactionCreated(ctx, tx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
