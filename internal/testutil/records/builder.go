// Package records provides a fluent builder for seeding transaction records
// in tests.
//
// Example usage:
//
//	db := testutil.SetupTestDBWithBuilder(t, func(b records.Builder) records.Builder {
//		return b.WithExpense("Food", "45.50", "Lunch").WithFixture(records.FixtureMonth)
//	})
package records

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/shopspring/decimal"
)

// DefaultOwner owns every record a builder creates unless WithOwner changes it.
const DefaultOwner = "test-user"

// Creator is the part of the record store the builder needs.
type Creator interface {
	Create(ctx context.Context, record model.TransactionRecord) (model.StoredTransaction, error)
}

// Builder provides a fluent interface for constructing test records.
type Builder interface {
	// WithOwner sets the owner of records added after this call.
	WithOwner(owner string) Builder

	// On sets the date of records added after this call.
	On(date string) Builder

	// WithExpense adds an expense record.
	WithExpense(category, amount, description string) Builder

	// WithIncome adds an income record.
	WithIncome(category, amount, description string) Builder

	// WithFixture adds the records of a predefined fixture.
	WithFixture(fixture Fixture) Builder

	// Build stores the records in order and returns them as stored.
	Build(ctx context.Context, store Creator) (Records, error)
}

// Records is a collection of stored test records.
type Records []model.StoredTransaction

// Find returns the record with the given description, or nil if not found.
func (r Records) Find(description string) *model.StoredTransaction {
	for i := range r {
		if r[i].Description == description {
			return &r[i]
		}
	}
	return nil
}

// MustFind returns the record with the given description or fails the test.
func (r Records) MustFind(t *testing.T, description string) model.StoredTransaction {
	t.Helper()
	rec := r.Find(description)
	if rec == nil {
		t.Fatalf("record %q not found in test data", description)
	}
	return *rec
}

// IDs returns the ids in build order.
func (r Records) IDs() []string {
	ids := make([]string, len(r))
	for i, rec := range r {
		ids[i] = rec.ID
	}
	return ids
}

type recordBuilder struct {
	t       *testing.T
	date    time.Time
	owner   string
	pending []model.TransactionRecord
}

// NewBuilder creates a builder dated 2024-05-17 for DefaultOwner.
func NewBuilder(t *testing.T) Builder {
	t.Helper()
	return &recordBuilder{
		t:     t,
		owner: DefaultOwner,
		date:  time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC),
	}
}

func (b *recordBuilder) WithOwner(owner string) Builder {
	b.owner = owner
	return b
}

func (b *recordBuilder) On(date string) Builder {
	b.t.Helper()
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		b.t.Fatalf("invalid test date %q: %v", date, err)
	}
	b.date = d
	return b
}

func (b *recordBuilder) WithExpense(category, amount, description string) Builder {
	return b.add(model.TypeExpense, category, amount, description)
}

func (b *recordBuilder) WithIncome(category, amount, description string) Builder {
	return b.add(model.TypeIncome, category, amount, description)
}

func (b *recordBuilder) WithFixture(fixture Fixture) Builder {
	for _, e := range fixture.Entries() {
		b.On(e.Date)
		b.add(e.Type, e.Category, e.Amount, e.Description)
	}
	return b
}

func (b *recordBuilder) add(typ model.TransactionType, category, amount, description string) Builder {
	b.t.Helper()
	value, err := decimal.NewFromString(amount)
	if err != nil {
		b.t.Fatalf("invalid test amount %q: %v", amount, err)
	}
	b.pending = append(b.pending, model.TransactionRecord{
		OccurredOn:  b.date,
		Type:        typ,
		Amount:      value,
		Category:    category,
		Description: description,
		InputMethod: model.ModeText,
		OwnerID:     b.owner,
	})
	return b
}

func (b *recordBuilder) Build(ctx context.Context, store Creator) (Records, error) {
	b.t.Helper()

	result := make(Records, 0, len(b.pending))
	for _, rec := range b.pending {
		stored, err := store.Create(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("failed to create record %q: %w", rec.Description, err)
		}
		result = append(result, stored)
	}
	return result, nil
}
