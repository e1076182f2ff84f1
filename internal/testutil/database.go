// Package testutil provides shared test doubles and database helpers for the
// capture pipeline.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/Veraticus/spice-capture/internal/storage"
	"github.com/Veraticus/spice-capture/internal/testutil/records"
)

// TestDB represents a migrated in-memory record store with seeded records.
type TestDB struct {
	Storage *storage.SQLiteStorage
	Records records.Records
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database. It automatically
// handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithBuilder(t, nil)
}

// SetupTestDBWithBuilder creates a test database seeded through a record
// builder.
//
// Example:
//
//	db := testutil.SetupTestDBWithBuilder(t, func(b records.Builder) records.Builder {
//		return b.WithFixture(records.FixtureMonth)
//	})
func SetupTestDBWithBuilder(t *testing.T, configure func(records.Builder) records.Builder) *TestDB {
	t.Helper()

	ctx := context.Background()
	store, err := storage.Open(ctx, storage.MemoryPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	builder := records.NewBuilder(t)
	if configure != nil {
		builder = configure(builder)
	}
	seeded, err := builder.Build(ctx, store)
	if err != nil {
		t.Fatalf("failed to seed records: %v", err)
	}

	return &TestDB{
		Storage: store,
		Records: seeded,
		t:       t,
	}
}

// MustGet returns the stored record with the given description or fails the test.
func (db *TestDB) MustGet(description string) model.StoredTransaction {
	db.t.Helper()
	return db.Records.MustFind(db.t, description)
}
