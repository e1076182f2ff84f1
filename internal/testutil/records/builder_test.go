package records_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/Veraticus/spice-capture/internal/storage"
	"github.com/Veraticus/spice-capture/internal/testutil"
	"github.com/Veraticus/spice-capture/internal/testutil/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SeedsStore(t *testing.T) {
	db := testutil.SetupTestDBWithBuilder(t, func(b records.Builder) records.Builder {
		return b.
			WithFixture(records.FixtureMonth).
			WithOwner("someone-else").
			On("2024-05-18").
			WithExpense("Health", "20", "Pharmacy")
	})

	require.Len(t, db.Records, 7)
	lunch := db.MustGet("Lunch")
	assert.Equal(t, model.TypeExpense, lunch.Type)
	assert.Equal(t, "2024-05-17", lunch.Date())

	mine, err := db.Storage.List(context.Background(), records.DefaultOwner, storage.Filter{})
	require.NoError(t, err)
	assert.Len(t, mine, 6)

	pharmacy := db.MustGet("Pharmacy")
	assert.Equal(t, "someone-else", pharmacy.OwnerID)
}

func TestBuilder_ReportsStoreErrors(t *testing.T) {
	store := &testutil.MemoryStore{Err: errors.New("read-only")}

	_, err := records.NewBuilder(t).WithIncome("Sales", "5", "Lemonade").Build(context.Background(), store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Lemonade")
}

func TestRecords_Find(t *testing.T) {
	recs := records.Records{
		{ID: "a", TransactionRecord: model.TransactionRecord{Description: "Rent"}},
		{ID: "b", TransactionRecord: model.TransactionRecord{Description: "Taxi"}},
	}

	assert.Equal(t, "b", recs.Find("Taxi").ID)
	assert.Nil(t, recs.Find("Lunch"))
	assert.Equal(t, []string{"a", "b"}, recs.IDs())
}
