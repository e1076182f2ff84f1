package records

import "github.com/Veraticus/spice-capture/internal/model"

// Entry is one record in a fixture.
type Entry struct {
	Type        model.TransactionType
	Date        string
	Category    string
	Amount      string
	Description string
}

// Fixture represents a predefined set of records for testing.
type Fixture interface {
	// Name returns the fixture's descriptive name.
	Name() string

	// Entries returns the records in build order.
	Entries() []Entry
}

type fixture struct {
	name    string
	entries []Entry
}

func (f *fixture) Name() string     { return f.name }
func (f *fixture) Entries() []Entry { return f.entries }

// Predefined fixtures for common test scenarios.
var (
	// FixtureMonth is a small month of mixed income and expenses.
	FixtureMonth Fixture = &fixture{
		name: "Month",
		entries: []Entry{
			{model.TypeIncome, "2024-05-01", "Salary", "3200", "May salary"},
			{model.TypeExpense, "2024-05-02", "Housing", "1100", "Rent"},
			{model.TypeExpense, "2024-05-06", "Food", "82.40", "Groceries"},
			{model.TypeExpense, "2024-05-09", "Transport", "12.30", "Taxi"},
			{model.TypeIncome, "2024-05-15", "Freelance", "450", "Logo design"},
			{model.TypeExpense, "2024-05-17", "Food", "45.50", "Lunch"},
		},
	}

	// FixtureSingleExpense is one expense, for list and delete tests.
	FixtureSingleExpense Fixture = &fixture{
		name: "SingleExpense",
		entries: []Entry{
			{model.TypeExpense, "2024-05-17", "Leisure", "15", "Cinema"},
		},
	}
)
