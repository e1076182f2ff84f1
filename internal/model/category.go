package model

// ExpenseCategories is the vocabulary the classification prompt favors for expenses.
var ExpenseCategories = []string{
	"Food",
	"Transport",
	"Health",
	"Education",
	"Leisure",
	"Housing",
	"Clothing",
	"Other",
}

// IncomeCategories is the vocabulary the classification prompt favors for income.
var IncomeCategories = []string{
	"Salary",
	"Freelance",
	"Investments",
	"Sales",
	"Other",
}

// CategoriesFor returns the suggested vocabulary for t. Unset returns both,
// deduplicated, expenses first.
func CategoriesFor(t TransactionType) []string {
	switch t {
	case TypeIncome:
		return append([]string(nil), IncomeCategories...)
	case TypeExpense:
		return append([]string(nil), ExpenseCategories...)
	}

	seen := make(map[string]bool, len(ExpenseCategories)+len(IncomeCategories))
	all := make([]string, 0, len(ExpenseCategories)+len(IncomeCategories))
	for _, list := range [][]string{ExpenseCategories, IncomeCategories} {
		for _, c := range list {
			if !seen[c] {
				seen[c] = true
				all = append(all, c)
			}
		}
	}
	return all
}

// IsKnownCategory reports whether name is in the vocabulary for t.
// Membership is advisory; nothing rejects unknown categories.
func IsKnownCategory(t TransactionType, name string) bool {
	for _, c := range CategoriesFor(t) {
		if c == name {
			return true
		}
	}
	return false
}
