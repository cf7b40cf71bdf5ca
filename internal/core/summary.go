package core

import "time"

// MonthlySummary is the rollup row maintained by the summary worker, one per
// (user, year, month). It backs dashboard trend widgets so they never have
// to re-aggregate past months.
type MonthlySummary struct {
	UserID        int64
	Year          int
	Month         int // 1-12
	Total         Money
	ExpenseCount  int64
	TopCategoryID *string
	UpdatedAt     time.Time
}
