// Package storage defines the persistence contract consumed by the import
// pipeline, the aggregation engine, and the HTTP layer. Implementations live
// in the sqlite, postgres, and memory subpackages.
package storage

import (
	"context"
	"time"

	"spendtrack/internal/core"
)

// DateRange is an inclusive time window. A nil *DateRange in a query means
// "all time".
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// CategorySum is one group of the per-category aggregation. CategoryID is
// nil for expenses that carry no category reference.
type CategorySum struct {
	CategoryID *string
	TotalCents int64
}

// ExpensePage is one page of a user's expense list plus the unpaginated
// total, fetched together so clients can render pagination controls.
type ExpensePage struct {
	Items []core.Expense
	Total int64
}

type Store interface {
	// Users exist only to anchor foreign keys; authentication is external.
	CreateUser(ctx context.Context, name, email string) (int64, error)

	// Categories.
	ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
	CreateCategory(ctx context.Context, userID int64, name string) (core.Category, error)
	RenameCategory(ctx context.Context, userID int64, id, name string) error
	DeleteCategory(ctx context.Context, userID int64, id string) error
	GetCategoryName(ctx context.Context, id string) (string, error)
	// EnsureStarterCategories creates the fixed starter set for a user,
	// skipping names that already exist. Idempotent.
	EnsureStarterCategories(ctx context.Context, userID int64) error

	// Expenses.
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	GetExpense(ctx context.Context, userID int64, id string) (core.Expense, error)
	ListExpenses(ctx context.Context, userID int64, limit, offset int) (ExpensePage, error)
	UpdateExpense(ctx context.Context, userID int64, id string, patch core.ExpensePatch) error
	DeleteExpense(ctx context.Context, userID int64, id string) error
	// BulkInsertExpenses writes all rows in one transaction: either every
	// row becomes visible or none do. A dangling category reference fails
	// the whole batch with core.ErrForeignKeyViolation.
	BulkInsertExpenses(ctx context.Context, rows []core.Expense) (int, error)

	// Aggregates.
	CountExpenses(ctx context.Context, userID int64, r *DateRange) (int64, error)
	SumExpenses(ctx context.Context, userID int64, r *DateRange) (int64, error)
	// GroupSumByCategory returns per-category totals ordered by total
	// descending, then category id ascending for a deterministic tie-break.
	GroupSumByCategory(ctx context.Context, userID int64, r *DateRange) ([]CategorySum, error)

	// Monthly rollups maintained by the summary worker.
	UpsertMonthlySummary(ctx context.Context, s core.MonthlySummary) error
	GetMonthlySummary(ctx context.Context, userID int64, year, month int) (core.MonthlySummary, error)

	Close() error
}
