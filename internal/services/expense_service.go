// Package services orchestrates expense operations across storage and the
// event queue. Writes land in the database first; event publishing is best
// effort and never fails a request.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"spendtrack/internal/amqp"
	"spendtrack/internal/core"
	"spendtrack/internal/storage"
)

// Publisher is the slice of the AMQP client the services need. Satisfied by
// *amqp.Client; tests substitute a recorder.
type Publisher interface {
	PublishEvent(ctx context.Context, msg *amqp.EventMessage) error
}

type ExpenseService struct {
	store     storage.Store
	publisher Publisher
}

func NewExpenseService(store storage.Store, publisher Publisher) *ExpenseService {
	return &ExpenseService{store: store, publisher: publisher}
}

// CreateExpense validates and saves an expense, then marks its month dirty
// for the rollup worker.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.Date = core.Midnight(e.Date)

	saved, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publishMonthDirty(ctx, saved.UserID, saved.Date.Year(), int(saved.Date.Month()))
	return saved, nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, userID int64, id string) (core.Expense, error) {
	return s.store.GetExpense(ctx, userID, id)
}

// ListExpenses pages a user's expenses newest first. Limit is clamped to
// [1, 200] with a default of 50.
func (s *ExpenseService) ListExpenses(ctx context.Context, userID int64, limit, offset int) (storage.ExpensePage, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListExpenses(ctx, userID, limit, offset)
}

// UpdateExpense applies a partial update. Both the expense's old month and,
// when the date moved, its new month are marked dirty.
func (s *ExpenseService) UpdateExpense(ctx context.Context, userID int64, id string, patch core.ExpensePatch) (core.Expense, error) {
	before, err := s.store.GetExpense(ctx, userID, id)
	if err != nil {
		return core.Expense{}, err
	}
	if patch.Date != nil {
		d := core.Midnight(*patch.Date)
		patch.Date = &d
	}

	if err := s.store.UpdateExpense(ctx, userID, id, patch); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	after, err := s.store.GetExpense(ctx, userID, id)
	if err != nil {
		return core.Expense{}, err
	}

	s.publishMonthDirty(ctx, userID, before.Date.Year(), int(before.Date.Month()))
	if !sameMonth(before.Date.Year(), int(before.Date.Month()), after.Date.Year(), int(after.Date.Month())) {
		s.publishMonthDirty(ctx, userID, after.Date.Year(), int(after.Date.Month()))
	}
	return after, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, userID int64, id string) error {
	e, err := s.store.GetExpense(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteExpense(ctx, userID, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.publishMonthDirty(ctx, userID, e.Date.Year(), int(e.Date.Month()))
	return nil
}

// Categories pass straight through to storage; they carry no events.

func (s *ExpenseService) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	return s.store.ListCategories(ctx, userID)
}

func (s *ExpenseService) CreateCategory(ctx context.Context, userID int64, name string) (core.Category, error) {
	return s.store.CreateCategory(ctx, userID, name)
}

func (s *ExpenseService) RenameCategory(ctx context.Context, userID int64, id, name string) error {
	return s.store.RenameCategory(ctx, userID, id, name)
}

func (s *ExpenseService) DeleteCategory(ctx context.Context, userID int64, id string) error {
	return s.store.DeleteCategory(ctx, userID, id)
}

func (s *ExpenseService) EnsureStarterCategories(ctx context.Context, userID int64) error {
	return s.store.EnsureStarterCategories(ctx, userID)
}

func (s *ExpenseService) publishMonthDirty(ctx context.Context, userID int64, year, month int) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Publisher not available, skipping expense change event")
		return
	}
	msg := amqp.NewExpenseChangedMessage(userID, year, month)
	if err := s.publisher.PublishEvent(ctx, msg); err != nil {
		// The write already succeeded; the rollup catches up later.
		slog.ErrorContext(ctx, "Failed to publish expense change event",
			"user_id", userID, "year", year, "month", month, "error", err)
	}
}

func sameMonth(y1, m1, y2, m2 int) bool {
	return y1 == y2 && m1 == m2
}
