// Package memory implements storage.Store in process memory. It backs local
// development without a database file and the unit tests for the import
// pipeline and aggregation engine.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spendtrack/internal/core"
	"spendtrack/internal/storage"
)

type Store struct {
	mu         sync.Mutex
	nextUserID int64
	users      map[int64]string // id -> email
	categories []core.Category
	expenses   []core.Expense
	summaries  map[string]core.MonthlySummary
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:     make(map[int64]string),
		summaries: make(map[string]core.MonthlySummary),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, name, email string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	s.users[s.nextUserID] = email
	_ = name
	return s.nextUserID, nil
}

func (s *Store) ListCategories(_ context.Context, userID int64) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cats []core.Category
	for _, c := range s.categories {
		if c.UserID == userID {
			cats = append(cats, c)
		}
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
	return cats, nil
}

func (s *Store) CreateCategory(_ context.Context, userID int64, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := core.Category{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *Store) RenameCategory(_ context.Context, userID int64, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.categories {
		if c.ID == id && c.UserID == userID {
			s.categories[i].Name = name
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) DeleteCategory(_ context.Context, userID int64, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.categories {
		if c.ID == id && c.UserID == userID {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			// Mirror ON DELETE SET NULL.
			for j := range s.expenses {
				if s.expenses[j].CategoryID != nil && *s.expenses[j].CategoryID == id {
					s.expenses[j].CategoryID = nil
				}
			}
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) GetCategoryName(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.categories {
		if c.ID == id {
			return c.Name, nil
		}
	}
	return "", core.ErrNotFound
}

func (s *Store) EnsureStarterCategories(ctx context.Context, userID int64) error {
	existing, err := s.ListCategories(ctx, userID)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[strings.ToLower(c.Name)] = true
	}
	for _, name := range core.StarterCategories() {
		if have[strings.ToLower(name)] {
			continue
		}
		if _, err := s.CreateCategory(ctx, userID, name); err != nil {
			return fmt.Errorf("seed starter category %q: %w", name, err)
		}
	}
	return nil
}

func (s *Store) categoryExists(id string) bool {
	for _, c := range s.categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.CategoryID != nil && !s.categoryExists(*e.CategoryID) {
		return core.Expense{}, fmt.Errorf("create expense: %w", core.ErrForeignKeyViolation)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.expenses = append(s.expenses, e)
	return e, nil
}

func (s *Store) GetExpense(_ context.Context, userID int64, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.expenses {
		if e.ID == id && e.UserID == userID {
			return e, nil
		}
	}
	return core.Expense{}, core.ErrNotFound
}

func (s *Store) ListExpenses(_ context.Context, userID int64, limit, offset int) (storage.ExpensePage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []core.Expense
	for _, e := range s.expenses {
		if e.UserID == userID {
			all = append(all, e)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date) {
			return all[i].Date.After(all[j].Date)
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	page := storage.ExpensePage{Total: int64(len(all))}
	if offset >= len(all) {
		return page, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	page.Items = append(page.Items, all[offset:end]...)
	return page, nil
}

func (s *Store) UpdateExpense(_ context.Context, userID int64, id string, patch core.ExpensePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.expenses {
		e := &s.expenses[i]
		if e.ID != id || e.UserID != userID {
			continue
		}
		if patch.CategoryID != nil && !patch.ClearCategory && !s.categoryExists(*patch.CategoryID) {
			return fmt.Errorf("update expense: %w", core.ErrForeignKeyViolation)
		}
		if patch.Title != nil {
			e.Title = *patch.Title
		}
		if patch.Amount != nil {
			e.Amount = *patch.Amount
		}
		if patch.Merchant != nil {
			e.Merchant = *patch.Merchant
		}
		if patch.Date != nil {
			e.Date = *patch.Date
		}
		if patch.ClearCategory {
			e.CategoryID = nil
		} else if patch.CategoryID != nil {
			e.CategoryID = patch.CategoryID
		}
		if patch.Notes != nil {
			e.Notes = *patch.Notes
		}
		return nil
	}
	return core.ErrNotFound
}

func (s *Store) DeleteExpense(_ context.Context, userID int64, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.expenses {
		if e.ID == id && e.UserID == userID {
			s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

// BulkInsertExpenses validates every category reference before appending
// anything, so a failing batch leaves the store untouched.
func (s *Store) BulkInsertExpenses(_ context.Context, rows []core.Expense) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range rows {
		if e.CategoryID != nil && !s.categoryExists(*e.CategoryID) {
			return 0, fmt.Errorf("bulk insert expense: %w", core.ErrForeignKeyViolation)
		}
	}

	now := time.Now().UTC()
	for _, e := range rows {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		s.expenses = append(s.expenses, e)
	}
	return len(rows), nil
}

func (s *Store) CountExpenses(_ context.Context, userID int64, dr *storage.DateRange) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, e := range s.expenses {
		if e.UserID == userID && (dr == nil || dr.Contains(e.Date)) {
			n++
		}
	}
	return n, nil
}

func (s *Store) SumExpenses(_ context.Context, userID int64, dr *storage.DateRange) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, e := range s.expenses {
		if e.UserID == userID && (dr == nil || dr.Contains(e.Date)) {
			total += e.Amount.Cents
		}
	}
	return total, nil
}

func (s *Store) GroupSumByCategory(_ context.Context, userID int64, dr *storage.DateRange) ([]storage.CategorySum, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := make(map[string]int64)
	for _, e := range s.expenses {
		if e.UserID != userID || (dr != nil && !dr.Contains(e.Date)) {
			continue
		}
		key := ""
		if e.CategoryID != nil {
			key = *e.CategoryID
		}
		totals[key] += e.Amount.Cents
	}

	sums := make([]storage.CategorySum, 0, len(totals))
	for key, total := range totals {
		cs := storage.CategorySum{TotalCents: total}
		if key != "" {
			id := key
			cs.CategoryID = &id
		}
		sums = append(sums, cs)
	}
	// Total descending, then category id ascending with nil first, matching
	// the SQL backends.
	sort.Slice(sums, func(i, j int) bool {
		if sums[i].TotalCents != sums[j].TotalCents {
			return sums[i].TotalCents > sums[j].TotalCents
		}
		return keyOf(sums[i].CategoryID) < keyOf(sums[j].CategoryID)
	})
	return sums, nil
}

func keyOf(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}

func summaryKey(userID int64, year, month int) string {
	return fmt.Sprintf("%d-%d-%d", userID, year, month)
}

func (s *Store) UpsertMonthlySummary(_ context.Context, summary core.MonthlySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary.UpdatedAt = time.Now().UTC()
	s.summaries[summaryKey(summary.UserID, summary.Year, summary.Month)] = summary
	return nil
}

func (s *Store) GetMonthlySummary(_ context.Context, userID int64, year, month int) (core.MonthlySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary, ok := s.summaries[summaryKey(userID, year, month)]
	if !ok {
		return core.MonthlySummary{}, core.ErrNotFound
	}
	return summary, nil
}
