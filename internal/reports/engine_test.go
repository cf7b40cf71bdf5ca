package reports

import (
	"context"
	"testing"
	"time"

	"spendtrack/internal/core"
	"spendtrack/internal/storage/memory"
)

func fixedClock(year, month, day int) func() time.Time {
	return func() time.Time {
		return time.Date(year, time.Month(month), day, 15, 30, 0, 0, time.UTC)
	}
}

func seedUser(t *testing.T, store *memory.Store) int64 {
	t.Helper()
	userID, err := store.CreateUser(context.Background(), "Report User", "reports@example.com")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := store.EnsureStarterCategories(context.Background(), userID); err != nil {
		t.Fatalf("seed categories: %v", err)
	}
	return userID
}

func seedExpense(t *testing.T, store *memory.Store, userID int64, cents int64, date time.Time, categoryID *string) {
	t.Helper()
	_, err := store.CreateExpense(context.Background(), core.Expense{
		UserID:     userID,
		Title:      "seed",
		Amount:     core.Money{Cents: cents},
		Merchant:   "Seed Merchant",
		Date:       date,
		CategoryID: categoryID,
	})
	if err != nil {
		t.Fatalf("seed expense: %v", err)
	}
}

func findCategory(t *testing.T, store *memory.Store, userID int64, name string) string {
	t.Helper()
	cats, err := store.ListCategories(context.Background(), userID)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	for _, c := range cats {
		if c.Name == name {
			return c.ID
		}
	}
	t.Fatalf("category %q not seeded", name)
	return ""
}

func TestCount(t *testing.T) {
	store := memory.New()
	userID := seedUser(t, store)
	engine := NewEngine(store).WithClock(fixedClock(2025, 3, 15))

	n, err := engine.Count(context.Background(), userID)
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}

	seedExpense(t, store, userID, 450, core.NewDate(2025, 3, 14), nil)
	seedExpense(t, store, userID, 1200, core.NewDate(2024, 12, 1), nil) // old months still count

	n, err = engine.Count(context.Background(), userID)
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestMonthToDateTotal(t *testing.T) {
	store := memory.New()
	userID := seedUser(t, store)
	engine := NewEngine(store).WithClock(fixedClock(2025, 3, 15))

	// Inside the window.
	seedExpense(t, store, userID, 450, core.NewDate(2025, 3, 1), nil)
	seedExpense(t, store, userID, 1550, core.NewDate(2025, 3, 14), nil)
	// Outside: previous month and a future date past now.
	seedExpense(t, store, userID, 9900, core.NewDate(2025, 2, 28), nil)
	seedExpense(t, store, userID, 5000, core.NewDate(2025, 3, 20), nil)

	total, err := engine.MonthToDateTotal(context.Background(), userID)
	if err != nil {
		t.Fatalf("MonthToDateTotal() error: %v", err)
	}
	if total.Cents != 2000 {
		t.Errorf("MonthToDateTotal() = %d cents, want 2000", total.Cents)
	}
}

func TestMonthToDateTotalEmptyMonth(t *testing.T) {
	store := memory.New()
	userID := seedUser(t, store)
	engine := NewEngine(store).WithClock(fixedClock(2025, 3, 15))

	total, err := engine.MonthToDateTotal(context.Background(), userID)
	if err != nil {
		t.Fatalf("MonthToDateTotal() error: %v", err)
	}
	if total.Cents != 0 {
		t.Errorf("MonthToDateTotal() = %d cents, want 0", total.Cents)
	}
}

func TestAverageDaily(t *testing.T) {
	tests := []struct {
		name      string
		day       int
		cents     []int64
		wantCents int64
	}{
		{
			name:      "mid month",
			day:       10,
			cents:     []int64{10000}, // 100.00 over 10 days
			wantCents: 1000,
		},
		{
			name:      "first of month divides by one",
			day:       1,
			cents:     []int64{450},
			wantCents: 450,
		},
		{
			name:      "rounds to cents",
			day:       3,
			cents:     []int64{1000}, // 10.00 / 3 = 3.333...
			wantCents: 333,
		},
		{
			name:      "no expenses",
			day:       20,
			cents:     nil,
			wantCents: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			userID := seedUser(t, store)
			engine := NewEngine(store).WithClock(fixedClock(2025, 3, tt.day))

			for _, c := range tt.cents {
				seedExpense(t, store, userID, c, core.NewDate(2025, 3, 1), nil)
			}

			avg, err := engine.AverageDaily(context.Background(), userID)
			if err != nil {
				t.Fatalf("AverageDaily() error: %v", err)
			}
			if avg.Cents != tt.wantCents {
				t.Errorf("AverageDaily() = %d cents, want %d", avg.Cents, tt.wantCents)
			}
		})
	}
}

func TestTopCategory(t *testing.T) {
	store := memory.New()
	userID := seedUser(t, store)
	engine := NewEngine(store).WithClock(fixedClock(2025, 3, 15))

	dining := findCategory(t, store, userID, "Dining")
	transport := findCategory(t, store, userID, "Transport")

	seedExpense(t, store, userID, 3000, core.NewDate(2025, 3, 2), &dining)
	seedExpense(t, store, userID, 1000, core.NewDate(2025, 3, 5), &transport)
	seedExpense(t, store, userID, 2500, core.NewDate(2025, 3, 8), &dining)
	// Previous month must not count.
	seedExpense(t, store, userID, 100000, core.NewDate(2025, 2, 1), &transport)

	top, err := engine.TopCategory(context.Background(), userID)
	if err != nil {
		t.Fatalf("TopCategory() error: %v", err)
	}
	if top == nil {
		t.Fatal("TopCategory() = nil, want Dining")
	}
	if top.Name != "Dining" || top.CategoryID != dining {
		t.Errorf("TopCategory() = %+v, want Dining %s", top, dining)
	}
	if top.Total.Cents != 5500 {
		t.Errorf("TopCategory() total = %d cents, want 5500", top.Total.Cents)
	}
}

func TestTopCategoryNoExpenses(t *testing.T) {
	store := memory.New()
	userID := seedUser(t, store)
	engine := NewEngine(store).WithClock(fixedClock(2025, 3, 15))

	top, err := engine.TopCategory(context.Background(), userID)
	if err != nil {
		t.Fatalf("TopCategory() error: %v", err)
	}
	if top != nil {
		t.Errorf("TopCategory() = %+v, want nil", top)
	}
}

func TestTopCategoryNilCategoryReportsUncategorized(t *testing.T) {
	store := memory.New()
	userID := seedUser(t, store)
	engine := NewEngine(store).WithClock(fixedClock(2025, 3, 15))

	seedExpense(t, store, userID, 700, core.NewDate(2025, 3, 3), nil)

	top, err := engine.TopCategory(context.Background(), userID)
	if err != nil {
		t.Fatalf("TopCategory() error: %v", err)
	}
	if top == nil {
		t.Fatal("TopCategory() = nil, want uncategorized spend")
	}
	if top.Name != core.UncategorizedName || top.CategoryID != "" {
		t.Errorf("TopCategory() = %+v, want name %q with empty id", top, core.UncategorizedName)
	}
	if top.Total.Cents != 700 {
		t.Errorf("TopCategory() total = %d cents, want 700", top.Total.Cents)
	}
}

func TestBuildOverview(t *testing.T) {
	store := memory.New()
	userID := seedUser(t, store)
	engine := NewEngine(store).WithClock(fixedClock(2025, 3, 10))

	dining := findCategory(t, store, userID, "Dining")
	seedExpense(t, store, userID, 8000, core.NewDate(2025, 3, 4), &dining)
	seedExpense(t, store, userID, 2000, core.NewDate(2025, 3, 6), nil)

	ov, err := engine.BuildOverview(context.Background(), userID)
	if err != nil {
		t.Fatalf("BuildOverview() error: %v", err)
	}
	if ov.ExpenseCount != 2 {
		t.Errorf("ExpenseCount = %d, want 2", ov.ExpenseCount)
	}
	if ov.MonthToDateTotal.Cents != 10000 {
		t.Errorf("MonthToDateTotal = %d cents, want 10000", ov.MonthToDateTotal.Cents)
	}
	if ov.AverageDaily.Cents != 1000 {
		t.Errorf("AverageDaily = %d cents, want 1000", ov.AverageDaily.Cents)
	}
	if ov.TopCategory == nil || ov.TopCategory.Name != "Dining" {
		t.Errorf("TopCategory = %+v, want Dining", ov.TopCategory)
	}
}

func TestMonthSummary(t *testing.T) {
	store := memory.New()
	userID := seedUser(t, store)
	engine := NewEngine(store)

	dining := findCategory(t, store, userID, "Dining")
	seedExpense(t, store, userID, 4200, core.NewDate(2025, 1, 10), &dining)
	seedExpense(t, store, userID, 800, core.NewDate(2025, 1, 31), nil)
	seedExpense(t, store, userID, 9999, core.NewDate(2025, 2, 1), nil) // next month

	summary, err := engine.MonthSummary(context.Background(), userID, 2025, 1)
	if err != nil {
		t.Fatalf("MonthSummary() error: %v", err)
	}
	if summary.Total.Cents != 5000 {
		t.Errorf("Total = %d cents, want 5000", summary.Total.Cents)
	}
	if summary.ExpenseCount != 2 {
		t.Errorf("ExpenseCount = %d, want 2", summary.ExpenseCount)
	}
	if summary.TopCategoryID == nil || *summary.TopCategoryID != dining {
		t.Errorf("TopCategoryID = %v, want %s", summary.TopCategoryID, dining)
	}
}

func TestTopCategoryTieBreak(t *testing.T) {
	store := memory.New()
	userID := seedUser(t, store)
	engine := NewEngine(store).WithClock(fixedClock(2025, 3, 15))

	dining := findCategory(t, store, userID, "Dining")
	transport := findCategory(t, store, userID, "Transport")

	// Three groups at exactly 3000 cents each; the uncategorized group sorts
	// before any category id on equal totals.
	seedExpense(t, store, userID, 2000, core.NewDate(2025, 3, 2), &dining)
	seedExpense(t, store, userID, 1000, core.NewDate(2025, 3, 4), &dining)
	seedExpense(t, store, userID, 3000, core.NewDate(2025, 3, 6), &transport)
	seedExpense(t, store, userID, 3000, core.NewDate(2025, 3, 8), nil)

	top, err := engine.TopCategory(context.Background(), userID)
	if err != nil {
		t.Fatalf("TopCategory() error: %v", err)
	}
	if top == nil {
		t.Fatal("TopCategory() = nil on a tie")
	}
	if top.CategoryID != "" || top.Name != core.UncategorizedName {
		t.Errorf("TopCategory() = %+v, want the uncategorized group", top)
	}
	if top.Total.Cents != 3000 {
		t.Errorf("TopCategory() total = %d cents, want 3000", top.Total.Cents)
	}
}

func TestTopCategoryTieBreakLowestID(t *testing.T) {
	store := memory.New()
	userID := seedUser(t, store)
	engine := NewEngine(store).WithClock(fixedClock(2025, 3, 15))

	dining := findCategory(t, store, userID, "Dining")
	transport := findCategory(t, store, userID, "Transport")

	seedExpense(t, store, userID, 3000, core.NewDate(2025, 3, 2), &dining)
	seedExpense(t, store, userID, 3000, core.NewDate(2025, 3, 6), &transport)

	wantID, wantName := dining, "Dining"
	if transport < dining {
		wantID, wantName = transport, "Transport"
	}

	top, err := engine.TopCategory(context.Background(), userID)
	if err != nil {
		t.Fatalf("TopCategory() error: %v", err)
	}
	if top == nil {
		t.Fatal("TopCategory() = nil on a tie")
	}
	if top.CategoryID != wantID || top.Name != wantName {
		t.Errorf("TopCategory() = %+v, want %s (%s)", top, wantName, wantID)
	}
}
