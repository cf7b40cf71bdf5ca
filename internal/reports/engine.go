// Package reports computes the aggregate statistics served by the overview
// endpoints: expense count, month-to-date total, average daily spend, and
// top spending category.
package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"spendtrack/internal/core"
	"spendtrack/internal/storage"
)

// Engine answers aggregate queries against a Store. Now is injectable so
// tests can pin the reporting window; it defaults to time.Now.
type Engine struct {
	store storage.Store
	now   func() time.Time
}

func NewEngine(store storage.Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// WithClock overrides the engine's notion of the current time.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Overview is the full dashboard payload, assembled from the individual
// statistics in one call.
type Overview struct {
	ExpenseCount     int64               `json:"expenseCount"`
	MonthToDateTotal core.Money          `json:"monthToDateTotal"`
	AverageDaily     core.Money          `json:"averageDailySpend"`
	TopCategory      *core.CategorySpend `json:"topCategory"`
}

// Count returns the user's all-time expense count.
func (e *Engine) Count(ctx context.Context, userID int64) (int64, error) {
	n, err := e.store.CountExpenses(ctx, userID, nil)
	if err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

// MonthToDateTotal sums the current calendar month's spending, from the
// first of the month through now. A month with no expenses totals zero.
func (e *Engine) MonthToDateTotal(ctx context.Context, userID int64) (core.Money, error) {
	from, to := core.MonthWindow(e.now())
	cents, err := e.store.SumExpenses(ctx, userID, &storage.DateRange{From: from, To: to})
	if err != nil {
		return core.Money{}, fmt.Errorf("sum month to date: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// AverageDaily divides the month-to-date total by the number of elapsed
// days in the month, rounded to cents. The divisor is the current day of
// the month, never less than one, so the first of the month divides by one.
func (e *Engine) AverageDaily(ctx context.Context, userID int64) (core.Money, error) {
	total, err := e.MonthToDateTotal(ctx, userID)
	if err != nil {
		return core.Money{}, err
	}

	days := e.now().UTC().Day()
	if days < 1 {
		days = 1
	}
	avg := total.Decimal().Div(decimal.NewFromInt(int64(days))).Round(2)
	return core.Money{Cents: avg.Shift(2).IntPart()}, nil
}

// TopCategory returns the category with the highest month-to-date spend, or
// nil when the month has no expenses. Ties break toward the smaller
// category id, with uncategorized spend ordered first; uncategorized spend
// is reported under the Uncategorized display name.
func (e *Engine) TopCategory(ctx context.Context, userID int64) (*core.CategorySpend, error) {
	from, to := core.MonthWindow(e.now())
	groups, err := e.store.GroupSumByCategory(ctx, userID, &storage.DateRange{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("group by category: %w", err)
	}
	if len(groups) == 0 {
		return nil, nil
	}

	top := groups[0]
	spend := &core.CategorySpend{Total: core.Money{Cents: top.TotalCents}}
	if top.CategoryID == nil {
		spend.Name = core.UncategorizedName
		return spend, nil
	}

	spend.CategoryID = *top.CategoryID
	name, err := e.store.GetCategoryName(ctx, *top.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("resolve category %s: %w", *top.CategoryID, err)
	}
	spend.Name = name
	return spend, nil
}

// BuildOverview fans the four statistics out concurrently and assembles the
// dashboard payload. Any single failure fails the whole overview.
func (e *Engine) BuildOverview(ctx context.Context, userID int64) (Overview, error) {
	var ov Overview
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := e.Count(ctx, userID)
		ov.ExpenseCount = n
		return err
	})
	g.Go(func() error {
		total, err := e.MonthToDateTotal(ctx, userID)
		ov.MonthToDateTotal = total
		return err
	})
	g.Go(func() error {
		avg, err := e.AverageDaily(ctx, userID)
		ov.AverageDaily = avg
		return err
	})
	g.Go(func() error {
		top, err := e.TopCategory(ctx, userID)
		ov.TopCategory = top
		return err
	})

	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return ov, nil
}

// MonthSummary recomputes the persisted rollup for one calendar month. The
// worker runs this in response to expense change events.
func (e *Engine) MonthSummary(ctx context.Context, userID int64, year, month int) (core.MonthlySummary, error) {
	from := core.NewDate(year, month, 1)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)
	dr := &storage.DateRange{From: from, To: to}

	total, err := e.store.SumExpenses(ctx, userID, dr)
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("sum month: %w", err)
	}
	count, err := e.store.CountExpenses(ctx, userID, dr)
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("count month: %w", err)
	}

	summary := core.MonthlySummary{
		UserID:       userID,
		Year:         year,
		Month:        month,
		Total:        core.Money{Cents: total},
		ExpenseCount: count,
		UpdatedAt:    time.Now().UTC(),
	}

	groups, err := e.store.GroupSumByCategory(ctx, userID, dr)
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("group month: %w", err)
	}
	if len(groups) > 0 && groups[0].CategoryID != nil {
		summary.TopCategoryID = groups[0].CategoryID
	}

	return summary, nil
}
