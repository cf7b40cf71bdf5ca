// Package worker maintains the monthly_summaries rollup table. It consumes
// expense change events from the queue and recomputes the affected month
// from the database, so processing the same event twice is harmless.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendtrack/internal/amqp"
	"spendtrack/internal/reports"
	"spendtrack/internal/storage"
)

type SummaryWorker struct {
	store  storage.Store
	engine *reports.Engine
	now    func() time.Time
}

func NewSummaryWorker(store storage.Store) *SummaryWorker {
	return &SummaryWorker{
		store:  store,
		engine: reports.NewEngine(store),
		now:    time.Now,
	}
}

// Run consumes events from the client until ctx is cancelled.
func (w *SummaryWorker) Run(ctx context.Context, client *amqp.Client) error {
	return client.ConsumeEvents(ctx, func(msg *amqp.EventMessage) error {
		return w.Handle(ctx, msg)
	})
}

// Handle recomputes the rollup for the month an event names. Import
// completions carry no month, so they refresh the current calendar month,
// which is where an import's freshly inserted rows most commonly land; any
// rows in other months are picked up by that month's next change event.
func (w *SummaryWorker) Handle(ctx context.Context, msg *amqp.EventMessage) error {
	year, month := msg.Year, msg.Month
	if year == 0 || month == 0 {
		now := w.now().UTC()
		year, month = now.Year(), int(now.Month())
	}
	if month < 1 || month > 12 {
		// Drop rather than requeue: a malformed month never becomes valid.
		slog.ErrorContext(ctx, "Discarding event with invalid month",
			"kind", msg.Kind, "user_id", msg.UserID, "year", msg.Year, "month", msg.Month)
		return nil
	}

	summary, err := w.engine.MonthSummary(ctx, msg.UserID, year, month)
	if err != nil {
		return fmt.Errorf("recompute %d-%02d for user %d: %w", year, month, msg.UserID, err)
	}
	if err := w.store.UpsertMonthlySummary(ctx, summary); err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}

	slog.InfoContext(ctx, "Monthly summary updated",
		"user_id", msg.UserID,
		"year", year,
		"month", month,
		"total_cents", summary.Total.Cents,
		"expense_count", summary.ExpenseCount,
		"trigger", msg.Kind)
	return nil
}
