package services

import (
	"context"
	"errors"
	"testing"

	"spendtrack/internal/amqp"
	"spendtrack/internal/core"
	"spendtrack/internal/storage/memory"
)

// recordingPublisher captures published events in order.
type recordingPublisher struct {
	events []*amqp.EventMessage
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, msg *amqp.EventMessage) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, msg)
	return nil
}

func newServiceFixture(t *testing.T) (*ExpenseService, *memory.Store, *recordingPublisher, int64) {
	t.Helper()
	store := memory.New()
	userID, err := store.CreateUser(context.Background(), "Svc User", "svc@example.com")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	pub := &recordingPublisher{}
	return NewExpenseService(store, pub), store, pub, userID
}

func TestCreateExpensePublishesMonthEvent(t *testing.T) {
	svc, _, pub, userID := newServiceFixture(t)

	saved, err := svc.CreateExpense(context.Background(), core.Expense{
		UserID:   userID,
		Title:    "Coffee",
		Amount:   core.Money{Cents: 450},
		Merchant: "Cafe",
		Date:     core.NewDate(2025, 3, 14),
	})
	if err != nil {
		t.Fatalf("CreateExpense() error: %v", err)
	}
	if saved.ID == "" {
		t.Error("CreateExpense() should assign an id")
	}

	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Kind != amqp.KindExpenseChanged || ev.Year != 2025 || ev.Month != 3 {
		t.Errorf("event = %+v, want expense.changed for 2025-03", ev)
	}
}

func TestCreateExpenseRejectsInvalid(t *testing.T) {
	svc, store, pub, userID := newServiceFixture(t)

	_, err := svc.CreateExpense(context.Background(), core.Expense{
		UserID: userID,
		Amount: core.Money{Cents: 100},
		Date:   core.NewDate(2025, 3, 1),
	})
	if !errors.Is(err, core.ErrEmptyMerchant) {
		t.Fatalf("CreateExpense() error = %v, want ErrEmptyMerchant", err)
	}
	if len(pub.events) != 0 {
		t.Error("invalid expense must not publish events")
	}
	if n, _ := store.CountExpenses(context.Background(), userID, nil); n != 0 {
		t.Error("invalid expense must not be stored")
	}
}

func TestCreateExpensePublishFailureIsNonFatal(t *testing.T) {
	store := memory.New()
	userID, _ := store.CreateUser(context.Background(), "U", "u@example.com")
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewExpenseService(store, pub)

	_, err := svc.CreateExpense(context.Background(), core.Expense{
		UserID:   userID,
		Title:    "Lunch",
		Amount:   core.Money{Cents: 1200},
		Merchant: "Deli",
		Date:     core.NewDate(2025, 3, 2),
	})
	if err != nil {
		t.Fatalf("CreateExpense() must succeed when publishing fails, got: %v", err)
	}
	if n, _ := store.CountExpenses(context.Background(), userID, nil); n != 1 {
		t.Error("expense must be stored despite publish failure")
	}
}

func TestUpdateExpenseMovingMonthsPublishesBoth(t *testing.T) {
	svc, _, pub, userID := newServiceFixture(t)

	saved, err := svc.CreateExpense(context.Background(), core.Expense{
		UserID:   userID,
		Title:    "Rent",
		Amount:   core.Money{Cents: 90000},
		Merchant: "Landlord",
		Date:     core.NewDate(2025, 3, 1),
	})
	if err != nil {
		t.Fatalf("CreateExpense() error: %v", err)
	}
	pub.events = nil

	newDate := core.NewDate(2025, 4, 1)
	after, err := svc.UpdateExpense(context.Background(), userID, saved.ID, core.ExpensePatch{Date: &newDate})
	if err != nil {
		t.Fatalf("UpdateExpense() error: %v", err)
	}
	if !after.Date.Equal(newDate) {
		t.Errorf("updated date = %v, want %v", after.Date, newDate)
	}

	if len(pub.events) != 2 {
		t.Fatalf("published %d events, want 2 (old and new month)", len(pub.events))
	}
	if pub.events[0].Month != 3 || pub.events[1].Month != 4 {
		t.Errorf("events = %+v, want months 3 then 4", pub.events)
	}
}

func TestUpdateExpenseSameMonthPublishesOnce(t *testing.T) {
	svc, _, pub, userID := newServiceFixture(t)

	saved, err := svc.CreateExpense(context.Background(), core.Expense{
		UserID:   userID,
		Title:    "Snack",
		Amount:   core.Money{Cents: 300},
		Merchant: "Kiosk",
		Date:     core.NewDate(2025, 3, 5),
	})
	if err != nil {
		t.Fatalf("CreateExpense() error: %v", err)
	}
	pub.events = nil

	title := "Afternoon snack"
	if _, err := svc.UpdateExpense(context.Background(), userID, saved.ID, core.ExpensePatch{Title: &title}); err != nil {
		t.Fatalf("UpdateExpense() error: %v", err)
	}
	if len(pub.events) != 1 {
		t.Errorf("published %d events, want 1", len(pub.events))
	}
}

func TestUpdateExpenseNotFound(t *testing.T) {
	svc, _, _, userID := newServiceFixture(t)

	title := "x"
	_, err := svc.UpdateExpense(context.Background(), userID, "missing", core.ExpensePatch{Title: &title})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UpdateExpense() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteExpensePublishesMonthEvent(t *testing.T) {
	svc, store, pub, userID := newServiceFixture(t)

	saved, err := svc.CreateExpense(context.Background(), core.Expense{
		UserID:   userID,
		Title:    "Ticket",
		Amount:   core.Money{Cents: 2500},
		Merchant: "Cinema",
		Date:     core.NewDate(2025, 2, 20),
	})
	if err != nil {
		t.Fatalf("CreateExpense() error: %v", err)
	}
	pub.events = nil

	if err := svc.DeleteExpense(context.Background(), userID, saved.ID); err != nil {
		t.Fatalf("DeleteExpense() error: %v", err)
	}
	if n, _ := store.CountExpenses(context.Background(), userID, nil); n != 0 {
		t.Error("expense should be deleted")
	}
	if len(pub.events) != 1 || pub.events[0].Month != 2 {
		t.Errorf("events = %+v, want one event for month 2", pub.events)
	}
}

func TestListExpensesClampsLimit(t *testing.T) {
	svc, _, _, userID := newServiceFixture(t)

	for i := 0; i < 3; i++ {
		_, err := svc.CreateExpense(context.Background(), core.Expense{
			UserID:   userID,
			Title:    "Item",
			Amount:   core.Money{Cents: 100},
			Merchant: "Shop",
			Date:     core.NewDate(2025, 3, i+1),
		})
		if err != nil {
			t.Fatalf("CreateExpense() error: %v", err)
		}
	}

	page, err := svc.ListExpenses(context.Background(), userID, -5, -1)
	if err != nil {
		t.Fatalf("ListExpenses() error: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 3 {
		t.Errorf("page = total %d items %d, want 3/3", page.Total, len(page.Items))
	}
}

func TestNilPublisherIsAllowed(t *testing.T) {
	store := memory.New()
	userID, _ := store.CreateUser(context.Background(), "U", "u@example.com")
	svc := NewExpenseService(store, nil)

	_, err := svc.CreateExpense(context.Background(), core.Expense{
		UserID:   userID,
		Title:    "Coffee",
		Amount:   core.Money{Cents: 450},
		Merchant: "Cafe",
		Date:     core.NewDate(2025, 3, 14),
	})
	if err != nil {
		t.Fatalf("CreateExpense() with nil publisher error: %v", err)
	}
}
