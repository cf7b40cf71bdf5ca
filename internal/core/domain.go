package core

import (
	"errors"
	"strings"
	"time"
)

// UncategorizedName is the sentinel category every user is guaranteed to
// have. The import pipeline refuses to run without it.
const UncategorizedName = "Uncategorized"

type (
	Money struct {
		Cents int64
	}

	Expense struct {
		ID         string
		UserID     int64
		Title      string
		Amount     Money
		Merchant   string
		Date       time.Time // calendar date, midnight UTC
		CategoryID *string
		Notes      string
		CreatedAt  time.Time
	}

	Category struct {
		ID        string
		UserID    int64
		Name      string
		CreatedAt time.Time
	}

	// ExpensePatch is a partial update: only non-nil fields are applied.
	// ClearCategory unsets the category reference and wins over CategoryID.
	ExpensePatch struct {
		Title         *string
		Amount        *Money
		Merchant      *string
		Date          *time.Time
		CategoryID    *string
		ClearCategory bool
		Notes         *string
	}

	// CategorySpend is one per-category total inside a reporting window.
	// CategoryID is empty when the expenses carried no category reference.
	CategorySpend struct {
		CategoryID string `json:"categoryId,omitempty"`
		Name       string `json:"name"`
		Total      Money  `json:"total"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyMerchant = errors.New("empty merchant")
	ErrNotFound      = errors.New("not found")

	// Import failure taxonomy. Matched with errors.Is across layers so
	// callers can map each kind to a distinct response.
	ErrMissingUncategorized = errors.New("user has no Uncategorized category")
	ErrEmptyBatch           = errors.New("no valid rows to import")
	ErrForeignKeyViolation  = errors.New("referenced row does not exist")
)

// StarterCategories is the fixed set created once per user at account
// creation time. UncategorizedName must stay in this list.
func StarterCategories() []string {
	return []string{
		"Dining",
		"Groceries",
		"Transport",
		"Utilities",
		"Rent/Mortgage",
		"Entertainment",
		UncategorizedName,
	}
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Merchant) == "" {
		return ErrEmptyMerchant
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate builds a calendar date at midnight UTC.
func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// Midnight truncates t to its calendar date in UTC.
func Midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthWindow returns the reporting window for the calendar month containing
// now: [first day of the month at midnight UTC, now].
func MonthWindow(now time.Time) (from, to time.Time) {
	y, m, _ := now.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC), now.UTC()
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
}

// ParseCalendarDate parses the date formats seen in CSV exports and API
// payloads, normalized to midnight UTC.
func ParseCalendarDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Midnight(t), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}
