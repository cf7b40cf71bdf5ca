package importer

import (
	"fmt"
	"strings"
	"time"

	"spendtrack/internal/core"
)

// RawRow is one parsed CSV line before validation. All fields are the raw
// strings from the file.
type RawRow struct {
	Line       int
	Title      string
	Amount     string
	Date       string
	Merchant   string
	Category   string
	CategoryID string
}

// NormalizedRow is a validated row, ready for category resolution.
type NormalizedRow struct {
	Title       string
	AmountCents int64
	Date        time.Time
	Merchant    string
	// CategoryHint is the row's category name column, fed to Resolve.
	CategoryHint string
	// CategoryID is the row's explicit id column. It is carried through but
	// not trusted for resolution; only the name hint participates.
	CategoryID string
}

// ValidateRow normalizes one raw row or rejects it. Rejections are per-row:
// the pipeline logs them and moves on.
//
// Negative amounts pass unchanged; no sign check is performed.
func ValidateRow(raw RawRow) (NormalizedRow, error) {
	cents, err := core.ParseAmountToCents(raw.Amount)
	if err != nil {
		return NormalizedRow{}, fmt.Errorf("line %d: amount %q: %w", raw.Line, raw.Amount, core.ErrInvalidAmount)
	}

	date, err := core.ParseCalendarDate(raw.Date)
	if err != nil {
		return NormalizedRow{}, fmt.Errorf("line %d: date %q: %w", raw.Line, raw.Date, core.ErrInvalidDate)
	}

	merchant := strings.TrimSpace(raw.Merchant)
	if merchant == "" {
		return NormalizedRow{}, fmt.Errorf("line %d: %w", raw.Line, core.ErrEmptyMerchant)
	}

	return NormalizedRow{
		Title:        strings.TrimSpace(raw.Title),
		AmountCents:  cents,
		Date:         date,
		Merchant:     merchant,
		CategoryHint: raw.Category,
		CategoryID:   strings.TrimSpace(raw.CategoryID),
	}, nil
}
