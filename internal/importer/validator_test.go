package importer

import (
	"errors"
	"testing"
	"time"

	"spendtrack/internal/core"
)

func TestValidateRow(t *testing.T) {
	tests := []struct {
		name    string
		raw     RawRow
		want    NormalizedRow
		wantErr error
	}{
		{
			name: "valid row",
			raw:  RawRow{Line: 2, Title: "Latte", Amount: "4.50", Date: "2025-03-14", Merchant: "Blue Bottle Coffee", Category: "Dining"},
			want: NormalizedRow{
				Title:        "Latte",
				AmountCents:  450,
				Date:         time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
				Merchant:     "Blue Bottle Coffee",
				CategoryHint: "Dining",
			},
		},
		{
			name: "negative amount passes",
			raw:  RawRow{Line: 3, Title: "Refund", Amount: "-12.00", Date: "2025-03-01", Merchant: "Store"},
			want: NormalizedRow{
				Title:       "Refund",
				AmountCents: -1200,
				Date:        time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
				Merchant:    "Store",
			},
		},
		{
			name: "whitespace trimmed",
			raw:  RawRow{Line: 4, Title: "  Lunch ", Amount: "9.99", Date: "2025/03/02", Merchant: "  Deli  ", CategoryID: " cat-1 "},
			want: NormalizedRow{
				Title:       "Lunch",
				AmountCents: 999,
				Date:        time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
				Merchant:    "Deli",
				CategoryID:  "cat-1",
			},
		},
		{
			name:    "unparseable amount",
			raw:     RawRow{Line: 5, Amount: "abc", Date: "2025-03-14", Merchant: "Store"},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "empty amount",
			raw:     RawRow{Line: 6, Amount: "", Date: "2025-03-14", Merchant: "Store"},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "unparseable date",
			raw:     RawRow{Line: 7, Amount: "1.00", Date: "not-a-date", Merchant: "Store"},
			wantErr: core.ErrInvalidDate,
		},
		{
			name:    "blank merchant",
			raw:     RawRow{Line: 8, Amount: "1.00", Date: "2025-03-14", Merchant: "   "},
			wantErr: core.ErrEmptyMerchant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateRow(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ValidateRow() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateRow() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ValidateRow() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
