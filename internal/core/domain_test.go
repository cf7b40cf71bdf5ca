package core

import (
	"testing"
	"time"
)

func TestExpenseValidate(t *testing.T) {
	valid := Expense{
		UserID:   1,
		Merchant: "Starbucks",
		Amount:   Money{Cents: 450},
		Date:     NewDate(2024, 1, 5),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid expense rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Expense)
		want   error
	}{
		{
			name:   "empty merchant",
			mutate: func(e *Expense) { e.Merchant = "" },
			want:   ErrEmptyMerchant,
		},
		{
			name:   "whitespace merchant",
			mutate: func(e *Expense) { e.Merchant = "   " },
			want:   ErrEmptyMerchant,
		},
		{
			name:   "zero date",
			mutate: func(e *Expense) { e.Date = time.Time{} },
			want:   ErrInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			if err := e.Validate(); err != tt.want {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseCalendarDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "iso date", input: "2024-01-05", want: NewDate(2024, 1, 5)},
		{name: "rfc3339", input: "2024-01-05T14:30:00Z", want: NewDate(2024, 1, 5)},
		{name: "slash date", input: "2024/01/05", want: NewDate(2024, 1, 5)},
		{name: "us date", input: "01/05/2024", want: NewDate(2024, 1, 5)},
		{name: "padded", input: "  2024-01-05  ", want: NewDate(2024, 1, 5)},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "last tuesday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCalendarDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCalendarDate(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCalendarDate(%q) unexpected error: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseCalendarDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestMonthWindow(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	from, to := MonthWindow(now)

	if !from.Equal(NewDate(2024, 3, 1)) {
		t.Errorf("window start = %v, want 2024-03-01", from)
	}
	if !to.Equal(now) {
		t.Errorf("window end = %v, want %v", to, now)
	}
}

func TestStarterCategoriesIncludeUncategorized(t *testing.T) {
	found := false
	for _, name := range StarterCategories() {
		if name == UncategorizedName {
			found = true
		}
	}
	if !found {
		t.Fatalf("starter set %v is missing %q", StarterCategories(), UncategorizedName)
	}
}
