package core

import "testing"

func TestParseAmountToCents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "simple decimal", input: "4.50", want: 450},
		{name: "decimal comma", input: "4,50", want: 450},
		{name: "integer", input: "12", want: 1200},
		{name: "leading whitespace", input: "  7.25", want: 725},
		{name: "negative accepted as-is", input: "-3.20", want: -320},
		{name: "zero", input: "0", want: 0},
		{name: "three decimals rounds", input: "1.005", want: 101},
		{name: "empty", input: "", wantErr: true},
		{name: "not a number", input: "not-a-number", wantErr: true},
		{name: "double separator", input: "1.2.3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmountToCents(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAmountToCents(%q) expected error, got %d", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmountToCents(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseAmountToCents(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{450, "4.50"},
		{0, "0.00"},
		{-320, "-3.20"},
		{100000, "1000.00"},
	}

	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).String(); got != tt.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	m := Money{Cents: 1234}
	data, err := m.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(data) != "12.34" {
		t.Errorf("MarshalJSON = %s, want 12.34", data)
	}

	var back Money
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if back.Cents != m.Cents {
		t.Errorf("round trip = %d cents, want %d", back.Cents, m.Cents)
	}
}
