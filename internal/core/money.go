// Package core holds the domain model shared by the import pipeline, the
// aggregation engine, and the storage backends.
//
// Money is integer cents. Decimal arithmetic only happens at the edges:
// parsing user input and formatting derived statistics.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmountToCents converts a decimal amount string to cents.
//
// Both "4.50" and "4,50" are accepted. Negative amounts parse unchanged: the
// import validator deliberately performs no sign check. Anything that is not
// a finite decimal number is ErrInvalidAmount.
func ParseAmountToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Accept a decimal comma as long as there is no thousands separator.
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as a plain JSON number in currency units,
// matching what the browser client expects.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().StringFixed(2)), nil
}

// UnmarshalJSON accepts both a JSON number and a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	cents, err := ParseAmountToCents(s)
	if err != nil {
		return err
	}
	m.Cents = cents
	return nil
}
