package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds carried on the rollup queue.
const (
	KindExpenseChanged  = "expense.changed"
	KindImportCompleted = "import.completed"
)

// EventMessage is the wire format for expense change events. Messages are
// intentionally small: the worker refetches whatever it needs from the
// database, so a stale message can never overwrite fresher data.
type EventMessage struct {
	Kind      string    `json:"kind"`
	UserID    int64     `json:"userId"`
	Year      int       `json:"year,omitempty"`
	Month     int       `json:"month,omitempty"`
	ImportID  string    `json:"importId,omitempty"`
	Imported  int       `json:"imported,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseChangedMessage marks one user's calendar month as dirty.
func NewExpenseChangedMessage(userID int64, year, month int) *EventMessage {
	return &EventMessage{
		Kind:      KindExpenseChanged,
		UserID:    userID,
		Year:      year,
		Month:     month,
		Timestamp: time.Now(),
	}
}

// NewImportCompletedMessage announces a finished CSV import.
func NewImportCompletedMessage(userID int64, importID string, imported int) *EventMessage {
	return &EventMessage{
		Kind:      KindImportCompleted,
		UserID:    userID,
		ImportID:  importID,
		Imported:  imported,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventMessageFromJSON creates a message from JSON bytes
func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
