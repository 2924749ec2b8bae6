package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType is the kind of change a TransactionEvent reports
type EventType string

const (
	EventCreated EventType = "created"
	EventDeleted EventType = "deleted"
)

// TransactionEvent announces that transactions were created or deleted.
// It carries ids only; consumers read the rows from the database.
type TransactionEvent struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"userId"`
	IDs       []string  `json:"ids"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(t EventType, userID string, ids []string) *TransactionEvent {
	return &TransactionEvent{
		Type:      t,
		UserID:    userID,
		IDs:       ids,
		Timestamp: time.Now().UTC(),
	}
}

func (m *TransactionEvent) Validate() error {
	switch m.Type {
	case EventCreated, EventDeleted:
	default:
		return fmt.Errorf("unknown event type %q", m.Type)
	}
	if m.UserID == "" {
		return errors.New("event without user id")
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes and validates a message body
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
