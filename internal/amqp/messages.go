package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// EventType names a committed ledger change.
type EventType string

const (
	AccountCreated     EventType = "account.created"
	AccountDeleted     EventType = "account.deleted"
	TransactionCreated EventType = "transaction.created"
	TransactionUpdated EventType = "transaction.updated"
	TransactionDeleted EventType = "transaction.deleted"
	ImportCommitted    EventType = "import.committed"
	DebtCreated        EventType = "debt.created"
	DebtPaid           EventType = "debt.paid"
	PersonRemoved      EventType = "person.removed"
)

// Event is a lightweight notification published after a store batch commits.
// Consumers re-read whatever state they need; the event only says what moved.
type Event struct {
	Type      EventType `json:"type"`
	Owner     string    `json:"owner"`
	EntityID  string    `json:"entityId"`
	AccountID string    `json:"accountId,omitempty"`
	Category  string    `json:"category,omitempty"`
	Months    []string  `json:"months,omitempty"` // YYYY-MM touched by the change
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEvent(t EventType, owner, entityID string) *Event {
	return &Event{
		Type:      t,
		Owner:     owner,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event and rejects bodies without a type or owner.
func EventFromJSON(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.Type == "" || ev.Owner == "" {
		return nil, errors.New("event without type or owner")
	}
	return &ev, nil
}
