package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"expensemanager/internal/core"
)

// EventKind names the ledger mutation an event describes.
type EventKind string

const (
	EventExpenseCreated EventKind = "expense.created"
	EventExpenseDeleted EventKind = "expense.deleted"
)

// LedgerEvent is published after every successful mutation. It carries the
// full snapshot so consumers can mirror the ledger without reading storage.
// Revisions restart with each process; Session tells the runs apart.
type LedgerEvent struct {
	ID        uuid.UUID      `json:"id"`
	Session   uuid.UUID      `json:"session"`
	Kind      EventKind      `json:"kind"`
	Revision  uint64         `json:"revision"`
	Index     int            `json:"index"`
	Expense   core.Expense   `json:"expense"`
	Snapshot  []core.Expense `json:"snapshot"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewLedgerEvent creates an event with a fresh ID and the current time
func NewLedgerEvent(session uuid.UUID, kind EventKind, revision uint64, index int, expense core.Expense, snapshot []core.Expense) *LedgerEvent {
	if snapshot == nil {
		snapshot = []core.Expense{}
	}
	return &LedgerEvent{
		ID:        uuid.New(),
		Session:   session,
		Kind:      kind,
		Revision:  revision,
		Index:     index,
		Expense:   expense,
		Snapshot:  snapshot,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event and rejects unknown kinds
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var evt LedgerEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	switch evt.Kind {
	case EventExpenseCreated, EventExpenseDeleted:
	default:
		return nil, fmt.Errorf("unknown event kind %q", evt.Kind)
	}
	if evt.Snapshot == nil {
		evt.Snapshot = []core.Expense{}
	}
	return &evt, nil
}
