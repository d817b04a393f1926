package history

import (
	"context"
	"time"
)

// EventType is the kind of ride lifecycle event.
type EventType string

const (
	EventCreated    EventType = "created"
	EventAssigned   EventType = "assigned"
	EventInProgress EventType = "in_progress"
	EventNoDriver   EventType = "no_driver"
	EventCanceled   EventType = "canceled"
	EventFinished   EventType = "finished"
	EventExpired    EventType = "expired"
)

// Record is the audit row written for one lifecycle event. This is audit
// history only; monitors never read it back, and nothing is reconciled from
// it after a restart.
type Record struct {
	RequestID string `json:"request_id"`
	Recipient string `json:"recipient"`
	Driver    string `json:"driver,omitempty"`
	RawStatus string `json:"raw_status,omitempty"`
	Origin    string `json:"origin,omitempty"`
	Dest      string `json:"dest,omitempty"`
}

// Event represents a lifecycle event to be exported to external systems.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Record     Record    `json:"record"`
}

// Sink is a destination for history events (analytics/audit systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
