// Package event provides the durable internal event log. Services
// record entity lifecycle changes and alert dispatches here; the
// "event" notification target appends to the same log.
package event

import (
	"context"
	"time"

	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/pagination"
)

// Type classifies what an event records.
type Type string

// Event types.
const (
	TypeCreate Type = "CREATE"
	TypeUpdate Type = "UPDATE"
	TypeDelete Type = "DELETE"
	TypeAlert  Type = "ALERT"
	TypeError  Type = "ERROR"
)

// Severity of an event entry.
type Severity string

// Event severities.
const (
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// Event is one entry in the internal event log.
type Event struct {
	ID          shared.ID
	Message     string
	Description string
	Type        Type
	Severity    Severity
	CreatedAt   time.Time
}

// New creates a new event entry.
func New(message string, eventType Type, severity Severity) *Event {
	return &Event{
		ID:        shared.NewID(),
		Message:   message,
		Type:      eventType,
		Severity:  severity,
		CreatedAt: time.Now().UTC(),
	}
}

// Repository defines persistence operations for events.
type Repository interface {
	Create(ctx context.Context, e *Event) error
	List(ctx context.Context, page pagination.Pagination) (pagination.Result[*Event], error)
}
