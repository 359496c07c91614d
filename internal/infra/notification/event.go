package notification

import (
	"context"
	"fmt"

	"github.com/vulnwatchio/api/pkg/domain/event"
)

// EventClient implements the Client interface by appending alerts to
// the internal event log. It is the only channel with no external
// dependency, so it is always available.
type EventClient struct {
	events event.Repository
}

// NewEventClient creates a new event log client.
func NewEventClient(events event.Repository) *EventClient {
	return &EventClient{events: events}
}

// Provider returns the provider name.
func (c *EventClient) Provider() string {
	return string(ProviderEvent)
}

// Send appends the alert to the event log.
func (c *EventClient) Send(ctx context.Context, msg Message) (*SendResult, error) {
	e := event.New(msg.Title, event.TypeAlert, eventSeverity(msg.Severity))
	e.Description = c.describe(msg)

	if err := c.events.Create(ctx, e); err != nil {
		return &SendResult{
			Success: false,
			Error:   fmt.Sprintf("append event: %v", err),
		}, nil
	}
	return &SendResult{Success: true, MessageID: e.ID.String()}, nil
}

// TestConnection always succeeds; the event log is local.
func (c *EventClient) TestConnection(ctx context.Context) (*SendResult, error) {
	return &SendResult{Success: true}, nil
}

func (c *EventClient) describe(msg Message) string {
	if msg.Asset == nil {
		return msg.Body
	}
	return fmt.Sprintf("%s [asset %s (%s)]", msg.Body, msg.Asset.Value, msg.Asset.Type)
}

func eventSeverity(severity string) event.Severity {
	switch severity {
	case "High":
		return event.SeverityError
	case "Medium":
		return event.SeverityWarning
	default:
		return event.SeverityInfo
	}
}
