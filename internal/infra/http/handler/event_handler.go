package handler

import (
	"net/http"
	"time"

	"github.com/vulnwatchio/api/internal/app"
	"github.com/vulnwatchio/api/pkg/apierror"
	"github.com/vulnwatchio/api/pkg/domain/event"
)

// EventHandler exposes the internal event log.
type EventHandler struct {
	events *app.EventService
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(events *app.EventService) *EventHandler {
	return &EventHandler{events: events}
}

// EventResponse is the wire representation of an event log entry.
type EventResponse struct {
	ID          string    `json:"id"`
	Message     string    `json:"message"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type"`
	Severity    string    `json:"severity"`
	CreatedAt   time.Time `json:"created_at"`
}

func toEventResponse(e *event.Event) EventResponse {
	return EventResponse{
		ID:          e.ID.String(),
		Message:     e.Message,
		Description: e.Description,
		Type:        string(e.Type),
		Severity:    string(e.Severity),
		CreatedAt:   e.CreatedAt,
	}
}

// List handles GET /events. Entries come back newest first.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.events.ListEvents(r.Context(), parsePagination(r))
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newListResponse(result, toEventResponse))
}
