package app

import (
	"context"

	"github.com/vulnwatchio/api/pkg/domain/event"
	"github.com/vulnwatchio/api/pkg/pagination"
)

// EventService exposes the internal event log.
type EventService struct {
	repo event.Repository
}

// NewEventService creates a new event service.
func NewEventService(repo event.Repository) *EventService {
	return &EventService{repo: repo}
}

// ListEvents returns a page of events, newest first.
func (s *EventService) ListEvents(ctx context.Context, page pagination.Pagination) (pagination.Result[*event.Event], error) {
	return s.repo.List(ctx, page)
}
