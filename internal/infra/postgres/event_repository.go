package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vulnwatchio/api/pkg/domain/event"
	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/pagination"
)

// EventRepository implements event.Repository using PostgreSQL. The
// event log is append-only.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create appends an event to the log.
func (r *EventRepository) Create(ctx context.Context, e *event.Event) error {
	query := `
		INSERT INTO events (id, message, description, event_type, severity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID.String(),
		e.Message,
		e.Description,
		string(e.Type),
		string(e.Severity),
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// List returns a page of events, newest first.
func (r *EventRepository) List(ctx context.Context, page pagination.Pagination) (pagination.Result[*event.Event], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&total); err != nil {
		return pagination.Result[*event.Event]{}, fmt.Errorf("failed to count events: %w", err)
	}

	query := `
		SELECT e.id, e.message, e.description, e.event_type, e.severity, e.created_at
		FROM events e
		ORDER BY e.created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, page.Limit(), page.Offset())
	if err != nil {
		return pagination.Result[*event.Event]{}, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := make([]*event.Event, 0)
	for rows.Next() {
		var (
			idStr     string
			e         event.Event
			createdAt time.Time
		)
		if err := rows.Scan(&idStr, &e.Message, &e.Description, &e.Type, &e.Severity, &createdAt); err != nil {
			return pagination.Result[*event.Event]{}, fmt.Errorf("failed to scan event: %w", err)
		}
		id, err := shared.IDFromString(idStr)
		if err != nil {
			return pagination.Result[*event.Event]{}, fmt.Errorf("failed to parse event id: %w", err)
		}
		e.ID = id
		e.CreatedAt = createdAt
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return pagination.Result[*event.Event]{}, fmt.Errorf("failed to iterate events: %w", err)
	}
	return pagination.NewResult(events, total, page), nil
}
