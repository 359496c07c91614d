package alertrule

import (
	"context"

	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/pagination"
)

// Filter holds query filters for listing rules.
type Filter struct {
	Scope   *Scope
	Trigger *Trigger
	Enabled *bool
}

// Repository defines persistence operations for alert rules.
type Repository interface {
	Create(ctx context.Context, r *Rule) error
	GetByID(ctx context.Context, id shared.ID) (*Rule, error)
	Update(ctx context.Context, r *Rule) error
	Delete(ctx context.Context, id shared.ID) error
	List(ctx context.Context, filter Filter, page pagination.Pagination) (pagination.Result[*Rule], error)

	// ListEnabled returns every armed rule for a scope and trigger.
	ListEnabled(ctx context.Context, scope Scope, trigger Trigger) ([]*Rule, error)

	// IncrementMatches adds one to the rule's match counter atomically
	// in the store. Concurrent triggers must never lose an update, so
	// implementations use a storage-level increment, not
	// read-modify-write.
	IncrementMatches(ctx context.Context, id shared.ID) error

	// IncrementFailures adds one to the delivery failure counter, with
	// the same atomicity contract as IncrementMatches.
	IncrementFailures(ctx context.Context, id shared.ID) error

	// ResetMatches zeroes both counters (manual operator action).
	ResetMatches(ctx context.Context, id shared.ID) error
}
