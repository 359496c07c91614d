package category

import (
	"context"

	"github.com/vulnwatchio/api/pkg/domain/shared"
)

// Repository defines persistence operations for categories.
type Repository interface {
	Create(ctx context.Context, c *Category) error
	GetByID(ctx context.Context, id shared.ID) (*Category, error)
	Update(ctx context.Context, c *Category) error
	ListAll(ctx context.Context) ([]*Category, error)

	// DeleteSubtree removes the given categories in one statement;
	// callers pass the full subtree computed from the Tree index.
	DeleteSubtree(ctx context.Context, ids []shared.ID) error
}
