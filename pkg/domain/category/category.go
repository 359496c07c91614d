// Package category provides hierarchical asset category tags. Tags form
// a tree; along any root-to-leaf path at most one tag may be assigned
// to a given entity at a time.
package category

import (
	"fmt"
	"time"

	"github.com/vulnwatchio/api/pkg/domain/shared"
)

// Category is a node in the tag tree. A nil ParentID marks a root.
type Category struct {
	ID        shared.ID
	ParentID  *shared.ID
	Value     string
	Comments  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a new Category under the given parent (nil for a root).
func New(parentID *shared.ID, value, comments string) (*Category, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: value is required", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Category{
		ID:        shared.NewID(),
		ParentID:  parentID,
		Value:     value,
		Comments:  comments,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsRoot reports whether the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}
