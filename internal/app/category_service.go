package app

import (
	"context"
	"fmt"

	"github.com/vulnwatchio/api/pkg/domain/asset"
	"github.com/vulnwatchio/api/pkg/domain/category"
	"github.com/vulnwatchio/api/pkg/domain/event"
	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/logger"
)

// CategoryService manages the hierarchical tag tree and tag assignment.
// Tree queries run against an index built from one table load.
type CategoryService struct {
	repo   category.Repository
	assets asset.Repository
	events event.Repository
	logger *logger.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(
	repo category.Repository,
	assets asset.Repository,
	events event.Repository,
	log *logger.Logger,
) *CategoryService {
	return &CategoryService{
		repo:   repo,
		assets: assets,
		events: events,
		logger: log,
	}
}

// CreateCategoryInput represents input for creating a category.
type CreateCategoryInput struct {
	ParentID string `validate:"omitempty,uuid"`
	Value    string `validate:"required,min=1,max=255"`
	Comments string `validate:"max=1000"`
}

// CreateCategory creates a category, optionally under a parent.
func (s *CategoryService) CreateCategory(ctx context.Context, input CreateCategoryInput) (*category.Category, error) {
	var parentID *shared.ID
	if input.ParentID != "" {
		id, err := shared.IDFromString(input.ParentID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid parent ID", shared.ErrValidation)
		}
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			return nil, err
		}
		parentID = &id
	}

	c, err := category.New(parentID, input.Value, input.Comments)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, fmt.Sprintf("category %q created", c.Value), event.TypeCreate)
	return c, nil
}

// GetCategory returns a category by ID.
func (s *CategoryService) GetCategory(ctx context.Context, id shared.ID) (*category.Category, error) {
	return s.repo.GetByID(ctx, id)
}

// Tree loads the full category table and returns its index.
func (s *CategoryService) Tree(ctx context.Context) (*category.Tree, error) {
	categories, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return category.NewTree(categories), nil
}

// ListCategories returns every category.
func (s *CategoryService) ListCategories(ctx context.Context) ([]*category.Category, error) {
	return s.repo.ListAll(ctx)
}

// DeleteCategory removes a category and its whole subtree. Deleted tags
// are stripped from assets and groups in the same transaction.
func (s *CategoryService) DeleteCategory(ctx context.Context, id shared.ID) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	tree, err := s.Tree(ctx)
	if err != nil {
		return err
	}

	subtree := tree.Subtree(id)
	if err := s.repo.DeleteSubtree(ctx, subtree); err != nil {
		return err
	}

	s.recordEvent(ctx,
		fmt.Sprintf("category %q deleted (%d nodes)", c.Value, len(subtree)),
		event.TypeDelete)
	return nil
}

// AssignToAsset tags an asset with a category. Any ancestor or
// descendant of the new tag already assigned is removed, so at most one
// tag per root-to-leaf path stays active.
func (s *CategoryService) AssignToAsset(ctx context.Context, assetID, categoryID shared.ID) (*asset.Asset, error) {
	a, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}

	tree, err := s.Tree(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := tree.Get(categoryID); !ok {
		return nil, fmt.Errorf("%w: category", shared.ErrNotFound)
	}

	a.SetCategoryIDs(tree.ResolveAssignment(a.CategoryIDs(), categoryID))
	if err := s.assets.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// UnassignFromAsset removes a tag from an asset. Removing a tag never
// restores previously stripped ancestors.
func (s *CategoryService) UnassignFromAsset(ctx context.Context, assetID, categoryID shared.ID) (*asset.Asset, error) {
	a, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if !a.HasCategory(categoryID) {
		return a, nil
	}

	kept := make([]shared.ID, 0)
	for _, id := range a.CategoryIDs() {
		if !id.Equals(categoryID) {
			kept = append(kept, id)
		}
	}
	a.SetCategoryIDs(kept)
	if err := s.assets.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *CategoryService) recordEvent(ctx context.Context, message string, t event.Type) {
	if err := s.events.Create(ctx, event.New(message, t, event.SeverityInfo)); err != nil {
		s.logger.Error("failed to record event", "error", err)
	}
}
