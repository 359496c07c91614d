package app

import (
	"context"
	"fmt"

	"github.com/vulnwatchio/api/pkg/domain/asset"
	"github.com/vulnwatchio/api/pkg/domain/assetgroup"
	"github.com/vulnwatchio/api/pkg/domain/event"
	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/logger"
	"github.com/vulnwatchio/api/pkg/pagination"
)

// AssetGroupService handles asset group business logic. Membership
// changes queue a group regrade; a group grade is always derived from
// the current member set.
type AssetGroupService struct {
	repo   assetgroup.Repository
	assets asset.Repository
	events event.Repository
	jobs   JobEnqueuer
	logger *logger.Logger
}

// NewAssetGroupService creates a new asset group service.
func NewAssetGroupService(
	repo assetgroup.Repository,
	assets asset.Repository,
	events event.Repository,
	jobs JobEnqueuer,
	log *logger.Logger,
) *AssetGroupService {
	return &AssetGroupService{
		repo:   repo,
		assets: assets,
		events: events,
		jobs:   jobs,
		logger: log,
	}
}

// CreateAssetGroupInput represents input for creating an asset group.
type CreateAssetGroupInput struct {
	Name        string   `validate:"required,min=1,max=255"`
	Criticity   string   `validate:"required,criticity"`
	Description string   `validate:"max=1000"`
	AssetIDs    []string `validate:"dive,uuid"`
}

// UpdateAssetGroupInput represents input for updating an asset group.
type UpdateAssetGroupInput struct {
	Name        *string `validate:"omitempty,min=1,max=255"`
	Criticity   *string `validate:"omitempty,criticity"`
	Description *string `validate:"omitempty,max=1000"`
}

// CreateAssetGroup creates a new asset group.
func (s *AssetGroupService) CreateAssetGroup(ctx context.Context, input CreateAssetGroupInput) (*assetgroup.AssetGroup, error) {
	exists, err := s.repo.ExistsByName(ctx, input.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: asset group %q", shared.ErrAlreadyExists, input.Name)
	}

	g, err := assetgroup.New(input.Name, asset.Criticity(input.Criticity))
	if err != nil {
		return nil, err
	}
	if input.Description != "" {
		g.UpdateDescription(input.Description)
	}

	for _, raw := range input.AssetIDs {
		id, err := shared.IDFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid asset ID %q", shared.ErrValidation, raw)
		}
		if _, err := s.assets.GetByID(ctx, id); err != nil {
			return nil, err
		}
		g.AddAsset(id)
	}

	if err := s.repo.Create(ctx, g); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, fmt.Sprintf("asset group %q created", g.Name()), event.TypeCreate)
	s.enqueueRegrade(ctx, g.ID())
	return g, nil
}

// GetAssetGroup returns a group by ID.
func (s *AssetGroupService) GetAssetGroup(ctx context.Context, id shared.ID) (*assetgroup.AssetGroup, error) {
	return s.repo.GetByID(ctx, id)
}

// ListAssetGroups returns a page of groups.
func (s *AssetGroupService) ListAssetGroups(ctx context.Context, page pagination.Pagination) (pagination.Result[*assetgroup.AssetGroup], error) {
	return s.repo.List(ctx, page)
}

// UpdateAssetGroup applies partial updates to a group.
func (s *AssetGroupService) UpdateAssetGroup(ctx context.Context, id shared.ID, input UpdateAssetGroupInput) (*assetgroup.AssetGroup, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if err := g.UpdateName(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.Criticity != nil {
		if err := g.UpdateCriticity(asset.Criticity(*input.Criticity)); err != nil {
			return nil, err
		}
	}
	if input.Description != nil {
		g.UpdateDescription(*input.Description)
	}

	if err := s.repo.Update(ctx, g); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, fmt.Sprintf("asset group %q updated", g.Name()), event.TypeUpdate)
	return g, nil
}

// DeleteAssetGroup removes a group. Member assets are untouched.
func (s *AssetGroupService) DeleteAssetGroup(ctx context.Context, id shared.ID) error {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordEvent(ctx, fmt.Sprintf("asset group %q deleted", g.Name()), event.TypeDelete)
	return nil
}

// AddAssets adds member assets and queues a regrade.
func (s *AssetGroupService) AddAssets(ctx context.Context, groupID shared.ID, assetIDs []shared.ID) error {
	if _, err := s.repo.GetByID(ctx, groupID); err != nil {
		return err
	}
	for _, id := range assetIDs {
		if _, err := s.assets.GetByID(ctx, id); err != nil {
			return err
		}
	}
	if err := s.repo.AddAssets(ctx, groupID, assetIDs); err != nil {
		return err
	}
	s.enqueueRegrade(ctx, groupID)
	return nil
}

// RemoveAssets removes member assets and queues a regrade.
func (s *AssetGroupService) RemoveAssets(ctx context.Context, groupID shared.ID, assetIDs []shared.ID) error {
	if _, err := s.repo.GetByID(ctx, groupID); err != nil {
		return err
	}
	if err := s.repo.RemoveAssets(ctx, groupID, assetIDs); err != nil {
		return err
	}
	s.enqueueRegrade(ctx, groupID)
	return nil
}

func (s *AssetGroupService) enqueueRegrade(ctx context.Context, groupID shared.ID) {
	if s.jobs == nil {
		return
	}
	if err := s.jobs.EnqueueGroupRegrade(ctx, groupID); err != nil {
		s.logger.Error("failed to enqueue group regrade", "group_id", groupID, "error", err)
	}
}

func (s *AssetGroupService) recordEvent(ctx context.Context, message string, t event.Type) {
	if err := s.events.Create(ctx, event.New(message, t, event.SeverityInfo)); err != nil {
		s.logger.Error("failed to record event", "error", err)
	}
}
