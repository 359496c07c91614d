package app

import (
	"context"
	"fmt"

	"github.com/vulnwatchio/api/pkg/domain/alertrule"
	"github.com/vulnwatchio/api/pkg/domain/asset"
	"github.com/vulnwatchio/api/pkg/domain/event"
	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/logger"
	"github.com/vulnwatchio/api/pkg/pagination"
)

// JobEnqueuer schedules background work. Implemented by the asynq job
// client; a nil enqueuer makes the triggers no-ops (tests, CLI).
type JobEnqueuer interface {
	EnqueueAssetRegrade(ctx context.Context, assetID shared.ID) error
	EnqueueGroupRegrade(ctx context.Context, groupID shared.ID) error
	EnqueueRuleEvaluation(ctx context.Context, scope string, entityID shared.ID) error
}

// AssetService handles asset business logic.
type AssetService struct {
	repo   asset.Repository
	events event.Repository
	jobs   JobEnqueuer
	logger *logger.Logger
}

// NewAssetService creates a new asset service.
func NewAssetService(repo asset.Repository, events event.Repository, jobs JobEnqueuer, log *logger.Logger) *AssetService {
	return &AssetService{
		repo:   repo,
		events: events,
		jobs:   jobs,
		logger: log,
	}
}

// CreateAssetInput represents input for creating an asset.
type CreateAssetInput struct {
	Value       string `validate:"required,min=1,max=512"`
	Name        string `validate:"max=255"`
	Type        string `validate:"required,asset_type"`
	Criticity   string `validate:"required,criticity"`
	Description string `validate:"max=1000"`
	OwnerID     string `validate:"omitempty,uuid"`
}

// UpdateAssetInput represents input for updating an asset.
type UpdateAssetInput struct {
	Name        *string `validate:"omitempty,min=1,max=255"`
	Criticity   *string `validate:"omitempty,criticity"`
	Description *string `validate:"omitempty,max=1000"`
}

// CreateAsset creates a new asset. The value is its unique identity.
func (s *AssetService) CreateAsset(ctx context.Context, input CreateAssetInput) (*asset.Asset, error) {
	exists, err := s.repo.ExistsByValue(ctx, input.Value)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: asset %q", shared.ErrAlreadyExists, input.Value)
	}

	a, err := asset.New(input.Value, input.Name, asset.Type(input.Type), asset.Criticity(input.Criticity))
	if err != nil {
		return nil, err
	}
	if input.Description != "" {
		a.UpdateDescription(input.Description)
	}
	if input.OwnerID != "" {
		ownerID, err := shared.IDFromString(input.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid owner ID", shared.ErrValidation)
		}
		a.SetOwnerID(&ownerID)
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, fmt.Sprintf("asset %q created", a.Value()), event.TypeCreate)
	s.enqueueRuleEvaluation(ctx, a.ID())

	s.logger.Info("asset created", "asset_id", a.ID(), "value", a.Value())
	return a, nil
}

// GetAsset returns an asset by ID.
func (s *AssetService) GetAsset(ctx context.Context, id shared.ID) (*asset.Asset, error) {
	return s.repo.GetByID(ctx, id)
}

// GetAssetByValue returns an asset by its identity value.
func (s *AssetService) GetAssetByValue(ctx context.Context, value string) (*asset.Asset, error) {
	return s.repo.GetByValue(ctx, value)
}

// ListAssets returns a page of assets.
func (s *AssetService) ListAssets(ctx context.Context, filter asset.Filter, page pagination.Pagination) (pagination.Result[*asset.Asset], error) {
	return s.repo.List(ctx, filter, page)
}

// UpdateAsset applies partial updates to an asset.
func (s *AssetService) UpdateAsset(ctx context.Context, id shared.ID, input UpdateAssetInput) (*asset.Asset, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if err := a.UpdateName(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.Criticity != nil {
		if err := a.UpdateCriticity(asset.Criticity(*input.Criticity)); err != nil {
			return nil, err
		}
	}
	if input.Description != nil {
		a.UpdateDescription(*input.Description)
	}

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, fmt.Sprintf("asset %q updated", a.Value()), event.TypeUpdate)
	s.enqueueRuleEvaluation(ctx, a.ID())
	return a, nil
}

// DeleteAsset removes an asset. Its findings go with it; group grades
// of former groups refresh on their next recalculation.
func (s *AssetService) DeleteAsset(ctx context.Context, id shared.ID) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordEvent(ctx, fmt.Sprintf("asset %q deleted", a.Value()), event.TypeDelete)
	return nil
}

func (s *AssetService) enqueueRuleEvaluation(ctx context.Context, id shared.ID) {
	if s.jobs == nil {
		return
	}
	if err := s.jobs.EnqueueRuleEvaluation(ctx, string(alertrule.ScopeAsset), id); err != nil {
		s.logger.Error("failed to enqueue rule evaluation", "asset_id", id, "error", err)
	}
}

func (s *AssetService) recordEvent(ctx context.Context, message string, t event.Type) {
	if err := s.events.Create(ctx, event.New(message, t, event.SeverityInfo)); err != nil {
		s.logger.Error("failed to record event", "error", err)
	}
}
