package app

import (
	"context"
	"fmt"

	"github.com/vulnwatchio/api/pkg/domain/alertrule"
	"github.com/vulnwatchio/api/pkg/domain/asset"
	"github.com/vulnwatchio/api/pkg/domain/event"
	"github.com/vulnwatchio/api/pkg/domain/finding"
	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/logger"
	"github.com/vulnwatchio/api/pkg/pagination"
)

// FindingService handles finding business logic. Every change that can
// move a grade queues a regrade of the owning asset; creation also
// queues auto rule evaluation.
type FindingService struct {
	repo   finding.Repository
	assets asset.Repository
	events event.Repository
	jobs   JobEnqueuer
	logger *logger.Logger
}

// NewFindingService creates a new finding service.
func NewFindingService(
	repo finding.Repository,
	assets asset.Repository,
	events event.Repository,
	jobs JobEnqueuer,
	log *logger.Logger,
) *FindingService {
	return &FindingService{
		repo:   repo,
		assets: assets,
		events: events,
		jobs:   jobs,
		logger: log,
	}
}

// CreateFindingInput represents input for creating a finding.
type CreateFindingInput struct {
	AssetID     string `validate:"required,uuid"`
	Title       string `validate:"required,min=1,max=512"`
	Description string `validate:"max=5000"`
	Type        string `validate:"max=64"`
	Hash        string `validate:"max=128"`
	Solution    string `validate:"max=5000"`
	Severity    string `validate:"required,severity"`
	RiskInfo    finding.RiskInfo
	Tags        []string `validate:"max=20,dive,max=50"`
}

// CreateFinding attaches a new finding to an asset.
func (s *FindingService) CreateFinding(ctx context.Context, input CreateFindingInput) (*finding.Finding, error) {
	assetID, err := shared.IDFromString(input.AssetID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid asset ID", shared.ErrValidation)
	}
	if _, err := s.assets.GetByID(ctx, assetID); err != nil {
		return nil, err
	}

	f, err := finding.New(assetID, input.Title, finding.Severity(input.Severity))
	if err != nil {
		return nil, err
	}
	f.Description = input.Description
	f.Type = input.Type
	f.Hash = input.Hash
	f.Solution = input.Solution
	f.RiskInfo = input.RiskInfo
	if len(input.Tags) > 0 {
		f.Tags = input.Tags
	}

	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, fmt.Sprintf("finding %q created (%s)", f.Title, f.Severity), event.TypeCreate)
	s.triggerRegrade(ctx, assetID)
	s.triggerRuleEvaluation(ctx, f.ID)

	s.logger.Info("finding created",
		"finding_id", f.ID, "asset_id", assetID, "severity", f.Severity)
	return f, nil
}

// GetFinding returns a finding by ID.
func (s *FindingService) GetFinding(ctx context.Context, id shared.ID) (*finding.Finding, error) {
	return s.repo.GetByID(ctx, id)
}

// ListFindings returns a page of findings for an asset.
func (s *FindingService) ListFindings(ctx context.Context, assetID shared.ID, page pagination.Pagination) (pagination.Result[*finding.Finding], error) {
	return s.repo.List(ctx, assetID, page)
}

// AcknowledgeFinding transitions a finding to ack.
func (s *FindingService) AcknowledgeFinding(ctx context.Context, id shared.ID) (*finding.Finding, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := f.Acknowledge(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}
	s.recordEvent(ctx, fmt.Sprintf("finding %q acknowledged", f.Title), event.TypeUpdate)
	return f, nil
}

// ReopenFinding transitions a finding back to new.
func (s *FindingService) ReopenFinding(ctx context.Context, id shared.ID) (*finding.Finding, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	f.Reopen()
	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}
	s.recordEvent(ctx, fmt.Sprintf("finding %q reopened", f.Title), event.TypeUpdate)
	return f, nil
}

// UpdateComments edits the finding comments.
func (s *FindingService) UpdateComments(ctx context.Context, id shared.ID, comments string) (*finding.Finding, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	f.UpdateComments(comments)
	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// DeleteFinding removes a finding and queues a regrade of its asset.
// A finding whose asset is already gone still deletes cleanly; the
// regrade of a missing asset is skipped by the worker.
func (s *FindingService) DeleteFinding(ctx context.Context, id shared.ID) error {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.recordEvent(ctx, fmt.Sprintf("finding %q deleted", f.Title), event.TypeDelete)
	s.triggerRegrade(ctx, f.AssetID)
	return nil
}

func (s *FindingService) triggerRegrade(ctx context.Context, assetID shared.ID) {
	if s.jobs == nil {
		return
	}
	if err := s.jobs.EnqueueAssetRegrade(ctx, assetID); err != nil {
		s.logger.Error("failed to enqueue asset regrade", "asset_id", assetID, "error", err)
	}
}

func (s *FindingService) triggerRuleEvaluation(ctx context.Context, findingID shared.ID) {
	if s.jobs == nil {
		return
	}
	if err := s.jobs.EnqueueRuleEvaluation(ctx, string(alertrule.ScopeFinding), findingID); err != nil {
		s.logger.Error("failed to enqueue rule evaluation", "finding_id", findingID, "error", err)
	}
}

func (s *FindingService) recordEvent(ctx context.Context, message string, t event.Type) {
	if err := s.events.Create(ctx, event.New(message, t, event.SeverityInfo)); err != nil {
		s.logger.Error("failed to record event", "error", err)
	}
}
