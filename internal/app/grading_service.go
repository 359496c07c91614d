package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vulnwatchio/api/internal/metrics"
	"github.com/vulnwatchio/api/pkg/domain/asset"
	"github.com/vulnwatchio/api/pkg/domain/assetgroup"
	"github.com/vulnwatchio/api/pkg/domain/finding"
	"github.com/vulnwatchio/api/pkg/domain/risk"
	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/logger"
)

// RiskCache caches computed risk levels. Implemented by the redis
// adapter; a nil cache disables caching entirely.
type RiskCache interface {
	GetAsset(ctx context.Context, id shared.ID) (risk.Level, bool, error)
	SetAsset(ctx context.Context, id shared.ID, level risk.Level) error
	GetGroup(ctx context.Context, id shared.ID) (risk.Level, bool, error)
	SetGroup(ctx context.Context, id shared.ID, level risk.Level) error
	InvalidateAsset(ctx context.Context, id shared.ID) error
	InvalidateGroup(ctx context.Context, id shared.ID) error
}

// GradingService computes severity-weighted risk grades for assets and
// asset groups. Grades are a pure function of the finding store; the
// persisted level is only a cache of the latest computation.
type GradingService struct {
	assets   asset.Repository
	groups   assetgroup.Repository
	findings finding.Repository
	cache    RiskCache
	logger   *logger.Logger
}

// NewGradingService creates a new grading service.
func NewGradingService(
	assets asset.Repository,
	groups assetgroup.Repository,
	findings finding.Repository,
	cache RiskCache,
	log *logger.Logger,
) *GradingService {
	return &GradingService{
		assets:   assets,
		groups:   groups,
		findings: findings,
		cache:    cache,
		logger:   log,
	}
}

// CalcAssetRiskGrade computes the risk level of an asset from its
// findings. A non-nil historyDays computes the grade as it stood that
// many days ago; historical results are returned without touching the
// persisted cache. Only a nil historyDays persists.
func (s *GradingService) CalcAssetRiskGrade(ctx context.Context, assetID shared.ID, historyDays *int) (risk.Level, error) {
	start := time.Now()

	if _, err := s.assets.GetByID(ctx, assetID); err != nil {
		return risk.Level{}, err
	}

	findings, err := s.findings.ListByAsset(ctx, assetID, cutoffFor(historyDays))
	if err != nil {
		return risk.Level{}, fmt.Errorf("failed to load findings: %w", err)
	}

	level := tally(findings)

	if historyDays == nil {
		if err := s.assets.UpdateRiskLevel(ctx, assetID, level); err != nil {
			return risk.Level{}, fmt.Errorf("failed to persist risk level: %w", err)
		}
		s.cacheAssetLevel(ctx, assetID, level)
		metrics.GradesComputedTotal.WithLabelValues("asset", level.Grade).Inc()
	}

	metrics.GradeComputeDuration.WithLabelValues("asset").Observe(time.Since(start).Seconds())
	s.logger.Debug("asset grade computed",
		"asset_id", assetID,
		"grade", level.Grade,
		"total", level.Total,
		"historical", historyDays != nil,
	)
	return level, nil
}

// CalcGroupRiskGrade computes the risk level of an asset group from the
// union of its members' findings. The same grade table as for single
// assets applies. A group's grade never cascades into member grades.
func (s *GradingService) CalcGroupRiskGrade(ctx context.Context, groupID shared.ID, historyDays *int) (risk.Level, error) {
	start := time.Now()

	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return risk.Level{}, err
	}

	memberIDs, err := s.groups.MemberIDs(ctx, groupID)
	if err != nil {
		return risk.Level{}, fmt.Errorf("failed to load group members: %w", err)
	}

	findings, err := s.findings.ListByAssets(ctx, memberIDs, cutoffFor(historyDays))
	if err != nil {
		return risk.Level{}, fmt.Errorf("failed to load member findings: %w", err)
	}

	level := tally(findings)

	if historyDays == nil {
		if err := s.groups.UpdateRiskLevel(ctx, groupID, level); err != nil {
			return risk.Level{}, fmt.Errorf("failed to persist risk level: %w", err)
		}
		s.cacheGroupLevel(ctx, groupID, level)
		metrics.GradesComputedTotal.WithLabelValues("group", level.Grade).Inc()
	}

	metrics.GradeComputeDuration.WithLabelValues("group").Observe(time.Since(start).Seconds())
	return level, nil
}

// AssetRiskScore returns the numeric risk score for an asset. With
// forceRecalc it regrades first; otherwise it scores the cached level.
func (s *GradingService) AssetRiskScore(ctx context.Context, assetID shared.ID, forceRecalc bool) (int, error) {
	if forceRecalc {
		level, err := s.CalcAssetRiskGrade(ctx, assetID, nil)
		if err != nil {
			return 0, err
		}
		return risk.Score(level), nil
	}

	if s.cache != nil {
		if level, ok, err := s.cache.GetAsset(ctx, assetID); err == nil && ok {
			return risk.Score(level), nil
		}
	}

	a, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return 0, err
	}
	return risk.Score(a.RiskLevel()), nil
}

// GradeTrend computes retroactive grades for the given lookbacks. The
// zero lookback means "now". Nothing is persisted.
func (s *GradingService) GradeTrend(ctx context.Context, assetID shared.ID, days []int) (map[int]risk.Level, error) {
	trend := make(map[int]risk.Level, len(days))
	for _, d := range days {
		lookback := d
		var h *int
		if lookback > 0 {
			h = &lookback
		}
		level, err := s.CalcAssetRiskGrade(ctx, assetID, h)
		if err != nil {
			return nil, err
		}
		trend[d] = level
	}
	return trend, nil
}

// RecalculateAsset regrades an asset and every group it belongs to.
// Used by the background worker after finding changes.
func (s *GradingService) RecalculateAsset(ctx context.Context, assetID shared.ID) error {
	if _, err := s.CalcAssetRiskGrade(ctx, assetID, nil); err != nil {
		if shared.IsNotFound(err) {
			s.logger.Warn("skipping regrade of missing asset", "asset_id", assetID)
			return nil
		}
		return err
	}

	groups, err := s.groups.GroupsOfAsset(ctx, assetID)
	if err != nil {
		return fmt.Errorf("failed to load groups of asset: %w", err)
	}
	for _, g := range groups {
		if _, err := s.CalcGroupRiskGrade(ctx, g.ID(), nil); err != nil {
			return err
		}
	}
	return nil
}

// RecalculateGroup regrades one asset group.
func (s *GradingService) RecalculateGroup(ctx context.Context, groupID shared.ID) error {
	_, err := s.CalcGroupRiskGrade(ctx, groupID, nil)
	if shared.IsNotFound(err) {
		s.logger.Warn("skipping regrade of missing group", "group_id", groupID)
		return nil
	}
	return err
}

// TopRiskAssets returns the highest-scored assets.
func (s *GradingService) TopRiskAssets(ctx context.Context, limit int) ([]*asset.Asset, error) {
	if limit < 1 {
		limit = 10
	}
	return s.assets.ListTopByRiskScore(ctx, limit)
}

func (s *GradingService) cacheAssetLevel(ctx context.Context, id shared.ID, level risk.Level) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetAsset(ctx, id, level); err != nil {
		s.logger.Warn("failed to cache asset risk level", "asset_id", id, "error", err)
	}
}

func (s *GradingService) cacheGroupLevel(ctx context.Context, id shared.ID, level risk.Level) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetGroup(ctx, id, level); err != nil {
		s.logger.Warn("failed to cache group risk level", "group_id", id, "error", err)
	}
}

// tally folds findings into a finalized level.
func tally(findings []*finding.Finding) risk.Level {
	level := risk.DefaultLevel()
	for _, f := range findings {
		level.Add(f.Severity.String())
	}
	level.Finalize()
	return level
}

// cutoffFor converts a lookback in days into an absolute cutoff.
func cutoffFor(historyDays *int) *time.Time {
	if historyDays == nil {
		return nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -*historyDays)
	return &cutoff
}
