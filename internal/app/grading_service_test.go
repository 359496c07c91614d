package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnwatchio/api/pkg/domain/asset"
	"github.com/vulnwatchio/api/pkg/domain/assetgroup"
	"github.com/vulnwatchio/api/pkg/domain/finding"
	"github.com/vulnwatchio/api/pkg/domain/risk"
	"github.com/vulnwatchio/api/pkg/domain/shared"
)

type gradingFixture struct {
	svc      *GradingService
	assets   *memAssetRepo
	groups   *memGroupRepo
	findings *memFindingRepo
	cache    *fakeCache
}

func newGradingFixture(assets *memAssetRepo, groups *memGroupRepo, findings *memFindingRepo) *gradingFixture {
	cache := newFakeCache()
	return &gradingFixture{
		svc:      NewGradingService(assets, groups, findings, cache, testLogger()),
		assets:   assets,
		groups:   groups,
		findings: findings,
		cache:    cache,
	}
}

func seedFindings(t *testing.T, repo *memFindingRepo, assetID shared.ID, severities ...finding.Severity) {
	t.Helper()
	for i, sev := range severities {
		f := mustFinding(t, assetID, fmt.Sprintf("finding-%d", i), sev)
		require.NoError(t, repo.Create(context.Background(), f))
	}
}

func repeatSeverity(sev finding.Severity, n int) []finding.Severity {
	out := make([]finding.Severity, n)
	for i := range out {
		out[i] = sev
	}
	return out
}

func TestGradingService_CalcAssetRiskGrade(t *testing.T) {
	ctx := context.Background()

	t.Run("grade table", func(t *testing.T) {
		tests := []struct {
			name       string
			severities []finding.Severity
			wantGrade  string
		}{
			{"no findings", nil, risk.GradeNone},
			{"info only", []finding.Severity{finding.SeverityInfo}, risk.GradeA},
			{"one medium five low", append([]finding.Severity{finding.SeverityMedium}, repeatSeverity(finding.SeverityLow, 5)...), risk.GradeB},
			{"six low", repeatSeverity(finding.SeverityLow, 6), risk.GradeC},
			{"five medium", repeatSeverity(finding.SeverityMedium, 5), risk.GradeC},
			{"one high", []finding.Severity{finding.SeverityHigh}, risk.GradeD},
			{"one high six medium", append([]finding.Severity{finding.SeverityHigh}, repeatSeverity(finding.SeverityMedium, 6)...), risk.GradeE},
			{"three high", repeatSeverity(finding.SeverityHigh, 3), risk.GradeE},
			{"four high", repeatSeverity(finding.SeverityHigh, 4), risk.GradeF},
			{"single critical", []finding.Severity{finding.SeverityCritical}, risk.GradeF},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				a := mustAsset(t, "app.example.com")
				findings := newMemFindingRepo()
				seedFindings(t, findings, a.ID(), tt.severities...)
				fx := newGradingFixture(newMemAssetRepo(a), newMemGroupRepo(), findings)

				level, err := fx.svc.CalcAssetRiskGrade(ctx, a.ID(), nil)

				require.NoError(t, err)
				assert.Equal(t, tt.wantGrade, level.Grade)
				assert.Equal(t, len(tt.severities), level.Total)
			})
		}
	})

	t.Run("persists and caches the current grade", func(t *testing.T) {
		a := mustAsset(t, "db.example.com")
		findings := newMemFindingRepo()
		seedFindings(t, findings, a.ID(), finding.SeverityHigh)
		fx := newGradingFixture(newMemAssetRepo(a), newMemGroupRepo(), findings)

		level, err := fx.svc.CalcAssetRiskGrade(ctx, a.ID(), nil)

		require.NoError(t, err)
		assert.Equal(t, risk.GradeD, level.Grade)
		assert.Equal(t, 1, fx.assets.riskUpdates)
		assert.Equal(t, risk.GradeD, a.RiskLevel().Grade)

		cached, ok, err := fx.cache.GetAsset(ctx, a.ID())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, level, cached)
	})

	t.Run("historical grade ignores recent findings and persists nothing", func(t *testing.T) {
		a := mustAsset(t, "legacy.example.com")
		findings := newMemFindingRepo()

		old := mustFinding(t, a.ID(), "old leak", finding.SeverityLow)
		old.CreatedAt = time.Now().UTC().AddDate(0, 0, -10)
		require.NoError(t, findings.Create(ctx, old))

		recent := mustFinding(t, a.ID(), "fresh rce", finding.SeverityCritical)
		require.NoError(t, findings.Create(ctx, recent))

		fx := newGradingFixture(newMemAssetRepo(a), newMemGroupRepo(), findings)

		days := 7
		level, err := fx.svc.CalcAssetRiskGrade(ctx, a.ID(), &days)

		require.NoError(t, err)
		assert.Equal(t, risk.GradeB, level.Grade)
		assert.Equal(t, 1, level.Total)

		assert.Zero(t, fx.assets.riskUpdates)
		assert.Equal(t, risk.GradeNone, a.RiskLevel().Grade)
		_, ok, err := fx.cache.GetAsset(ctx, a.ID())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown asset", func(t *testing.T) {
		fx := newGradingFixture(newMemAssetRepo(), newMemGroupRepo(), newMemFindingRepo())

		_, err := fx.svc.CalcAssetRiskGrade(ctx, shared.NewID(), nil)

		assert.True(t, shared.IsNotFound(err))
	})
}

func TestGradingService_CalcGroupRiskGrade(t *testing.T) {
	ctx := context.Background()

	t.Run("grades the union of member findings", func(t *testing.T) {
		a1 := mustAsset(t, "web-1.example.com")
		a2 := mustAsset(t, "web-2.example.com")
		g, err := assetgroup.New("web servers", asset.CriticityHigh)
		require.NoError(t, err)
		g.AddAsset(a1.ID())
		g.AddAsset(a2.ID())

		findings := newMemFindingRepo()
		seedFindings(t, findings, a1.ID(), finding.SeverityMedium)
		seedFindings(t, findings, a2.ID(), finding.SeverityHigh, finding.SeverityHigh)

		fx := newGradingFixture(newMemAssetRepo(a1, a2), newMemGroupRepo(g), findings)

		level, err := fx.svc.CalcGroupRiskGrade(ctx, g.ID(), nil)

		require.NoError(t, err)
		assert.Equal(t, risk.GradeE, level.Grade)
		assert.Equal(t, 3, level.Total)
		assert.Equal(t, 2, level.High)

		// The group grade is persisted; member grades are untouched.
		assert.Equal(t, 1, fx.groups.riskUpdates)
		assert.Zero(t, fx.assets.riskUpdates)
		assert.Equal(t, risk.GradeNone, a1.RiskLevel().Grade)
	})

	t.Run("empty group grades clean", func(t *testing.T) {
		g, err := assetgroup.New("empty", asset.CriticityLow)
		require.NoError(t, err)
		fx := newGradingFixture(newMemAssetRepo(), newMemGroupRepo(g), newMemFindingRepo())

		level, err := fx.svc.CalcGroupRiskGrade(ctx, g.ID(), nil)

		require.NoError(t, err)
		assert.Equal(t, risk.GradeNone, level.Grade)
	})

	t.Run("historical group grade persists nothing", func(t *testing.T) {
		a := mustAsset(t, "api.example.com")
		g, err := assetgroup.New("api", asset.CriticityMedium)
		require.NoError(t, err)
		g.AddAsset(a.ID())

		findings := newMemFindingRepo()
		seedFindings(t, findings, a.ID(), finding.SeverityCritical)
		fx := newGradingFixture(newMemAssetRepo(a), newMemGroupRepo(g), findings)

		days := 30
		level, err := fx.svc.CalcGroupRiskGrade(ctx, g.ID(), &days)

		require.NoError(t, err)
		assert.Equal(t, risk.GradeF, level.Grade)
		assert.Zero(t, fx.groups.riskUpdates)
	})
}

func TestGradingService_AssetRiskScore(t *testing.T) {
	ctx := context.Background()

	t.Run("scores the cached level without recomputing", func(t *testing.T) {
		a := mustAsset(t, "cache.example.com")
		fx := newGradingFixture(newMemAssetRepo(a), newMemGroupRepo(), newMemFindingRepo())

		cached := risk.Level{Medium: 2, Total: 2, Grade: risk.GradeC}
		require.NoError(t, fx.cache.SetAsset(ctx, a.ID(), cached))

		score, err := fx.svc.AssetRiskScore(ctx, a.ID(), false)

		require.NoError(t, err)
		assert.Equal(t, 306, score)
		assert.Zero(t, fx.assets.riskUpdates)
	})

	t.Run("force recalculates from findings", func(t *testing.T) {
		a := mustAsset(t, "fresh.example.com")
		findings := newMemFindingRepo()
		seedFindings(t, findings, a.ID(), finding.SeverityHigh)
		fx := newGradingFixture(newMemAssetRepo(a), newMemGroupRepo(), findings)

		score, err := fx.svc.AssetRiskScore(ctx, a.ID(), true)

		require.NoError(t, err)
		// Grade D base 400 plus one high at weight 10.
		assert.Equal(t, 410, score)
		assert.Equal(t, 1, fx.assets.riskUpdates)
	})

	t.Run("falls back to the persisted level on cache miss", func(t *testing.T) {
		a := mustAsset(t, "stale.example.com")
		a.SetRiskLevel(risk.Level{Low: 3, Total: 3, Grade: risk.GradeB})
		fx := newGradingFixture(newMemAssetRepo(a), newMemGroupRepo(), newMemFindingRepo())

		score, err := fx.svc.AssetRiskScore(ctx, a.ID(), false)

		require.NoError(t, err)
		assert.Equal(t, 203, score)
	})
}

func TestGradingService_GradeTrend(t *testing.T) {
	ctx := context.Background()

	a := mustAsset(t, "trend.example.com")
	findings := newMemFindingRepo()

	old := mustFinding(t, a.ID(), "old issue", finding.SeverityHigh)
	old.CreatedAt = time.Now().UTC().AddDate(0, 0, -45)
	require.NoError(t, findings.Create(ctx, old))

	recent := mustFinding(t, a.ID(), "recent issue", finding.SeverityCritical)
	require.NoError(t, findings.Create(ctx, recent))

	fx := newGradingFixture(newMemAssetRepo(a), newMemGroupRepo(), findings)

	trend, err := fx.svc.GradeTrend(ctx, a.ID(), []int{7, 30, 90})

	require.NoError(t, err)
	require.Len(t, trend, 3)
	assert.Equal(t, risk.GradeD, trend[7].Grade)
	assert.Equal(t, risk.GradeD, trend[30].Grade)
	assert.Equal(t, risk.GradeNone, trend[90].Grade)
	assert.Zero(t, fx.assets.riskUpdates)
}

func TestGradingService_RecalculateAsset(t *testing.T) {
	ctx := context.Background()

	t.Run("regrades the asset and every owning group", func(t *testing.T) {
		a := mustAsset(t, "member.example.com")
		g1, err := assetgroup.New("group one", asset.CriticityLow)
		require.NoError(t, err)
		g1.AddAsset(a.ID())
		g2, err := assetgroup.New("group two", asset.CriticityLow)
		require.NoError(t, err)
		g2.AddAsset(a.ID())
		other, err := assetgroup.New("unrelated", asset.CriticityLow)
		require.NoError(t, err)

		findings := newMemFindingRepo()
		seedFindings(t, findings, a.ID(), finding.SeverityCritical)
		fx := newGradingFixture(newMemAssetRepo(a), newMemGroupRepo(g1, g2, other), findings)

		require.NoError(t, fx.svc.RecalculateAsset(ctx, a.ID()))

		assert.Equal(t, 1, fx.assets.riskUpdates)
		assert.Equal(t, 2, fx.groups.riskUpdates)
		assert.Equal(t, risk.GradeF, a.RiskLevel().Grade)
		assert.Equal(t, risk.GradeF, g1.RiskLevel().Grade)
		assert.Equal(t, risk.GradeF, g2.RiskLevel().Grade)
		assert.Equal(t, risk.GradeNone, other.RiskLevel().Grade)
	})

	t.Run("missing asset is skipped, not an error", func(t *testing.T) {
		fx := newGradingFixture(newMemAssetRepo(), newMemGroupRepo(), newMemFindingRepo())

		assert.NoError(t, fx.svc.RecalculateAsset(ctx, shared.NewID()))
	})
}

func TestGradingService_RecalculateGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("missing group is skipped, not an error", func(t *testing.T) {
		fx := newGradingFixture(newMemAssetRepo(), newMemGroupRepo(), newMemFindingRepo())

		assert.NoError(t, fx.svc.RecalculateGroup(ctx, shared.NewID()))
	})
}
