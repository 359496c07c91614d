package app

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnwatchio/api/pkg/domain/alertrule"
	"github.com/vulnwatchio/api/pkg/domain/event"
	"github.com/vulnwatchio/api/pkg/domain/finding"
	"github.com/vulnwatchio/api/pkg/domain/scan"
	"github.com/vulnwatchio/api/pkg/domain/shared"
)

type ruleFixture struct {
	svc      *AlertRuleService
	rules    *memRuleRepo
	assets   *memAssetRepo
	findings *memFindingRepo
	events   *memEventRepo
	notifier *fakeNotifier
}

func newRuleFixture(assets *memAssetRepo, findings *memFindingRepo, rules *memRuleRepo, deliveryOK bool) *ruleFixture {
	events := &memEventRepo{}
	notifier := &fakeNotifier{succeed: deliveryOK}
	return &ruleFixture{
		svc:      NewAlertRuleService(rules, assets, findings, events, notifier, 0, testLogger()),
		rules:    rules,
		assets:   assets,
		findings: findings,
		events:   events,
		notifier: notifier,
	}
}

func mustRule(t *testing.T, scope alertrule.Scope, attr string, op alertrule.Operator, value string) *alertrule.Rule {
	t.Helper()
	rule, err := alertrule.New("test rule", scope, attr,
		alertrule.Condition{Operator: op, Value: value}, alertrule.TargetSlack)
	require.NoError(t, err)
	rule.Enabled = true
	return rule
}

func TestAlertRuleService_CreateRule(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a valid rule and records an event", func(t *testing.T) {
		fx := newRuleFixture(newMemAssetRepo(), newMemFindingRepo(), newMemRuleRepo(), true)

		rule, err := fx.svc.CreateRule(ctx, CreateRuleInput{
			Title:     "critical findings",
			Scope:     "finding",
			ScopeAttr: "severity",
			Operator:  "in",
			Value:     "critical",
			Target:    "slack",
			Severity:  "High",
			Trigger:   "auto",
			Enabled:   true,
		})

		require.NoError(t, err)
		assert.Equal(t, alertrule.SeverityHigh, rule.Severity)
		assert.True(t, rule.Enabled)
		assert.Len(t, fx.events.bySeverity(event.SeverityInfo), 1)
	})

	t.Run("rejects an unknown attribute", func(t *testing.T) {
		fx := newRuleFixture(newMemAssetRepo(), newMemFindingRepo(), newMemRuleRepo(), true)

		_, err := fx.svc.CreateRule(ctx, CreateRuleInput{
			Title:     "bad",
			Scope:     "asset",
			ScopeAttr: "no_such_field",
			Operator:  "iexact",
			Value:     "x",
			Target:    "slack",
		})

		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("rejects an operator illegal for the attribute type", func(t *testing.T) {
		fx := newRuleFixture(newMemAssetRepo(), newMemFindingRepo(), newMemRuleRepo(), true)

		_, err := fx.svc.CreateRule(ctx, CreateRuleInput{
			Title:     "bad",
			Scope:     "finding",
			ScopeAttr: "cvss_score",
			Operator:  "icontains",
			Value:     "7",
			Target:    "slack",
		})

		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("rejects an illegal list value", func(t *testing.T) {
		fx := newRuleFixture(newMemAssetRepo(), newMemFindingRepo(), newMemRuleRepo(), true)

		_, err := fx.svc.CreateRule(ctx, CreateRuleInput{
			Title:     "bad",
			Scope:     "finding",
			ScopeAttr: "severity",
			Operator:  "in",
			Value:     "catastrophic",
			Target:    "slack",
		})

		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestAlertRuleService_EvaluateAndNotify(t *testing.T) {
	ctx := context.Background()

	t.Run("match with successful delivery bumps only the match counter", func(t *testing.T) {
		rule := mustRule(t, alertrule.ScopeFinding, "severity", alertrule.OpIn, "critical")
		f := mustFinding(t, shared.NewID(), "rce", finding.SeverityCritical)
		fx := newRuleFixture(newMemAssetRepo(), newMemFindingRepo(f), newMemRuleRepo(rule), true)

		matched, err := fx.svc.EvaluateAndNotify(ctx, rule, f)

		require.NoError(t, err)
		assert.True(t, matched)
		assert.Equal(t, int64(1), rule.NbMatches)
		assert.Zero(t, rule.NbFailures)
		assert.Equal(t, 1, fx.notifier.sendCount())
	})

	t.Run("failed delivery still counts the match", func(t *testing.T) {
		rule := mustRule(t, alertrule.ScopeFinding, "severity", alertrule.OpIn, "critical")
		f := mustFinding(t, shared.NewID(), "rce", finding.SeverityCritical)
		fx := newRuleFixture(newMemAssetRepo(), newMemFindingRepo(f), newMemRuleRepo(rule), false)

		matched, err := fx.svc.EvaluateAndNotify(ctx, rule, f)

		require.NoError(t, err)
		assert.True(t, matched)
		assert.Equal(t, int64(1), rule.NbMatches)
		assert.Equal(t, int64(1), rule.NbFailures)

		errorEvents := fx.events.bySeverity(event.SeverityError)
		require.Len(t, errorEvents, 1)
		assert.Equal(t, event.TypeError, errorEvents[0].Type)
		assert.Equal(t, "delivery refused", errorEvents[0].Description)
	})

	t.Run("no match moves nothing", func(t *testing.T) {
		rule := mustRule(t, alertrule.ScopeFinding, "severity", alertrule.OpIn, "critical")
		f := mustFinding(t, shared.NewID(), "weak cipher", finding.SeverityLow)
		fx := newRuleFixture(newMemAssetRepo(), newMemFindingRepo(f), newMemRuleRepo(rule), true)

		matched, err := fx.svc.EvaluateAndNotify(ctx, rule, f)

		require.NoError(t, err)
		assert.False(t, matched)
		assert.Zero(t, rule.NbMatches)
		assert.Zero(t, fx.notifier.sendCount())
	})

	t.Run("scope mismatch fails closed", func(t *testing.T) {
		rule := mustRule(t, alertrule.ScopeAsset, "value", alertrule.OpIContains, "example")
		f := mustFinding(t, shared.NewID(), "example finding", finding.SeverityHigh)
		fx := newRuleFixture(newMemAssetRepo(), newMemFindingRepo(f), newMemRuleRepo(rule), true)

		matched, err := fx.svc.EvaluateAndNotify(ctx, rule, f)

		require.NoError(t, err)
		assert.False(t, matched)
		assert.Zero(t, fx.notifier.sendCount())
	})

	t.Run("concurrent matches lose no counter updates", func(t *testing.T) {
		rule := mustRule(t, alertrule.ScopeFinding, "severity", alertrule.OpIn, "critical")
		f := mustFinding(t, shared.NewID(), "rce", finding.SeverityCritical)
		fx := newRuleFixture(newMemAssetRepo(), newMemFindingRepo(f), newMemRuleRepo(rule), true)

		const n = 50
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := fx.svc.EvaluateAndNotify(ctx, rule, f)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(n), rule.NbMatches)
		assert.Equal(t, n, fx.notifier.sendCount())
	})
}

func TestAlertRuleService_EvaluateAuto(t *testing.T) {
	ctx := context.Background()

	t.Run("runs every enabled auto rule of the scope", func(t *testing.T) {
		matching := mustRule(t, alertrule.ScopeFinding, "severity", alertrule.OpIn, "high")
		other := mustRule(t, alertrule.ScopeFinding, "title", alertrule.OpIContains, "nomatch")
		disabled := mustRule(t, alertrule.ScopeFinding, "severity", alertrule.OpIn, "high")
		disabled.Enabled = false
		ondemand := mustRule(t, alertrule.ScopeFinding, "severity", alertrule.OpIn, "high")
		ondemand.Trigger = alertrule.TriggerOnDemand

		f := mustFinding(t, shared.NewID(), "sqli", finding.SeverityHigh)
		fx := newRuleFixture(newMemAssetRepo(), newMemFindingRepo(f),
			newMemRuleRepo(matching, other, disabled, ondemand), true)

		require.NoError(t, fx.svc.EvaluateAuto(ctx, "finding", f.ID))

		assert.Equal(t, int64(1), matching.NbMatches)
		assert.Zero(t, other.NbMatches)
		assert.Zero(t, disabled.NbMatches)
		assert.Zero(t, ondemand.NbMatches)
		assert.Equal(t, 1, fx.notifier.sendCount())
	})

	t.Run("missing entity is skipped, not an error", func(t *testing.T) {
		rule := mustRule(t, alertrule.ScopeFinding, "severity", alertrule.OpIn, "high")
		fx := newRuleFixture(newMemAssetRepo(), newMemFindingRepo(), newMemRuleRepo(rule), true)

		require.NoError(t, fx.svc.EvaluateAuto(ctx, "finding", shared.NewID()))
		assert.Zero(t, rule.NbMatches)
	})
}

func TestAlertRuleService_EvaluateScan(t *testing.T) {
	ctx := context.Background()

	t.Run("runs scan-scoped auto rules against the snapshot", func(t *testing.T) {
		onError := mustRule(t, alertrule.ScopeScan, "status", alertrule.OpIn, "error")
		onEngine := mustRule(t, alertrule.ScopeScan, "engine_name", alertrule.OpIContains, "nmap")
		assetRule := mustRule(t, alertrule.ScopeAsset, "value", alertrule.OpIContains, "example")
		fx := newRuleFixture(newMemAssetRepo(), newMemFindingRepo(),
			newMemRuleRepo(onError, onEngine, assetRule), true)

		sc := &scan.Scan{
			ID:         shared.NewID(),
			AssetID:    shared.NewID(),
			EngineName: "nmap-tcp",
			Status:     scan.StatusError,
		}
		require.NoError(t, fx.svc.EvaluateScan(ctx, sc))

		assert.Equal(t, int64(1), onError.NbMatches)
		assert.Equal(t, int64(1), onEngine.NbMatches)
		assert.Zero(t, assetRule.NbMatches)
		assert.Equal(t, 2, fx.notifier.sendCount())
	})

	t.Run("finished scan does not trip an error rule", func(t *testing.T) {
		onError := mustRule(t, alertrule.ScopeScan, "status", alertrule.OpIn, "error")
		fx := newRuleFixture(newMemAssetRepo(), newMemFindingRepo(), newMemRuleRepo(onError), true)

		sc := &scan.Scan{ID: shared.NewID(), AssetID: shared.NewID(),
			EngineName: "nuclei", Status: scan.StatusFinished}
		require.NoError(t, fx.svc.EvaluateScan(ctx, sc))

		assert.Zero(t, onError.NbMatches)
		assert.Zero(t, fx.notifier.sendCount())
	})
}

func TestAlertRuleService_RunRule(t *testing.T) {
	ctx := context.Background()

	t.Run("asset scope counts one match per matching asset", func(t *testing.T) {
		a1 := mustAsset(t, "web.example.com")
		a2 := mustAsset(t, "db.example.com")
		a3 := mustAsset(t, "mail.other.org")
		rule := mustRule(t, alertrule.ScopeAsset, "value", alertrule.OpIEndsWith, "example.com")
		fx := newRuleFixture(newMemAssetRepo(a1, a2, a3), newMemFindingRepo(), newMemRuleRepo(rule), true)

		matches, err := fx.svc.RunRule(ctx, rule.ID)

		require.NoError(t, err)
		assert.Equal(t, 2, matches)
		assert.Equal(t, int64(2), rule.NbMatches)
		assert.Equal(t, 2, fx.notifier.sendCount())
	})

	t.Run("finding scope sweeps findings of every asset", func(t *testing.T) {
		a1 := mustAsset(t, "web.example.com")
		a2 := mustAsset(t, "db.example.com")
		f1 := mustFinding(t, a1.ID(), "rce", finding.SeverityCritical)
		f2 := mustFinding(t, a1.ID(), "weak cipher", finding.SeverityLow)
		f3 := mustFinding(t, a2.ID(), "rce again", finding.SeverityCritical)
		rule := mustRule(t, alertrule.ScopeFinding, "severity", alertrule.OpIn, "critical")
		fx := newRuleFixture(newMemAssetRepo(a1, a2), newMemFindingRepo(f1, f2, f3), newMemRuleRepo(rule), true)

		matches, err := fx.svc.RunRule(ctx, rule.ID)

		require.NoError(t, err)
		assert.Equal(t, 2, matches)
		assert.Equal(t, int64(2), rule.NbMatches)
	})

	t.Run("unknown rule", func(t *testing.T) {
		fx := newRuleFixture(newMemAssetRepo(), newMemFindingRepo(), newMemRuleRepo(), true)

		_, err := fx.svc.RunRule(ctx, shared.NewID())
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestAlertRuleService_FireFindingAlert(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers without moving counters", func(t *testing.T) {
		rule := mustRule(t, alertrule.ScopeFinding, "severity", alertrule.OpIn, "critical")
		f := mustFinding(t, shared.NewID(), "manual check", finding.SeverityMedium)
		fx := newRuleFixture(newMemAssetRepo(), newMemFindingRepo(f), newMemRuleRepo(rule), true)

		err := fx.svc.FireFindingAlert(ctx, f.ID, alertrule.TargetSlack, alertrule.SeverityHigh)

		require.NoError(t, err)
		assert.Equal(t, 1, fx.notifier.sendCount())
		assert.Zero(t, rule.NbMatches)
		assert.Zero(t, rule.NbFailures)
	})

	t.Run("invalid target", func(t *testing.T) {
		f := mustFinding(t, shared.NewID(), "manual check", finding.SeverityMedium)
		fx := newRuleFixture(newMemAssetRepo(), newMemFindingRepo(f), newMemRuleRepo(), true)

		err := fx.svc.FireFindingAlert(ctx, f.ID, alertrule.Target("pager"), alertrule.SeverityLow)

		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("failed delivery is an error", func(t *testing.T) {
		f := mustFinding(t, shared.NewID(), "manual check", finding.SeverityMedium)
		fx := newRuleFixture(newMemAssetRepo(), newMemFindingRepo(f), newMemRuleRepo(), false)

		err := fx.svc.FireFindingAlert(ctx, f.ID, alertrule.TargetSlack, alertrule.SeverityLow)

		assert.ErrorIs(t, err, shared.ErrInternal)
	})
}

func TestAlertRuleService_ResetCounters(t *testing.T) {
	ctx := context.Background()

	rule := mustRule(t, alertrule.ScopeFinding, "severity", alertrule.OpIn, "critical")
	rule.NbMatches = 7
	rule.NbFailures = 2
	fx := newRuleFixture(newMemAssetRepo(), newMemFindingRepo(), newMemRuleRepo(rule), true)

	require.NoError(t, fx.svc.ResetCounters(ctx, rule.ID))

	assert.Zero(t, rule.NbMatches)
	assert.Zero(t, rule.NbFailures)
}

func TestAlertRuleService_UpdateRule(t *testing.T) {
	ctx := context.Background()

	t.Run("revalidates the updated configuration", func(t *testing.T) {
		rule := mustRule(t, alertrule.ScopeFinding, "severity", alertrule.OpIn, "critical")
		fx := newRuleFixture(newMemAssetRepo(), newMemFindingRepo(), newMemRuleRepo(rule), true)

		bad := "catastrophic"
		_, err := fx.svc.UpdateRule(ctx, rule.ID, UpdateRuleInput{Value: &bad})

		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("applies partial updates", func(t *testing.T) {
		rule := mustRule(t, alertrule.ScopeFinding, "severity", alertrule.OpIn, "critical")
		fx := newRuleFixture(newMemAssetRepo(), newMemFindingRepo(), newMemRuleRepo(rule), true)

		title := "renamed"
		enabled := false
		updated, err := fx.svc.UpdateRule(ctx, rule.ID, UpdateRuleInput{
			Title:   &title,
			Enabled: &enabled,
		})

		require.NoError(t, err)
		assert.Equal(t, "renamed", updated.Title)
		assert.False(t, updated.Enabled)
		assert.Equal(t, "critical", updated.Condition.Value)
	})
}

func BenchmarkEvaluate(b *testing.B) {
	rule, err := alertrule.New("bench", alertrule.ScopeFinding, "severity",
		alertrule.Condition{Operator: alertrule.OpIn, Value: "critical"}, alertrule.TargetEvent)
	if err != nil {
		b.Fatalf("new rule: %v", err)
	}
	f, err := finding.New(shared.NewID(), "bench finding", finding.SeverityCritical)
	if err != nil {
		b.Fatalf("new finding: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !alertrule.Evaluate(rule, f) {
			b.Fatal("expected match")
		}
	}
}
