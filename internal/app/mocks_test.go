package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/vulnwatchio/api/internal/infra/notification"
	"github.com/vulnwatchio/api/pkg/domain/alertrule"
	"github.com/vulnwatchio/api/pkg/domain/asset"
	"github.com/vulnwatchio/api/pkg/domain/assetgroup"
	"github.com/vulnwatchio/api/pkg/domain/category"
	"github.com/vulnwatchio/api/pkg/domain/event"
	"github.com/vulnwatchio/api/pkg/domain/finding"
	"github.com/vulnwatchio/api/pkg/domain/risk"
	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/logger"
	"github.com/vulnwatchio/api/pkg/pagination"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Output: io.Discard})
}

// In-memory repository fakes shared by the service tests.

type memAssetRepo struct {
	mu     sync.Mutex
	assets []*asset.Asset

	riskUpdates int
}

func newMemAssetRepo(assets ...*asset.Asset) *memAssetRepo {
	return &memAssetRepo{assets: assets}
}

func (r *memAssetRepo) Create(_ context.Context, a *asset.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets = append(r.assets, a)
	return nil
}

func (r *memAssetRepo) GetByID(_ context.Context, id shared.ID) (*asset.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assets {
		if a.ID().Equals(id) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: asset", shared.ErrNotFound)
}

func (r *memAssetRepo) GetByValue(_ context.Context, value string) (*asset.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assets {
		if a.Value() == value {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: asset", shared.ErrNotFound)
}

func (r *memAssetRepo) Update(_ context.Context, a *asset.Asset) error {
	return nil
}

func (r *memAssetRepo) Delete(_ context.Context, id shared.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.assets {
		if a.ID().Equals(id) {
			r.assets = append(r.assets[:i], r.assets[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: asset", shared.ErrNotFound)
}

func (r *memAssetRepo) List(_ context.Context, _ asset.Filter, page pagination.Pagination) (pagination.Result[*asset.Asset], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := page.Offset()
	if start > len(r.assets) {
		start = len(r.assets)
	}
	end := start + page.Limit()
	if end > len(r.assets) {
		end = len(r.assets)
	}
	return pagination.NewResult(r.assets[start:end], int64(len(r.assets)), page), nil
}

func (r *memAssetRepo) ExistsByValue(_ context.Context, value string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assets {
		if a.Value() == value {
			return true, nil
		}
	}
	return false, nil
}

func (r *memAssetRepo) UpdateRiskLevel(_ context.Context, id shared.ID, level risk.Level) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assets {
		if a.ID().Equals(id) {
			a.SetRiskLevel(level)
			r.riskUpdates++
			return nil
		}
	}
	return fmt.Errorf("%w: asset", shared.ErrNotFound)
}

func (r *memAssetRepo) ListTopByRiskScore(_ context.Context, limit int) ([]*asset.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > len(r.assets) {
		limit = len(r.assets)
	}
	return r.assets[:limit], nil
}

type memGroupRepo struct {
	mu     sync.Mutex
	groups []*assetgroup.AssetGroup

	riskUpdates int
}

func newMemGroupRepo(groups ...*assetgroup.AssetGroup) *memGroupRepo {
	return &memGroupRepo{groups: groups}
}

func (r *memGroupRepo) Create(_ context.Context, g *assetgroup.AssetGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = append(r.groups, g)
	return nil
}

func (r *memGroupRepo) GetByID(_ context.Context, id shared.ID) (*assetgroup.AssetGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.groups {
		if g.ID().Equals(id) {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%w: asset group", shared.ErrNotFound)
}

func (r *memGroupRepo) Update(_ context.Context, _ *assetgroup.AssetGroup) error {
	return nil
}

func (r *memGroupRepo) Delete(_ context.Context, id shared.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, g := range r.groups {
		if g.ID().Equals(id) {
			r.groups = append(r.groups[:i], r.groups[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: asset group", shared.ErrNotFound)
}

func (r *memGroupRepo) List(_ context.Context, page pagination.Pagination) (pagination.Result[*assetgroup.AssetGroup], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return pagination.NewResult(r.groups, int64(len(r.groups)), page), nil
}

func (r *memGroupRepo) ExistsByName(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.groups {
		if g.Name() == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *memGroupRepo) AddAssets(_ context.Context, groupID shared.ID, assetIDs []shared.ID) error {
	g, err := r.GetByID(context.Background(), groupID)
	if err != nil {
		return err
	}
	for _, id := range assetIDs {
		g.AddAsset(id)
	}
	return nil
}

func (r *memGroupRepo) RemoveAssets(_ context.Context, groupID shared.ID, assetIDs []shared.ID) error {
	g, err := r.GetByID(context.Background(), groupID)
	if err != nil {
		return err
	}
	for _, id := range assetIDs {
		g.RemoveAsset(id)
	}
	return nil
}

func (r *memGroupRepo) MemberIDs(_ context.Context, groupID shared.ID) ([]shared.ID, error) {
	g, err := r.GetByID(context.Background(), groupID)
	if err != nil {
		return nil, err
	}
	return g.AssetIDs(), nil
}

func (r *memGroupRepo) GroupsOfAsset(_ context.Context, assetID shared.ID) ([]*assetgroup.AssetGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*assetgroup.AssetGroup
	for _, g := range r.groups {
		if g.HasAsset(assetID) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *memGroupRepo) UpdateRiskLevel(_ context.Context, id shared.ID, level risk.Level) error {
	g, err := r.GetByID(context.Background(), id)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	g.SetRiskLevel(level)
	r.riskUpdates++
	return nil
}

type memFindingRepo struct {
	mu       sync.Mutex
	findings []*finding.Finding
}

func newMemFindingRepo(findings ...*finding.Finding) *memFindingRepo {
	return &memFindingRepo{findings: findings}
}

func (r *memFindingRepo) Create(_ context.Context, f *finding.Finding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findings = append(r.findings, f)
	return nil
}

func (r *memFindingRepo) GetByID(_ context.Context, id shared.ID) (*finding.Finding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.findings {
		if f.ID.Equals(id) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: finding", shared.ErrNotFound)
}

func (r *memFindingRepo) Update(_ context.Context, _ *finding.Finding) error {
	return nil
}

func (r *memFindingRepo) Delete(_ context.Context, id shared.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, f := range r.findings {
		if f.ID.Equals(id) {
			r.findings = append(r.findings[:i], r.findings[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: finding", shared.ErrNotFound)
}

func (r *memFindingRepo) List(ctx context.Context, assetID shared.ID, page pagination.Pagination) (pagination.Result[*finding.Finding], error) {
	all, err := r.ListByAsset(ctx, assetID, nil)
	if err != nil {
		return pagination.Result[*finding.Finding]{}, err
	}
	return pagination.NewResult(all, int64(len(all)), page), nil
}

func (r *memFindingRepo) ListByAsset(_ context.Context, assetID shared.ID, createdBefore *time.Time) ([]*finding.Finding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*finding.Finding, 0)
	for _, f := range r.findings {
		if !f.AssetID.Equals(assetID) {
			continue
		}
		if createdBefore != nil && f.CreatedAt.After(*createdBefore) {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *memFindingRepo) ListByAssets(ctx context.Context, assetIDs []shared.ID, createdBefore *time.Time) ([]*finding.Finding, error) {
	out := make([]*finding.Finding, 0)
	for _, id := range assetIDs {
		fs, err := r.ListByAsset(ctx, id, createdBefore)
		if err != nil {
			return nil, err
		}
		out = append(out, fs...)
	}
	return out, nil
}

type memRuleRepo struct {
	mu    sync.Mutex
	rules []*alertrule.Rule
}

func newMemRuleRepo(rules ...*alertrule.Rule) *memRuleRepo {
	return &memRuleRepo{rules: rules}
}

func (r *memRuleRepo) Create(_ context.Context, rule *alertrule.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
	return nil
}

func (r *memRuleRepo) GetByID(_ context.Context, id shared.ID) (*alertrule.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range r.rules {
		if rule.ID.Equals(id) {
			return rule, nil
		}
	}
	return nil, fmt.Errorf("%w: rule", shared.ErrNotFound)
}

func (r *memRuleRepo) Update(_ context.Context, _ *alertrule.Rule) error {
	return nil
}

func (r *memRuleRepo) Delete(_ context.Context, id shared.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rule := range r.rules {
		if rule.ID.Equals(id) {
			r.rules = append(r.rules[:i], r.rules[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: rule", shared.ErrNotFound)
}

func (r *memRuleRepo) List(_ context.Context, _ alertrule.Filter, page pagination.Pagination) (pagination.Result[*alertrule.Rule], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return pagination.NewResult(r.rules, int64(len(r.rules)), page), nil
}

func (r *memRuleRepo) ListEnabled(_ context.Context, scope alertrule.Scope, trigger alertrule.Trigger) ([]*alertrule.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*alertrule.Rule
	for _, rule := range r.rules {
		if rule.Enabled && rule.Scope == scope && rule.Trigger == trigger {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *memRuleRepo) IncrementMatches(_ context.Context, id shared.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range r.rules {
		if rule.ID.Equals(id) {
			rule.NbMatches++
			return nil
		}
	}
	return fmt.Errorf("%w: rule", shared.ErrNotFound)
}

func (r *memRuleRepo) IncrementFailures(_ context.Context, id shared.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range r.rules {
		if rule.ID.Equals(id) {
			rule.NbFailures++
			return nil
		}
	}
	return fmt.Errorf("%w: rule", shared.ErrNotFound)
}

func (r *memRuleRepo) ResetMatches(_ context.Context, id shared.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range r.rules {
		if rule.ID.Equals(id) {
			rule.NbMatches = 0
			rule.NbFailures = 0
			return nil
		}
	}
	return fmt.Errorf("%w: rule", shared.ErrNotFound)
}

type memCategoryRepo struct {
	mu         sync.Mutex
	categories []*category.Category
}

func newMemCategoryRepo(categories ...*category.Category) *memCategoryRepo {
	return &memCategoryRepo{categories: categories}
}

func (r *memCategoryRepo) Create(_ context.Context, c *category.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories = append(r.categories, c)
	return nil
}

func (r *memCategoryRepo) GetByID(_ context.Context, id shared.ID) (*category.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.categories {
		if c.ID.Equals(id) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: category", shared.ErrNotFound)
}

func (r *memCategoryRepo) Update(_ context.Context, _ *category.Category) error {
	return nil
}

func (r *memCategoryRepo) ListAll(_ context.Context) ([]*category.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*category.Category, len(r.categories))
	copy(out, r.categories)
	return out, nil
}

func (r *memCategoryRepo) DeleteSubtree(_ context.Context, ids []shared.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doomed := make(map[string]bool, len(ids))
	for _, id := range ids {
		doomed[id.String()] = true
	}
	kept := r.categories[:0]
	for _, c := range r.categories {
		if !doomed[c.ID.String()] {
			kept = append(kept, c)
		}
	}
	r.categories = kept
	return nil
}

type memEventRepo struct {
	mu     sync.Mutex
	events []*event.Event
}

func (r *memEventRepo) Create(_ context.Context, e *event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *memEventRepo) List(_ context.Context, page pagination.Pagination) (pagination.Result[*event.Event], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return pagination.NewResult(r.events, int64(len(r.events)), page), nil
}

func (r *memEventRepo) bySeverity(sev event.Severity) []*event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*event.Event
	for _, e := range r.events {
		if e.Severity == sev {
			out = append(out, e)
		}
	}
	return out
}

// fakeNotifier builds clients whose outcome is fixed per test.
type fakeNotifier struct {
	mu        sync.Mutex
	sends     int
	succeed   bool
	createErr error
}

func (f *fakeNotifier) CreateClient(provider notification.Provider) (notification.Client, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &fakeNotifierClient{parent: f, provider: provider}, nil
}

func (f *fakeNotifier) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends
}

type fakeNotifierClient struct {
	parent   *fakeNotifier
	provider notification.Provider
}

func (c *fakeNotifierClient) Send(_ context.Context, _ notification.Message) (*notification.SendResult, error) {
	c.parent.mu.Lock()
	c.parent.sends++
	c.parent.mu.Unlock()
	if !c.parent.succeed {
		return &notification.SendResult{Success: false, Error: "delivery refused"}, nil
	}
	return &notification.SendResult{Success: true}, nil
}

func (c *fakeNotifierClient) TestConnection(_ context.Context) (*notification.SendResult, error) {
	return &notification.SendResult{Success: true}, nil
}

func (c *fakeNotifierClient) Provider() string {
	return c.provider.String()
}

// fakeJobs records enqueued work.
type fakeJobs struct {
	mu            sync.Mutex
	assetRegrades []shared.ID
	groupRegrades []shared.ID
	ruleEvals     []string
}

func (j *fakeJobs) EnqueueAssetRegrade(_ context.Context, assetID shared.ID) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.assetRegrades = append(j.assetRegrades, assetID)
	return nil
}

func (j *fakeJobs) EnqueueGroupRegrade(_ context.Context, groupID shared.ID) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.groupRegrades = append(j.groupRegrades, groupID)
	return nil
}

func (j *fakeJobs) EnqueueRuleEvaluation(_ context.Context, scope string, entityID shared.ID) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ruleEvals = append(j.ruleEvals, scope+":"+entityID.String())
	return nil
}

// fakeCache is an in-memory RiskCache.
type fakeCache struct {
	mu     sync.Mutex
	assets map[string]risk.Level
	groups map[string]risk.Level
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		assets: make(map[string]risk.Level),
		groups: make(map[string]risk.Level),
	}
}

func (c *fakeCache) GetAsset(_ context.Context, id shared.ID) (risk.Level, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	level, ok := c.assets[id.String()]
	return level, ok, nil
}

func (c *fakeCache) SetAsset(_ context.Context, id shared.ID, level risk.Level) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assets[id.String()] = level
	return nil
}

func (c *fakeCache) GetGroup(_ context.Context, id shared.ID) (risk.Level, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	level, ok := c.groups[id.String()]
	return level, ok, nil
}

func (c *fakeCache) SetGroup(_ context.Context, id shared.ID, level risk.Level) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups[id.String()] = level
	return nil
}

func (c *fakeCache) InvalidateAsset(_ context.Context, id shared.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.assets, id.String())
	return nil
}

func (c *fakeCache) InvalidateGroup(_ context.Context, id shared.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.groups, id.String())
	return nil
}

// Test fixture helpers.

func mustAsset(t *testing.T, value string) *asset.Asset {
	t.Helper()
	a, err := asset.New(value, "", asset.TypeDomain, asset.CriticityMedium)
	if err != nil {
		t.Fatalf("new asset: %v", err)
	}
	return a
}

func mustFinding(t *testing.T, assetID shared.ID, title string, sev finding.Severity) *finding.Finding {
	t.Helper()
	f, err := finding.New(assetID, title, sev)
	if err != nil {
		t.Fatalf("new finding: %v", err)
	}
	return f
}
