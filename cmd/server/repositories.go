package main

import (
	"github.com/vulnwatchio/api/internal/infra/postgres"
	"github.com/vulnwatchio/api/pkg/domain/alertrule"
	"github.com/vulnwatchio/api/pkg/domain/asset"
	"github.com/vulnwatchio/api/pkg/domain/assetgroup"
	"github.com/vulnwatchio/api/pkg/domain/category"
	"github.com/vulnwatchio/api/pkg/domain/event"
	"github.com/vulnwatchio/api/pkg/domain/finding"
)

// repositories bundles every persistence adapter.
type repositories struct {
	Assets     asset.Repository
	Groups     assetgroup.Repository
	Findings   finding.Repository
	Rules      alertrule.Repository
	Categories category.Repository
	Events     event.Repository
}

func newRepositories(db *postgres.DB) *repositories {
	return &repositories{
		Assets:     postgres.NewAssetRepository(db),
		Groups:     postgres.NewAssetGroupRepository(db),
		Findings:   postgres.NewFindingRepository(db),
		Rules:      postgres.NewAlertRuleRepository(db),
		Categories: postgres.NewCategoryRepository(db),
		Events:     postgres.NewEventRepository(db),
	}
}
