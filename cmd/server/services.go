package main

import (
	"github.com/vulnwatchio/api/internal/app"
	"github.com/vulnwatchio/api/internal/config"
	"github.com/vulnwatchio/api/internal/infra/jobs"
	"github.com/vulnwatchio/api/internal/infra/notification"
	"github.com/vulnwatchio/api/internal/infra/redis"
	"github.com/vulnwatchio/api/pkg/logger"
)

// services bundles the application services.
type services struct {
	Assets     *app.AssetService
	Groups     *app.AssetGroupService
	Findings   *app.FindingService
	Grading    *app.GradingService
	Rules      *app.AlertRuleService
	Categories *app.CategoryService
	Events     *app.EventService
	Scheduler  *app.Scheduler
}

func newServices(
	cfg *config.Config,
	repos *repositories,
	cache *redis.Client,
	jobClient *jobs.Client,
	log *logger.Logger,
) *services {
	riskCache := redis.NewRiskCache(cache)
	notifier := notification.NewClientFactory(&cfg.Alerting, repos.Events, log)

	grading := app.NewGradingService(repos.Assets, repos.Groups, repos.Findings, riskCache, log)
	rules := app.NewAlertRuleService(
		repos.Rules, repos.Assets, repos.Findings, repos.Events,
		notifier, cfg.Alerting.DispatchTimeout, log,
	)

	return &services{
		Assets:     app.NewAssetService(repos.Assets, repos.Events, jobClient, log),
		Groups:     app.NewAssetGroupService(repos.Groups, repos.Assets, repos.Events, jobClient, log),
		Findings:   app.NewFindingService(repos.Findings, repos.Assets, repos.Events, jobClient, log),
		Grading:    grading,
		Rules:      rules,
		Categories: app.NewCategoryService(repos.Categories, repos.Assets, repos.Events, log),
		Events:     app.NewEventService(repos.Events),
		Scheduler:  app.NewScheduler(rules, repos.Assets, repos.Groups, jobClient, log),
	}
}
