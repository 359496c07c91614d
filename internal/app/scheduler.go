package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vulnwatchio/api/pkg/domain/alertrule"
	"github.com/vulnwatchio/api/pkg/domain/asset"
	"github.com/vulnwatchio/api/pkg/domain/assetgroup"
	"github.com/vulnwatchio/api/pkg/logger"
	"github.com/vulnwatchio/api/pkg/pagination"
)

// Cron schedules.
const (
	periodicRulesSchedule = "0 * * * *" // hourly
	regradeSweepSchedule  = "30 2 * * *"
)

// Scheduler drives time-based work: periodic-trigger rules run hourly
// and a nightly sweep requeues every grade so drift from missed jobs
// self-heals.
type Scheduler struct {
	cron   *cron.Cron
	rules  *AlertRuleService
	assets asset.Repository
	groups assetgroup.Repository
	jobs   JobEnqueuer
	logger *logger.Logger
}

// NewScheduler creates a new scheduler.
func NewScheduler(
	rules *AlertRuleService,
	assets asset.Repository,
	groups assetgroup.Repository,
	jobs JobEnqueuer,
	log *logger.Logger,
) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		rules:  rules,
		assets: assets,
		groups: groups,
		jobs:   jobs,
		logger: log.With("component", "scheduler"),
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(periodicRulesSchedule, s.runPeriodicRules); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(regradeSweepSchedule, s.runRegradeSweep); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started")
	return nil
}

// Stop stops the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// runPeriodicRules fires every enabled periodic rule across its scope.
func (s *Scheduler) runPeriodicRules() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	for _, scope := range []alertrule.Scope{alertrule.ScopeAsset, alertrule.ScopeFinding} {
		rules, err := s.rules.rules.ListEnabled(ctx, scope, alertrule.TriggerPeriodic)
		if err != nil {
			s.logger.Error("failed to list periodic rules", "scope", scope, "error", err)
			continue
		}
		for _, rule := range rules {
			matches, err := s.rules.RunRule(ctx, rule.ID)
			if err != nil {
				s.logger.Error("periodic rule run failed",
					"rule_id", rule.ID, "error", err)
				continue
			}
			s.logger.Info("periodic rule run",
				"rule_id", rule.ID, "matches", matches)
		}
	}
}

// runRegradeSweep queues a regrade for every asset and group.
func (s *Scheduler) runRegradeSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	queued := 0
	page := pagination.New(1, pagination.MaxPerPage)
	for {
		result, err := s.assets.List(ctx, asset.Filter{}, page)
		if err != nil {
			s.logger.Error("regrade sweep asset listing failed", "error", err)
			return
		}
		for _, a := range result.Data {
			if err := s.jobs.EnqueueAssetRegrade(ctx, a.ID()); err != nil {
				s.logger.Error("failed to enqueue sweep regrade", "asset_id", a.ID(), "error", err)
				continue
			}
			queued++
		}
		if page.Page >= result.TotalPages {
			break
		}
		page.Page++
	}

	gpage := pagination.New(1, pagination.MaxPerPage)
	for {
		result, err := s.groups.List(ctx, gpage)
		if err != nil {
			s.logger.Error("regrade sweep group listing failed", "error", err)
			return
		}
		for _, g := range result.Data {
			if err := s.jobs.EnqueueGroupRegrade(ctx, g.ID()); err != nil {
				s.logger.Error("failed to enqueue sweep regrade", "group_id", g.ID(), "error", err)
				continue
			}
			queued++
		}
		if gpage.Page >= result.TotalPages {
			break
		}
		gpage.Page++
	}

	s.logger.Info("regrade sweep queued", "count", queued)
}
