package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/logger"
)

// GradingProcessor recalculates risk grades. Implemented by the grading
// service.
type GradingProcessor interface {
	RecalculateAsset(ctx context.Context, assetID shared.ID) error
	RecalculateGroup(ctx context.Context, groupID shared.ID) error
}

// RuleProcessor runs auto-triggered rules against one entity.
// Implemented by the alert rule service.
type RuleProcessor interface {
	EvaluateAuto(ctx context.Context, scope string, entityID shared.ID) error
}

// WorkerConfig holds the configuration for the job worker.
type WorkerConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
}

// Worker processes background jobs.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	logger  *logger.Logger
	grading GradingProcessor
	rules   RuleProcessor
}

// NewWorker creates a new background job worker.
func NewWorker(cfg WorkerConfig, grading GradingProcessor, rules RuleProcessor, log *logger.Logger) *Worker {
	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				QueueDefault: 3,
				QueueRisk:    5,
				QueueAlerts:  5,
			},
		},
	)

	w := &Worker{
		server:  server,
		mux:     asynq.NewServeMux(),
		logger:  log.With("component", "worker"),
		grading: grading,
		rules:   rules,
	}

	w.mux.HandleFunc(TypeRiskRecalculateAsset, w.handleAssetRecalculate)
	w.mux.HandleFunc(TypeRiskRecalculateGroup, w.handleGroupRecalculate)
	w.mux.HandleFunc(TypeRuleEvaluate, w.handleRuleEvaluate)

	return w
}

// Start starts the worker.
func (w *Worker) Start() error {
	w.logger.Info("starting job worker")
	return w.server.Start(w.mux)
}

// Stop stops the worker gracefully.
func (w *Worker) Stop() {
	w.logger.Info("stopping job worker")
	w.server.Shutdown()
}

// Run runs the worker until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Start(w.mux)
	}()

	select {
	case <-ctx.Done():
		w.Stop()
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("worker error: %w", err)
		}
		return nil
	}
}

func (w *Worker) handleAssetRecalculate(ctx context.Context, t *asynq.Task) error {
	id, err := entityID(t)
	if err != nil {
		return err
	}
	if err := w.grading.RecalculateAsset(ctx, id); err != nil {
		w.logger.Error("asset regrade failed", "asset_id", id, "error", err)
		return err
	}
	return nil
}

func (w *Worker) handleGroupRecalculate(ctx context.Context, t *asynq.Task) error {
	id, err := entityID(t)
	if err != nil {
		return err
	}
	if err := w.grading.RecalculateGroup(ctx, id); err != nil {
		w.logger.Error("group regrade failed", "group_id", id, "error", err)
		return err
	}
	return nil
}

func (w *Worker) handleRuleEvaluate(ctx context.Context, t *asynq.Task) error {
	var payload RuleEvaluatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}
	id, err := shared.IDFromString(payload.EntityID)
	if err != nil {
		return fmt.Errorf("invalid entity id: %w", asynq.SkipRetry)
	}
	if err := w.rules.EvaluateAuto(ctx, payload.Scope, id); err != nil {
		w.logger.Error("rule evaluation failed",
			"scope", payload.Scope, "entity_id", id, "error", err)
		return err
	}
	return nil
}

func entityID(t *asynq.Task) (shared.ID, error) {
	var payload RiskRecalculatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return shared.ID{}, fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}
	id, err := shared.IDFromString(payload.EntityID)
	if err != nil {
		return shared.ID{}, fmt.Errorf("invalid entity id: %w", asynq.SkipRetry)
	}
	return id, nil
}
