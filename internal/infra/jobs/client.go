// Package jobs manages background task enqueueing and processing with
// Asynq. Grade recalculation and auto rule evaluation run here so that
// finding ingestion never blocks on them.
package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/logger"
)

// Client manages enqueueing background jobs using Asynq.
type Client struct {
	client *asynq.Client
	logger *logger.Logger
}

// ClientConfig contains configuration for the job client.
type ClientConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewClient creates a new job client for enqueueing tasks.
func NewClient(cfg ClientConfig, log *logger.Logger) *Client {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &Client{
		client: client,
		logger: log.With("component", "job_client"),
	}
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueAssetRegrade enqueues a grade recalculation for one asset.
func (c *Client) EnqueueAssetRegrade(ctx context.Context, assetID shared.ID) error {
	task, err := NewAssetRecalculateTask(RiskRecalculatePayload{EntityID: assetID.String()})
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue asset regrade", "asset_id", assetID, "error", err)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Debug("asset regrade queued", "task_id", info.ID, "asset_id", assetID)
	return nil
}

// EnqueueGroupRegrade enqueues a grade recalculation for one group.
func (c *Client) EnqueueGroupRegrade(ctx context.Context, groupID shared.ID) error {
	task, err := NewGroupRecalculateTask(RiskRecalculatePayload{EntityID: groupID.String()})
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue group regrade", "group_id", groupID, "error", err)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Debug("group regrade queued", "task_id", info.ID, "group_id", groupID)
	return nil
}

// EnqueueRuleEvaluation enqueues auto rule evaluation for one entity.
func (c *Client) EnqueueRuleEvaluation(ctx context.Context, scope string, entityID shared.ID) error {
	task, err := NewRuleEvaluateTask(RuleEvaluatePayload{Scope: scope, EntityID: entityID.String()})
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue rule evaluation",
			"scope", scope, "entity_id", entityID, "error", err)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Debug("rule evaluation queued",
		"task_id", info.ID, "scope", scope, "entity_id", entityID)
	return nil
}
