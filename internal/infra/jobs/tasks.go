package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type names.
const (
	TypeRiskRecalculateAsset = "risk:recalculate_asset"
	TypeRiskRecalculateGroup = "risk:recalculate_group"
	TypeRuleEvaluate         = "rule:evaluate_event"
)

// Queue names with their worker weights.
const (
	QueueDefault = "default"
	QueueRisk    = "risk"
	QueueAlerts  = "alerts"
)

// RiskRecalculatePayload identifies the entity whose grade is stale.
type RiskRecalculatePayload struct {
	EntityID string `json:"entity_id"`
}

// RuleEvaluatePayload identifies the entity to run auto rules against.
type RuleEvaluatePayload struct {
	Scope    string `json:"scope"`
	EntityID string `json:"entity_id"`
}

// NewAssetRecalculateTask creates a task to regrade one asset.
func NewAssetRecalculateTask(payload RiskRecalculatePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeRiskRecalculateAsset, data,
		asynq.Queue(QueueRisk), asynq.MaxRetry(3)), nil
}

// NewGroupRecalculateTask creates a task to regrade one asset group.
func NewGroupRecalculateTask(payload RiskRecalculatePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeRiskRecalculateGroup, data,
		asynq.Queue(QueueRisk), asynq.MaxRetry(3)), nil
}

// NewRuleEvaluateTask creates a task to run auto-triggered rules
// against one entity.
func NewRuleEvaluateTask(payload RuleEvaluatePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeRuleEvaluate, data,
		asynq.Queue(QueueAlerts), asynq.MaxRetry(3)), nil
}
