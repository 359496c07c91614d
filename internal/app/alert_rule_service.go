package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/vulnwatchio/api/internal/infra/notification"
	"github.com/vulnwatchio/api/internal/metrics"
	"github.com/vulnwatchio/api/pkg/domain/alertrule"
	"github.com/vulnwatchio/api/pkg/domain/asset"
	"github.com/vulnwatchio/api/pkg/domain/event"
	"github.com/vulnwatchio/api/pkg/domain/finding"
	"github.com/vulnwatchio/api/pkg/domain/scan"
	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/logger"
	"github.com/vulnwatchio/api/pkg/pagination"
)

// NotifierFactory builds notification clients per provider.
type NotifierFactory interface {
	CreateClient(provider notification.Provider) (notification.Client, error)
}

// AlertRuleService manages alerting rules and runs them against
// entities. Rule evaluation never fails on a misconfigured rule; it
// fails closed. Configuration problems are rejected at save time.
type AlertRuleService struct {
	rules           alertrule.Repository
	assets          asset.Repository
	findings        finding.Repository
	events          event.Repository
	notifier        NotifierFactory
	dispatchTimeout time.Duration
	logger          *logger.Logger
}

// NewAlertRuleService creates a new alert rule service.
func NewAlertRuleService(
	rules alertrule.Repository,
	assets asset.Repository,
	findings finding.Repository,
	events event.Repository,
	notifier NotifierFactory,
	dispatchTimeout time.Duration,
	log *logger.Logger,
) *AlertRuleService {
	if dispatchTimeout <= 0 {
		dispatchTimeout = 15 * time.Second
	}
	return &AlertRuleService{
		rules:           rules,
		assets:          assets,
		findings:        findings,
		events:          events,
		notifier:        notifier,
		dispatchTimeout: dispatchTimeout,
		logger:          log,
	}
}

// CreateRuleInput represents input for creating a rule.
type CreateRuleInput struct {
	Title     string `validate:"required,min=1,max=255"`
	Comments  string `validate:"max=1000"`
	Scope     string `validate:"required,rule_scope"`
	ScopeAttr string `validate:"required,max=64"`
	Operator  string `validate:"required"`
	Value     string `validate:"required,max=512"`
	Target    string `validate:"required,rule_target"`
	Severity  string `validate:"omitempty,rule_severity"`
	Trigger   string `validate:"omitempty,rule_trigger"`
	Enabled   bool
}

// UpdateRuleInput represents input for updating a rule.
type UpdateRuleInput struct {
	Title    *string `validate:"omitempty,min=1,max=255"`
	Comments *string `validate:"omitempty,max=1000"`
	Operator *string
	Value    *string `validate:"omitempty,max=512"`
	Target   *string `validate:"omitempty,rule_target"`
	Severity *string `validate:"omitempty,rule_severity"`
	Trigger  *string `validate:"omitempty,rule_trigger"`
	Enabled  *bool
}

// CreateRule validates and persists a new rule.
func (s *AlertRuleService) CreateRule(ctx context.Context, input CreateRuleInput) (*alertrule.Rule, error) {
	rule, err := alertrule.New(
		input.Title,
		alertrule.Scope(input.Scope),
		input.ScopeAttr,
		alertrule.Condition{
			Operator: alertrule.Operator(input.Operator),
			Value:    input.Value,
		},
		alertrule.Target(input.Target),
	)
	if err != nil {
		return nil, err
	}

	rule.Comments = input.Comments
	if input.Severity != "" {
		rule.Severity = alertrule.Severity(input.Severity)
	}
	if input.Trigger != "" {
		rule.Trigger = alertrule.Trigger(input.Trigger)
	}
	rule.Enabled = input.Enabled
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, fmt.Sprintf("rule %q created", rule.Title), event.TypeCreate)
	return rule, nil
}

// GetRule returns a rule by ID.
func (s *AlertRuleService) GetRule(ctx context.Context, id shared.ID) (*alertrule.Rule, error) {
	return s.rules.GetByID(ctx, id)
}

// ListRules returns a page of rules.
func (s *AlertRuleService) ListRules(ctx context.Context, filter alertrule.Filter, page pagination.Pagination) (pagination.Result[*alertrule.Rule], error) {
	return s.rules.List(ctx, filter, page)
}

// UpdateRule applies partial updates and revalidates the configuration.
func (s *AlertRuleService) UpdateRule(ctx context.Context, id shared.ID, input UpdateRuleInput) (*alertrule.Rule, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		rule.Title = *input.Title
	}
	if input.Comments != nil {
		rule.Comments = *input.Comments
	}
	if input.Operator != nil {
		rule.Condition.Operator = alertrule.Operator(*input.Operator)
	}
	if input.Value != nil {
		rule.Condition.Value = *input.Value
	}
	if input.Target != nil {
		rule.Target = alertrule.Target(*input.Target)
	}
	if input.Severity != nil {
		rule.Severity = alertrule.Severity(*input.Severity)
	}
	if input.Trigger != nil {
		rule.Trigger = alertrule.Trigger(*input.Trigger)
	}
	if input.Enabled != nil {
		rule.Enabled = *input.Enabled
	}
	rule.UpdatedAt = time.Now().UTC()

	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, fmt.Sprintf("rule %q updated", rule.Title), event.TypeUpdate)
	return rule, nil
}

// DeleteRule removes a rule.
func (s *AlertRuleService) DeleteRule(ctx context.Context, id shared.ID) error {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.rules.Delete(ctx, id); err != nil {
		return err
	}
	s.recordEvent(ctx, fmt.Sprintf("rule %q deleted", rule.Title), event.TypeDelete)
	return nil
}

// ResetCounters zeroes the match and failure counters of a rule.
func (s *AlertRuleService) ResetCounters(ctx context.Context, id shared.ID) error {
	return s.rules.ResetMatches(ctx, id)
}

// EvaluateAndNotify evaluates a rule against an entity and, on match,
// dispatches the alert. The match counter is incremented exactly once
// per match, in the store, whether or not the delivery succeeded; a
// failed delivery additionally bumps the failure counter and is logged
// as an ERROR event.
func (s *AlertRuleService) EvaluateAndNotify(ctx context.Context, rule *alertrule.Rule, entity any) (bool, error) {
	matched := alertrule.Evaluate(rule, entity)
	metrics.RuleEvaluationsTotal.WithLabelValues(string(rule.Scope), strconv.FormatBool(matched)).Inc()
	if !matched {
		return false, nil
	}

	delivered := s.dispatch(ctx, rule, entity)
	if !delivered {
		if err := s.rules.IncrementFailures(ctx, rule.ID); err != nil {
			s.logger.Error("failed to increment rule failures", "rule_id", rule.ID, "error", err)
		}
	}

	if err := s.rules.IncrementMatches(ctx, rule.ID); err != nil {
		return true, fmt.Errorf("failed to increment rule matches: %w", err)
	}
	return true, nil
}

// EvaluateAuto runs every enabled auto-triggered rule of the scope
// against the entity identified by scope and ID.
func (s *AlertRuleService) EvaluateAuto(ctx context.Context, scopeName string, entityID shared.ID) error {
	scope := alertrule.Scope(scopeName)
	entity, err := s.loadEntity(ctx, scope, entityID)
	if err != nil {
		if shared.IsNotFound(err) {
			s.logger.Warn("skipping rule evaluation of missing entity",
				"scope", scopeName, "entity_id", entityID)
			return nil
		}
		return err
	}

	rules, err := s.rules.ListEnabled(ctx, scope, alertrule.TriggerAuto)
	if err != nil {
		return fmt.Errorf("failed to list enabled rules: %w", err)
	}

	for _, rule := range rules {
		if _, err := s.EvaluateAndNotify(ctx, rule, entity); err != nil {
			return err
		}
	}
	return nil
}

// EvaluateScan runs auto rules against a scan snapshot delivered by the
// scan subsystem. Scans are not persisted here, so the caller passes
// the full entity.
func (s *AlertRuleService) EvaluateScan(ctx context.Context, sc *scan.Scan) error {
	rules, err := s.rules.ListEnabled(ctx, alertrule.ScopeScan, alertrule.TriggerAuto)
	if err != nil {
		return fmt.Errorf("failed to list enabled rules: %w", err)
	}
	for _, rule := range rules {
		if _, err := s.EvaluateAndNotify(ctx, rule, sc); err != nil {
			return err
		}
	}
	return nil
}

// RunRule fires one rule on demand across every entity of its scope.
func (s *AlertRuleService) RunRule(ctx context.Context, id shared.ID) (int, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}

	matches := 0
	err = s.forEachAsset(ctx, func(a *asset.Asset) error {
		switch rule.Scope {
		case alertrule.ScopeAsset:
			ok, err := s.EvaluateAndNotify(ctx, rule, a)
			if err != nil {
				return err
			}
			if ok {
				matches++
			}
		case alertrule.ScopeFinding:
			findings, err := s.findings.ListByAsset(ctx, a.ID(), nil)
			if err != nil {
				return err
			}
			for _, f := range findings {
				ok, err := s.EvaluateAndNotify(ctx, rule, f)
				if err != nil {
					return err
				}
				if ok {
					matches++
				}
			}
		}
		return nil
	})
	if err != nil {
		return matches, err
	}

	s.logger.Info("rule run completed", "rule_id", id, "matches", matches)
	return matches, nil
}

// FireFindingAlert sends a one-off alert for a finding to the chosen
// channel without a persisted rule. No counters move.
func (s *AlertRuleService) FireFindingAlert(ctx context.Context, findingID shared.ID, target alertrule.Target, severity alertrule.Severity) error {
	if !target.IsValid() {
		return fmt.Errorf("%w: invalid target %q", shared.ErrValidation, target)
	}
	if !severity.IsValid() {
		severity = alertrule.SeverityMedium
	}

	f, err := s.findings.GetByID(ctx, findingID)
	if err != nil {
		return err
	}

	transient := &alertrule.Rule{
		Title:    fmt.Sprintf("Manual alert: %s", f.Title),
		Scope:    alertrule.ScopeFinding,
		Target:   target,
		Severity: severity,
	}
	if !s.dispatch(ctx, transient, f) {
		return fmt.Errorf("%w: alert delivery failed", shared.ErrInternal)
	}
	return nil
}

func (s *AlertRuleService) loadEntity(ctx context.Context, scope alertrule.Scope, id shared.ID) (any, error) {
	switch scope {
	case alertrule.ScopeAsset:
		return s.assets.GetByID(ctx, id)
	case alertrule.ScopeFinding:
		return s.findings.GetByID(ctx, id)
	default:
		return nil, fmt.Errorf("%w: cannot load entity for scope %q", shared.ErrInvalidInput, scope)
	}
}

// dispatch builds and delivers the alert message, reporting success.
// Failures are logged as ERROR events; they never abort evaluation.
func (s *AlertRuleService) dispatch(ctx context.Context, rule *alertrule.Rule, entity any) bool {
	start := time.Now()
	provider := notification.Provider(rule.Target)

	client, err := s.notifier.CreateClient(provider)
	if err != nil {
		s.recordDeliveryFailure(ctx, rule, err.Error())
		metrics.NotificationsTotal.WithLabelValues(provider.String(), "failure").Inc()
		return false
	}

	msg := s.buildMessage(ctx, rule, entity)

	sendCtx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
	defer cancel()

	result, err := client.Send(sendCtx, msg)
	metrics.NotificationDuration.WithLabelValues(provider.String()).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		s.recordDeliveryFailure(ctx, rule, err.Error())
	case !result.Success:
		s.recordDeliveryFailure(ctx, rule, result.Error)
	default:
		metrics.NotificationsTotal.WithLabelValues(provider.String(), "success").Inc()
		return true
	}

	metrics.NotificationsTotal.WithLabelValues(provider.String(), "failure").Inc()
	return false
}

func (s *AlertRuleService) buildMessage(ctx context.Context, rule *alertrule.Rule, entity any) notification.Message {
	msg := notification.Message{
		Title:    rule.Title,
		Severity: string(rule.Severity),
		Fields:   map[string]string{},
	}

	switch e := entity.(type) {
	case *asset.Asset:
		msg.Body = fmt.Sprintf("Alert rule %q matched asset %s", rule.Title, e.Value())
		msg.Asset = assetRef(e)
	case *finding.Finding:
		msg.Body = fmt.Sprintf("Alert rule %q matched finding %q", rule.Title, e.Title)
		msg.Fields["Finding severity"] = e.Severity.String()
		if a, err := s.assets.GetByID(ctx, e.AssetID); err == nil {
			msg.Asset = assetRef(a)
		}
	case *scan.Scan:
		msg.Body = fmt.Sprintf("Alert rule %q matched scan by %s", rule.Title, e.EngineName)
		msg.Fields["Scan status"] = string(e.Status)
		if a, err := s.assets.GetByID(ctx, e.AssetID); err == nil {
			msg.Asset = assetRef(a)
		}
	}
	return msg
}

func (s *AlertRuleService) recordDeliveryFailure(ctx context.Context, rule *alertrule.Rule, reason string) {
	s.logger.Error("alert delivery failed",
		"rule_title", rule.Title,
		"target", rule.Target,
		"reason", reason,
	)
	e := event.New(
		fmt.Sprintf("alert delivery to %s failed for rule %q", rule.Target, rule.Title),
		event.TypeError,
		event.SeverityError,
	)
	e.Description = reason
	if err := s.events.Create(ctx, e); err != nil {
		s.logger.Error("failed to record delivery failure event", "error", err)
	}
}

func (s *AlertRuleService) recordEvent(ctx context.Context, message string, t event.Type) {
	if err := s.events.Create(ctx, event.New(message, t, event.SeverityInfo)); err != nil {
		s.logger.Error("failed to record event", "error", err)
	}
}

// forEachAsset pages through every asset.
func (s *AlertRuleService) forEachAsset(ctx context.Context, fn func(*asset.Asset) error) error {
	page := pagination.New(1, pagination.MaxPerPage)
	for {
		result, err := s.assets.List(ctx, asset.Filter{}, page)
		if err != nil {
			return fmt.Errorf("failed to list assets: %w", err)
		}
		for _, a := range result.Data {
			if err := fn(a); err != nil {
				return err
			}
		}
		if page.Page >= result.TotalPages {
			return nil
		}
		page.Page++
	}
}

func assetRef(a *asset.Asset) *notification.AssetRef {
	return &notification.AssetRef{
		Type:      a.Type().String(),
		Value:     a.Value(),
		Criticity: a.Criticity().String(),
	}
}
