// Package alertrule implements user-defined alerting rules: a condition
// over one attribute of an entity (asset, finding or scan) that, when
// satisfied, triggers a notification to a configured channel.
package alertrule

import (
	"fmt"
	"time"

	"github.com/vulnwatchio/api/pkg/domain/shared"
)

// Scope is the entity type a rule applies to.
type Scope string

// Rule scopes.
const (
	ScopeAsset   Scope = "asset"
	ScopeFinding Scope = "finding"
	ScopeScan    Scope = "scan"
)

// IsValid checks if the scope is valid.
func (s Scope) IsValid() bool {
	switch s {
	case ScopeAsset, ScopeFinding, ScopeScan:
		return true
	}
	return false
}

// Target is the notification channel a matched rule dispatches to.
type Target string

// Rule targets.
const (
	TargetEvent   Target = "event"
	TargetLogfile Target = "logfile"
	TargetEmail   Target = "email"
	TargetTheHive Target = "thehive"
	TargetSplunk  Target = "splunk"
	TargetSlack   Target = "slack"
)

// IsValid checks if the target is valid.
func (t Target) IsValid() bool {
	switch t {
	case TargetEvent, TargetLogfile, TargetEmail, TargetTheHive, TargetSplunk, TargetSlack:
		return true
	}
	return false
}

// Trigger is the rule firing mode.
type Trigger string

// Rule triggers.
const (
	TriggerOnDemand Trigger = "ondemand"
	TriggerAuto     Trigger = "auto"
	TriggerPeriodic Trigger = "periodic"
)

// IsValid checks if the trigger is valid.
func (t Trigger) IsValid() bool {
	switch t {
	case TriggerOnDemand, TriggerAuto, TriggerPeriodic:
		return true
	}
	return false
}

// Severity is the label attached to alerts raised by the rule.
type Severity string

// Rule severities.
const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// IsValid checks if the severity is valid.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// CaseLevel maps the rule severity to the numeric level expected by
// external case-management systems.
func (s Severity) CaseLevel() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	}
	return 0
}

// Condition is the operator plus comparison value tested against the
// rule's scope attribute.
type Condition struct {
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// Rule represents a persisted alerting rule. NbMatches counts every
// completed notify dispatch, including ones whose external delivery
// failed; NbFailures counts the failed deliveries separately. Both are
// only ever incremented atomically in the store.
type Rule struct {
	ID         shared.ID
	Title      string
	Comments   string
	Scope      Scope
	ScopeAttr  string
	Condition  Condition
	Target     Target
	Severity   Severity
	Trigger    Trigger
	Enabled    bool
	NbMatches  int64
	NbFailures int64
	OwnerID    *shared.ID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// New creates a new Rule and validates its configuration.
func New(title string, scope Scope, scopeAttr string, cond Condition, target Target) (*Rule, error) {
	now := time.Now().UTC()
	r := &Rule{
		ID:        shared.NewID(),
		Title:     title,
		Scope:     scope,
		ScopeAttr: scopeAttr,
		Condition: cond,
		Target:    target,
		Severity:  SeverityLow,
		Trigger:   TriggerAuto,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the rule configuration against the attribute
// registry. Configuration problems are surfaced here, at save time;
// evaluation never fails on them (it fails closed instead).
func (r *Rule) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("%w: title is required", shared.ErrValidation)
	}
	if !r.Scope.IsValid() {
		return fmt.Errorf("%w: invalid scope %q", shared.ErrValidation, r.Scope)
	}
	if !r.Target.IsValid() {
		return fmt.Errorf("%w: invalid target %q", shared.ErrValidation, r.Target)
	}
	if !r.Severity.IsValid() {
		return fmt.Errorf("%w: invalid severity %q", shared.ErrValidation, r.Severity)
	}
	if !r.Trigger.IsValid() {
		return fmt.Errorf("%w: invalid trigger %q", shared.ErrValidation, r.Trigger)
	}

	attr, ok := LookupAttribute(r.Scope, r.ScopeAttr)
	if !ok {
		return fmt.Errorf("%w: attribute %q is not defined for scope %q",
			shared.ErrValidation, r.ScopeAttr, r.Scope)
	}
	if !attr.Type.Allows(r.Condition.Operator) {
		return fmt.Errorf("%w: operator %q is not valid for %s attribute %q",
			shared.ErrValidation, r.Condition.Operator, attr.Type, r.ScopeAttr)
	}
	if attr.Type == AttrList && !attr.IsLegalValue(r.Condition.Value) {
		return fmt.Errorf("%w: %q is not a legal value for attribute %q",
			shared.ErrValidation, r.Condition.Value, r.ScopeAttr)
	}
	return nil
}

// Enable arms the rule.
func (r *Rule) Enable() {
	r.Enabled = true
	r.UpdatedAt = time.Now().UTC()
}

// Disable disarms the rule.
func (r *Rule) Disable() {
	r.Enabled = false
	r.UpdatedAt = time.Now().UTC()
}
