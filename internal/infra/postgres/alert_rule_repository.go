package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vulnwatchio/api/pkg/domain/alertrule"
	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/pagination"
)

// AlertRuleRepository implements alertrule.Repository using PostgreSQL.
type AlertRuleRepository struct {
	db *DB
}

// NewAlertRuleRepository creates a new AlertRuleRepository.
func NewAlertRuleRepository(db *DB) *AlertRuleRepository {
	return &AlertRuleRepository{db: db}
}

// Create persists a new rule.
func (r *AlertRuleRepository) Create(ctx context.Context, rule *alertrule.Rule) error {
	query := `
		INSERT INTO alert_rules (
			id, title, comments, scope, scope_attr, condition_operator, condition_value,
			target, severity, trigger_mode, enabled, nb_matches, nb_failures, owner_id,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.ExecContext(ctx, query,
		rule.ID.String(),
		rule.Title,
		rule.Comments,
		string(rule.Scope),
		rule.ScopeAttr,
		string(rule.Condition.Operator),
		rule.Condition.Value,
		string(rule.Target),
		string(rule.Severity),
		string(rule.Trigger),
		rule.Enabled,
		rule.NbMatches,
		rule.NbFailures,
		nullID(rule.OwnerID),
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: rule %q", shared.ErrAlreadyExists, rule.Title)
		}
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

// GetByID retrieves a rule by its ID.
func (r *AlertRuleRepository) GetByID(ctx context.Context, id shared.ID) (*alertrule.Rule, error) {
	query := selectRuleQuery + " WHERE r.id = $1"
	rule, err := scanRuleRow(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: rule", shared.ErrNotFound)
		}
		return nil, err
	}
	return rule, nil
}

// Update updates a rule's configuration. Counters are never written
// here; they only move through the atomic increment operations.
func (r *AlertRuleRepository) Update(ctx context.Context, rule *alertrule.Rule) error {
	query := `
		UPDATE alert_rules
		SET title = $2, comments = $3, scope = $4, scope_attr = $5,
		    condition_operator = $6, condition_value = $7, target = $8,
		    severity = $9, trigger_mode = $10, enabled = $11, updated_at = $12
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		rule.ID.String(),
		rule.Title,
		rule.Comments,
		string(rule.Scope),
		rule.ScopeAttr,
		string(rule.Condition.Operator),
		rule.Condition.Value,
		string(rule.Target),
		string(rule.Severity),
		string(rule.Trigger),
		rule.Enabled,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return requireRowAffected(result, shared.ErrNotFound)
}

// Delete removes a rule.
func (r *AlertRuleRepository) Delete(ctx context.Context, id shared.ID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM alert_rules WHERE id = $1", id.String())
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return requireRowAffected(result, shared.ErrNotFound)
}

// List returns a page of rules matching the filter.
func (r *AlertRuleRepository) List(ctx context.Context, filter alertrule.Filter, page pagination.Pagination) (pagination.Result[*alertrule.Rule], error) {
	var conds []string
	var args []any

	if filter.Scope != nil {
		args = append(args, string(*filter.Scope))
		conds = append(conds, fmt.Sprintf("r.scope = $%d", len(args)))
	}
	if filter.Trigger != nil {
		args = append(args, string(*filter.Trigger))
		conds = append(conds, fmt.Sprintf("r.trigger_mode = $%d", len(args)))
	}
	if filter.Enabled != nil {
		args = append(args, *filter.Enabled)
		conds = append(conds, fmt.Sprintf("r.enabled = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alert_rules r"+where, args...).Scan(&total); err != nil {
		return pagination.Result[*alertrule.Rule]{}, fmt.Errorf("failed to count rules: %w", err)
	}

	query := fmt.Sprintf("%s%s ORDER BY r.created_at DESC LIMIT $%d OFFSET $%d",
		selectRuleQuery, where, len(args)+1, len(args)+2)
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return pagination.Result[*alertrule.Rule]{}, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	rules, err := scanRuleRows(rows)
	if err != nil {
		return pagination.Result[*alertrule.Rule]{}, err
	}
	return pagination.NewResult(rules, total, page), nil
}

// ListEnabled returns every armed rule for a scope and trigger.
func (r *AlertRuleRepository) ListEnabled(ctx context.Context, scope alertrule.Scope, trigger alertrule.Trigger) ([]*alertrule.Rule, error) {
	query := selectRuleQuery + " WHERE r.enabled AND r.scope = $1 AND r.trigger_mode = $2 ORDER BY r.created_at"
	rows, err := r.db.QueryContext(ctx, query, string(scope), string(trigger))
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled rules: %w", err)
	}
	defer rows.Close()
	return scanRuleRows(rows)
}

// IncrementMatches adds one to the match counter. The increment happens
// in the database so concurrent triggers never lose an update.
func (r *AlertRuleRepository) IncrementMatches(ctx context.Context, id shared.ID) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE alert_rules SET nb_matches = nb_matches + 1 WHERE id = $1", id.String())
	if err != nil {
		return fmt.Errorf("failed to increment rule matches: %w", err)
	}
	return requireRowAffected(result, shared.ErrNotFound)
}

// IncrementFailures adds one to the delivery failure counter.
func (r *AlertRuleRepository) IncrementFailures(ctx context.Context, id shared.ID) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE alert_rules SET nb_failures = nb_failures + 1 WHERE id = $1", id.String())
	if err != nil {
		return fmt.Errorf("failed to increment rule failures: %w", err)
	}
	return requireRowAffected(result, shared.ErrNotFound)
}

// ResetMatches zeroes both counters.
func (r *AlertRuleRepository) ResetMatches(ctx context.Context, id shared.ID) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE alert_rules SET nb_matches = 0, nb_failures = 0 WHERE id = $1", id.String())
	if err != nil {
		return fmt.Errorf("failed to reset rule counters: %w", err)
	}
	return requireRowAffected(result, shared.ErrNotFound)
}

const selectRuleQuery = `
	SELECT r.id, r.title, r.comments, r.scope, r.scope_attr,
	       r.condition_operator, r.condition_value, r.target, r.severity,
	       r.trigger_mode, r.enabled, r.nb_matches, r.nb_failures, r.owner_id,
	       r.created_at, r.updated_at
	FROM alert_rules r
`

func scanRuleRow(row rowScanner) (*alertrule.Rule, error) {
	var (
		idStr                string
		ownerID              sql.NullString
		rule                 alertrule.Rule
		createdAt, updatedAt time.Time
	)

	err := row.Scan(
		&idStr, &rule.Title, &rule.Comments, &rule.Scope, &rule.ScopeAttr,
		&rule.Condition.Operator, &rule.Condition.Value, &rule.Target, &rule.Severity,
		&rule.Trigger, &rule.Enabled, &rule.NbMatches, &rule.NbFailures, &ownerID,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.ID, err = shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rule id: %w", err)
	}
	rule.OwnerID = parseNullID(ownerID)
	rule.CreatedAt = createdAt
	rule.UpdatedAt = updatedAt
	return &rule, nil
}

func scanRuleRows(rows *sql.Rows) ([]*alertrule.Rule, error) {
	rules := make([]*alertrule.Rule, 0)
	for rows.Next() {
		rule, err := scanRuleRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return rules, nil
}
