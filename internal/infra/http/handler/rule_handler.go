package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/vulnwatchio/api/internal/app"
	"github.com/vulnwatchio/api/pkg/apierror"
	"github.com/vulnwatchio/api/pkg/domain/alertrule"
	"github.com/vulnwatchio/api/pkg/validator"
)

// RuleHandler handles alert rule endpoints.
type RuleHandler struct {
	rules     *app.AlertRuleService
	validator *validator.Validator
}

// NewRuleHandler creates a new RuleHandler.
func NewRuleHandler(rules *app.AlertRuleService, v *validator.Validator) *RuleHandler {
	return &RuleHandler{rules: rules, validator: v}
}

// RuleResponse is the wire representation of an alert rule.
type RuleResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Comments   string    `json:"comments,omitempty"`
	Scope      string    `json:"scope"`
	ScopeAttr  string    `json:"scope_attr"`
	Operator   string    `json:"operator"`
	Value      string    `json:"value"`
	Target     string    `json:"target"`
	Severity   string    `json:"severity"`
	Trigger    string    `json:"trigger"`
	Enabled    bool      `json:"enabled"`
	NbMatches  int64     `json:"nb_matches"`
	NbFailures int64     `json:"nb_failures"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toRuleResponse(rule *alertrule.Rule) RuleResponse {
	return RuleResponse{
		ID:         rule.ID.String(),
		Title:      rule.Title,
		Comments:   rule.Comments,
		Scope:      string(rule.Scope),
		ScopeAttr:  rule.ScopeAttr,
		Operator:   string(rule.Condition.Operator),
		Value:      rule.Condition.Value,
		Target:     string(rule.Target),
		Severity:   string(rule.Severity),
		Trigger:    string(rule.Trigger),
		Enabled:    rule.Enabled,
		NbMatches:  rule.NbMatches,
		NbFailures: rule.NbFailures,
		CreatedAt:  rule.CreatedAt,
		UpdatedAt:  rule.UpdatedAt,
	}
}

// Create handles POST /rules.
func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input app.CreateRuleInput
	if err := decodeJSON(w, r, &input); err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid request body"))
		return
	}
	if !validateInput(w, h.validator, input) {
		return
	}

	rule, err := h.rules.CreateRule(r.Context(), input)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toRuleResponse(rule))
}

// Get handles GET /rules/{id}.
func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid rule ID"))
		return
	}

	rule, err := h.rules.GetRule(r.Context(), id)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toRuleResponse(rule))
}

// List handles GET /rules.
func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter alertrule.Filter
	if raw := q.Get("scope"); raw != "" {
		scope := alertrule.Scope(raw)
		filter.Scope = &scope
	}
	if raw := q.Get("trigger"); raw != "" {
		trigger := alertrule.Trigger(raw)
		filter.Trigger = &trigger
	}
	if raw := q.Get("enabled"); raw != "" {
		enabled := raw == "true"
		filter.Enabled = &enabled
	}

	result, err := h.rules.ListRules(r.Context(), filter, parsePagination(r))
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newListResponse(result, toRuleResponse))
}

// Update handles PATCH /rules/{id}.
func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid rule ID"))
		return
	}

	var input app.UpdateRuleInput
	if err := decodeJSON(w, r, &input); err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid request body"))
		return
	}
	if !validateInput(w, h.validator, input) {
		return
	}

	rule, err := h.rules.UpdateRule(r.Context(), id, input)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toRuleResponse(rule))
}

// Delete handles DELETE /rules/{id}.
func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid rule ID"))
		return
	}
	if err := h.rules.DeleteRule(r.Context(), id); err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Run handles POST /rules/{id}/run. It fires the rule on demand across
// every entity of its scope and reports the number of matches.
func (h *RuleHandler) Run(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid rule ID"))
		return
	}

	matches, err := h.rules.RunRule(r.Context(), id)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"rule_id": id.String(),
		"matches": matches,
	})
}

// ResetCounters handles POST /rules/{id}/reset-counters.
func (h *RuleHandler) ResetCounters(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid rule ID"))
		return
	}
	if err := h.rules.ResetCounters(r.Context(), id); err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// Attributes handles GET /rules/attributes. It lists the queryable
// attributes and operators per scope so clients can build rule forms.
func (h *RuleHandler) Attributes(w http.ResponseWriter, r *http.Request) {
	type attrResponse struct {
		Name        string   `json:"name"`
		Type        string   `json:"type"`
		Operators   []string `json:"operators"`
		LegalValues []string `json:"legal_values,omitempty"`
	}

	out := make(map[string][]attrResponse)
	for _, scope := range []alertrule.Scope{alertrule.ScopeAsset, alertrule.ScopeFinding, alertrule.ScopeScan} {
		names := alertrule.AttributeNames(scope)
		sort.Strings(names)
		for _, name := range names {
			attr, ok := alertrule.LookupAttribute(scope, name)
			if !ok {
				continue
			}
			ops := make([]string, 0)
			for _, op := range attr.Type.Operators() {
				ops = append(ops, string(op))
			}
			out[string(scope)] = append(out[string(scope)], attrResponse{
				Name:        name,
				Type:        string(attr.Type),
				Operators:   ops,
				LegalValues: attr.Values,
			})
		}
	}
	respondJSON(w, http.StatusOK, out)
}
