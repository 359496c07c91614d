package handler

import (
	"net/http"
	"time"

	"github.com/vulnwatchio/api/internal/app"
	"github.com/vulnwatchio/api/pkg/apierror"
	"github.com/vulnwatchio/api/pkg/domain/alertrule"
	"github.com/vulnwatchio/api/pkg/domain/finding"
	"github.com/vulnwatchio/api/pkg/validator"
)

// FindingHandler handles finding endpoints.
type FindingHandler struct {
	findings  *app.FindingService
	rules     *app.AlertRuleService
	validator *validator.Validator
}

// NewFindingHandler creates a new FindingHandler.
func NewFindingHandler(
	findings *app.FindingService,
	rules *app.AlertRuleService,
	v *validator.Validator,
) *FindingHandler {
	return &FindingHandler{findings: findings, rules: rules, validator: v}
}

// FindingResponse is the wire representation of a finding.
type FindingResponse struct {
	ID          string           `json:"id"`
	AssetID     string           `json:"asset_id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Type        string           `json:"type,omitempty"`
	Hash        string           `json:"hash,omitempty"`
	Solution    string           `json:"solution,omitempty"`
	Severity    string           `json:"severity"`
	Status      string           `json:"status"`
	RiskInfo    finding.RiskInfo `json:"risk_info"`
	Tags        []string         `json:"tags"`
	Comments    string           `json:"comments,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func toFindingResponse(f *finding.Finding) FindingResponse {
	tags := f.Tags
	if tags == nil {
		tags = []string{}
	}
	return FindingResponse{
		ID:          f.ID.String(),
		AssetID:     f.AssetID.String(),
		Title:       f.Title,
		Description: f.Description,
		Type:        f.Type,
		Hash:        f.Hash,
		Solution:    f.Solution,
		Severity:    f.Severity.String(),
		Status:      string(f.Status),
		RiskInfo:    f.RiskInfo,
		Tags:        tags,
		Comments:    f.Comments,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Create handles POST /findings.
func (h *FindingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input app.CreateFindingInput
	if err := decodeJSON(w, r, &input); err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid request body"))
		return
	}
	if !validateInput(w, h.validator, input) {
		return
	}

	f, err := h.findings.CreateFinding(r.Context(), input)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toFindingResponse(f))
}

// Get handles GET /findings/{id}.
func (h *FindingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid finding ID"))
		return
	}

	f, err := h.findings.GetFinding(r.Context(), id)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toFindingResponse(f))
}

// ListByAsset handles GET /assets/{id}/findings.
func (h *FindingHandler) ListByAsset(w http.ResponseWriter, r *http.Request) {
	assetID, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid asset ID"))
		return
	}

	result, err := h.findings.ListFindings(r.Context(), assetID, parsePagination(r))
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newListResponse(result, toFindingResponse))
}

// Acknowledge handles POST /findings/{id}/ack.
func (h *FindingHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid finding ID"))
		return
	}

	f, err := h.findings.AcknowledgeFinding(r.Context(), id)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toFindingResponse(f))
}

// Reopen handles POST /findings/{id}/reopen.
func (h *FindingHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid finding ID"))
		return
	}

	f, err := h.findings.ReopenFinding(r.Context(), id)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toFindingResponse(f))
}

// commentsRequest is the body of comment update calls.
type commentsRequest struct {
	Comments string `json:"comments" validate:"max=5000"`
}

// UpdateComments handles PUT /findings/{id}/comments.
func (h *FindingHandler) UpdateComments(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid finding ID"))
		return
	}

	var req commentsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid request body"))
		return
	}
	if !validateInput(w, h.validator, req) {
		return
	}

	f, err := h.findings.UpdateComments(r.Context(), id, req.Comments)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toFindingResponse(f))
}

// Delete handles DELETE /findings/{id}.
func (h *FindingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid finding ID"))
		return
	}
	if err := h.findings.DeleteFinding(r.Context(), id); err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// fireAlertRequest is the body of a manual alert dispatch.
type fireAlertRequest struct {
	Target   string `json:"target" validate:"required,rule_target"`
	Severity string `json:"severity" validate:"omitempty,rule_severity"`
}

// FireAlert handles POST /findings/{id}/alert. It dispatches a one-off
// alert for the finding to the chosen channel.
func (h *FindingHandler) FireAlert(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid finding ID"))
		return
	}

	var req fireAlertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid request body"))
		return
	}
	if !validateInput(w, h.validator, req) {
		return
	}

	err = h.rules.FireFindingAlert(r.Context(), id,
		alertrule.Target(req.Target), alertrule.Severity(req.Severity))
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
