package handler

import (
	"net/http"
	"time"

	"github.com/vulnwatchio/api/internal/app"
	"github.com/vulnwatchio/api/pkg/apierror"
	"github.com/vulnwatchio/api/pkg/domain/scan"
	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/validator"
)

// ScanHandler receives scan status events from external scanners. Scans
// are not persisted here; each event is evaluated against the enabled
// scan-scoped rules and dropped.
type ScanHandler struct {
	rules     *app.AlertRuleService
	validator *validator.Validator
}

// NewScanHandler creates a new ScanHandler.
func NewScanHandler(rules *app.AlertRuleService, v *validator.Validator) *ScanHandler {
	return &ScanHandler{rules: rules, validator: v}
}

type scanEventRequest struct {
	AssetID    string     `json:"asset_id" validate:"required,uuid"`
	EngineName string     `json:"engine_name" validate:"required,max=128"`
	Status     string     `json:"status" validate:"required,oneof=started finished error"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

// Event handles POST /scans/events.
func (h *ScanHandler) Event(w http.ResponseWriter, r *http.Request) {
	var req scanEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid request body"))
		return
	}
	if !validateInput(w, h.validator, req) {
		return
	}

	assetID, err := shared.IDFromString(req.AssetID)
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid asset ID"))
		return
	}

	sc := &scan.Scan{
		ID:         shared.NewID(),
		AssetID:    assetID,
		EngineName: req.EngineName,
		Status:     scan.Status(req.Status),
		FinishedAt: req.FinishedAt,
	}
	if req.StartedAt != nil {
		sc.StartedAt = *req.StartedAt
	}

	if err := h.rules.EvaluateScan(r.Context(), sc); err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
