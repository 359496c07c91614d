package handler

import (
	"net/http"
	"time"

	"github.com/vulnwatchio/api/internal/app"
	"github.com/vulnwatchio/api/pkg/apierror"
	"github.com/vulnwatchio/api/pkg/domain/assetgroup"
	"github.com/vulnwatchio/api/pkg/domain/risk"
	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/validator"
)

// AssetGroupHandler handles asset group endpoints.
type AssetGroupHandler struct {
	groups    *app.AssetGroupService
	grading   *app.GradingService
	validator *validator.Validator
}

// NewAssetGroupHandler creates a new AssetGroupHandler.
func NewAssetGroupHandler(
	groups *app.AssetGroupService,
	grading *app.GradingService,
	v *validator.Validator,
) *AssetGroupHandler {
	return &AssetGroupHandler{groups: groups, grading: grading, validator: v}
}

// AssetGroupResponse is the wire representation of an asset group.
type AssetGroupResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Criticity   string     `json:"criticity"`
	RiskLevel   risk.Level `json:"risk_level"`
	OwnerID     *string    `json:"owner_id,omitempty"`
	Description string     `json:"description,omitempty"`
	AssetIDs    []string   `json:"asset_ids"`
	CategoryIDs []string   `json:"category_ids"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toAssetGroupResponse(g *assetgroup.AssetGroup) AssetGroupResponse {
	resp := AssetGroupResponse{
		ID:          g.ID().String(),
		Name:        g.Name(),
		Criticity:   g.Criticity().String(),
		RiskLevel:   g.RiskLevel(),
		Description: g.Description(),
		AssetIDs:    make([]string, 0),
		CategoryIDs: make([]string, 0),
		CreatedAt:   g.CreatedAt(),
		UpdatedAt:   g.UpdatedAt(),
	}
	if g.OwnerID() != nil {
		owner := g.OwnerID().String()
		resp.OwnerID = &owner
	}
	for _, id := range g.AssetIDs() {
		resp.AssetIDs = append(resp.AssetIDs, id.String())
	}
	for _, id := range g.CategoryIDs() {
		resp.CategoryIDs = append(resp.CategoryIDs, id.String())
	}
	return resp
}

// Create handles POST /asset-groups.
func (h *AssetGroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input app.CreateAssetGroupInput
	if err := decodeJSON(w, r, &input); err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid request body"))
		return
	}
	if !validateInput(w, h.validator, input) {
		return
	}

	g, err := h.groups.CreateAssetGroup(r.Context(), input)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toAssetGroupResponse(g))
}

// Get handles GET /asset-groups/{id}.
func (h *AssetGroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid asset group ID"))
		return
	}

	g, err := h.groups.GetAssetGroup(r.Context(), id)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toAssetGroupResponse(g))
}

// List handles GET /asset-groups.
func (h *AssetGroupHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.groups.ListAssetGroups(r.Context(), parsePagination(r))
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newListResponse(result, toAssetGroupResponse))
}

// Update handles PATCH /asset-groups/{id}.
func (h *AssetGroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid asset group ID"))
		return
	}

	var input app.UpdateAssetGroupInput
	if err := decodeJSON(w, r, &input); err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid request body"))
		return
	}
	if !validateInput(w, h.validator, input) {
		return
	}

	g, err := h.groups.UpdateAssetGroup(r.Context(), id, input)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toAssetGroupResponse(g))
}

// Delete handles DELETE /asset-groups/{id}.
func (h *AssetGroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid asset group ID"))
		return
	}
	if err := h.groups.DeleteAssetGroup(r.Context(), id); err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// memberRequest is the body of membership add/remove calls.
type memberRequest struct {
	AssetIDs []string `json:"asset_ids" validate:"required,min=1,dive,uuid"`
}

func (h *AssetGroupHandler) decodeMembers(w http.ResponseWriter, r *http.Request) ([]shared.ID, bool) {
	var req memberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid request body"))
		return nil, false
	}
	if !validateInput(w, h.validator, req) {
		return nil, false
	}

	ids := make([]shared.ID, 0, len(req.AssetIDs))
	for _, raw := range req.AssetIDs {
		id, err := shared.IDFromString(raw)
		if err != nil {
			apierror.Write(w, apierror.NewBadRequest("invalid asset ID"))
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// AddAssets handles POST /asset-groups/{id}/assets.
func (h *AssetGroupHandler) AddAssets(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid asset group ID"))
		return
	}
	ids, ok := h.decodeMembers(w, r)
	if !ok {
		return
	}
	if err := h.groups.AddAssets(r.Context(), id, ids); err != nil {
		apierror.WriteError(w, err)
		return
	}

	g, err := h.groups.GetAssetGroup(r.Context(), id)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toAssetGroupResponse(g))
}

// RemoveAssets handles DELETE /asset-groups/{id}/assets.
func (h *AssetGroupHandler) RemoveAssets(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid asset group ID"))
		return
	}
	ids, ok := h.decodeMembers(w, r)
	if !ok {
		return
	}
	if err := h.groups.RemoveAssets(r.Context(), id, ids); err != nil {
		apierror.WriteError(w, err)
		return
	}

	g, err := h.groups.GetAssetGroup(r.Context(), id)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toAssetGroupResponse(g))
}

// RiskGrade handles GET /asset-groups/{id}/risk-grade.
func (h *AssetGroupHandler) RiskGrade(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid asset group ID"))
		return
	}

	var historyDays *int
	if raw := r.URL.Query().Get("history_days"); raw != "" {
		days := parseQueryInt(raw, -1)
		if days < 1 {
			apierror.Write(w, apierror.NewBadRequest("history_days must be a positive integer"))
			return
		}
		historyDays = &days
	}

	level, err := h.grading.CalcGroupRiskGrade(r.Context(), id, historyDays)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, RiskGradeResponse{
		GroupID:     id.String(),
		RiskLevel:   level,
		HistoryDays: historyDays,
	})
}
