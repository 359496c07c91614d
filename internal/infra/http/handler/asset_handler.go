package handler

import (
	"net/http"
	"time"

	"github.com/vulnwatchio/api/internal/app"
	"github.com/vulnwatchio/api/pkg/apierror"
	"github.com/vulnwatchio/api/pkg/domain/asset"
	"github.com/vulnwatchio/api/pkg/domain/risk"
	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/validator"
)

// AssetHandler handles asset endpoints.
type AssetHandler struct {
	assets     *app.AssetService
	grading    *app.GradingService
	categories *app.CategoryService
	validator  *validator.Validator
}

// NewAssetHandler creates a new AssetHandler.
func NewAssetHandler(
	assets *app.AssetService,
	grading *app.GradingService,
	categories *app.CategoryService,
	v *validator.Validator,
) *AssetHandler {
	return &AssetHandler{
		assets:     assets,
		grading:    grading,
		categories: categories,
		validator:  v,
	}
}

// AssetResponse is the wire representation of an asset.
type AssetResponse struct {
	ID          string     `json:"id"`
	Value       string     `json:"value"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Criticity   string     `json:"criticity"`
	RiskLevel   risk.Level `json:"risk_level"`
	RiskScore   int        `json:"risk_score"`
	OwnerID     *string    `json:"owner_id,omitempty"`
	Description string     `json:"description,omitempty"`
	CategoryIDs []string   `json:"category_ids"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toAssetResponse(a *asset.Asset) AssetResponse {
	resp := AssetResponse{
		ID:          a.ID().String(),
		Value:       a.Value(),
		Name:        a.Name(),
		Type:        a.Type().String(),
		Criticity:   a.Criticity().String(),
		RiskLevel:   a.RiskLevel(),
		RiskScore:   risk.Score(a.RiskLevel()),
		Description: a.Description(),
		CategoryIDs: make([]string, 0),
		CreatedAt:   a.CreatedAt(),
		UpdatedAt:   a.UpdatedAt(),
	}
	if a.OwnerID() != nil {
		owner := a.OwnerID().String()
		resp.OwnerID = &owner
	}
	for _, id := range a.CategoryIDs() {
		resp.CategoryIDs = append(resp.CategoryIDs, id.String())
	}
	return resp
}

// Create handles POST /assets.
func (h *AssetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input app.CreateAssetInput
	if err := decodeJSON(w, r, &input); err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid request body"))
		return
	}
	if !validateInput(w, h.validator, input) {
		return
	}

	a, err := h.assets.CreateAsset(r.Context(), input)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toAssetResponse(a))
}

// Get handles GET /assets/{id}.
func (h *AssetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid asset ID"))
		return
	}

	a, err := h.assets.GetAsset(r.Context(), id)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toAssetResponse(a))
}

// List handles GET /assets.
func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := asset.Filter{Search: q.Get("search")}
	for _, t := range parseQueryArray(q.Get("types")) {
		filter.Types = append(filter.Types, asset.Type(t))
	}
	for _, c := range parseQueryArray(q.Get("criticities")) {
		filter.Criticities = append(filter.Criticities, asset.Criticity(c))
	}
	if raw := q.Get("owner_id"); raw != "" {
		ownerID, err := shared.IDFromString(raw)
		if err != nil {
			apierror.Write(w, apierror.NewBadRequest("invalid owner ID"))
			return
		}
		filter.OwnerID = &ownerID
	}

	result, err := h.assets.ListAssets(r.Context(), filter, parsePagination(r))
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newListResponse(result, toAssetResponse))
}

// Update handles PATCH /assets/{id}.
func (h *AssetHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid asset ID"))
		return
	}

	var input app.UpdateAssetInput
	if err := decodeJSON(w, r, &input); err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid request body"))
		return
	}
	if !validateInput(w, h.validator, input) {
		return
	}

	a, err := h.assets.UpdateAsset(r.Context(), id, input)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toAssetResponse(a))
}

// Delete handles DELETE /assets/{id}.
func (h *AssetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid asset ID"))
		return
	}
	if err := h.assets.DeleteAsset(r.Context(), id); err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// RiskGradeResponse is the wire representation of a grade computation.
type RiskGradeResponse struct {
	AssetID     string     `json:"asset_id,omitempty"`
	GroupID     string     `json:"group_id,omitempty"`
	RiskLevel   risk.Level `json:"risk_level"`
	HistoryDays *int       `json:"history_days,omitempty"`
}

// RiskGrade handles GET /assets/{id}/risk-grade. The history_days
// query parameter computes a retroactive grade without persisting it.
func (h *AssetHandler) RiskGrade(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid asset ID"))
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

	level, err := h.grading.CalcAssetRiskGrade(r.Context(), id, historyDays)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, RiskGradeResponse{
		AssetID:     id.String(),
		RiskLevel:   level,
		HistoryDays: historyDays,
	})
}

// RiskGradeTrend handles GET /assets/{id}/risk-grade-trend?days=7,30,90.
func (h *AssetHandler) RiskGradeTrend(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid asset ID"))
		return
	}

	days := []int{7, 30, 90}
	if raw := r.URL.Query().Get("days"); raw != "" {
		days = days[:0]
		for _, s := range parseQueryArray(raw) {
			d := parseQueryInt(s, -1)
			if d < 0 {
				apierror.Write(w, apierror.NewBadRequest("days must be non-negative integers"))
				return
			}
			days = append(days, d)
		}
	}

	trend, err := h.grading.GradeTrend(r.Context(), id, days)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"asset_id": id.String(),
		"trend":    trend,
	})
}

// RiskScore handles GET /assets/{id}/risk-score.
func (h *AssetHandler) RiskScore(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid asset ID"))
		return
	}

	force := r.URL.Query().Get("force") == "true"
	score, err := h.grading.AssetRiskScore(r.Context(), id, force)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"asset_id":   id.String(),
		"risk_score": score,
	})
}

// TopRisk handles GET /assets/top-risk.
func (h *AssetHandler) TopRisk(w http.ResponseWriter, r *http.Request) {
	limit := parseQueryInt(r.URL.Query().Get("limit"), 10)
	assets, err := h.grading.TopRiskAssets(r.Context(), limit)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}

	data := make([]AssetResponse, 0, len(assets))
	for _, a := range assets {
		data = append(data, toAssetResponse(a))
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": data})
}

// AssignCategory handles POST /assets/{id}/categories/{categoryID}.
func (h *AssetHandler) AssignCategory(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid asset ID"))
		return
	}
	categoryID, err := urlID(r, "categoryID")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid category ID"))
		return
	}

	a, err := h.categories.AssignToAsset(r.Context(), id, categoryID)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toAssetResponse(a))
}

// UnassignCategory handles DELETE /assets/{id}/categories/{categoryID}.
func (h *AssetHandler) UnassignCategory(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid asset ID"))
		return
	}
	categoryID, err := urlID(r, "categoryID")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid category ID"))
		return
	}

	a, err := h.categories.UnassignFromAsset(r.Context(), id, categoryID)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toAssetResponse(a))
}
