// Package handler implements the JSON HTTP handlers.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vulnwatchio/api/pkg/apierror"
	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/pagination"
	"github.com/vulnwatchio/api/pkg/validator"
)

// ListResponse represents a paginated list response.
type ListResponse[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
}

// newListResponse maps a pagination result to the wire shape.
func newListResponse[T, U any](result pagination.Result[T], mapper func(T) U) ListResponse[U] {
	data := make([]U, 0, len(result.Data))
	for _, item := range result.Data {
		data = append(data, mapper(item))
	}
	return ListResponse[U]{
		Data:       data,
		Total:      result.Total,
		Page:       result.Page,
		PerPage:    result.PerPage,
		TotalPages: result.TotalPages,
	}
}

// respondJSON writes the payload as JSON with the given status.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// decodeJSON decodes and size-limits the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// validateInput runs struct validation and writes the error response on
// failure, reporting whether the input passed.
func validateInput(w http.ResponseWriter, v *validator.Validator, input any) bool {
	err := v.Validate(input)
	if err == nil {
		return true
	}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		apierror.Write(w, apierror.NewValidation("validation failed", verrs))
		return false
	}
	apierror.WriteError(w, err)
	return false
}

// urlID parses a path parameter as an entity ID.
func urlID(r *http.Request, param string) (shared.ID, error) {
	return shared.IDFromString(chi.URLParam(r, param))
}

// parsePagination reads page and per_page query parameters.
func parsePagination(r *http.Request) pagination.Pagination {
	return pagination.New(
		parseQueryInt(r.URL.Query().Get("page"), pagination.DefaultPage),
		parseQueryInt(r.URL.Query().Get("per_page"), pagination.DefaultPerPage),
	)
}

// parseQueryInt parses a query parameter as an integer.
func parseQueryInt(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return val
}

// parseQueryArray parses a comma-separated query parameter.
func parseQueryArray(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
