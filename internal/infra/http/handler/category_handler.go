package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/vulnwatchio/api/internal/app"
	"github.com/vulnwatchio/api/pkg/apierror"
	"github.com/vulnwatchio/api/pkg/domain/category"
	"github.com/vulnwatchio/api/pkg/validator"
)

// CategoryHandler handles category tag endpoints.
type CategoryHandler struct {
	categories *app.CategoryService
	validator  *validator.Validator
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categories *app.CategoryService, v *validator.Validator) *CategoryHandler {
	return &CategoryHandler{categories: categories, validator: v}
}

// CategoryResponse is the wire representation of a category.
type CategoryResponse struct {
	ID        string    `json:"id"`
	ParentID  *string   `json:"parent_id,omitempty"`
	Value     string    `json:"value"`
	Comments  string    `json:"comments,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCategoryResponse(c *category.Category) CategoryResponse {
	resp := CategoryResponse{
		ID:        c.ID.String(),
		Value:     c.Value,
		Comments:  c.Comments,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.ParentID != nil {
		parent := c.ParentID.String()
		resp.ParentID = &parent
	}
	return resp
}

// CategoryNode is one node of the rendered category tree.
type CategoryNode struct {
	CategoryResponse
	Children []CategoryNode `json:"children"`
}

// Create handles POST /categories.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input app.CreateCategoryInput
	if err := decodeJSON(w, r, &input); err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid request body"))
		return
	}
	if !validateInput(w, h.validator, input) {
		return
	}

	c, err := h.categories.CreateCategory(r.Context(), input)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCategoryResponse(c))
}

// Get handles GET /categories/{id}.
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid category ID"))
		return
	}

	c, err := h.categories.GetCategory(r.Context(), id)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toCategoryResponse(c))
}

// List handles GET /categories.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.ListCategories(r.Context())
	if err != nil {
		apierror.WriteError(w, err)
		return
	}

	data := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		data = append(data, toCategoryResponse(c))
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": data})
}

// Tree handles GET /categories/tree. It renders the full tag hierarchy,
// roots and children sorted by value.
func (h *CategoryHandler) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.categories.Tree(r.Context())
	if err != nil {
		apierror.WriteError(w, err)
		return
	}

	roots := tree.Roots()
	sortCategories(roots)

	data := make([]CategoryNode, 0, len(roots))
	for _, root := range roots {
		data = append(data, renderNode(tree, root))
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": data})
}

func renderNode(tree *category.Tree, c *category.Category) CategoryNode {
	node := CategoryNode{
		CategoryResponse: toCategoryResponse(c),
		Children:         make([]CategoryNode, 0),
	}

	var children []*category.Category
	for _, id := range tree.Descendants(c.ID) {
		child, ok := tree.Get(id)
		if !ok || child.ParentID == nil || !child.ParentID.Equals(c.ID) {
			continue
		}
		children = append(children, child)
	}
	sortCategories(children)

	for _, child := range children {
		node.Children = append(node.Children, renderNode(tree, child))
	}
	return node
}

func sortCategories(categories []*category.Category) {
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Value < categories[j].Value
	})
}

// Delete handles DELETE /categories/{id}. The whole subtree is removed
// and the deleted tags are stripped from assets and groups.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		apierror.Write(w, apierror.NewBadRequest("invalid category ID"))
		return
	}
	if err := h.categories.DeleteCategory(r.Context(), id); err != nil {
		apierror.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
