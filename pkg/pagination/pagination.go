// Package pagination provides pagination utilities.
package pagination

// Default pagination bounds.
const (
	DefaultPage    = 1
	DefaultPerPage = 25
	MaxPerPage     = 100
)

// Pagination holds pagination parameters.
type Pagination struct {
	Page    int
	PerPage int
}

// New creates a Pagination clamped to sane bounds.
func New(page, perPage int) Pagination {
	if page < 1 {
		page = DefaultPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Pagination{Page: page, PerPage: perPage}
}

// Offset returns the SQL offset for the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Limit returns the SQL limit for the current page.
func (p Pagination) Limit() int {
	return p.PerPage
}

// Result holds a page of data with totals.
type Result[T any] struct {
	Data       []T
	Total      int64
	Page       int
	PerPage    int
	TotalPages int
}

// NewResult builds a Result computing the page count.
func NewResult[T any](data []T, total int64, page Pagination) Result[T] {
	totalPages := 0
	if page.PerPage > 0 {
		totalPages = int((total + int64(page.PerPage) - 1) / int64(page.PerPage))
	}
	return Result[T]{
		Data:       data,
		Total:      total,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalPages: totalPages,
	}
}
