package asset

import (
	"context"

	"github.com/vulnwatchio/api/pkg/domain/risk"
	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/pagination"
)

// Filter holds query filters for listing assets.
type Filter struct {
	Search      string
	Types       []Type
	Criticities []Criticity
	CategoryIDs []shared.ID
	OwnerID     *shared.ID
}

// Repository defines persistence operations for assets.
type Repository interface {
	Create(ctx context.Context, a *Asset) error
	GetByID(ctx context.Context, id shared.ID) (*Asset, error)
	GetByValue(ctx context.Context, value string) (*Asset, error)
	Update(ctx context.Context, a *Asset) error
	Delete(ctx context.Context, id shared.ID) error
	List(ctx context.Context, filter Filter, page pagination.Pagination) (pagination.Result[*Asset], error)
	ExistsByValue(ctx context.Context, value string) (bool, error)

	// UpdateRiskLevel persists a freshly computed risk level cache for
	// the asset. Last writer wins; the computation is deterministic for
	// a given finding snapshot so no locking is required.
	UpdateRiskLevel(ctx context.Context, id shared.ID, level risk.Level) error

	// ListTopByRiskScore returns assets ordered by descending risk
	// score, used for "riskiest assets" rankings.
	ListTopByRiskScore(ctx context.Context, limit int) ([]*Asset, error)
}
