package finding

import (
	"context"
	"time"

	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/pagination"
)

// Repository defines persistence operations for findings.
type Repository interface {
	Create(ctx context.Context, f *Finding) error
	GetByID(ctx context.Context, id shared.ID) (*Finding, error)
	Update(ctx context.Context, f *Finding) error
	Delete(ctx context.Context, id shared.ID) error
	List(ctx context.Context, assetID shared.ID, page pagination.Pagination) (pagination.Result[*Finding], error)

	// ListByAsset returns every finding of the asset. A non-nil
	// createdBefore restricts the set to findings created at or before
	// that instant, which backs retroactive grade computation.
	ListByAsset(ctx context.Context, assetID shared.ID, createdBefore *time.Time) ([]*Finding, error)

	// ListByAssets returns findings across a set of assets, used for
	// asset group roll-ups.
	ListByAssets(ctx context.Context, assetIDs []shared.ID, createdBefore *time.Time) ([]*Finding, error)
}
