package assetgroup

import (
	"context"

	"github.com/vulnwatchio/api/pkg/domain/risk"
	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/pagination"
)

// Repository defines persistence operations for asset groups.
type Repository interface {
	Create(ctx context.Context, g *AssetGroup) error
	GetByID(ctx context.Context, id shared.ID) (*AssetGroup, error)
	Update(ctx context.Context, g *AssetGroup) error
	Delete(ctx context.Context, id shared.ID) error
	List(ctx context.Context, page pagination.Pagination) (pagination.Result[*AssetGroup], error)
	ExistsByName(ctx context.Context, name string) (bool, error)

	AddAssets(ctx context.Context, groupID shared.ID, assetIDs []shared.ID) error
	RemoveAssets(ctx context.Context, groupID shared.ID, assetIDs []shared.ID) error
	MemberIDs(ctx context.Context, groupID shared.ID) ([]shared.ID, error)

	// GroupsOfAsset returns every group the asset belongs to, used to
	// re-derive group grades after a member's findings change.
	GroupsOfAsset(ctx context.Context, assetID shared.ID) ([]*AssetGroup, error)

	// UpdateRiskLevel persists a freshly computed risk level cache.
	UpdateRiskLevel(ctx context.Context, id shared.ID, level risk.Level) error
}
