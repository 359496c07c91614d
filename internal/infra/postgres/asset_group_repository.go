package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/vulnwatchio/api/pkg/domain/asset"
	"github.com/vulnwatchio/api/pkg/domain/assetgroup"
	"github.com/vulnwatchio/api/pkg/domain/risk"
	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/pagination"
)

// AssetGroupRepository implements assetgroup.Repository using PostgreSQL.
// Membership lives in the asset_group_members join table.
type AssetGroupRepository struct {
	db *DB
}

// NewAssetGroupRepository creates a new AssetGroupRepository.
func NewAssetGroupRepository(db *DB) *AssetGroupRepository {
	return &AssetGroupRepository{db: db}
}

// Create persists a new asset group and its initial members.
func (r *AssetGroupRepository) Create(ctx context.Context, g *assetgroup.AssetGroup) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO asset_groups (
				id, name, criticity, owner_id, description, category_ids,
				risk_info, risk_low, risk_medium, risk_high, risk_critical, risk_total,
				risk_grade, risk_score, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`
		level := g.RiskLevel()
		_, err := tx.ExecContext(ctx, query,
			g.ID().String(),
			g.Name(),
			g.Criticity().String(),
			nullID(g.OwnerID()),
			g.Description(),
			pq.Array(idStrings(g.CategoryIDs())),
			level.Info,
			level.Low,
			level.Medium,
			level.High,
			level.Critical,
			level.Total,
			level.Grade,
			risk.Score(level),
			g.CreatedAt(),
			g.UpdatedAt(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: asset group %q", shared.ErrAlreadyExists, g.Name())
			}
			return fmt.Errorf("failed to create asset group: %w", err)
		}
		return insertMembers(ctx, tx, g.ID(), g.AssetIDs())
	})
}

// GetByID retrieves an asset group with its member IDs.
func (r *AssetGroupRepository) GetByID(ctx context.Context, id shared.ID) (*assetgroup.AssetGroup, error) {
	query := selectAssetGroupQuery + " WHERE g.id = $1"
	g, err := scanAssetGroupRow(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: asset group", shared.ErrNotFound)
		}
		return nil, err
	}
	return g, nil
}

// Update updates an existing asset group, including its risk cache.
// Membership is managed through AddAssets and RemoveAssets.
func (r *AssetGroupRepository) Update(ctx context.Context, g *assetgroup.AssetGroup) error {
	query := `
		UPDATE asset_groups
		SET name = $2, criticity = $3, owner_id = $4, description = $5, category_ids = $6,
		    risk_info = $7, risk_low = $8, risk_medium = $9, risk_high = $10,
		    risk_critical = $11, risk_total = $12, risk_grade = $13, risk_score = $14,
		    updated_at = $15
		WHERE id = $1
	`
	level := g.RiskLevel()
	result, err := r.db.ExecContext(ctx, query,
		g.ID().String(),
		g.Name(),
		g.Criticity().String(),
		nullID(g.OwnerID()),
		g.Description(),
		pq.Array(idStrings(g.CategoryIDs())),
		level.Info,
		level.Low,
		level.Medium,
		level.High,
		level.Critical,
		level.Total,
		level.Grade,
		risk.Score(level),
		g.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update asset group: %w", err)
	}
	return requireRowAffected(result, shared.ErrNotFound)
}

// Delete removes an asset group and its memberships.
func (r *AssetGroupRepository) Delete(ctx context.Context, id shared.ID) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM asset_group_members WHERE group_id = $1", id.String()); err != nil {
			return fmt.Errorf("failed to delete group members: %w", err)
		}
		result, err := tx.ExecContext(ctx,
			"DELETE FROM asset_groups WHERE id = $1", id.String())
		if err != nil {
			return fmt.Errorf("failed to delete asset group: %w", err)
		}
		return requireRowAffected(result, shared.ErrNotFound)
	})
}

// List returns a page of asset groups.
func (r *AssetGroupRepository) List(ctx context.Context, page pagination.Pagination) (pagination.Result[*assetgroup.AssetGroup], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM asset_groups").Scan(&total); err != nil {
		return pagination.Result[*assetgroup.AssetGroup]{}, fmt.Errorf("failed to count asset groups: %w", err)
	}

	query := selectAssetGroupQuery + " ORDER BY g.created_at DESC LIMIT $1 OFFSET $2"
	rows, err := r.db.QueryContext(ctx, query, page.Limit(), page.Offset())
	if err != nil {
		return pagination.Result[*assetgroup.AssetGroup]{}, fmt.Errorf("failed to list asset groups: %w", err)
	}
	defer rows.Close()

	groups := make([]*assetgroup.AssetGroup, 0)
	for rows.Next() {
		g, err := scanAssetGroupRow(rows)
		if err != nil {
			return pagination.Result[*assetgroup.AssetGroup]{}, fmt.Errorf("failed to scan asset group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return pagination.Result[*assetgroup.AssetGroup]{}, fmt.Errorf("failed to iterate asset groups: %w", err)
	}
	return pagination.NewResult(groups, total, page), nil
}

// ExistsByName reports whether a group with the given name exists.
func (r *AssetGroupRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM asset_groups WHERE name = $1)", name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check asset group existence: %w", err)
	}
	return exists, nil
}

// AddAssets adds member assets to the group. Existing memberships are
// left untouched.
func (r *AssetGroupRepository) AddAssets(ctx context.Context, groupID shared.ID, assetIDs []shared.ID) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		return insertMembers(ctx, tx, groupID, assetIDs)
	})
}

// RemoveAssets removes member assets from the group.
func (r *AssetGroupRepository) RemoveAssets(ctx context.Context, groupID shared.ID, assetIDs []shared.ID) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM asset_group_members WHERE group_id = $1 AND asset_id = ANY($2)",
		groupID.String(), pq.Array(idStrings(assetIDs)))
	if err != nil {
		return fmt.Errorf("failed to remove group members: %w", err)
	}
	return nil
}

// MemberIDs returns the asset IDs belonging to the group.
func (r *AssetGroupRepository) MemberIDs(ctx context.Context, groupID shared.ID) ([]shared.ID, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT asset_id FROM asset_group_members WHERE group_id = $1", groupID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	ids := make([]shared.ID, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan member id: %w", err)
		}
		id, err := shared.IDFromString(s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse member id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}
	return ids, nil
}

// GroupsOfAsset returns every group the asset belongs to.
func (r *AssetGroupRepository) GroupsOfAsset(ctx context.Context, assetID shared.ID) ([]*assetgroup.AssetGroup, error) {
	query := selectAssetGroupQuery + `
		JOIN asset_group_members gm ON gm.group_id = g.id
		WHERE gm.asset_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, assetID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list groups of asset: %w", err)
	}
	defer rows.Close()

	groups := make([]*assetgroup.AssetGroup, 0)
	for rows.Next() {
		g, err := scanAssetGroupRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups of asset: %w", err)
	}
	return groups, nil
}

// UpdateRiskLevel persists a freshly computed risk level cache.
func (r *AssetGroupRepository) UpdateRiskLevel(ctx context.Context, id shared.ID, level risk.Level) error {
	query := `
		UPDATE asset_groups
		SET risk_info = $2, risk_low = $3, risk_medium = $4, risk_high = $5,
		    risk_critical = $6, risk_total = $7, risk_grade = $8, risk_score = $9,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		id.String(),
		level.Info,
		level.Low,
		level.Medium,
		level.High,
		level.Critical,
		level.Total,
		level.Grade,
		risk.Score(level),
	)
	if err != nil {
		return fmt.Errorf("failed to update group risk level: %w", err)
	}
	return requireRowAffected(result, shared.ErrNotFound)
}

const selectAssetGroupQuery = `
	SELECT g.id, g.name, g.criticity, g.owner_id, g.description, g.category_ids,
	       g.risk_info, g.risk_low, g.risk_medium, g.risk_high, g.risk_critical,
	       g.risk_total, g.risk_grade,
	       COALESCE(
	           (SELECT array_agg(gm.asset_id) FROM asset_group_members gm WHERE gm.group_id = g.id),
	           '{}'
	       ) AS asset_ids,
	       g.created_at, g.updated_at
	FROM asset_groups g
`

func scanAssetGroupRow(row rowScanner) (*assetgroup.AssetGroup, error) {
	var (
		idStr, name, criticity, description string
		ownerID                             sql.NullString
		categoryIDs, assetIDs               pq.StringArray
		level                               risk.Level
		createdAt, updatedAt                sql.NullTime
	)

	err := row.Scan(
		&idStr, &name, &criticity, &ownerID, &description, &categoryIDs,
		&level.Info, &level.Low, &level.Medium, &level.High, &level.Critical,
		&level.Total, &level.Grade,
		&assetIDs,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse group id: %w", err)
	}

	return assetgroup.Reconstitute(
		id,
		name,
		asset.Criticity(criticity),
		level,
		parseNullID(ownerID),
		description,
		parseIDs(assetIDs),
		parseIDs(categoryIDs),
		createdAt.Time,
		updatedAt.Time,
	), nil
}

func insertMembers(ctx context.Context, tx *sql.Tx, groupID shared.ID, assetIDs []shared.ID) error {
	for _, assetID := range assetIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO asset_group_members (group_id, asset_id)
			VALUES ($1, $2)
			ON CONFLICT (group_id, asset_id) DO NOTHING
		`, groupID.String(), assetID.String())
		if err != nil {
			return fmt.Errorf("failed to add group member: %w", err)
		}
	}
	return nil
}
