package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/vulnwatchio/api/pkg/domain/asset"
	"github.com/vulnwatchio/api/pkg/domain/risk"
	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/pagination"
)

// AssetRepository implements asset.Repository using PostgreSQL.
type AssetRepository struct {
	db *DB
}

// NewAssetRepository creates a new AssetRepository.
func NewAssetRepository(db *DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// Create persists a new asset. The risk level columns start at the
// documented defaults carried by the entity.
func (r *AssetRepository) Create(ctx context.Context, a *asset.Asset) error {
	query := `
		INSERT INTO assets (
			id, value, name, asset_type, criticity, owner_id, description, category_ids,
			risk_info, risk_low, risk_medium, risk_high, risk_critical, risk_total,
			risk_grade, risk_score, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	level := a.RiskLevel()
	_, err := r.db.ExecContext(ctx, query,
		a.ID().String(),
		a.Value(),
		a.Name(),
		a.Type().String(),
		a.Criticity().String(),
		nullID(a.OwnerID()),
		a.Description(),
		pq.Array(idStrings(a.CategoryIDs())),
		level.Info,
		level.Low,
		level.Medium,
		level.High,
		level.Critical,
		level.Total,
		level.Grade,
		risk.Score(level),
		a.CreatedAt(),
		a.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: asset %q", shared.ErrAlreadyExists, a.Value())
		}
		return fmt.Errorf("failed to create asset: %w", err)
	}
	return nil
}

// GetByID retrieves an asset by its ID.
func (r *AssetRepository) GetByID(ctx context.Context, id shared.ID) (*asset.Asset, error) {
	query := selectAssetQuery + " WHERE a.id = $1"
	return r.scanAsset(r.db.QueryRowContext(ctx, query, id.String()))
}

// GetByValue retrieves an asset by its identity value.
func (r *AssetRepository) GetByValue(ctx context.Context, value string) (*asset.Asset, error) {
	query := selectAssetQuery + " WHERE a.value = $1"
	return r.scanAsset(r.db.QueryRowContext(ctx, query, value))
}

// Update updates an existing asset, including its risk level cache.
func (r *AssetRepository) Update(ctx context.Context, a *asset.Asset) error {
	query := `
		UPDATE assets
		SET name = $2, criticity = $3, owner_id = $4, description = $5, category_ids = $6,
		    risk_info = $7, risk_low = $8, risk_medium = $9, risk_high = $10,
		    risk_critical = $11, risk_total = $12, risk_grade = $13, risk_score = $14,
		    updated_at = $15
		WHERE id = $1
	`

	level := a.RiskLevel()
	result, err := r.db.ExecContext(ctx, query,
		a.ID().String(),
		a.Name(),
		a.Criticity().String(),
		nullID(a.OwnerID()),
		a.Description(),
		pq.Array(idStrings(a.CategoryIDs())),
		level.Info,
		level.Low,
		level.Medium,
		level.High,
		level.Critical,
		level.Total,
		level.Grade,
		risk.Score(level),
		a.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update asset: %w", err)
	}
	return requireRowAffected(result, shared.ErrNotFound)
}

// Delete removes an asset.
func (r *AssetRepository) Delete(ctx context.Context, id shared.ID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM assets WHERE id = $1", id.String())
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return requireRowAffected(result, shared.ErrNotFound)
}

// List returns a page of assets matching the filter.
func (r *AssetRepository) List(ctx context.Context, filter asset.Filter, page pagination.Pagination) (pagination.Result[*asset.Asset], error) {
	where, args := buildAssetFilter(filter)

	var total int64
	countQuery := "SELECT COUNT(*) FROM assets a" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return pagination.Result[*asset.Asset]{}, fmt.Errorf("failed to count assets: %w", err)
	}

	query := fmt.Sprintf("%s%s ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d",
		selectAssetQuery, where, len(args)+1, len(args)+2)
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return pagination.Result[*asset.Asset]{}, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	assets, err := scanAssetRows(rows)
	if err != nil {
		return pagination.Result[*asset.Asset]{}, err
	}
	return pagination.NewResult(assets, total, page), nil
}

// ExistsByValue reports whether an asset with the given value exists.
func (r *AssetRepository) ExistsByValue(ctx context.Context, value string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM assets WHERE value = $1)", value).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check asset existence: %w", err)
	}
	return exists, nil
}

// UpdateRiskLevel persists a freshly computed risk level cache without
// touching the rest of the row. Last writer wins.
func (r *AssetRepository) UpdateRiskLevel(ctx context.Context, id shared.ID, level risk.Level) error {
	query := `
		UPDATE assets
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
		return fmt.Errorf("failed to update asset risk level: %w", err)
	}
	return requireRowAffected(result, shared.ErrNotFound)
}

// ListTopByRiskScore returns assets ordered by descending risk score.
func (r *AssetRepository) ListTopByRiskScore(ctx context.Context, limit int) ([]*asset.Asset, error) {
	query := selectAssetQuery + " ORDER BY a.risk_score DESC, a.value ASC LIMIT $1"
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets by risk score: %w", err)
	}
	defer rows.Close()
	return scanAssetRows(rows)
}

const selectAssetQuery = `
	SELECT a.id, a.value, a.name, a.asset_type, a.criticity, a.owner_id, a.description,
	       a.category_ids,
	       a.risk_info, a.risk_low, a.risk_medium, a.risk_high, a.risk_critical,
	       a.risk_total, a.risk_grade,
	       a.created_at, a.updated_at
	FROM assets a
`

func buildAssetFilter(filter asset.Filter) (string, []any) {
	var conds []string
	var args []any

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(a.value ILIKE $%d OR a.name ILIKE $%d)", n, n))
	}
	if len(filter.Types) > 0 {
		types := make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			types = append(types, t.String())
		}
		args = append(args, pq.Array(types))
		conds = append(conds, fmt.Sprintf("a.asset_type = ANY($%d)", len(args)))
	}
	if len(filter.Criticities) > 0 {
		crits := make([]string, 0, len(filter.Criticities))
		for _, c := range filter.Criticities {
			crits = append(crits, c.String())
		}
		args = append(args, pq.Array(crits))
		conds = append(conds, fmt.Sprintf("a.criticity = ANY($%d)", len(args)))
	}
	if len(filter.CategoryIDs) > 0 {
		args = append(args, pq.Array(idStrings(filter.CategoryIDs)))
		conds = append(conds, fmt.Sprintf("a.category_ids && $%d", len(args)))
	}
	if filter.OwnerID != nil {
		args = append(args, filter.OwnerID.String())
		conds = append(conds, fmt.Sprintf("a.owner_id = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *AssetRepository) scanAsset(row rowScanner) (*asset.Asset, error) {
	a, err := scanAssetRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: asset", shared.ErrNotFound)
		}
		return nil, err
	}
	return a, nil
}

func scanAssetRow(row rowScanner) (*asset.Asset, error) {
	var (
		idStr, value, name, assetType, criticity, description string
		ownerID                                                sql.NullString
		categoryIDs                                            pq.StringArray
		level                                                  risk.Level
		createdAt, updatedAt                                   sql.NullTime
	)

	err := row.Scan(
		&idStr, &value, &name, &assetType, &criticity, &ownerID, &description,
		&categoryIDs,
		&level.Info, &level.Low, &level.Medium, &level.High, &level.Critical,
		&level.Total, &level.Grade,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse asset id: %w", err)
	}

	return asset.Reconstitute(
		id,
		value,
		name,
		asset.Type(assetType),
		asset.Criticity(criticity),
		level,
		parseNullID(ownerID),
		description,
		parseIDs(categoryIDs),
		createdAt.Time,
		updatedAt.Time,
	), nil
}

func scanAssetRows(rows *sql.Rows) ([]*asset.Asset, error) {
	assets := make([]*asset.Asset, 0)
	for rows.Next() {
		a, err := scanAssetRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assets: %w", err)
	}
	return assets, nil
}

// requireRowAffected maps a zero-row result to the given sentinel.
func requireRowAffected(result sql.Result, sentinel error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return sentinel
	}
	return nil
}
