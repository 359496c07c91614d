package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/vulnwatchio/api/pkg/domain/finding"
	"github.com/vulnwatchio/api/pkg/domain/shared"
	"github.com/vulnwatchio/api/pkg/pagination"
)

// FindingRepository implements finding.Repository using PostgreSQL.
type FindingRepository struct {
	db *DB
}

// NewFindingRepository creates a new FindingRepository.
func NewFindingRepository(db *DB) *FindingRepository {
	return &FindingRepository{db: db}
}

// Create persists a new finding.
func (r *FindingRepository) Create(ctx context.Context, f *finding.Finding) error {
	riskInfo, err := json.Marshal(f.RiskInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal risk info: %w", err)
	}

	query := `
		INSERT INTO findings (
			id, asset_id, title, description, finding_type, hash, solution,
			severity, status, risk_info, tags, comments, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = r.db.ExecContext(ctx, query,
		f.ID.String(),
		f.AssetID.String(),
		f.Title,
		f.Description,
		f.Type,
		nullString(f.Hash),
		f.Solution,
		f.Severity.String(),
		string(f.Status),
		riskInfo,
		pq.Array(f.Tags),
		f.Comments,
		f.CreatedAt,
		f.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: finding hash %q", shared.ErrAlreadyExists, f.Hash)
		}
		return fmt.Errorf("failed to create finding: %w", err)
	}
	return nil
}

// GetByID retrieves a finding by its ID.
func (r *FindingRepository) GetByID(ctx context.Context, id shared.ID) (*finding.Finding, error) {
	query := selectFindingQuery + " WHERE f.id = $1"
	f, err := scanFindingRow(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: finding", shared.ErrNotFound)
		}
		return nil, err
	}
	return f, nil
}

// Update updates the mutable parts of a finding (status and comments).
func (r *FindingRepository) Update(ctx context.Context, f *finding.Finding) error {
	query := `
		UPDATE findings
		SET status = $2, comments = $3, updated_at = $4
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		f.ID.String(), string(f.Status), f.Comments, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update finding: %w", err)
	}
	return requireRowAffected(result, shared.ErrNotFound)
}

// Delete removes a finding.
func (r *FindingRepository) Delete(ctx context.Context, id shared.ID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM findings WHERE id = $1", id.String())
	if err != nil {
		return fmt.Errorf("failed to delete finding: %w", err)
	}
	return requireRowAffected(result, shared.ErrNotFound)
}

// List returns a page of findings for an asset.
func (r *FindingRepository) List(ctx context.Context, assetID shared.ID, page pagination.Pagination) (pagination.Result[*finding.Finding], error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM findings WHERE asset_id = $1", assetID.String()).Scan(&total)
	if err != nil {
		return pagination.Result[*finding.Finding]{}, fmt.Errorf("failed to count findings: %w", err)
	}

	query := selectFindingQuery + " WHERE f.asset_id = $1 ORDER BY f.created_at DESC LIMIT $2 OFFSET $3"
	rows, err := r.db.QueryContext(ctx, query, assetID.String(), page.Limit(), page.Offset())
	if err != nil {
		return pagination.Result[*finding.Finding]{}, fmt.Errorf("failed to list findings: %w", err)
	}
	defer rows.Close()

	findings, err := scanFindingRows(rows)
	if err != nil {
		return pagination.Result[*finding.Finding]{}, err
	}
	return pagination.NewResult(findings, total, page), nil
}

// ListByAsset returns every finding of the asset, optionally restricted
// to those created at or before the given instant.
func (r *FindingRepository) ListByAsset(ctx context.Context, assetID shared.ID, createdBefore *time.Time) ([]*finding.Finding, error) {
	query := selectFindingQuery + " WHERE f.asset_id = $1"
	args := []any{assetID.String()}
	if createdBefore != nil {
		query += " AND f.created_at <= $2"
		args = append(args, *createdBefore)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list findings by asset: %w", err)
	}
	defer rows.Close()
	return scanFindingRows(rows)
}

// ListByAssets returns findings across a set of assets, used for asset
// group roll-ups.
func (r *FindingRepository) ListByAssets(ctx context.Context, assetIDs []shared.ID, createdBefore *time.Time) ([]*finding.Finding, error) {
	if len(assetIDs) == 0 {
		return []*finding.Finding{}, nil
	}

	query := selectFindingQuery + " WHERE f.asset_id = ANY($1)"
	args := []any{pq.Array(idStrings(assetIDs))}
	if createdBefore != nil {
		query += " AND f.created_at <= $2"
		args = append(args, *createdBefore)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list findings by assets: %w", err)
	}
	defer rows.Close()
	return scanFindingRows(rows)
}

const selectFindingQuery = `
	SELECT f.id, f.asset_id, f.title, f.description, f.finding_type, f.hash, f.solution,
	       f.severity, f.status, f.risk_info, f.tags, f.comments, f.created_at, f.updated_at
	FROM findings f
`

func scanFindingRow(row rowScanner) (*finding.Finding, error) {
	var (
		idStr, assetIDStr    string
		hash                 sql.NullString
		riskInfo             []byte
		tags                 pq.StringArray
		f                    finding.Finding
		createdAt, updatedAt time.Time
	)

	err := row.Scan(
		&idStr, &assetIDStr, &f.Title, &f.Description, &f.Type, &hash, &f.Solution,
		&f.Severity, &f.Status, &riskInfo, &tags, &f.Comments, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.ID, err = shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse finding id: %w", err)
	}
	f.AssetID, err = shared.IDFromString(assetIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse finding asset id: %w", err)
	}
	if len(riskInfo) > 0 {
		if err := json.Unmarshal(riskInfo, &f.RiskInfo); err != nil {
			return nil, fmt.Errorf("failed to unmarshal risk info: %w", err)
		}
	}
	f.Hash = nullStringValue(hash)
	f.Tags = tags
	f.CreatedAt = createdAt
	f.UpdatedAt = updatedAt
	return &f, nil
}

func scanFindingRows(rows *sql.Rows) ([]*finding.Finding, error) {
	findings := make([]*finding.Finding, 0)
	for rows.Next() {
		f, err := scanFindingRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate findings: %w", err)
	}
	return findings, nil
}
