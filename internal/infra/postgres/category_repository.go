package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/vulnwatchio/api/pkg/domain/category"
	"github.com/vulnwatchio/api/pkg/domain/shared"
)

// CategoryRepository implements category.Repository using PostgreSQL.
type CategoryRepository struct {
	db *DB
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db *DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create persists a new category.
func (r *CategoryRepository) Create(ctx context.Context, c *category.Category) error {
	query := `
		INSERT INTO categories (id, parent_id, value, comments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID.String(),
		nullID(c.ParentID),
		c.Value,
		c.Comments,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: category %q", shared.ErrAlreadyExists, c.Value)
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// GetByID retrieves a category by its ID.
func (r *CategoryRepository) GetByID(ctx context.Context, id shared.ID) (*category.Category, error) {
	query := selectCategoryQuery + " WHERE c.id = $1"
	c, err := scanCategoryRow(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: category", shared.ErrNotFound)
		}
		return nil, err
	}
	return c, nil
}

// Update updates a category.
func (r *CategoryRepository) Update(ctx context.Context, c *category.Category) error {
	query := `
		UPDATE categories
		SET parent_id = $2, value = $3, comments = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		c.ID.String(), nullID(c.ParentID), c.Value, c.Comments, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return requireRowAffected(result, shared.ErrNotFound)
}

// ListAll returns every category. The table stays small enough to load
// whole; callers index it with category.NewTree.
func (r *CategoryRepository) ListAll(ctx context.Context) ([]*category.Category, error) {
	rows, err := r.db.QueryContext(ctx, selectCategoryQuery+" ORDER BY c.value")
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]*category.Category, 0)
	for rows.Next() {
		c, err := scanCategoryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}

// DeleteSubtree removes the given categories in one statement and strips
// them from every asset and group tag list.
func (r *CategoryRepository) DeleteSubtree(ctx context.Context, ids []shared.ID) error {
	if len(ids) == 0 {
		return nil
	}
	raw := pq.Array(idStrings(ids))
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE assets
			SET category_ids = (
				SELECT COALESCE(array_agg(cid), '{}')
				FROM unnest(category_ids) AS cid
				WHERE NOT (cid = ANY($1))
			)
			WHERE category_ids && $1
		`, raw); err != nil {
			return fmt.Errorf("failed to strip asset categories: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE asset_groups
			SET category_ids = (
				SELECT COALESCE(array_agg(cid), '{}')
				FROM unnest(category_ids) AS cid
				WHERE NOT (cid = ANY($1))
			)
			WHERE category_ids && $1
		`, raw); err != nil {
			return fmt.Errorf("failed to strip group categories: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM categories WHERE id = ANY($1)", raw); err != nil {
			return fmt.Errorf("failed to delete categories: %w", err)
		}
		return nil
	})
}

const selectCategoryQuery = `
	SELECT c.id, c.parent_id, c.value, c.comments, c.created_at, c.updated_at
	FROM categories c
`

func scanCategoryRow(row rowScanner) (*category.Category, error) {
	var (
		idStr                string
		parentID             sql.NullString
		c                    category.Category
		createdAt, updatedAt time.Time
	)

	err := row.Scan(&idStr, &parentID, &c.Value, &c.Comments, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	c.ID, err = shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse category id: %w", err)
	}
	c.ParentID = parseNullID(parentID)
	c.CreatedAt = createdAt
	c.UpdatedAt = updatedAt
	return &c, nil
}
