package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/playlore/playlore-server/internal/domain"
	domainerrors "github.com/playlore/playlore-server/internal/errors"
	"github.com/playlore/playlore-server/internal/normalize"
	"github.com/playlore/playlore-server/internal/store"
)

// categoryColumns must match the scan order in scanCategory.
const categoryColumns = `id, name, color, description`

func scanCategory(scanner interface{ Scan(dest ...any) error }) (*domain.TagCategory, error) {
	var (
		c           domain.TagCategory
		description sql.NullString
	)
	if err := scanner.Scan(&c.ID, &c.Name, &c.Color, &description); err != nil {
		return nil, err
	}
	if description.Valid {
		c.Description = description.String
	}
	return &c, nil
}

// CreateCategory inserts a new tag category.
// Returns a conflict error if the name is taken.
func (s *Store) CreateCategory(ctx context.Context, c *domain.TagCategory) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.createCategory(ctx, tx, c)
	})
}

func (s *Store) createCategory(ctx context.Context, q querier, c *domain.TagCategory) error {
	c.Name = normalize.Name(c.Name)
	if c.Name == "" {
		return domainerrors.Validation("category name is required")
	}
	if c.Color == "" {
		c.Color = domain.DefaultCategoryColor
	}

	res, err := q.ExecContext(ctx,
		`INSERT INTO tag_category (name, color, description) VALUES (?, ?, ?)`,
		c.Name, c.Color, nullString(c.Description))
	if err != nil {
		if store.IsUniqueViolation(err) {
			return domainerrors.Conflictf("category %q already exists", c.Name)
		}
		return fmt.Errorf("insert category: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

// GetCategory retrieves a category by id.
func (s *Store) GetCategory(ctx context.Context, id int64) (*domain.TagCategory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM tag_category WHERE id = ?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFoundf("category %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// GetCategoryByName retrieves a category by name, case-insensitively.
func (s *Store) GetCategoryByName(ctx context.Context, name string) (*domain.TagCategory, error) {
	return s.categoryByName(ctx, s.db, name)
}

func (s *Store) categoryByName(ctx context.Context, q querier, name string) (*domain.TagCategory, error) {
	name = normalize.Name(name)
	row := q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM tag_category WHERE name = ?`, name)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFoundf("category %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// categoryIDForName resolves a category by name, creating it with the default color when
// missing. An empty name yields no category.
func (s *Store) categoryIDForName(ctx context.Context, q querier, name string) (*int64, error) {
	if normalize.Name(name) == "" {
		return nil, nil
	}
	c, err := s.categoryByName(ctx, q, name)
	if err == nil {
		return &c.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	c = &domain.TagCategory{Name: name}
	if err := s.createCategory(ctx, q, c); err != nil {
		return nil, err
	}
	return &c.ID, nil
}

// ListCategories returns every category ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]*domain.TagCategory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM tag_category ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []*domain.TagCategory
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// UpdateCategory updates name, color and description.
func (s *Store) UpdateCategory(ctx context.Context, c *domain.TagCategory) error {
	c.Name = normalize.Name(c.Name)
	if c.Name == "" {
		return domainerrors.Validation("category name is required")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE tag_category SET name = ?, color = ?, description = ? WHERE id = ?`,
			c.Name, c.Color, nullString(c.Description), c.ID)
		if err != nil {
			if store.IsUniqueViolation(err) {
				return domainerrors.Conflictf("category %q already exists", c.Name)
			}
			return fmt.Errorf("update category: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domainerrors.NotFoundf("category %d not found", c.ID)
		}
		return nil
	})
}

// DeleteCategory deletes a category that no tag references.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var refs int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM tag WHERE category_id = ?`, id).Scan(&refs); err != nil {
			return fmt.Errorf("count category tags: %w", err)
		}
		if refs > 0 {
			return domainerrors.Conflictf("category %d is used by %d tags", id, refs)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM tag_category WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domainerrors.NotFoundf("category %d not found", id)
		}
		return nil
	})
}
