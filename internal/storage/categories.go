package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"news_briefing/internal/model"
)

const categoryColumns = `id, name, search_query, is_default, created_at`

// ListCategories returns built-in categories first, then user categories by creation order.
func (s *SQLite) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories ORDER BY is_default DESC, created_at ASC, rowid ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	categories := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

// GetCategory returns a single category by its ID.
func (s *SQLite) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	return scanCategory(row)
}

// CreateCategory inserts a user category and populates its ID and CreatedAt.
// The limit and name checks run in the same transaction as the insert.
func (s *SQLite) CreateCategory(ctx context.Context, c *model.Category) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n); err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if n >= model.MaxCategories {
		return fmt.Errorf("%w: at most %d categories", ErrCategoryLimit, model.MaxCategories)
	}
	if err := nameTaken(ctx, tx, c.Name, ""); err != nil {
		return err
	}

	id := newID()
	now := nowString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO categories (id, name, search_query, is_default, created_at) VALUES (?, ?, ?, 0, ?)`,
		id, c.Name, c.SearchQuery, now,
	); err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	c.ID = id
	c.IsDefault = false
	c.CreatedAt = parseTime(now)
	return nil
}

// UpdateCategory changes the name and query of a user category.
func (s *SQLite) UpdateCategory(ctx context.Context, c *model.Category) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanCategory(tx.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, c.ID))
	if err != nil {
		return err
	}
	if current.IsDefault {
		return fmt.Errorf("%w: %s", ErrDefaultCategory, current.Name)
	}
	if err := nameTaken(ctx, tx, c.Name, c.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE categories SET name = ?, search_query = ? WHERE id = ?`,
		c.Name, c.SearchQuery, c.ID,
	); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	c.IsDefault = false
	c.CreatedAt = current.CreatedAt
	return nil
}

// DeleteCategory removes a user category and detaches its articles.
func (s *SQLite) DeleteCategory(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanCategory(tx.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if err != nil {
		return err
	}
	if current.IsDefault {
		return fmt.Errorf("%w: %s", ErrDefaultCategory, current.Name)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE articles SET category_id = NULL WHERE category_id = ?`, id); err != nil {
		return fmt.Errorf("detach articles: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return tx.Commit()
}

func nameTaken(ctx context.Context, tx *sql.Tx, name, exceptID string) error {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE name = ? AND id != ?`, name, exceptID,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("check category name: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	return nil
}

func scanCategory(row scannable) (*model.Category, error) {
	var c model.Category
	var isDefault int
	var created string
	err := row.Scan(&c.ID, &c.Name, &c.SearchQuery, &isDefault, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan category: %w", err)
	}
	c.IsDefault = isDefault == 1
	c.CreatedAt = parseTime(created)
	return &c, nil
}
