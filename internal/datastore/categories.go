package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lepinkainen/pricenest/internal/model"
)

const categoryColumns = `id, name, type, book_lookup_enabled, book_lookup_source, created_at`

func scanCategory(row interface{ Scan(...any) error }) (model.Category, error) {
	var c model.Category
	var typ, source string
	err := row.Scan(&c.ID, &c.Name, &typ, &c.BookLookupEnabled, &source, &c.CreatedAt)
	c.Type = model.CategoryType(typ)
	c.BookLookupSource = model.BookSource(source)
	return c, err
}

// ListCategories returns every category ordered by name, each with its items.
func (s *SQLStore) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	var categories []model.Category
	index := make(map[int64]int)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.Items = []model.Item{}
		index[c.ID] = len(categories)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	items, err := s.queryItems(ctx, `SELECT `+itemColumns+` FROM items ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if i, ok := index[item.CategoryID]; ok {
			categories[i].Items = append(categories[i].Items, item)
		}
	}

	return categories, nil
}

// GetCategory returns one category with its items.
func (s *SQLStore) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load category: %w", err)
	}

	items, err := s.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Items = items
	return &c, nil
}

// CreateCategory inserts c and fills in its ID and CreatedAt.
func (s *SQLStore) CreateCategory(ctx context.Context, c *model.Category) error {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}
	c.CreatedAt = s.now()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name, type, book_lookup_enabled, book_lookup_source, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.Name, string(c.Type), c.BookLookupEnabled, string(c.BookLookupSource), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read category id: %w", err)
	}
	c.ID = id
	if c.Items == nil {
		c.Items = []model.Item{}
	}
	return nil
}

// UpdateCategory overwrites the editable category fields.
func (s *SQLStore) UpdateCategory(ctx context.Context, c *model.Category) error {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, type = ?, book_lookup_enabled = ?, book_lookup_source = ? WHERE id = ?`,
		c.Name, string(c.Type), c.BookLookupEnabled, string(c.BookLookupSource), c.ID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return checkAffected(res, "category", c.ID)
}

// DeleteCategory removes the category; items, their history and pending
// searches go with it.
func (s *SQLStore) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return checkAffected(res, "category", id)
}
