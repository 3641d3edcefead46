package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lepinkainen/pricenest/internal/model"
)

const itemColumns = `id, category_id, name, title, author, director, year, url, price, bought, external_id, created_at, last_updated`

func scanItem(row interface{ Scan(...any) error }) (model.Item, error) {
	var item model.Item
	var title, author, director, externalID sql.NullString
	var year sql.NullInt64

	err := row.Scan(&item.ID, &item.CategoryID, &item.Name, &title, &author, &director, &year,
		&item.URL, &item.Price, &item.Bought, &externalID, &item.CreatedAt, &item.LastUpdated)

	item.Title = title.String
	item.Author = author.String
	item.Director = director.String
	item.Year = int(year.Int64)
	item.ExternalID = externalID.String
	return item, err
}

func (s *SQLStore) queryItems(ctx context.Context, query string, args ...any) ([]model.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []model.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListItems returns the items of one category, oldest first.
func (s *SQLStore) ListItems(ctx context.Context, categoryID int64) ([]model.Item, error) {
	return s.queryItems(ctx, `SELECT `+itemColumns+` FROM items WHERE category_id = ? ORDER BY created_at, id`, categoryID)
}

// GetItem loads a single item.
func (s *SQLStore) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	return &item, nil
}

// CreateItem inserts item and fills in ID and timestamps.
func (s *SQLStore) CreateItem(ctx context.Context, item *model.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	now := s.now()
	item.CreatedAt = now
	item.LastUpdated = now

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO items (category_id, name, title, author, director, year, url, price, bought, external_id, created_at, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.CategoryID, item.Name, nullString(item.Title), nullString(item.Author), nullString(item.Director),
		nullInt(item.Year), item.URL, item.Price, item.Bought, nullString(item.ExternalID), item.CreatedAt, item.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read item id: %w", err)
	}
	item.ID = id
	return nil
}

// UpdateItem overwrites the editable fields and bumps last_updated.
// The bought flag is left alone; use ToggleBought.
func (s *SQLStore) UpdateItem(ctx context.Context, item *model.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	item.LastUpdated = s.now()

	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET name = ?, title = ?, author = ?, director = ?, year = ?, url = ?, price = ?, external_id = ?, last_updated = ?
		 WHERE id = ?`,
		item.Name, nullString(item.Title), nullString(item.Author), nullString(item.Director), nullInt(item.Year),
		item.URL, item.Price, nullString(item.ExternalID), item.LastUpdated, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return checkAffected(res, "item", item.ID)
}

// DeleteItem removes an item and its price history.
func (s *SQLStore) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return checkAffected(res, "item", id)
}

// ToggleBought flips the bought flag and returns the updated item.
func (s *SQLStore) ToggleBought(ctx context.Context, id int64) (*model.Item, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE items SET bought = CASE WHEN bought = 0 THEN 1 ELSE 0 END WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle bought: %w", err)
	}
	if err := checkAffected(res, "item", id); err != nil {
		return nil, err
	}
	return s.GetItem(ctx, id)
}
