package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lepinkainen/pricenest/internal/model"
)

// UpdatePrice records a price change: the item's price and last_updated are
// overwritten and a history row with the previous price is appended.
func (s *SQLStore) UpdatePrice(ctx context.Context, itemID int64, newPrice float64, source model.PriceSource, query string) (*model.PriceHistory, error) {
	entry := &model.PriceHistory{
		ItemID:      itemID,
		NewPrice:    newPrice,
		PriceSource: source,
		SearchQuery: query,
		CreatedAt:   s.now(),
	}

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT price FROM items WHERE id = ?`, itemID).Scan(&entry.OldPrice); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("item %d: %w", itemID, ErrNotFound)
			}
			return fmt.Errorf("failed to read current price: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE items SET price = ?, last_updated = ? WHERE id = ?`,
			newPrice, entry.CreatedAt, itemID); err != nil {
			return fmt.Errorf("failed to update price: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO price_history (item_id, old_price, new_price, price_source, search_query, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			itemID, entry.OldPrice, entry.NewPrice, string(entry.PriceSource), entry.SearchQuery, entry.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to append price history: %w", err)
		}
		entry.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListPriceHistory returns an item's price changes in the order they happened.
func (s *SQLStore) ListPriceHistory(ctx context.Context, itemID int64) ([]model.PriceHistory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, item_id, old_price, new_price, price_source, search_query, created_at
		 FROM price_history WHERE item_id = ? ORDER BY created_at, id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list price history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	history := []model.PriceHistory{}
	for rows.Next() {
		var h model.PriceHistory
		var source string
		if err := rows.Scan(&h.ID, &h.ItemID, &h.OldPrice, &h.NewPrice, &source, &h.SearchQuery, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price history: %w", err)
		}
		h.PriceSource = model.PriceSource(source)
		history = append(history, h)
	}
	return history, rows.Err()
}
