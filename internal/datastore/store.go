// Package datastore persists categories, items, price history and pending searches.
package datastore

import (
	"context"
	"errors"

	"github.com/lepinkainen/pricenest/internal/model"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the persistence operations PriceNest needs.
type Store interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	CreateCategory(ctx context.Context, c *model.Category) error
	UpdateCategory(ctx context.Context, c *model.Category) error
	DeleteCategory(ctx context.Context, id int64) error

	ListItems(ctx context.Context, categoryID int64) ([]model.Item, error)
	GetItem(ctx context.Context, id int64) (*model.Item, error)
	CreateItem(ctx context.Context, item *model.Item) error
	UpdateItem(ctx context.Context, item *model.Item) error
	DeleteItem(ctx context.Context, id int64) error
	ToggleBought(ctx context.Context, id int64) (*model.Item, error)

	// UpdatePrice sets the item's price and last_updated and appends a
	// history row in one transaction.
	UpdatePrice(ctx context.Context, itemID int64, newPrice float64, source model.PriceSource, query string) (*model.PriceHistory, error)
	ListPriceHistory(ctx context.Context, itemID int64) ([]model.PriceHistory, error)

	CreatePendingSearch(ctx context.Context, p *model.PendingMovieSearch) error
	ListPendingSearches(ctx context.Context, status model.PendingStatus, limit int) ([]model.PendingMovieSearch, error)
	UpdatePendingSearch(ctx context.Context, p *model.PendingMovieSearch) error

	Close() error
}
