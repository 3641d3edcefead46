// Package refresh re-prices stored items against their catalog.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lepinkainen/pricenest/internal/catalog"
	"github.com/lepinkainen/pricenest/internal/datastore"
	"github.com/lepinkainen/pricenest/internal/model"
	"github.com/lepinkainen/pricenest/internal/pricing"
	"github.com/lepinkainen/pricenest/internal/ratelimit"
)

// BookSearch selects a book catalog per category.
type BookSearch interface {
	Search(ctx context.Context, query string, source model.BookSource) (catalog.BookSearchResult, error)
}

// PriceRefresh describes what one refresh observed.
type PriceRefresh struct {
	OldPrice    float64           `json:"oldPrice"`
	NewPrice    float64           `json:"newPrice"`
	Source      model.PriceSource `json:"source"`
	SearchQuery string            `json:"searchQuery,omitempty"`
	Updated     bool              `json:"updated"`
}

// Outcome is the item after a refresh together with the refresh details.
type Outcome struct {
	Item    *model.Item  `json:"item"`
	Refresh PriceRefresh `json:"priceRefresh"`
}

// BatchResult summarizes RefreshAll.
type BatchResult struct {
	UpdatedCount   int `json:"updatedCount"`
	ProcessedCount int `json:"processedCount"`
	FailedCount    int `json:"failedCount"`
}

// Refresher looks up current prices and records changes.
type Refresher struct {
	store    datastore.Store
	movies   catalog.MovieSearcher
	lookup   catalog.MovieLookup
	books    BookSearch
	resolver *pricing.Resolver
	limiter  *ratelimit.Limiter
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithDelay spaces adapter calls in RefreshAll by d.
func WithDelay(d time.Duration) Option {
	return func(r *Refresher) {
		r.limiter = ratelimit.Every("refresh", d)
	}
}

// WithResolver replaces the default price resolver.
func WithResolver(resolver *pricing.Resolver) Option {
	return func(r *Refresher) {
		if resolver != nil {
			r.resolver = resolver
		}
	}
}

// New creates a Refresher. Any of the catalogs may be nil, in which case
// items needing it are reported as not updated.
func New(store datastore.Store, movies catalog.MovieSearcher, lookup catalog.MovieLookup, books BookSearch, opts ...Option) *Refresher {
	r := &Refresher{
		store:    store,
		movies:   movies,
		lookup:   lookup,
		books:    books,
		resolver: pricing.NewResolver(),
		limiter:  ratelimit.Unlimited("refresh"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh re-prices one item. The price is only written, and a history row
// appended, when the catalog price differs from the stored one.
func (r *Refresher) Refresh(ctx context.Context, itemID int64) (*Outcome, error) {
	item, err := r.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	category, err := r.store.GetCategory(ctx, item.CategoryID)
	if err != nil {
		return nil, err
	}
	return r.refreshItem(ctx, category, item)
}

func (r *Refresher) refreshItem(ctx context.Context, category *model.Category, item *model.Item) (*Outcome, error) {
	var (
		match catalog.Result
		query string
		found bool
		err   error
	)
	switch category.Type {
	case model.CategoryMovies:
		match, query, found, err = r.moviePrice(ctx, item)
	case model.CategoryBooks:
		match, query, found, err = r.bookPrice(ctx, category, item)
	}
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Item: item,
		Refresh: PriceRefresh{
			OldPrice:    item.Price,
			NewPrice:    item.Price,
			Source:      model.PriceSourceUnknown,
			SearchQuery: query,
		},
	}
	if !found {
		slog.Debug("No price found", "item", item.ID, "name", item.Name, "query", query)
		return outcome, nil
	}

	outcome.Refresh.Source = match.PriceSource
	if match.Price == item.Price {
		return outcome, nil
	}

	if _, err := r.store.UpdatePrice(ctx, item.ID, match.Price, match.PriceSource, query); err != nil {
		return nil, fmt.Errorf("failed to store new price: %w", err)
	}
	updated, err := r.store.GetItem(ctx, item.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("Price updated", "item", item.ID, "name", item.Name, "old", item.Price, "new", match.Price, "source", match.PriceSource)
	outcome.Item = updated
	outcome.Refresh.NewPrice = match.Price
	outcome.Refresh.Updated = true
	return outcome, nil
}

// moviePrice prefers an exact lookup by the stored track id and falls back
// to a title search when the lookup misses or fails.
func (r *Refresher) moviePrice(ctx context.Context, item *model.Item) (catalog.Result, string, bool, error) {
	if item.ExternalID != "" && r.lookup != nil {
		movie, err := r.lookup.LookupMovie(ctx, item.ExternalID)
		switch {
		case err == nil && movie != nil:
			return *movie, "Track ID: " + item.ExternalID, true, nil
		case ctx.Err() != nil:
			return catalog.Result{}, "", false, ctx.Err()
		case err != nil:
			slog.Warn("Track lookup failed, searching by title", "item", item.ID, "track_id", item.ExternalID, "error", err)
		default:
			slog.Info("Track id unknown, searching by title", "item", item.ID, "track_id", item.ExternalID)
		}
	}

	query := item.Title
	if query == "" {
		query = item.Name
	}
	if query == "" || r.movies == nil {
		return catalog.Result{}, query, false, nil
	}

	results, err := r.movies.SearchMovies(ctx, catalog.MovieQuery{Title: query})
	if err != nil {
		return catalog.Result{}, query, false, err
	}
	match, ok := r.resolver.Resolve(results)
	return match, query, ok, nil
}

func (r *Refresher) bookPrice(ctx context.Context, category *model.Category, item *model.Item) (catalog.Result, string, bool, error) {
	query := item.Name
	if item.Title != "" && item.Author != "" {
		query = item.Title + " " + item.Author
	}
	query = strings.TrimSpace(query)
	if query == "" || r.books == nil {
		return catalog.Result{}, query, false, nil
	}

	result, err := r.books.Search(ctx, query, category.BookLookupSource)
	if err != nil {
		return catalog.Result{}, query, false, err
	}
	// placeholders are not prices
	if result.Sample() {
		return catalog.Result{}, query, false, nil
	}
	match, ok := r.resolver.Resolve(result.Books)
	return match, query, ok, nil
}

// RefreshAll re-prices every item of a category in order, one adapter call
// per refresh delay. A failing item is logged and skipped.
func (r *Refresher) RefreshAll(ctx context.Context, categoryID int64) (*BatchResult, error) {
	category, err := r.store.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	slog.Info("Refreshing prices", "category", category.Name, "items", len(category.Items))

	result := &BatchResult{}
	for i := range category.Items {
		item := &category.Items[i]
		if category.Type != model.CategoryGeneral {
			if err := r.limiter.Wait(ctx); err != nil {
				return result, err
			}
		}

		outcome, err := r.refreshItem(ctx, category, item)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.FailedCount++
			slog.Warn("Failed to refresh price", "item", item.ID, "name", item.Name, "error", err)
			continue
		}
		result.ProcessedCount++
		if outcome.Refresh.Updated {
			result.UpdatedCount++
		}
	}

	slog.Info("Price refresh complete", "category", category.Name,
		"processed", result.ProcessedCount, "updated", result.UpdatedCount, "failed", result.FailedCount)
	return result, nil
}
