package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lepinkainen/pricenest/internal/cache"
	"github.com/lepinkainen/pricenest/internal/catalog"
	"github.com/lepinkainen/pricenest/internal/catalog/googlebooks"
	"github.com/lepinkainen/pricenest/internal/catalog/itunes"
	"github.com/lepinkainen/pricenest/internal/catalog/kobo"
	"github.com/lepinkainen/pricenest/internal/config"
	"github.com/lepinkainen/pricenest/internal/datastore"
	"github.com/lepinkainen/pricenest/internal/importer"
	"github.com/lepinkainen/pricenest/internal/pricing"
	"github.com/lepinkainen/pricenest/internal/ratelimit"
	"github.com/lepinkainen/pricenest/internal/refresh"
)

// app is the wired object graph shared by the commands.
type app struct {
	settings  config.Settings
	store     *datastore.SQLStore
	cache     *cache.CacheDB
	movies    catalog.MovieSearcher
	lookup    catalog.MovieLookup
	books     *catalog.BookSearcher
	importer  *importer.Importer
	refresher *refresh.Refresher

	closers []func() error
}

// openApp is swapped out by tests.
var openApp = newApp

func newApp(ctx context.Context, settings config.Settings) (*app, error) {
	store, err := datastore.Open(ctx, settings.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	cacheDB, err := cache.Open(settings.CacheDBFile)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to open cache: %w", err), store.Close())
	}

	converter := pricing.NewConverter(settings.CurrencyRates)
	resolver := pricing.NewResolver()
	timeout := catalog.WithTimeout(settings.CatalogTimeout)

	itunesOpts := []catalog.Option{timeout}
	if settings.ITunesPerMinute > 0 {
		itunesOpts = append(itunesOpts, catalog.WithRateLimiter(ratelimit.PerMinute("iTunes", settings.ITunesPerMinute)))
	}
	apple := itunes.NewClient(settings.Country, converter, itunesOpts...)
	google := googlebooks.NewClient(settings.GoogleBooksAPIKey, settings.Country, converter, timeout)

	var fetcher kobo.Fetcher = kobo.NewHTTPFetcher(timeout)
	if settings.KoboUseBrowser {
		fetcher = kobo.NewBrowserFetcher(true, settings.CatalogTimeout)
	}
	koboClient := kobo.NewClient(fetcher, converter, "")

	cats := wireCatalogs(apple, koboClient, google, cacheDB, settings.CacheTTL)

	slog.Debug("Application wired",
		"database", store.Driver(), "cache", cacheDB.Path(),
		"country", settings.Country, "kobo_browser", settings.KoboUseBrowser)

	return &app{
		settings: settings,
		store:    store,
		cache:    cacheDB,
		movies:   cats.movies,
		lookup:   cats.lookup,
		books:    cats.books,
		importer: importer.New(store, cats.movies, resolver, importer.Config{
			SessionTTL:  settings.SessionTTL,
			MaxRetries:  settings.PendingMaxRetries,
			BatchSize:   settings.PendingBatchSize,
			BaseBackoff: settings.PendingBaseBackoff,
		}),
		refresher: newRefresher(store, cats, settings, resolver),
		closers: []func() error{cacheDB.Close, store.Close},
	}, nil
}

// movieCatalog is a storefront that can both search and look up films.
type movieCatalog interface {
	catalog.MovieSearcher
	catalog.MovieLookup
}

// catalogs holds every storefront twice. Searches and imports go through the
// response cache; price refreshes must see today's price and use the live clients.
type catalogs struct {
	movies     catalog.MovieSearcher
	lookup     catalog.MovieLookup
	books      *catalog.BookSearcher
	liveMovies catalog.MovieSearcher
	liveBooks  *catalog.BookSearcher
}

func wireCatalogs(movies movieCatalog, koboSource, google catalog.BookSource, cacheDB *cache.CacheDB, ttl time.Duration) catalogs {
	return catalogs{
		movies: catalog.NewCachedMovieSearcher(movies, cacheDB, ttl),
		lookup: movies,
		books: catalog.NewBookSearcher(
			catalog.NewCachedBookSource(koboSource, cache.KoboTable, cacheDB, ttl),
			catalog.NewCachedBookSource(google, cache.GoogleBooksTable, cacheDB, ttl),
		),
		liveMovies: movies,
		liveBooks:  catalog.NewBookSearcher(koboSource, google),
	}
}

func newRefresher(store datastore.Store, cats catalogs, settings config.Settings, resolver *pricing.Resolver) *refresh.Refresher {
	return refresh.New(store, cats.liveMovies, cats.lookup, cats.liveBooks,
		refresh.WithDelay(settings.RefreshDelay),
		refresh.WithResolver(resolver))
}

func (a *app) Close() error {
	errs := make([]error, 0, len(a.closers))
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
