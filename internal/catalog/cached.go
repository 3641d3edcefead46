package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lepinkainen/pricenest/internal/cache"
)

func nonEmpty(results []Result) bool {
	return len(results) > 0
}

// CachedMovieSearcher memoizes successful movie searches.
type CachedMovieSearcher struct {
	inner MovieSearcher
	cache *cache.CacheDB
	ttl   time.Duration
}

// NewCachedMovieSearcher wraps inner. A nil cache disables memoization.
func NewCachedMovieSearcher(inner MovieSearcher, c *cache.CacheDB, ttl time.Duration) *CachedMovieSearcher {
	return &CachedMovieSearcher{inner: inner, cache: c, ttl: ttl}
}

func (s *CachedMovieSearcher) SearchMovies(ctx context.Context, q MovieQuery) ([]Result, error) {
	key := strings.ToLower(fmt.Sprintf("%s|%s|%d", strings.TrimSpace(q.Title), strings.TrimSpace(q.Director), q.Year))
	results, _, err := cache.GetOrFetchWithPolicy(s.cache, cache.ITunesTable, key, s.ttl, func() ([]Result, error) {
		return s.inner.SearchMovies(ctx, q)
	}, nonEmpty)
	return results, err
}

// CachedBookSource memoizes successful searches of one book catalog.
type CachedBookSource struct {
	inner BookSource
	table string
	cache *cache.CacheDB
	ttl   time.Duration
}

// NewCachedBookSource wraps inner, storing results in table.
func NewCachedBookSource(inner BookSource, table string, c *cache.CacheDB, ttl time.Duration) *CachedBookSource {
	return &CachedBookSource{inner: inner, table: table, cache: c, ttl: ttl}
}

func (s *CachedBookSource) SearchBooks(ctx context.Context, query string) ([]Result, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	results, _, err := cache.GetOrFetchWithPolicy(s.cache, s.table, key, s.ttl, func() ([]Result, error) {
		return s.inner.SearchBooks(ctx, query)
	}, nonEmpty)
	return results, err
}
