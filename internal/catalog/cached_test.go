package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lepinkainen/pricenest/internal/cache"
	"github.com/lepinkainen/pricenest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMovies struct {
	results []Result
	calls   int
}

func (c *countingMovies) SearchMovies(_ context.Context, _ MovieQuery) ([]Result, error) {
	c.calls++
	return c.results, nil
}

func openCache(t *testing.T) *cache.CacheDB {
	t.Helper()
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCachedMovieSearcher(t *testing.T) {
	inner := &countingMovies{results: []Result{{Kind: KindMovie, Title: "Heat", Price: 7.99, PriceSource: model.PriceSourceApplePurchase}}}
	searcher := NewCachedMovieSearcher(inner, openCache(t), time.Hour)

	for range 2 {
		results, err := searcher.SearchMovies(context.Background(), MovieQuery{Title: "Heat"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Heat", results[0].Title)
	}
	assert.Equal(t, 1, inner.calls)

	_, err := searcher.SearchMovies(context.Background(), MovieQuery{Title: "heat ", Year: 1995})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedBookSourceSkipsEmpty(t *testing.T) {
	inner := &fakeBookSource{}
	source := NewCachedBookSource(inner, cache.KoboTable, openCache(t), time.Hour)

	for range 2 {
		books, err := source.SearchBooks(context.Background(), "Dune")
		require.NoError(t, err)
		assert.Empty(t, books)
	}
	assert.Equal(t, 2, inner.calls)
}

func TestCachedSearcherWithoutCache(t *testing.T) {
	inner := &countingMovies{results: []Result{{Title: "Heat"}}}
	searcher := NewCachedMovieSearcher(inner, nil, time.Hour)

	for range 2 {
		_, err := searcher.SearchMovies(context.Background(), MovieQuery{Title: "Heat"})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, inner.calls)
}
