package googlebooks

import (
	"context"
	"net/http"
	"testing"

	"github.com/lepinkainen/pricenest/internal/catalog"
	pnerrors "github.com/lepinkainen/pricenest/internal/errors"
	"github.com/lepinkainen/pricenest/internal/model"
	"github.com/lepinkainen/pricenest/internal/pricing"
	"github.com/lepinkainen/pricenest/internal/ratelimit"
	"github.com/lepinkainen/pricenest/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const volumesJSON = `{"totalItems":3,"items":[
 {"id":"a","volumeInfo":{"title":"Long Book","authors":["A. Writer"],"pageCount":520,"publishedDate":"2019-04-02"}},
 {"id":"b","volumeInfo":{"title":"Dune","authors":["Frank Herbert","Brian Herbert"],"pageCount":600},"saleInfo":{"listPrice":{"amount":10.0,"currencyCode":"USD"}}},
 {"id":"c","volumeInfo":{"title":"No Author"}},
 {"id":"d","volumeInfo":{"authors":["Ghost"]}}
]}`

func newTestClient(t *testing.T, apiKey string, handler http.HandlerFunc) *Client {
	t.Helper()
	server := testutil.NewIPv4Server(t, handler)
	return NewClient(apiKey, "GB", pricing.NewConverter(map[string]float64{"USD": 0.79}),
		catalog.WithBaseURL(server.URL),
		catalog.WithRetryAttempts(1),
		catalog.WithRateLimiter(ratelimit.Unlimited("test")),
	)
}

func TestSearchBooks(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/volumes", r.URL.Path)
		assert.Equal(t, "dune", r.URL.Query().Get("q"))
		assert.Equal(t, "books", r.URL.Query().Get("printType"))
		assert.Equal(t, "10", r.URL.Query().Get("maxResults"))
		assert.False(t, r.URL.Query().Has("key"))
		_, _ = w.Write([]byte(volumesJSON))
	})

	books, err := client.SearchBooks(context.Background(), "dune")
	require.NoError(t, err)
	require.Len(t, books, 3)

	// real prices first
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, model.PriceSourceGoogleBooks, books[0].PriceSource)
	assert.InDelta(t, 7.90, books[0].Price, 0.001)
	assert.Equal(t, "Frank Herbert, Brian Herbert", books[0].Author)
	assert.Equal(t, "Dune by Frank Herbert, Brian Herbert", books[0].Name)
	assert.Equal(t, "https://www.kobo.com/gb/en/search?query=Dune", books[0].URL)

	// then estimates by price: missing page count counts as 250 pages
	assert.Equal(t, "No Author", books[1].Title)
	assert.Equal(t, "Unknown Author", books[1].Author)
	assert.Equal(t, 8.99, books[1].Price)
	assert.Equal(t, model.PriceSourceEstimated, books[1].PriceSource)

	assert.Equal(t, "Long Book", books[2].Title)
	assert.Equal(t, 12.99, books[2].Price)
	assert.Equal(t, 2019, books[2].Year)
}

func TestSearchBooksSendsAPIKey(t *testing.T) {
	client := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"totalItems":0}`))
	})

	books, err := client.SearchBooks(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestSearchBooksServerErrorIsEmpty(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	books, err := client.SearchBooks(context.Background(), "dune")
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestSearchBooksRateLimited(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.SearchBooks(context.Background(), "dune")
	require.Error(t, err)
	assert.True(t, pnerrors.IsRateLimitError(err))
}

func TestPublishedYear(t *testing.T) {
	assert.Equal(t, 2019, publishedYear("2019-04-02"))
	assert.Equal(t, 1965, publishedYear("1965"))
	assert.Equal(t, 0, publishedYear("19"))
	assert.Equal(t, 0, publishedYear("n.d."))
}
