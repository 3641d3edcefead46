package itunes

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/lepinkainen/pricenest/internal/catalog"
	pnerrors "github.com/lepinkainen/pricenest/internal/errors"
	"github.com/lepinkainen/pricenest/internal/model"
	"github.com/lepinkainen/pricenest/internal/pricing"
	"github.com/lepinkainen/pricenest/internal/ratelimit"
	"github.com/lepinkainen/pricenest/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inceptionJSON = `{"resultCount":3,"results":[
 {"trackId":1,"trackName":"Inception Collection","artistName":"Christopher Nolan","releaseDate":"2010-07-16T07:00:00Z","trackPrice":19.99,"currency":"GBP","trackViewUrl":"https://itunes.apple.com/gb/movie/inception-collection/id1","longDescription":"A bundle of films"},
 {"trackId":2,"trackName":"Inception","artistName":"Christopher Nolan","releaseDate":"2010-07-16T07:00:00Z","trackRentalPrice":3.49,"currency":"GBP","trackViewUrl":"https://itunes.apple.com/gb/movie/inception/id2"},
 {"trackId":3,"trackName":"Inception","artistName":"Christopher Nolan","releaseDate":"2010-07-16T07:00:00Z","trackHdPrice":7.99,"trackPrice":5.99,"currency":"GBP","trackViewUrl":"https://itunes.apple.com/gb/movie/inception/id3","primaryGenreName":"Sci-Fi"}
]}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := testutil.NewIPv4Server(t, handler)
	client := NewClient("gb", pricing.NewConverter(map[string]float64{"USD": 0.79}),
		catalog.WithBaseURL(server.URL),
		catalog.WithRetryAttempts(1),
		catalog.WithRateLimiter(ratelimit.Unlimited("test")),
	)
	client.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return client
}

func TestSearchMoviesRanksResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Inception", r.URL.Query().Get("term"))
		assert.Equal(t, "GB", r.URL.Query().Get("country"))
		assert.Equal(t, "movie", r.URL.Query().Get("entity"))
		_, _ = w.Write([]byte(inceptionJSON))
	})

	results, err := client.SearchMovies(context.Background(), catalog.MovieQuery{Title: " Inception "})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "3", results[0].ExternalID)
	assert.Equal(t, model.PriceSourceAppleHDPurchase, results[0].PriceSource)
	assert.Equal(t, 7.99, results[0].Price)
	assert.Equal(t, "Inception (2010)", results[0].Name)
	assert.Equal(t, 2010, results[0].Year)
	assert.Equal(t, "Sci-Fi", results[0].Genre)
	assert.Equal(t, catalog.KindMovie, results[0].Kind)

	assert.Equal(t, "2", results[1].ExternalID)
	assert.Equal(t, model.PriceSourceAppleRental, results[1].PriceSource)

	// collections sink to the bottom
	assert.Equal(t, "1", results[2].ExternalID)
}

func TestSearchMoviesTriesStrippedTitle(t *testing.T) {
	var terms []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		term := r.URL.Query().Get("term")
		terms = append(terms, term)
		if term == "Heat" {
			_, _ = w.Write([]byte(`{"resultCount":1,"results":[{"trackId":9,"trackName":"Heat","artistName":"Michael Mann","releaseDate":"1995-12-15"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"resultCount":0,"results":[]}`))
	})

	results, err := client.SearchMovies(context.Background(), catalog.MovieQuery{Title: "Heat (1995)"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"Heat (1995)", "Heat"}, terms)

	// no storefront price, estimated from the release year
	assert.Equal(t, model.PriceSourceEstimated, results[0].PriceSource)
	assert.Equal(t, 3.49, results[0].Price)
}

func TestSearchMoviesPrefersExactYearAndDirector(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"resultCount":2,"results":[
			{"trackId":1,"trackName":"Dune","artistName":"David Lynch","releaseDate":"1984-12-14","trackHdPrice":4.99},
			{"trackId":2,"trackName":"Dune","artistName":"Denis Villeneuve","releaseDate":"2021-10-21","trackPrice":9.99}
		]}`))
	})

	results, err := client.SearchMovies(context.Background(), catalog.MovieQuery{Title: "Dune", Director: "denis villeneuve", Year: 2021})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "2", results[0].ExternalID)
}

func TestSearchMoviesRateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.SearchMovies(context.Background(), catalog.MovieQuery{Title: "Heat"})
	require.Error(t, err)
	assert.True(t, pnerrors.IsRateLimitError(err))
	assert.Contains(t, err.Error(), "retry after 1m0s")
}

func TestSearchMoviesServerErrorIsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	results, err := client.SearchMovies(context.Background(), catalog.MovieQuery{Title: "Heat"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchMoviesConvertsCurrency(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"resultCount":1,"results":[{"trackId":5,"trackName":"Ronin","releaseDate":"1998","trackPrice":10.00,"currency":"USD"}]}`))
	})

	results, err := client.SearchMovies(context.Background(), catalog.MovieQuery{Title: "Ronin"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 7.90, results[0].Price, 0.001)
	assert.Equal(t, "GBP", results[0].Currency)
	assert.Equal(t, "Unknown Director", results[0].Director)
	assert.Contains(t, results[0].URL, "tv.apple.com/search?term=Ronin")
}

func TestLookupMovie(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lookup", r.URL.Path)
		if r.URL.Query().Get("id") == "404" {
			_, _ = w.Write([]byte(`{"resultCount":0,"results":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"resultCount":1,"results":[{"trackId":400763833,"trackName":"Inception","releaseDate":"2010","trackPrice":5.99}]}`))
	})

	movie, err := client.LookupMovie(context.Background(), "400763833")
	require.NoError(t, err)
	require.NotNil(t, movie)
	assert.Equal(t, "400763833", movie.ExternalID)
	assert.Equal(t, model.PriceSourceApplePurchase, movie.PriceSource)

	missing, err := client.LookupMovie(context.Background(), "404")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestQueryVariants(t *testing.T) {
	assert.Equal(t, []string{"Heat"}, queryVariants(" Heat "))
	assert.Equal(t, []string{"Alien (Director's Cut)", "Alien"}, queryVariants("Alien (Director's Cut)"))
	assert.Equal(t, []string{"(500) Days of Summer"}, queryVariants("(500) Days of Summer"))
}
