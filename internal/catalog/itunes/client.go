// Package itunes searches the Apple iTunes Store for movies.
package itunes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lepinkainen/pricenest/internal/catalog"
	pnerrors "github.com/lepinkainen/pricenest/internal/errors"
	"github.com/lepinkainen/pricenest/internal/model"
	"github.com/lepinkainen/pricenest/internal/pricing"
	"github.com/lepinkainen/pricenest/internal/ratelimit"
)

const (
	defaultBaseURL   = "https://itunes.apple.com"
	defaultCountry   = "GB"
	defaultPerMinute = 20 // documented Search API quota
	searchLimit      = 15
	maxResults       = 10
	sourceName       = "itunes"
)

var yearPattern = regexp.MustCompile(`(\d{4})`)

// Client talks to the iTunes Search and Lookup APIs.
type Client struct {
	transport *catalog.Transport
	country   string
	converter *pricing.Converter
	now       func() time.Time
}

// NewClient creates an iTunes client for the given storefront country.
func NewClient(country string, converter *pricing.Converter, opts ...catalog.Option) *Client {
	if country == "" {
		country = defaultCountry
	}
	if converter == nil {
		converter = pricing.NewConverter(nil)
	}
	defaults := catalog.Options{
		BaseURL:     defaultBaseURL,
		RateLimiter: ratelimit.PerMinute("iTunes", defaultPerMinute),
	}
	return &Client{
		transport: catalog.NewTransport(sourceName, defaults, opts...),
		country:   strings.ToUpper(country),
		converter: converter,
		now:       time.Now,
	}
}

type response struct {
	ResultCount int     `json:"resultCount"`
	Results     []track `json:"results"`
}

type track struct {
	TrackID          int64   `json:"trackId"`
	TrackName        string  `json:"trackName"`
	ArtistName       string  `json:"artistName"`
	ReleaseDate      string  `json:"releaseDate"`
	PrimaryGenreName string  `json:"primaryGenreName"`
	TrackHdPrice     float64 `json:"trackHdPrice"`
	TrackPrice       float64 `json:"trackPrice"`
	CollectionPrice  float64 `json:"collectionPrice"`
	TrackRentalPrice float64 `json:"trackRentalPrice"`
	Currency         string  `json:"currency"`
	TrackViewURL     string  `json:"trackViewUrl"`
	ArtworkURL100    string  `json:"artworkUrl100"`
	LongDescription  string  `json:"longDescription"`
	ShortDescription string  `json:"shortDescription"`
}

// queryVariants lists the search terms tried in order: the title as given,
// then the title without a trailing parenthetical such as a year.
func queryVariants(title string) []string {
	title = strings.TrimSpace(title)
	variants := []string{title}
	if idx := strings.Index(title, "("); idx > 0 {
		if stripped := strings.TrimSpace(title[:idx]); stripped != title {
			variants = append(variants, stripped)
		}
	}
	return variants
}

// SearchMovies searches the store, trying each query variant until one
// returns results. Throttling surfaces as a RateLimitError; other non-2xx
// answers move on to the next variant.
func (c *Client) SearchMovies(ctx context.Context, q catalog.MovieQuery) ([]catalog.Result, error) {
	var lastErr error

	for _, term := range queryVariants(q.Title) {
		if term == "" {
			continue
		}

		params := url.Values{}
		params.Set("term", term)
		params.Set("media", "movie")
		params.Set("entity", "movie")
		params.Set("country", c.country)
		params.Set("limit", strconv.Itoa(searchLimit))

		var resp response
		err := c.transport.GetJSON(ctx, c.transport.Endpoint("/search", params), &resp)
		switch {
		case pnerrors.IsRateLimitError(err):
			return nil, err
		case pnerrors.IsUpstreamError(err):
			slog.Debug("iTunes search variant failed", "term", term, "error", err)
			continue
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, err
		case err != nil:
			slog.Debug("iTunes search request failed", "term", term, "error", err)
			lastErr = err
			continue
		}

		slog.Debug("iTunes search", "term", term, "results", len(resp.Results))
		if len(resp.Results) > 0 {
			return c.rank(q, c.convert(resp.Results)), nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("itunes search for %q: %w", q.Title, lastErr)
	}
	return []catalog.Result{}, nil
}

// LookupMovie fetches a single movie by track id. An unknown id yields nil.
func (c *Client) LookupMovie(ctx context.Context, id string) (*catalog.Result, error) {
	params := url.Values{}
	params.Set("id", id)
	params.Set("country", c.country)
	params.Set("entity", "movie")

	var resp response
	if err := c.transport.GetJSON(ctx, c.transport.Endpoint("/lookup", params), &resp); err != nil {
		return nil, fmt.Errorf("itunes lookup %s: %w", id, err)
	}

	results := c.convert(resp.Results)
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

func (c *Client) convert(tracks []track) []catalog.Result {
	results := make([]catalog.Result, 0, len(tracks))
	for _, t := range tracks {
		if len(results) == maxResults {
			break
		}
		if t.TrackName == "" {
			continue
		}
		results = append(results, c.toResult(t))
	}
	return results
}

func (c *Client) toResult(t track) catalog.Result {
	year := extractYear(t.ReleaseDate)

	director := t.ArtistName
	if director == "" {
		director = "Unknown Director"
	}
	genre := t.PrimaryGenreName
	if genre == "" {
		genre = "Unknown"
	}
	link := t.TrackViewURL
	if link == "" {
		link = catalog.AppleTVSearchURL(t.TrackName)
	}
	description := t.LongDescription
	if description == "" {
		description = t.ShortDescription
	}

	r := catalog.Result{
		Kind:        catalog.KindMovie,
		Title:       t.TrackName,
		Director:    director,
		Year:        year,
		Genre:       genre,
		Name:        model.MovieDisplayName(t.TrackName, year),
		URL:         link,
		Artwork:     t.ArtworkURL100,
		Description: description,
		Currency:    pricing.Base,
	}
	if t.TrackID > 0 {
		r.ExternalID = strconv.FormatInt(t.TrackID, 10)
	}

	price, source := pickPrice(t)
	if source == model.PriceSourceEstimated {
		r.Price = pricing.EstimateMoviePrice(year, c.now())
	} else {
		r.Price = c.converter.ToGBP(price, t.Currency)
	}
	r.PriceSource = source
	return r
}

// pickPrice prefers purchase prices over rentals.
func pickPrice(t track) (float64, model.PriceSource) {
	switch {
	case t.TrackHdPrice > 0:
		return t.TrackHdPrice, model.PriceSourceAppleHDPurchase
	case t.TrackPrice > 0:
		return t.TrackPrice, model.PriceSourceApplePurchase
	case t.CollectionPrice > 0:
		return t.CollectionPrice, model.PriceSourceAppleCollection
	case t.TrackRentalPrice > 0:
		return t.TrackRentalPrice, model.PriceSourceAppleRental
	}
	return 0, model.PriceSourceEstimated
}

func pricePriority(source model.PriceSource) int {
	switch source {
	case model.PriceSourceAppleHDPurchase:
		return 0
	case model.PriceSourceApplePurchase:
		return 1
	case model.PriceSourceAppleCollection:
		return 2
	case model.PriceSourceAppleRental:
		return 3
	}
	return 4
}

func isCollection(r catalog.Result) bool {
	text := strings.ToLower(r.URL + " " + r.Description)
	return strings.Contains(text, "collection") || strings.Contains(text, "bundle")
}

// mismatches counts how many of the query's year and director the result misses.
func mismatches(q catalog.MovieQuery, r catalog.Result) int {
	n := 0
	if q.Year > 0 && r.Year != q.Year {
		n++
	}
	if d := strings.TrimSpace(q.Director); d != "" && !strings.EqualFold(d, strings.TrimSpace(r.Director)) {
		n++
	}
	return n
}

func sortPrice(r catalog.Result) float64 {
	if r.Price <= 0 {
		return 999
	}
	return r.Price
}

func (c *Client) rank(q catalog.MovieQuery, results []catalog.Result) []catalog.Result {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if ma, mb := mismatches(q, a), mismatches(q, b); ma != mb {
			return ma < mb
		}
		if ca, cb := isCollection(a), isCollection(b); ca != cb {
			return !ca
		}
		if pa, pb := pricePriority(a.PriceSource), pricePriority(b.PriceSource); pa != pb {
			return pa < pb
		}
		return sortPrice(a) < sortPrice(b)
	})
	return results
}

func extractYear(releaseDate string) int {
	match := yearPattern.FindString(releaseDate)
	if match == "" {
		return 0
	}
	year, _ := strconv.Atoi(match)
	return year
}
