// Package googlebooks searches the Google Books volumes API.
package googlebooks

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/lepinkainen/pricenest/internal/catalog"
	pnerrors "github.com/lepinkainen/pricenest/internal/errors"
	"github.com/lepinkainen/pricenest/internal/model"
	"github.com/lepinkainen/pricenest/internal/pricing"
	"github.com/lepinkainen/pricenest/internal/ratelimit"
)

const (
	defaultBaseURL       = "https://www.googleapis.com/books/v1"
	defaultCountry       = "GB"
	defaultRatePerSecond = 5
	maxResults           = 10
	sourceName           = "googlebooks"
)

// Client searches Google Books.
type Client struct {
	transport *catalog.Transport
	apiKey    string
	country   string
	converter *pricing.Converter
}

// NewClient creates a Google Books client. apiKey may be empty.
func NewClient(apiKey, country string, converter *pricing.Converter, opts ...catalog.Option) *Client {
	if country == "" {
		country = defaultCountry
	}
	if converter == nil {
		converter = pricing.NewConverter(nil)
	}
	defaults := catalog.Options{
		BaseURL:     defaultBaseURL,
		RateLimiter: ratelimit.New("GoogleBooks", defaultRatePerSecond),
	}
	return &Client{
		transport: catalog.NewTransport(sourceName, defaults, opts...),
		apiKey:    apiKey,
		country:   strings.ToUpper(country),
		converter: converter,
	}
}

type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

type volume struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
	SaleInfo   saleInfo   `json:"saleInfo"`
}

type volumeInfo struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	PublishedDate string   `json:"publishedDate"`
	Description   string   `json:"description"`
	PageCount     int      `json:"pageCount"`
	Categories    []string `json:"categories"`
	ImageLinks    struct {
		Thumbnail string `json:"thumbnail"`
	} `json:"imageLinks"`
}

type saleInfo struct {
	ListPrice *amount `json:"listPrice"`
}

type amount struct {
	Amount       float64 `json:"amount"`
	CurrencyCode string  `json:"currencyCode"`
}

// SearchBooks returns up to ten volumes, real prices first.
// Non-2xx answers other than throttling are an empty result.
func (c *Client) SearchBooks(ctx context.Context, query string) ([]catalog.Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", fmt.Sprint(maxResults))
	params.Set("printType", "books")
	params.Set("country", c.country)
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	var resp volumesResponse
	err := c.transport.GetJSON(ctx, c.transport.Endpoint("/volumes", params), &resp)
	if pnerrors.IsUpstreamError(err) {
		slog.Debug("Google Books search failed", "query", query, "error", err)
		return []catalog.Result{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("google books search for %q: %w", query, err)
	}

	books := make([]catalog.Result, 0, len(resp.Items))
	for _, v := range resp.Items {
		if len(books) == maxResults {
			break
		}
		if v.VolumeInfo.Title == "" {
			continue
		}
		books = append(books, c.toResult(v))
	}

	sort.SliceStable(books, func(i, j int) bool {
		ri, rj := books[i].PriceSource.Rank(), books[j].PriceSource.Rank()
		if ri != rj {
			return ri < rj
		}
		return books[i].Price < books[j].Price
	})

	slog.Debug("Google Books search", "query", query, "results", len(books))
	return books, nil
}

func (c *Client) toResult(v volume) catalog.Result {
	info := v.VolumeInfo
	author := strings.Join(info.Authors, ", ")
	if author == "" {
		author = "Unknown Author"
	}

	r := catalog.Result{
		Kind:        catalog.KindBook,
		Title:       info.Title,
		Author:      author,
		Year:        publishedYear(info.PublishedDate),
		Name:        model.BookDisplayName(info.Title, author),
		URL:         catalog.KoboSearchURL(info.Title),
		ExternalID:  v.ID,
		Artwork:     info.ImageLinks.Thumbnail,
		Description: info.Description,
		PageCount:   info.PageCount,
		Currency:    pricing.Base,
	}
	if len(info.Categories) > 0 {
		r.Genre = info.Categories[0]
	}

	if lp := v.SaleInfo.ListPrice; lp != nil && lp.Amount > 0 {
		r.Price = c.converter.ToGBP(lp.Amount, lp.CurrencyCode)
		r.PriceSource = model.PriceSourceGoogleBooks
	} else {
		r.Price = pricing.EstimateBookPrice(info.PageCount)
		r.PriceSource = model.PriceSourceEstimated
	}
	return r
}

func publishedYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	var year int
	if _, err := fmt.Sscanf(date[:4], "%d", &year); err != nil {
		return 0
	}
	return year
}
