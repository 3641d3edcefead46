// Package kobo scrapes the Kobo UK storefront search page.
package kobo

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/lepinkainen/pricenest/internal/catalog"
	pnerrors "github.com/lepinkainen/pricenest/internal/errors"
	"github.com/lepinkainen/pricenest/internal/model"
	"github.com/lepinkainen/pricenest/internal/pricing"
)

const (
	defaultBaseURL = "https://www.kobo.com"
	searchPath     = "/gb/en/search"
	sourceName     = "kobo"
	maxResults     = 10
)

// Client searches Kobo through a Fetcher.
type Client struct {
	fetcher   Fetcher
	baseURL   string
	converter *pricing.Converter
}

// NewClient creates a Kobo client. An empty baseURL uses the live storefront.
func NewClient(fetcher Fetcher, converter *pricing.Converter, baseURL string) *Client {
	if fetcher == nil {
		fetcher = NewHTTPFetcher()
	}
	if converter == nil {
		converter = pricing.NewConverter(nil)
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{fetcher: fetcher, baseURL: strings.TrimSuffix(baseURL, "/"), converter: converter}
}

func (c *Client) searchURL(query string) string {
	return c.baseURL + searchPath + "?query=" + url.QueryEscape(query)
}

// SearchBooks parses the storefront result cards for query.
func (c *Client) SearchBooks(ctx context.Context, query string) ([]catalog.Result, error) {
	page, err := c.fetcher.Fetch(ctx, c.searchURL(query))
	if pnerrors.IsUpstreamError(err) {
		slog.Debug("Kobo search failed", "query", query, "error", err)
		return []catalog.Result{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kobo search for %q: %w", query, err)
	}

	cards, err := parseCards(page)
	if err != nil {
		return nil, fmt.Errorf("kobo: failed to parse search page: %w", err)
	}

	books := make([]catalog.Result, 0, len(cards))
	for _, card := range cards {
		if len(books) == maxResults {
			break
		}
		books = append(books, c.toResult(card))
	}

	slog.Debug("Kobo search", "query", query, "results", len(books))
	return books, nil
}

func (c *Client) toResult(card card) catalog.Result {
	author := strings.Join(card.Authors, ", ")
	if author == "" {
		author = "Unknown Author"
	}

	link := card.Href
	if strings.HasPrefix(link, "/") {
		link = c.baseURL + link
	}
	if link == "" {
		link = catalog.KoboSearchURL(card.Title)
	}

	r := catalog.Result{
		Kind:        catalog.KindBook,
		Title:       card.Title,
		Author:      author,
		Name:        model.BookDisplayName(card.Title, author),
		URL:         link,
		Artwork:     card.Artwork,
		Description: card.Synopsis,
		Currency:    pricing.Base,
	}
	if card.Href != "" {
		r.ExternalID = path.Base(strings.TrimSuffix(strings.SplitN(card.Href, "?", 2)[0], "/"))
	}

	if card.Price > 0 {
		r.Price = c.converter.ToGBP(card.Price, card.Currency)
		r.PriceSource = model.PriceSourceKobo
	} else {
		r.Price = pricing.EstimateBookPrice(0)
		r.PriceSource = model.PriceSourceEstimated
	}
	return r
}
