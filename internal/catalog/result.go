// Package catalog defines the normalized search result shared by the
// storefront adapters and the book source selection built on top of them.
package catalog

import (
	"context"
	"fmt"
	"net/url"

	"github.com/lepinkainen/pricenest/internal/model"
)

// Kind distinguishes book results from movie results.
type Kind string

const (
	KindBook  Kind = "book"
	KindMovie Kind = "movie"
)

// SamplePrice is the placeholder price of sample results.
const SamplePrice = 9.99

// Result is one normalized catalog hit.
type Result struct {
	Kind        Kind              `json:"kind"`
	Title       string            `json:"title"`
	Author      string            `json:"author,omitempty"`
	Director    string            `json:"director,omitempty"`
	Year        int               `json:"year,omitempty"`
	Genre       string            `json:"genre,omitempty"`
	Name        string            `json:"name"`
	Price       float64           `json:"price"`
	Currency    string            `json:"currency"`
	PriceSource model.PriceSource `json:"priceSource"`
	URL         string            `json:"url"`
	ExternalID  string            `json:"externalId,omitempty"`
	Artwork     string            `json:"artwork,omitempty"`
	Description string            `json:"description,omitempty"`
	PageCount   int               `json:"pageCount,omitempty"`
}

// ToItem converts the result into an unsaved item of categoryID.
func (r Result) ToItem(categoryID int64) model.Item {
	return model.Item{
		CategoryID: categoryID,
		Name:       r.Name,
		Title:      r.Title,
		Author:     r.Author,
		Director:   r.Director,
		Year:       r.Year,
		URL:        r.URL,
		Price:      r.Price,
		ExternalID: r.ExternalID,
	}
}

// MovieQuery describes a movie lookup. Director and Year only rank results.
type MovieQuery struct {
	Title    string
	Director string
	Year     int
}

func (q MovieQuery) String() string {
	switch {
	case q.Director != "" && q.Year > 0:
		return fmt.Sprintf("%s (%d, %s)", q.Title, q.Year, q.Director)
	case q.Year > 0:
		return fmt.Sprintf("%s (%d)", q.Title, q.Year)
	case q.Director != "":
		return fmt.Sprintf("%s (%s)", q.Title, q.Director)
	}
	return q.Title
}

// MovieSearcher finds movies by title.
type MovieSearcher interface {
	SearchMovies(ctx context.Context, q MovieQuery) ([]Result, error)
}

// MovieLookup fetches one movie by its storefront id. A nil result with a nil
// error means the id is unknown.
type MovieLookup interface {
	LookupMovie(ctx context.Context, id string) (*Result, error)
}

// BookSource is a single book catalog.
type BookSource interface {
	SearchBooks(ctx context.Context, query string) ([]Result, error)
}

// KoboSearchURL is the UK storefront search page for query.
func KoboSearchURL(query string) string {
	return "https://www.kobo.com/gb/en/search?query=" + url.QueryEscape(query)
}

// AppleTVSearchURL is the Apple TV search page for title.
func AppleTVSearchURL(title string) string {
	return "https://tv.apple.com/search?term=" + url.QueryEscape(title)
}

// SampleBooks returns the placeholder shown when no book source answers.
func SampleBooks(query string) []Result {
	title := query + " - Sample Book"
	return []Result{{
		Kind:        KindBook,
		Title:       title,
		Author:      "Sample Author",
		Name:        model.BookDisplayName(title, "Sample Author"),
		Price:       SamplePrice,
		Currency:    "GBP",
		PriceSource: model.PriceSourceSample,
		URL:         KoboSearchURL(query),
		Description: fmt.Sprintf("No catalog returned results for %q", query),
	}}
}
