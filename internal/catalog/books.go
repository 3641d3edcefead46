package catalog

import (
	"context"
	"log/slog"

	"github.com/lepinkainen/pricenest/internal/model"
)

// SourceSample marks a BookSearchResult made of placeholders.
const SourceSample = "sample"

// BookSearchResult is the outcome of a book search across sources.
type BookSearchResult struct {
	Books  []Result `json:"books"`
	Total  int      `json:"total"`
	Source string   `json:"source"`
}

// Sample reports whether no real source answered.
func (r BookSearchResult) Sample() bool {
	return r.Source == SourceSample
}

// BookSearcher picks between Kobo and Google Books.
type BookSearcher struct {
	kobo   BookSource
	google BookSource
}

// NewBookSearcher wires the two book catalogs. Either may be nil.
func NewBookSearcher(kobo, google BookSource) *BookSearcher {
	return &BookSearcher{kobo: kobo, google: google}
}

type namedSource struct {
	name   model.BookSource
	source BookSource
}

func (b *BookSearcher) order(source model.BookSource) []namedSource {
	kobo := namedSource{model.BookSourceKobo, b.kobo}
	google := namedSource{model.BookSourceGoogleBooks, b.google}

	switch source {
	case model.BookSourceKobo:
		return []namedSource{kobo}
	case model.BookSourceGoogleBooks:
		return []namedSource{google}
	default:
		return []namedSource{kobo, google}
	}
}

// Search queries the selected source. With auto, Kobo is tried first and
// Google Books only when Kobo fails or finds nothing. Failures are logged and
// treated as empty; when nothing answers the sample placeholders are returned.
// The only error is a cancelled context.
func (b *BookSearcher) Search(ctx context.Context, query string, source model.BookSource) (BookSearchResult, error) {
	for _, candidate := range b.order(source) {
		if candidate.source == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return BookSearchResult{}, err
		}

		books, err := candidate.source.SearchBooks(ctx, query)
		if err != nil {
			slog.Warn("Book source failed", "source", candidate.name, "query", query, "error", err)
			continue
		}
		if len(books) == 0 {
			slog.Debug("Book source returned no results", "source", candidate.name, "query", query)
			continue
		}
		return BookSearchResult{Books: books, Total: len(books), Source: string(candidate.name)}, nil
	}

	if err := ctx.Err(); err != nil {
		return BookSearchResult{}, err
	}

	samples := SampleBooks(query)
	return BookSearchResult{Books: samples, Total: len(samples), Source: SourceSample}, nil
}
