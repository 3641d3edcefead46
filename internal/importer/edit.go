package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lepinkainen/pricenest/internal/catalog"
	pnerrors "github.com/lepinkainen/pricenest/internal/errors"
	"github.com/lepinkainen/pricenest/internal/model"
)

// ManualEntry is movie data typed in by the user.
type ManualEntry struct {
	Title    string   `json:"title"`
	Director string   `json:"director"`
	Year     int      `json:"year"`
	URL      string   `json:"url"`
	Price    *float64 `json:"price"`
}

// result validates the entry and fills the defaults.
func (e ManualEntry) result() (catalog.Result, error) {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return catalog.Result{}, invalid("title", "is required")
	}
	if e.Year < 0 {
		return catalog.Result{}, invalid("year", "must not be negative")
	}

	price := 0.0
	if e.Price != nil {
		price = *e.Price
	}
	if price < 0 {
		return catalog.Result{}, invalid("price", "must not be negative")
	}

	director := strings.TrimSpace(e.Director)
	if director == "" {
		director = "Unknown Director"
	}
	link := strings.TrimSpace(e.URL)
	if link == "" {
		link = catalog.AppleTVSearchURL(title)
	}

	return catalog.Result{
		Kind:        catalog.KindMovie,
		Title:       title,
		Director:    director,
		Year:        e.Year,
		Name:        model.MovieDisplayName(title, e.Year),
		Price:       price,
		Currency:    "GBP",
		PriceSource: model.PriceSourceManualEntry,
		URL:         link,
	}, nil
}

// edit applies fn to one row under the session lock and returns the new snapshot.
func (im *Importer) edit(sessionID string, fn func(s *Session) error) (*Preview, error) {
	session, err := im.sessions.get(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if err := fn(session); err != nil {
		return nil, err
	}
	session.UpdatedAt = im.now()
	return session.snapshot(), nil
}

// Session returns the current state of a preview session.
func (im *Importer) Session(sessionID string) (*Preview, error) {
	return im.edit(sessionID, func(*Session) error { return nil })
}

// DeleteRow removes a row from the batch.
func (im *Importer) DeleteRow(sessionID string, index int) (*Preview, error) {
	return im.edit(sessionID, func(s *Session) error {
		row, err := s.row(index)
		if err != nil {
			return err
		}
		row.delete()
		return nil
	})
}

// BulkDelete removes several rows. Either all indexes are valid and every
// row is deleted, or nothing changes.
func (im *Importer) BulkDelete(sessionID string, indexes []int) (*Preview, error) {
	return im.edit(sessionID, func(s *Session) error {
		if len(indexes) == 0 {
			return invalid("rows", "at least one row index is required")
		}
		rows := make([]*Row, 0, len(indexes))
		for _, index := range indexes {
			row, err := s.row(index)
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		for _, row := range rows {
			row.delete()
		}
		return nil
	})
}

// OverrideDuplicate accepts a duplicate row for import anyway.
func (im *Importer) OverrideDuplicate(sessionID string, index int) (*Preview, error) {
	return im.edit(sessionID, func(s *Session) error {
		row, err := s.row(index)
		if err != nil {
			return err
		}
		return row.override()
	})
}

// ManualAdd replaces a row's match with user supplied data. The row becomes
// found without consulting the catalog or the duplicate check.
func (im *Importer) ManualAdd(sessionID string, index int, entry ManualEntry) (*Preview, error) {
	result, err := entry.result()
	if err != nil {
		return nil, err
	}
	return im.edit(sessionID, func(s *Session) error {
		row, err := s.row(index)
		if err != nil {
			return err
		}
		if err := row.editable(); err != nil {
			return err
		}
		row.setFound(result, []catalog.Result{result})
		return nil
	})
}

// SelectCandidate makes one of the row's earlier search results its match.
func (im *Importer) SelectCandidate(ctx context.Context, sessionID string, index, candidate int) (*Preview, error) {
	current, err := im.Session(sessionID)
	if err != nil {
		return nil, err
	}
	items, err := im.store.ListItems(ctx, current.CategoryID)
	if err != nil {
		return nil, err
	}

	return im.edit(sessionID, func(s *Session) error {
		row, err := s.row(index)
		if err != nil {
			return err
		}
		if err := row.editable(); err != nil {
			return err
		}
		if row.Status != StatusFound && row.Status != StatusDuplicate {
			return fmt.Errorf("row %d is %s: %w", row.Index, row.Status, ErrInvalidTransition)
		}
		if candidate < 0 || candidate >= len(row.Candidates) {
			return invalid("candidate", "must be between 0 and %d", len(row.Candidates)-1)
		}
		row.setFound(row.Candidates[candidate], row.Candidates)
		checkMatchDuplicate(items, row)
		return nil
	})
}

// SearchOutcome reports a manual re-search. When Updated is false the row
// was left as it was and Message says why.
type SearchOutcome struct {
	Updated bool     `json:"updated"`
	Message string   `json:"message,omitempty"`
	Preview *Preview `json:"preview"`
}

// ManualSearch searches the catalog with a caller supplied query. candidate
// selects among the results; nil lets price resolution pick.
func (im *Importer) ManualSearch(ctx context.Context, sessionID string, index int, query string, candidate *int) (*SearchOutcome, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("query", "is required")
	}

	// validate the target before spending a catalog call
	current, err := im.edit(sessionID, func(s *Session) error {
		row, err := s.row(index)
		if err != nil {
			return err
		}
		return row.editable()
	})
	if err != nil {
		return nil, err
	}

	results, err := im.movies.SearchMovies(ctx, catalog.MovieQuery{Title: query})
	switch {
	case pnerrors.IsRateLimitError(err):
		return &SearchOutcome{Message: "Catalog is rate limiting, try again later", Preview: current}, nil
	case err != nil:
		slog.Warn("Manual search failed", "session", sessionID, "row", index, "query", query, "error", err)
		return &SearchOutcome{Message: fmt.Sprintf("Search failed: %v", err), Preview: current}, nil
	case len(results) == 0:
		return &SearchOutcome{Message: fmt.Sprintf("No Apple Store results found for %q", query), Preview: current}, nil
	}

	var match catalog.Result
	if candidate == nil {
		match, _ = im.resolver.Resolve(results)
	} else {
		if *candidate < 0 || *candidate >= len(results) {
			return nil, invalid("candidate", "must be between 0 and %d", len(results)-1)
		}
		match = results[*candidate]
	}

	items, err := im.store.ListItems(ctx, current.CategoryID)
	if err != nil {
		return nil, err
	}

	preview, err := im.edit(sessionID, func(s *Session) error {
		row, err := s.row(index)
		if err != nil {
			return err
		}
		if err := row.editable(); err != nil {
			return err
		}
		row.setFound(match, results)
		checkMatchDuplicate(items, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &SearchOutcome{Updated: true, Preview: preview}, nil
}
