// Package importer implements the CSV movie import: preview sessions with
// per-row search and duplicate detection, caller edits, the confirmed
// commit, and the deferred processing of throttled searches.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lepinkainen/pricenest/internal/catalog"
	"github.com/lepinkainen/pricenest/internal/csvutil"
	"github.com/lepinkainen/pricenest/internal/datastore"
	pnerrors "github.com/lepinkainen/pricenest/internal/errors"
	"github.com/lepinkainen/pricenest/internal/model"
	"github.com/lepinkainen/pricenest/internal/pricing"
)

// Config holds the session and pending-processing policy.
type Config struct {
	SessionTTL time.Duration
	// MaxRetries is the number of failed attempts after which a pending
	// search is marked failed.
	MaxRetries int
	// BatchSize caps the searches handled by one ProcessPending pass.
	BatchSize int
	// BaseBackoff delays a retry by BaseBackoff * 2^(retries-1) after the
	// last attempt. Zero retries on every pass.
	BaseBackoff time.Duration
}

// Importer runs the movie import workflow against a store and a movie catalog.
type Importer struct {
	store    datastore.Store
	movies   catalog.MovieSearcher
	resolver *pricing.Resolver
	sessions *Manager
	cfg      Config
	now      func() time.Time
}

// New creates an Importer.
func New(store datastore.Store, movies catalog.MovieSearcher, resolver *pricing.Resolver, cfg Config) *Importer {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if resolver == nil {
		resolver = pricing.NewResolver()
	}
	return &Importer{
		store:    store,
		movies:   movies,
		resolver: resolver,
		sessions: NewManager(cfg.SessionTTL),
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Sessions exposes the session manager.
func (im *Importer) Sessions() *Manager {
	return im.sessions
}

func (im *Importer) movieCategory(ctx context.Context, categoryID int64) (*model.Category, error) {
	category, err := im.store.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if category.Type != model.CategoryMovies {
		return nil, invalid("category_id", "category %q must be of type %q", category.Name, model.CategoryMovies)
	}
	return category, nil
}

type parsedRow struct {
	index   int
	csv     CSVRow
	problem string
	note    string
}

func parseRow(row csvutil.Row) (parsedRow, error) {
	p := parsedRow{
		index: row.Index,
		csv: CSVRow{
			Title:    row.Get("title"),
			Director: row.Get("director"),
		},
	}
	if row.Err != nil {
		p.problem = fmt.Sprintf("Row %d: malformed CSV record: %v", row.Index+1, row.Err)
		return p, nil
	}
	if p.csv.Title == "" {
		p.problem = fmt.Sprintf("Row %d: missing title", row.Index+1)
		return p, nil
	}
	if raw := row.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year <= 0 {
			p.note = fmt.Sprintf("Ignored invalid year %q", raw)
		} else {
			p.csv.Year = year
		}
	}
	return p, nil
}

func parseCSV(r io.Reader) ([]parsedRow, error) {
	rows, err := csvutil.ProcessReader(r, parseRow, csvutil.ProcessorOptions{RequiredColumns: []string{"title"}})
	var missing *csvutil.MissingColumnError
	switch {
	case errors.As(err, &missing):
		return nil, invalid("file", "%s", missing.Error())
	case errors.Is(err, csvutil.ErrEmpty):
		return nil, invalid("file", "%s", err.Error())
	case err != nil:
		return nil, err
	}
	return rows, nil
}

// Preview parses the CSV in r, searches every row and stores the result as a
// new session. Problems with individual rows become row statuses; only an
// unusable file or category fails the call.
func (im *Importer) Preview(ctx context.Context, categoryID int64, filename string, r io.Reader) (*Preview, error) {
	category, err := im.movieCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	parsed, err := parseCSV(r)
	if err != nil {
		return nil, err
	}

	slog.Info("Previewing movie import", "category", category.Name, "file", filename, "rows", len(parsed))

	rows := make([]*Row, 0, len(parsed))
	throttled := false
	for _, p := range parsed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row := &Row{Index: p.index, CSV: p.csv, Candidates: []catalog.Result{}}
		rows = append(rows, row)

		switch {
		case p.problem != "":
			row.setError(p.problem)
		case throttled:
			// one throttled search is enough to know the rest will be too
			im.deferRow(ctx, category.ID, row, "Search deferred: catalog is rate limiting")
		default:
			im.searchRow(ctx, category, row)
			throttled = row.Status == StatusPending
		}

		if p.note != "" {
			row.Message = strings.TrimPrefix(row.Message+"; "+p.note, "; ")
		}
		if row.Status == StatusError || row.Status == StatusNotFound {
			slog.Warn("Import row unresolved", "row", row.Index, "title", row.CSV.Title, "status", row.Status, "message", row.Message)
		}
	}

	session := im.sessions.add(category.ID, filename, rows)
	session.mu.Lock()
	defer session.mu.Unlock()

	preview := session.snapshot()
	slog.Info("Import preview ready", "session", session.ID,
		"found", preview.Summary.Found, "not_found", preview.Summary.NotFound,
		"pending", preview.Summary.Pending, "errors", preview.Summary.Errors,
		"duplicates", preview.Summary.Duplicates)
	return preview, nil
}

func (im *Importer) searchRow(ctx context.Context, category *model.Category, row *Row) {
	results, err := im.movies.SearchMovies(ctx, row.CSV.query())
	switch {
	case pnerrors.IsRateLimitError(err):
		im.deferRow(ctx, category.ID, row, err.Error())
	case err != nil:
		row.setError(fmt.Sprintf("Search failed: %v", err))
	case len(results) == 0:
		row.setNotFound(fmt.Sprintf("No Apple Store results found for %q", row.CSV.Title))
	default:
		best, _ := im.resolver.Resolve(results)
		row.setFound(best, results)
		checkDuplicate(category.Items, row)
	}
}

// deferRow queues the row's search for ProcessPending.
func (im *Importer) deferRow(ctx context.Context, categoryID int64, row *Row, reason string) {
	p := &model.PendingMovieSearch{
		CategoryID: categoryID,
		Title:      row.CSV.Title,
		Director:   row.CSV.Director,
		Year:       row.CSV.Year,
		CSVRowData: encodeRowData(row.CSV),
	}
	if err := im.store.CreatePendingSearch(ctx, p); err != nil {
		row.setError(fmt.Sprintf("Failed to queue search: %v", err))
		return
	}
	row.setPending(p.ID, reason)
}

func encodeRowData(c CSVRow) string {
	year := ""
	if c.Year > 0 {
		year = strconv.Itoa(c.Year)
	}
	return strings.Join([]string{url.QueryEscape(c.Title), url.QueryEscape(c.Director), year}, "|")
}
