package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lepinkainen/pricenest/internal/catalog"
	"github.com/lepinkainen/pricenest/internal/config"
	"github.com/lepinkainen/pricenest/internal/export"
	"github.com/lepinkainen/pricenest/internal/model"
)

// PendingCmd groups the deferred-search subcommands
type PendingCmd struct {
	Process PendingProcessCmd `cmd:"" help:"Run one pass over the pending movie searches"`
	List    PendingListCmd    `cmd:"" help:"List pending movie searches"`
}

// PendingProcessCmd runs the pending-search job once
type PendingProcessCmd struct{}

func (p *PendingProcessCmd) Run() error {
	ctx := context.Background()
	a, err := openApp(ctx, config.Load())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	result, err := a.importer.ProcessPending(ctx)
	if err != nil {
		return err
	}
	slog.Info("Pending searches processed",
		"processed", result.Processed, "imported", result.Imported, "duplicates", result.Duplicates,
		"failed", result.Failed, "skipped", result.Skipped, "throttled", result.Throttled)
	return nil
}

// PendingListCmd prints queued searches
type PendingListCmd struct {
	Status string `help:"Only show searches in this status" enum:"all,pending,completed,failed" default:"all"`
}

func (p *PendingListCmd) Run() error {
	ctx := context.Background()
	a, err := openApp(ctx, config.Load())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	status := model.PendingStatus(p.Status)
	if p.Status == "all" {
		status = ""
	}
	searches, err := a.importer.ListPending(ctx, status)
	if err != nil {
		return err
	}
	for _, s := range searches {
		_, _ = fmt.Fprintf(stdout, "%5d  %-9s  retries=%d  %s\n", s.ID, s.Status, s.RetryCount, model.MovieDisplayName(s.Title, s.Year))
	}
	return nil
}

// RefreshCmd re-prices one item or a whole category
type RefreshCmd struct {
	Category int64 `help:"Refresh every item of this category" xor:"target" required:""`
	Item     int64 `help:"Refresh a single item" xor:"target" required:""`
}

func (r *RefreshCmd) Run() error {
	ctx := context.Background()
	a, err := openApp(ctx, config.Load())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if r.Item != 0 {
		outcome, err := a.refresher.Refresh(ctx, r.Item)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "%s: £%.2f -> £%.2f (%s, updated=%t)\n",
			outcome.Item.Name, outcome.Refresh.OldPrice, outcome.Refresh.NewPrice,
			outcome.Refresh.Source, outcome.Refresh.Updated)
		return nil
	}

	result, err := a.refresher.RefreshAll(ctx, r.Category)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "processed %d, updated %d, failed %d\n",
		result.ProcessedCount, result.UpdatedCount, result.FailedCount)
	return nil
}

// SearchCmd groups the ad-hoc catalog searches
type SearchCmd struct {
	Books  SearchBooksCmd  `cmd:"" help:"Search Kobo and Google Books"`
	Movies SearchMoviesCmd `cmd:"" help:"Search the Apple Store for movies"`
}

// SearchBooksCmd searches the book catalogs
type SearchBooksCmd struct {
	Query  []string `arg:"" help:"Search terms"`
	Source string   `help:"Book source" enum:"auto,kobo,google_books" default:"auto"`
}

func (s *SearchBooksCmd) Run() error {
	ctx := context.Background()
	a, err := openApp(ctx, config.Load())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	result, err := a.books.Search(ctx, strings.Join(s.Query, " "), model.BookSource(s.Source))
	if err != nil {
		return err
	}
	printResults(stdout, result.Books)
	if result.Sample() {
		_, _ = fmt.Fprintln(stdout, "(no catalog answered; showing sample results)")
	}
	return nil
}

// SearchMoviesCmd searches the movie catalog
type SearchMoviesCmd struct {
	Query    []string `arg:"" help:"Movie title"`
	Director string   `help:"Director, used to rank results"`
	Year     int      `help:"Release year, used to rank results"`
}

func (s *SearchMoviesCmd) Run() error {
	ctx := context.Background()
	a, err := openApp(ctx, config.Load())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	results, err := a.movies.SearchMovies(ctx, catalog.MovieQuery{
		Title:    strings.Join(s.Query, " "),
		Director: s.Director,
		Year:     s.Year,
	})
	if err != nil {
		return err
	}
	printResults(stdout, results)
	return nil
}

func printResults(w io.Writer, results []catalog.Result) {
	if len(results) == 0 {
		_, _ = fmt.Fprintln(w, "no results")
		return
	}
	for _, r := range results {
		_, _ = fmt.Fprintf(w, "£%7.2f  %-18s  %s\n", r.Price, r.PriceSource, r.Name)
		if r.URL != "" {
			_, _ = fmt.Fprintf(w, "          %s\n", r.URL)
		}
	}
}

// ExportCmd writes the YAML snapshot
type ExportCmd struct {
	Output    string `short:"o" help:"Write to this file instead of stdout"`
	Overwrite bool   `help:"Replace an existing output file"`
}

func (e *ExportCmd) Run() error {
	ctx := context.Background()
	a, err := openApp(ctx, config.Load())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	snapshot, err := export.Build(ctx, a.store, time.Now())
	if err != nil {
		return err
	}
	if e.Output == "" {
		return export.Encode(stdout, snapshot)
	}
	_, err = export.WriteFile(e.Output, snapshot, e.Overwrite)
	return err
}
