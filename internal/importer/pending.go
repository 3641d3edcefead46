package importer

import (
	"context"
	"log/slog"
	"time"

	"github.com/lepinkainen/pricenest/internal/catalog"
	pnerrors "github.com/lepinkainen/pricenest/internal/errors"
	"github.com/lepinkainen/pricenest/internal/model"
)

// PendingResult summarizes one ProcessPending pass.
type PendingResult struct {
	Processed  int  `json:"processed"`
	Imported   int  `json:"imported"`
	Duplicates int  `json:"duplicates"`
	Failed     int  `json:"failed"`
	Skipped    int  `json:"skipped"`
	Throttled  bool `json:"throttled"`
}

// ListPending returns queued searches in status; empty lists all.
func (im *Importer) ListPending(ctx context.Context, status model.PendingStatus) ([]model.PendingMovieSearch, error) {
	return im.store.ListPendingSearches(ctx, status, 0)
}

func (im *Importer) backoffUntil(p model.PendingMovieSearch) time.Time {
	if im.cfg.BaseBackoff <= 0 || p.LastAttempted == nil || p.RetryCount == 0 {
		return time.Time{}
	}
	delay := im.cfg.BaseBackoff << uint(p.RetryCount-1)
	return p.LastAttempted.Add(delay)
}

// ProcessPending retries the oldest queued searches, up to the batch size.
// A hit imports the best result and completes the search, unless the category
// gained the movie meanwhile, in which case the search completes without an
// import. A miss or error counts as a retry, and reaching the retry ceiling
// marks it failed. The pass stops at the first rate-limit answer, which does
// not count as a retry.
func (im *Importer) ProcessPending(ctx context.Context) (*PendingResult, error) {
	queued, err := im.store.ListPendingSearches(ctx, model.PendingStatusPending, im.cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	result := &PendingResult{}
	for _, p := range queued {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		now := im.now()
		if now.Before(im.backoffUntil(p)) {
			result.Skipped++
			continue
		}
		p.LastAttempted = &now

		results, err := im.movies.SearchMovies(ctx, catalog.MovieQuery{Title: p.Title, Director: p.Director, Year: p.Year})
		if pnerrors.IsRateLimitError(err) {
			slog.Info("Still rate limited, stopping pending processing", "title", p.Title)
			if err := im.store.UpdatePendingSearch(ctx, &p); err != nil {
				slog.Warn("Failed to update pending search", "id", p.ID, "error", err)
			}
			result.Throttled = true
			break
		}

		p.RetryCount++
		outcome := pendingMissed
		switch {
		case err != nil:
			slog.Warn("Pending search failed", "title", p.Title, "attempt", p.RetryCount, "error", err)
		case len(results) == 0:
			slog.Info("Movie still not found, will retry", "title", p.Title, "attempt", p.RetryCount)
		default:
			outcome = im.importPending(ctx, p, results)
		}

		switch {
		case outcome == pendingImported:
			p.Status = model.PendingStatusCompleted
			result.Imported++
		case outcome == pendingDuplicate:
			p.Status = model.PendingStatusCompleted
			result.Duplicates++
		case p.RetryCount >= im.cfg.MaxRetries:
			p.Status = model.PendingStatusFailed
			result.Failed++
			slog.Warn("Giving up on pending search", "title", p.Title, "attempts", p.RetryCount)
		}

		if err := im.store.UpdatePendingSearch(ctx, &p); err != nil {
			slog.Warn("Failed to update pending search", "id", p.ID, "error", err)
		}
		result.Processed++
	}

	slog.Info("Processed pending searches", "processed", result.Processed, "imported", result.Imported,
		"duplicates", result.Duplicates, "failed", result.Failed)
	return result, nil
}

type pendingOutcome int

const (
	pendingMissed pendingOutcome = iota
	pendingImported
	pendingDuplicate
)

func (im *Importer) importPending(ctx context.Context, p model.PendingMovieSearch, results []catalog.Result) pendingOutcome {
	best, _ := im.resolver.Resolve(results)
	row := &Row{CSV: CSVRow{Title: p.Title, Director: p.Director, Year: p.Year}}
	row.setFound(best, results)

	existing, err := im.store.ListItems(ctx, p.CategoryID)
	if err != nil {
		slog.Warn("Failed to load category for pending movie", "title", p.Title, "error", err)
		return pendingMissed
	}
	checkDuplicate(existing, row)
	if row.Status == StatusDuplicate {
		slog.Info("Pending movie already in category", "title", p.Title, "existing", row.ExistingItem.Name, "reason", row.DuplicateReason)
		return pendingDuplicate
	}

	item := rowItem(row, p.CategoryID)
	if err := im.store.CreateItem(ctx, &item); err != nil {
		slog.Warn("Failed to import pending movie", "title", p.Title, "error", err)
		return pendingMissed
	}
	slog.Info("Imported pending movie", "title", item.Name, "price", item.Price)
	return pendingImported
}

// AddManualMovie creates an item straight from user data, bypassing the
// catalog.
func (im *Importer) AddManualMovie(ctx context.Context, categoryID int64, entry ManualEntry) (*model.Item, error) {
	result, err := entry.result()
	if err != nil {
		return nil, err
	}
	if _, err := im.movieCategory(ctx, categoryID); err != nil {
		return nil, err
	}

	item := rowItem(&Row{BestMatch: &result}, categoryID)
	if err := im.store.CreateItem(ctx, &item); err != nil {
		return nil, err
	}
	slog.Info("Added movie manually", "title", item.Name, "category", categoryID)
	return &item, nil
}
