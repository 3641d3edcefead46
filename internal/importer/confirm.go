package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/pricenest/internal/catalog"
	"github.com/lepinkainen/pricenest/internal/model"
)

// ConfirmResult reports a committed import.
type ConfirmResult struct {
	Imported int          `json:"imported"`
	Failed   int          `json:"failed"`
	Total    int          `json:"total"`
	Items    []model.Item `json:"items"`
	Errors   []string     `json:"errors"`
}

func rowItem(row *Row, categoryID int64) model.Item {
	item := row.BestMatch.ToItem(categoryID)
	if item.Title == "" {
		item.Title = row.CSV.Title
	}
	if item.Director == "" {
		item.Director = row.CSV.Director
	}
	if item.Director == "" {
		item.Director = "Unknown Director"
	}
	if item.Year == 0 {
		item.Year = row.CSV.Year
	}
	if item.URL == "" {
		item.URL = catalog.AppleTVSearchURL(item.Title)
	}
	item.FillDefaults(model.CategoryMovies)
	return item
}

// Confirm commits every found row of the session as an item. It refuses to
// run while any row is not found or failed. pending and duplicate rows are
// skipped. Each row is written on its own, so one failure does not stop the
// rest. Queued searches of deleted rows are cancelled so ProcessPending never
// imports them. The session is discarded afterwards.
func (im *Importer) Confirm(ctx context.Context, sessionID string) (*ConfirmResult, error) {
	session, err := im.sessions.get(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	unresolved := 0
	for _, row := range session.Rows {
		if row.unresolved() {
			unresolved++
		}
	}
	if unresolved > 0 {
		return nil, &UnresolvedRowsError{Count: unresolved}
	}

	if _, err := im.movieCategory(ctx, session.CategoryID); err != nil {
		return nil, err
	}

	result := &ConfirmResult{Items: []model.Item{}, Errors: []string{}}
	var resolvedPending, cancelledPending []int64

	for _, row := range session.Rows {
		if row.Deleted && row.PendingID != 0 {
			cancelledPending = append(cancelledPending, row.PendingID)
		}
		if row.Deleted || row.Status != StatusFound || row.BestMatch == nil {
			continue
		}
		result.Total++

		item := rowItem(row, session.CategoryID)
		if err := im.store.CreateItem(ctx, &item); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d (%s): %v", row.Index+1, row.CSV.Title, err))
			slog.Warn("Failed to import row", "session", sessionID, "row", row.Index, "title", row.CSV.Title, "error", err)
			continue
		}
		result.Imported++
		result.Items = append(result.Items, item)
		if row.PendingID != 0 {
			resolvedPending = append(resolvedPending, row.PendingID)
		}
	}

	im.closePending(ctx, resolvedPending, model.PendingStatusCompleted)
	im.closePending(ctx, cancelledPending, model.PendingStatusFailed)
	im.sessions.remove(sessionID)

	slog.Info("Import confirmed", "session", sessionID, "imported", result.Imported, "failed", result.Failed, "total", result.Total)
	return result, nil
}

// closePending moves queued searches for rows the user resolved or deleted
// out of the queue.
func (im *Importer) closePending(ctx context.Context, ids []int64, status model.PendingStatus) {
	if len(ids) == 0 {
		return
	}
	queued, err := im.store.ListPendingSearches(ctx, model.PendingStatusPending, 0)
	if err != nil {
		slog.Warn("Failed to load pending searches", "error", err)
		return
	}
	closing := make(map[int64]bool, len(ids))
	for _, id := range ids {
		closing[id] = true
	}
	for _, p := range queued {
		if !closing[p.ID] {
			continue
		}
		p.Status = status
		if err := im.store.UpdatePendingSearch(ctx, &p); err != nil {
			slog.Warn("Failed to close pending search", "id", p.ID, "status", status, "error", err)
		}
	}
}
