package importer

import (
	"fmt"

	"github.com/lepinkainen/pricenest/internal/catalog"
	"github.com/lepinkainen/pricenest/internal/model"
)

// RowStatus is the state of one preview row.
type RowStatus string

const (
	StatusFound     RowStatus = "found"
	StatusNotFound  RowStatus = "not_found"
	StatusPending   RowStatus = "pending"
	StatusError     RowStatus = "error"
	StatusDuplicate RowStatus = "duplicate"
	StatusDeleted   RowStatus = "deleted"
)

// CSVRow holds the fields of the uploaded line as given.
type CSVRow struct {
	Title    string `json:"title"`
	Director string `json:"director,omitempty"`
	Year     int    `json:"year,omitempty"`
}

func (c CSVRow) query() catalog.MovieQuery {
	return catalog.MovieQuery{Title: c.Title, Director: c.Director, Year: c.Year}
}

// Row is one line of a preview session. Only the methods below change its
// state; each leaves the row in exactly one status.
type Row struct {
	Index           int              `json:"index"`
	CSV             CSVRow           `json:"csv"`
	Status          RowStatus        `json:"status"`
	Message         string           `json:"message,omitempty"`
	BestMatch       *catalog.Result  `json:"bestMatch,omitempty"`
	Candidates      []catalog.Result `json:"candidates"`
	ExistingItem    *model.Item      `json:"existingItem,omitempty"`
	DuplicateReason string           `json:"duplicateReason,omitempty"`
	Deleted         bool             `json:"deleted"`
	PendingID       int64            `json:"pendingId,omitempty"`
}

func (r *Row) setFound(match catalog.Result, candidates []catalog.Result) {
	r.Status = StatusFound
	r.BestMatch = &match
	r.Candidates = candidates
	r.Message = ""
	r.ExistingItem = nil
	r.DuplicateReason = ""
}

func (r *Row) setNotFound(message string) {
	r.Status = StatusNotFound
	r.Message = message
	r.BestMatch = nil
	r.Candidates = []catalog.Result{}
}

func (r *Row) setPending(pendingID int64, message string) {
	r.Status = StatusPending
	r.PendingID = pendingID
	r.Message = message
}

func (r *Row) setError(message string) {
	r.Status = StatusError
	r.Message = message
	r.BestMatch = nil
}

// markDuplicate only applies to rows that just reached found.
func (r *Row) markDuplicate(existing model.Item, reason string) {
	r.Status = StatusDuplicate
	r.ExistingItem = &existing
	r.DuplicateReason = reason
	r.Message = fmt.Sprintf("Already in category as %q", existing.Name)
}

func (r *Row) delete() {
	r.Status = StatusDeleted
	r.Deleted = true
}

func (r *Row) override() error {
	if r.Status != StatusDuplicate || r.BestMatch == nil {
		return fmt.Errorf("row %d is %s: %w", r.Index, r.Status, ErrInvalidTransition)
	}
	match := *r.BestMatch
	match.PriceSource = model.PriceSourceManualOverride
	r.setFound(match, r.Candidates)
	return nil
}

func (r *Row) editable() error {
	if r.Deleted {
		return fmt.Errorf("row %d is deleted: %w", r.Index, ErrInvalidTransition)
	}
	return nil
}

// unresolved rows block a confirm.
func (r *Row) unresolved() bool {
	return !r.Deleted && (r.Status == StatusNotFound || r.Status == StatusError)
}

// Summary counts non-deleted rows per status.
type Summary struct {
	Total      int `json:"total"`
	Found      int `json:"found"`
	NotFound   int `json:"notFound"`
	Pending    int `json:"pending"`
	Errors     int `json:"errors"`
	Duplicates int `json:"duplicates"`
	Deleted    int `json:"deleted"`
}

func summarize(rows []*Row) Summary {
	var s Summary
	for _, r := range rows {
		if r.Deleted {
			s.Deleted++
			continue
		}
		s.Total++
		switch r.Status {
		case StatusFound:
			s.Found++
		case StatusNotFound:
			s.NotFound++
		case StatusPending:
			s.Pending++
		case StatusError:
			s.Errors++
		case StatusDuplicate:
			s.Duplicates++
		}
	}
	return s
}
