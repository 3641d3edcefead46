package datastore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lepinkainen/pricenest/internal/model"
)

const pendingColumns = `id, category_id, title, director, year, csv_row_data, status, retry_count, last_attempted, created_at`

// CreatePendingSearch queues a deferred movie search.
func (s *SQLStore) CreatePendingSearch(ctx context.Context, p *model.PendingMovieSearch) error {
	if p.Status == "" {
		p.Status = model.PendingStatusPending
	}
	p.CreatedAt = s.now()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_movie_searches (category_id, title, director, year, csv_row_data, status, retry_count, last_attempted, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.CategoryID, p.Title, nullString(p.Director), nullInt(p.Year), p.CSVRowData, string(p.Status),
		p.RetryCount, nullTime(p.LastAttempted), p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create pending search: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read pending search id: %w", err)
	}
	p.ID = id
	return nil
}

// ListPendingSearches returns searches in the given status, oldest first.
// An empty status lists everything; limit <= 0 means no limit.
func (s *SQLStore) ListPendingSearches(ctx context.Context, status model.PendingStatus, limit int) ([]model.PendingMovieSearch, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_movie_searches`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending searches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	pending := []model.PendingMovieSearch{}
	for rows.Next() {
		var p model.PendingMovieSearch
		var director sql.NullString
		var year sql.NullInt64
		var lastAttempted sql.NullTime
		var st string
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Title, &director, &year, &p.CSVRowData, &st,
			&p.RetryCount, &lastAttempted, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending search: %w", err)
		}
		p.Director = director.String
		p.Year = int(year.Int64)
		p.Status = model.PendingStatus(st)
		if lastAttempted.Valid {
			t := lastAttempted.Time
			p.LastAttempted = &t
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// UpdatePendingSearch stores status, retry count and last attempt time.
func (s *SQLStore) UpdatePendingSearch(ctx context.Context, p *model.PendingMovieSearch) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pending_movie_searches SET status = ?, retry_count = ?, last_attempted = ? WHERE id = ?`,
		string(p.Status), p.RetryCount, nullTime(p.LastAttempted), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update pending search: %w", err)
	}
	return checkAffected(res, "pending search", p.ID)
}
