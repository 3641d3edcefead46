// Package csvutil reads header-keyed CSV uploads.
package csvutil

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ErrEmpty is returned when the input has no header row.
var ErrEmpty = errors.New("CSV file is empty or cannot be read")

// MissingColumnError reports a required header that is absent.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("CSV is missing required column %q", e.Column)
}

// ProcessorOptions configures CSV processing behavior.
type ProcessorOptions struct {
	// RequiredColumns must appear in the header (case-insensitive).
	RequiredColumns []string

	// SkipInvalid controls whether to skip invalid records or return an error.
	SkipInvalid bool
}

// Row is one data record keyed by its lower-cased header names.
type Row struct {
	// Index is the 0-based position among data rows.
	Index int
	// Err is set when the record could not be read. Such a row has no fields.
	Err    error
	fields map[string]string
}

// Get returns the trimmed value of column, or "" when the row has no such column.
func (r Row) Get(column string) string {
	return strings.TrimSpace(r.fields[strings.ToLower(column)])
}

// ProcessReader reads a CSV stream whose first row is a header and parses
// each following record into type T. Records with fewer fields than the
// header yield empty strings for the missing columns. A malformed record is
// still handed to parser, with Row.Err set, so it keeps its place in the
// numbering.
func ProcessReader[T any](r io.Reader, parser func(Row) (T, error), opts ProcessorOptions) ([]T, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make([]string, len(header))
	present := make(map[string]bool, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		columns[i] = strings.ToLower(strings.TrimSpace(name))
		present[columns[i]] = true
	}
	for _, required := range opts.RequiredColumns {
		if !present[strings.ToLower(required)] {
			return nil, &MissingColumnError{Column: required}
		}
	}

	var items []T
	index := 0

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row := Row{Index: index}
		switch {
		case err != nil:
			slog.Warn("Error reading record", "row", index+1, "error", err)
			row.Err = err
		case isBlank(record):
			continue
		default:
			row.fields = make(map[string]string, len(columns))
			for i, col := range columns {
				if i < len(record) {
					row.fields[col] = record[i]
				}
			}
		}

		item, err := parser(row)
		index++
		if err != nil {
			if opts.SkipInvalid {
				slog.Warn("Skipping invalid record", "error", err)
				continue
			}
			return nil, fmt.Errorf("invalid record: %w", err)
		}

		items = append(items, item)
	}

	return items, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
