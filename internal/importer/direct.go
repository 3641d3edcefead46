package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	pnerrors "github.com/lepinkainen/pricenest/internal/errors"
	"github.com/lepinkainen/pricenest/internal/model"
)

// PlaceholderPrice is the estimate given to a movie the catalog does not know
// when a one-shot import keeps it anyway.
const PlaceholderPrice = 7.99

// ImportDirect is the one-shot import: every row is searched and committed
// straight away, with no preview session. The best match of each hit is
// stored. A miss is reported as failed when skipNotFound is set and otherwise
// stored as a manual_entry placeholder at PlaceholderPrice. Movies already in
// the category, including ones added earlier in the same file, are reported
// instead of stored. Search errors always fail the row, and after the first
// rate-limit answer the remaining rows fail without calling the catalog.
func (im *Importer) ImportDirect(ctx context.Context, categoryID int64, filename string, r io.Reader, skipNotFound bool) (*ConfirmResult, error) {
	category, err := im.movieCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	parsed, err := parseCSV(r)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, invalid("file", "CSV file is empty or has no valid rows")
	}

	slog.Info("Importing movies directly", "category", category.Name, "file", filename, "rows", len(parsed), "skip_not_found", skipNotFound)

	result := &ConfirmResult{Total: len(parsed), Items: []model.Item{}, Errors: []string{}}
	fail := func(p parsedRow, format string, args ...any) {
		result.Failed++
		result.Errors = append(result.Errors, fmt.Sprintf("Row %d: ", p.index+1)+fmt.Sprintf(format, args...))
	}

	existing := category.Items
	var throttle error
	for _, p := range parsed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p.problem != "" {
			result.Failed++
			result.Errors = append(result.Errors, p.problem)
			continue
		}
		if p.note != "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", p.index+1, p.note))
		}
		if throttle != nil {
			fail(p, "search skipped: %v", throttle)
			continue
		}

		row := &Row{Index: p.index, CSV: p.csv}
		results, err := im.movies.SearchMovies(ctx, p.csv.query())
		switch {
		case pnerrors.IsRateLimitError(err):
			throttle = err
			fail(p, "%v", err)
			continue
		case err != nil:
			fail(p, "search failed: %v", err)
			continue
		case len(results) > 0:
			best, _ := im.resolver.Resolve(results)
			row.setFound(best, results)
		case skipNotFound:
			fail(p, "No Apple Store results found for %q", p.csv.Title)
			continue
		default:
			price := PlaceholderPrice
			placeholder, err := ManualEntry{Title: p.csv.Title, Director: p.csv.Director, Year: p.csv.Year, Price: &price}.result()
			if err != nil {
				fail(p, "%v", err)
				continue
			}
			row.setFound(placeholder, nil)
		}

		checkDuplicate(existing, row)
		if row.Status == StatusDuplicate {
			fail(p, "%s", row.Message)
			continue
		}

		item := rowItem(row, category.ID)
		if err := im.store.CreateItem(ctx, &item); err != nil {
			fail(p, "%s: %v", p.csv.Title, err)
			continue
		}
		existing = append(existing, item)
		result.Imported++
		result.Items = append(result.Items, item)
	}

	slog.Info("Direct import finished", "category", category.Name, "imported", result.Imported, "failed", result.Failed, "total", result.Total)
	return result, nil
}
