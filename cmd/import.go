package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lepinkainen/pricenest/internal/config"
	pnerrors "github.com/lepinkainen/pricenest/internal/errors"
	"github.com/lepinkainen/pricenest/internal/importer"
	"github.com/lepinkainen/pricenest/internal/tui"
	"github.com/spf13/viper"
)

var selectCandidate = tui.Select

// ImportCmd represents the import command and its subcommands
type ImportCmd struct {
	Movies ImportMoviesCmd `cmd:"" help:"Import movies from a CSV file (title, director, year)"`
}

// ImportMoviesCmd represents the movie CSV import command
type ImportMoviesCmd struct {
	Input          string `short:"f" help:"Path to movie CSV file"`
	Category       int64  `help:"Movies category to import into" required:""`
	Interactive    bool   `short:"i" help:"Pick the store listing for rows with several candidates"`
	DropUnresolved bool   `help:"Delete rows that were not found or failed instead of aborting"`
	DryRun         bool   `help:"Show the preview without importing anything"`
	Direct         bool   `help:"Import every row straight away, without a preview"`
	KeepNotFound   bool   `help:"With --direct, store titles the catalog does not know at a placeholder price"`
}

func (c *ImportMoviesCmd) Run() error {
	input := c.Input
	if input == "" {
		input = viper.GetString("import.movies_csvfile")
	}
	if input == "" {
		return fmt.Errorf("input CSV file is required (provide via --input flag or import.movies_csvfile in config)")
	}

	ctx := context.Background()
	a, err := openApp(ctx, config.Load())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	return c.run(ctx, a.importer, input)
}

func (c *ImportMoviesCmd) run(ctx context.Context, im *importer.Importer, input string) error {
	if c.Direct && (c.Interactive || c.DryRun || c.DropUnresolved) {
		return fmt.Errorf("--direct cannot be combined with --interactive, --dry-run or --drop-unresolved")
	}
	if c.KeepNotFound && !c.Direct {
		return fmt.Errorf("--keep-not-found requires --direct")
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if c.Direct {
		return c.runDirect(ctx, im, filepath.Base(input), f)
	}

	preview, err := im.Preview(ctx, c.Category, filepath.Base(input), f)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(stdout, tui.RenderPreview(preview))

	if c.DryRun {
		return nil
	}

	if c.Interactive {
		if preview, err = pickCandidates(ctx, im, preview); err != nil {
			return err
		}
	}

	if c.DropUnresolved {
		if preview, err = dropUnresolved(im, preview); err != nil {
			return err
		}
	}

	result, err := im.Confirm(ctx, preview.SessionID)
	if err != nil {
		return err
	}

	slog.Info("Import finished", "imported", result.Imported, "failed", result.Failed, "total", result.Total)
	for _, msg := range result.Errors {
		slog.Warn("Row failed", "error", msg)
	}
	if preview.Summary.Pending > 0 {
		slog.Info("Some searches were deferred; run 'pricenest pending process' later", "pending", preview.Summary.Pending)
	}
	return nil
}

func (c *ImportMoviesCmd) runDirect(ctx context.Context, im *importer.Importer, filename string, r io.Reader) error {
	result, err := im.ImportDirect(ctx, c.Category, filename, r, !c.KeepNotFound)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(stdout, "Imported %d of %d movies\n", result.Imported, result.Total)
	for _, msg := range result.Errors {
		_, _ = fmt.Fprintln(stdout, "  "+msg)
	}
	slog.Info("Direct import finished", "imported", result.Imported, "failed", result.Failed, "total", result.Total)
	return nil
}

// pickCandidates asks the user to choose for every found row with more than
// one candidate. Skipping keeps the automatic match.
func pickCandidates(ctx context.Context, im *importer.Importer, preview *importer.Preview) (*importer.Preview, error) {
	for i, row := range preview.Rows {
		if row.Status != importer.StatusFound || len(row.Candidates) < 2 {
			continue
		}

		choice, err := selectCandidate(row.CSV.Title, row.Candidates)
		if err != nil {
			return nil, fmt.Errorf("candidate selection failed: %w", err)
		}

		switch choice.Action {
		case tui.ActionStopped:
			return nil, pnerrors.NewStopProcessingError("import stopped by user")
		case tui.ActionSelected:
			updated, err := im.SelectCandidate(ctx, preview.SessionID, i, choice.Index)
			if err != nil {
				return nil, err
			}
			preview = updated
		default:
			slog.Debug("Keeping automatic match", "row", i, "title", row.CSV.Title)
		}
	}
	return preview, nil
}

func dropUnresolved(im *importer.Importer, preview *importer.Preview) (*importer.Preview, error) {
	var indexes []int
	for i, row := range preview.Rows {
		if row.Deleted {
			continue
		}
		if row.Status == importer.StatusNotFound || row.Status == importer.StatusError {
			indexes = append(indexes, i)
		}
	}
	if len(indexes) == 0 {
		return preview, nil
	}

	slog.Info("Dropping unresolved rows", "count", len(indexes))
	return im.BulkDelete(preview.SessionID, indexes)
}
