// Package export writes a YAML snapshot of every category, item and price change.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lepinkainen/pricenest/internal/datastore"
	"github.com/lepinkainen/pricenest/internal/model"
)

// FormatVersion is bumped when the snapshot layout changes.
const FormatVersion = 1

// Snapshot is the exported document.
type Snapshot struct {
	Version    int              `yaml:"version"`
	ExportedAt time.Time        `yaml:"exportedAt"`
	Categories []model.Category `yaml:"categories"`
}

// Build loads the whole store into a snapshot.
func Build(ctx context.Context, store datastore.Store, now time.Time) (*Snapshot, error) {
	categories, err := store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	items := 0
	for i := range categories {
		for j := range categories[i].Items {
			item := &categories[i].Items[j]
			history, err := store.ListPriceHistory(ctx, item.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load history of item %d: %w", item.ID, err)
			}
			item.PriceHistory = history
			items++
		}
	}
	if categories == nil {
		categories = []model.Category{}
	}

	slog.Debug("Built export snapshot", "categories", len(categories), "items", items)
	return &Snapshot{Version: FormatVersion, ExportedAt: now.UTC(), Categories: categories}, nil
}

// Encode writes s as YAML.
func Encode(w io.Writer, s *Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return enc.Close()
}

// Decode reads a snapshot written by Encode.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &s, nil
}

// WriteFile writes s to path, creating parent directories. An existing file
// is left alone unless overwrite is set; the bool reports whether it was written.
func WriteFile(path string, s *Snapshot, overwrite bool) (bool, error) {
	if info, err := os.Stat(path); err == nil && !info.IsDir() && !overwrite {
		slog.Info("Export file already exists, skipping", "path", path)
		return false, nil
	}

	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return false, fmt.Errorf("failed to write export: %w", err)
	}

	slog.Info("Wrote export", "path", path, "categories", len(s.Categories))
	return true, nil
}
