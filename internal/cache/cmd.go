package cache

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// InvalidateCacheCmd represents the cache invalidate subcommand
type InvalidateCacheCmd struct {
	Source string `arg:"" help:"Cache source to invalidate: itunes, googlebooks, kobo" required:""`
}

func (i *InvalidateCacheCmd) Run() error {
	tableName, ok := SourceTables[i.Source]
	if !ok {
		return fmt.Errorf("invalid cache source '%s'; valid sources are: %s", i.Source, strings.Join(sourceNames(), ", "))
	}

	cacheDB := viper.GetString("cache.dbfile")
	slog.Info("Invalidating cache", "source", i.Source, "database", cacheDB)

	cacheInstance, err := Open(cacheDB)
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	defer func() { _ = cacheInstance.Close() }()

	rowsDeleted, err := cacheInstance.InvalidateSource(tableName)
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	slog.Info("Cache invalidated", "source", i.Source, "rows_deleted", rowsDeleted)
	return nil
}

// PruneCacheCmd drops entries older than cache.ttl from every source.
type PruneCacheCmd struct{}

func (p *PruneCacheCmd) Run() error {
	ttl := viper.GetDuration("cache.ttl")
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	cacheDB := viper.GetString("cache.dbfile")
	slog.Info("Pruning cache", "database", cacheDB, "ttl", ttl)

	cacheInstance, err := Open(cacheDB)
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	defer func() { _ = cacheInstance.Close() }()

	var total int64
	for _, source := range sourceNames() {
		n, err := cacheInstance.ClearExpired(SourceTables[source], ttl)
		if err != nil {
			return fmt.Errorf("failed to prune %s cache: %w", source, err)
		}
		total += n
	}

	slog.Info("Cache pruned", "rows_deleted", total)
	return nil
}

func sourceNames() []string {
	names := make([]string, 0, len(SourceTables))
	for name := range SourceTables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
