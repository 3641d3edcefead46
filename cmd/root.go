package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/lepinkainen/humanlog"
	"github.com/lepinkainen/pricenest/internal/cache"
	"github.com/lepinkainen/pricenest/internal/config"
	"github.com/spf13/viper"
)

// stdout receives command output that is meant for the user rather than the log.
var stdout io.Writer = os.Stdout

// CLI represents the complete command structure for the pricenest application
type CLI struct {
	LogLevel    string `help:"Log level: debug, info, warn, error" env:"PRICENEST_LOG_LEVEL"`
	DatabaseDSN string `name:"db" help:"SQLite path or MySQL DSN (overrides database.dsn)"`
	CacheDBFile string `help:"Path to cache SQLite database file (overrides cache.dbfile)"`
	CacheTTL    string `help:"Cache time-to-live duration, e.g. 6h (overrides cache.ttl)"`

	Serve   ServeCmd   `cmd:"" help:"Run the HTTP API"`
	Import  ImportCmd  `cmd:"" help:"Import items from files"`
	Pending PendingCmd `cmd:"" help:"Work with deferred movie searches"`
	Refresh RefreshCmd `cmd:"" help:"Refresh stored prices against the catalogs"`
	Search  SearchCmd  `cmd:"" help:"Search the book and movie catalogs"`
	Export  ExportCmd  `cmd:"" help:"Export categories, items and price history as YAML"`
	Cache   CacheCmd   `cmd:"" help:"Manage the catalog response cache"`
}

// CacheCmd groups cache maintenance subcommands
type CacheCmd struct {
	Invalidate cache.InvalidateCacheCmd `cmd:"" help:"Drop cached responses of one catalog source"`
	Prune      cache.PruneCacheCmd      `cmd:"" help:"Drop cached responses older than cache.ttl"`
}

func newParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("pricenest"),
		kong.Description("Track wishlist prices of books, movies and anything else."),
		kong.UsageOnError(),
	}, options...)
	return kong.New(cli, options...)
}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging(slog.LevelInfo)

	if err := initConfig(); err != nil {
		slog.Error("Fatal error in config file", "error", err)
		os.Exit(1)
	}

	var cli CLI
	parser, err := newParser(&cli)
	if err != nil {
		slog.Error("Failed to build command line parser", "error", err)
		os.Exit(1)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	updateGlobalConfig(&cli)
	initLogging(config.ParseLevel(viper.GetString("log.level")))

	if err := ctx.Run(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// initConfig loads .env, then config.yaml from the working directory. A
// missing config file is written with the defaults and startup continues.
func initConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	config.SetDefaults()
	config.BindEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		slog.Info("Config file not found, writing default config file...")
		if err := viper.SafeWriteConfig(); err != nil {
			slog.Warn("Error writing config file", "error", err)
		}
	}
	return nil
}

// updateGlobalConfig lets explicit flags win over config.yaml and the environment.
func updateGlobalConfig(cli *CLI) {
	if cli.LogLevel != "" {
		viper.Set("log.level", cli.LogLevel)
	}
	if cli.DatabaseDSN != "" {
		viper.Set("database.dsn", cli.DatabaseDSN)
	}
	if cli.CacheDBFile != "" {
		viper.Set("cache.dbfile", cli.CacheDBFile)
	}
	if cli.CacheTTL != "" {
		viper.Set("cache.ttl", cli.CacheTTL)
	}
}

func initLogging(level slog.Level) {
	handler := humanlog.NewHandler(os.Stdout, &humanlog.Options{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
