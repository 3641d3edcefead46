// Package config holds PriceNest's viper defaults and the typed view of them.
package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override (PRICENEST_DATABASE_DSN etc).
const EnvPrefix = "PRICENEST"

// Settings is the resolved configuration handed to the application wiring.
type Settings struct {
	DatabaseDSN string

	ListenAddr  string
	ServerDebug bool
	CORSOrigin  string

	CacheDBFile string
	CacheTTL    time.Duration

	Country           string
	CatalogTimeout    time.Duration
	GoogleBooksAPIKey string
	ITunesPerMinute   int
	KoboUseBrowser    bool

	// CurrencyRates maps an upper-case ISO code to its GBP multiplier.
	CurrencyRates map[string]float64

	PendingMaxRetries  int
	PendingBatchSize   int
	PendingBaseBackoff time.Duration

	RefreshDelay time.Duration
	SessionTTL   time.Duration

	LogLevel string
}

// SetDefaults registers every PriceNest default with viper.
func SetDefaults() {
	viper.SetDefault("database.dsn", "./data/pricenest.db")

	viper.SetDefault("server.addr", ":8000")
	viper.SetDefault("server.debug", false)
	viper.SetDefault("server.cors_origin", "*")

	viper.SetDefault("cache.dbfile", "./data/cache.db")
	viper.SetDefault("cache.ttl", "6h")

	viper.SetDefault("catalog.country", "GB")
	viper.SetDefault("catalog.timeout", "10s")
	viper.SetDefault("googlebooks.api_key", "")
	viper.SetDefault("itunes.requests_per_minute", 20)
	viper.SetDefault("kobo.use_browser", false)

	viper.SetDefault("currency.usd_to_gbp", 0.79)
	viper.SetDefault("currency.rates", map[string]any{"eur": 0.85})

	viper.SetDefault("pending.max_retries", 3)
	viper.SetDefault("pending.batch_size", 5)
	viper.SetDefault("pending.base_backoff", "0s")

	viper.SetDefault("refresh.delay", "1s")
	viper.SetDefault("importer.session_ttl", "1h")

	viper.SetDefault("log.level", "info")
}

// BindEnv enables PRICENEST_* overrides and the bare API key variable.
func BindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("googlebooks.api_key", "GOOGLE_BOOKS_API_KEY", EnvPrefix+"_GOOGLEBOOKS_API_KEY"); err != nil {
		slog.Error("Failed to bind environment variable", "error", err)
	}
}

// Load reads the current viper state into Settings.
func Load() Settings {
	rates := map[string]float64{"GBP": 1}
	for code, v := range viper.GetStringMap("currency.rates") {
		if f, ok := toFloat(v); ok {
			rates[strings.ToUpper(code)] = f
		}
	}
	rates["USD"] = viper.GetFloat64("currency.usd_to_gbp")

	return Settings{
		DatabaseDSN:        viper.GetString("database.dsn"),
		ListenAddr:         viper.GetString("server.addr"),
		ServerDebug:        viper.GetBool("server.debug"),
		CORSOrigin:         viper.GetString("server.cors_origin"),
		CacheDBFile:        viper.GetString("cache.dbfile"),
		CacheTTL:           duration("cache.ttl", 6*time.Hour),
		Country:            strings.ToUpper(viper.GetString("catalog.country")),
		CatalogTimeout:     duration("catalog.timeout", 10*time.Second),
		GoogleBooksAPIKey:  viper.GetString("googlebooks.api_key"),
		ITunesPerMinute:    viper.GetInt("itunes.requests_per_minute"),
		KoboUseBrowser:     viper.GetBool("kobo.use_browser"),
		CurrencyRates:      rates,
		PendingMaxRetries:  viper.GetInt("pending.max_retries"),
		PendingBatchSize:   viper.GetInt("pending.batch_size"),
		PendingBaseBackoff: duration("pending.base_backoff", 0),
		RefreshDelay:       duration("refresh.delay", time.Second),
		SessionTTL:         duration("importer.session_ttl", time.Hour),
		LogLevel:           viper.GetString("log.level"),
	}
}

// ParseLevel maps a config level name to slog.Level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func duration(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("Invalid duration in config, using default", "key", key, "value", raw, "error", err)
		return fallback
	}
	return d
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
