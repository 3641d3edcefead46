package cache

// Every cache table uses "cache_key" as the primary key column.

const (
	// ITunesTable holds iTunes movie search responses.
	ITunesTable = "itunes_cache"
	// GoogleBooksTable holds Google Books volume search responses.
	GoogleBooksTable = "googlebooks_cache"
	// KoboTable holds parsed Kobo storefront search results.
	KoboTable = "kobo_cache"
)

// ITunesCacheSchema defines the schema for iTunes Store search cache
const ITunesCacheSchema = `
CREATE TABLE IF NOT EXISTS itunes_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_itunes_cached_at ON itunes_cache(cached_at);
`

// GoogleBooksCacheSchema defines the schema for Google Books API cache
const GoogleBooksCacheSchema = `
CREATE TABLE IF NOT EXISTS googlebooks_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_googlebooks_cached_at ON googlebooks_cache(cached_at);
`

// KoboCacheSchema defines the schema for Kobo storefront search cache
const KoboCacheSchema = `
CREATE TABLE IF NOT EXISTS kobo_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_kobo_cached_at ON kobo_cache(cached_at);
`

// AllCacheSchemas contains all cache table schemas for easy initialization
var AllCacheSchemas = []string{
	ITunesCacheSchema,
	GoogleBooksCacheSchema,
	KoboCacheSchema,
}

// ValidCacheTableNames is the whitelist of allowed cache table names
var ValidCacheTableNames = map[string]bool{
	ITunesTable:      true,
	GoogleBooksTable: true,
	KoboTable:        true,
}

// SourceTables maps the user-facing source names to their tables.
var SourceTables = map[string]string{
	"itunes":      ITunesTable,
	"googlebooks": GoogleBooksTable,
	"kobo":        KoboTable,
}
