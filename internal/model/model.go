// Package model defines the persisted PriceNest entities.
package model

import (
	"fmt"
	"strings"
	"time"
)

// CategoryType controls which optional item fields and search adapters apply.
type CategoryType string

const (
	CategoryGeneral CategoryType = "general"
	CategoryBooks   CategoryType = "books"
	CategoryMovies  CategoryType = "movies"
)

// Valid reports whether t is one of the known category types.
func (t CategoryType) Valid() bool {
	switch t {
	case CategoryGeneral, CategoryBooks, CategoryMovies:
		return true
	}
	return false
}

// BookSource selects which book catalog a category searches.
type BookSource string

const (
	BookSourceAuto        BookSource = "auto"
	BookSourceGoogleBooks BookSource = "google_books"
	BookSourceKobo        BookSource = "kobo"
)

// Valid reports whether s is one of the known book sources.
func (s BookSource) Valid() bool {
	switch s {
	case BookSourceAuto, BookSourceGoogleBooks, BookSourceKobo:
		return true
	}
	return false
}

// PriceSource tags where a price came from. The set is closed.
type PriceSource string

const (
	PriceSourceGoogleBooks     PriceSource = "google_books"
	PriceSourceEstimated       PriceSource = "estimated"
	PriceSourceSample          PriceSource = "sample"
	PriceSourceKobo            PriceSource = "kobo"
	PriceSourceAppleHDPurchase PriceSource = "apple_hd_purchase"
	PriceSourceApplePurchase   PriceSource = "apple_purchase"
	PriceSourceAppleCollection PriceSource = "apple_collection"
	PriceSourceAppleRental     PriceSource = "apple_rental"
	PriceSourceManualEntry     PriceSource = "manual_entry"
	PriceSourceManualOverride  PriceSource = "manual_override"
	PriceSourceUnknown         PriceSource = "unknown"
)

// Rank orders sources by trust: real prices beat estimates, estimates beat samples.
func (s PriceSource) Rank() int {
	switch s {
	case PriceSourceEstimated:
		return 1
	case PriceSourceSample, PriceSourceUnknown, "":
		return 2
	default:
		return 0
	}
}

// IsReal reports whether the price was observed at a storefront or typed by the user.
func (s PriceSource) IsReal() bool {
	return s.Rank() == 0
}

// Category groups items of one type.
type Category struct {
	ID                int64        `json:"id" yaml:"id"`
	Name              string       `json:"name" yaml:"name"`
	Type              CategoryType `json:"type" yaml:"type"`
	BookLookupEnabled bool         `json:"bookLookupEnabled" yaml:"bookLookupEnabled"`
	BookLookupSource  BookSource   `json:"bookLookupSource" yaml:"bookLookupSource"`
	CreatedAt         time.Time    `json:"createdAt" yaml:"createdAt"`
	Items             []Item       `json:"items" yaml:"items,omitempty"`
}

// Normalize applies the category defaults and rules before persisting.
func (c *Category) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	if c.Type == "" {
		c.Type = CategoryGeneral
	}
	if c.BookLookupSource == "" {
		c.BookLookupSource = BookSourceAuto
	}
	if c.Type == CategoryBooks {
		c.BookLookupEnabled = true
	}
}

// Validate checks the user-editable fields.
func (c Category) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("category name is required")
	}
	if !c.Type.Valid() {
		return fmt.Errorf("invalid category type %q", c.Type)
	}
	if !c.BookLookupSource.Valid() {
		return fmt.Errorf("invalid book lookup source %q", c.BookLookupSource)
	}
	return nil
}

// Item is a tracked product, book or movie.
type Item struct {
	ID          int64     `json:"id" yaml:"id"`
	CategoryID  int64     `json:"categoryId" yaml:"categoryId"`
	Name        string    `json:"name" yaml:"name"`
	Title       string    `json:"title,omitempty" yaml:"title,omitempty"`
	Author      string    `json:"author,omitempty" yaml:"author,omitempty"`
	Director    string    `json:"director,omitempty" yaml:"director,omitempty"`
	Year        int       `json:"year,omitempty" yaml:"year,omitempty"`
	URL         string    `json:"url" yaml:"url"`
	Price       float64   `json:"price" yaml:"price"`
	Bought      bool      `json:"bought" yaml:"bought"`
	ExternalID  string    `json:"externalId,omitempty" yaml:"externalId,omitempty"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated" yaml:"lastUpdated"`

	PriceHistory []PriceHistory `json:"-" yaml:"priceHistory,omitempty"`
}

// Validate checks the fields every item needs.
func (i Item) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("item name is required")
	}
	if i.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	return nil
}

// FillDefaults derives display name and book fields according to the category type.
func (i *Item) FillDefaults(t CategoryType) {
	i.Name = strings.TrimSpace(i.Name)
	i.Title = strings.TrimSpace(i.Title)
	i.Author = strings.TrimSpace(i.Author)
	i.Director = strings.TrimSpace(i.Director)

	switch t {
	case CategoryBooks:
		if i.Title == "" && i.Author == "" && i.Name != "" {
			i.Title, i.Author = SplitBookName(i.Name)
		}
		if i.Name == "" && i.Title != "" {
			i.Name = BookDisplayName(i.Title, i.Author)
		}
	case CategoryMovies:
		if i.Name == "" && i.Title != "" {
			i.Name = MovieDisplayName(i.Title, i.Year)
		}
	}
}

// BookDisplayName renders "<title> by <author>".
func BookDisplayName(title, author string) string {
	if author == "" {
		return title
	}
	return fmt.Sprintf("%s by %s", title, author)
}

// MovieDisplayName renders "<title> (<year>)", or just the title when the year is unknown.
func MovieDisplayName(title string, year int) string {
	if year <= 0 {
		return title
	}
	return fmt.Sprintf("%s (%d)", title, year)
}

// SplitBookName splits "<title> by <author>" at the last " by ".
func SplitBookName(name string) (title, author string) {
	idx := strings.LastIndex(name, " by ")
	if idx <= 0 {
		return strings.TrimSpace(name), ""
	}
	return strings.TrimSpace(name[:idx]), strings.TrimSpace(name[idx+len(" by "):])
}

// PriceHistory is one observed price change. Rows are append-only.
type PriceHistory struct {
	ID          int64       `json:"id" yaml:"id"`
	ItemID      int64       `json:"itemId" yaml:"itemId"`
	OldPrice    float64     `json:"oldPrice" yaml:"oldPrice"`
	NewPrice    float64     `json:"newPrice" yaml:"newPrice"`
	PriceSource PriceSource `json:"priceSource" yaml:"priceSource"`
	SearchQuery string      `json:"searchQuery" yaml:"searchQuery"`
	CreatedAt   time.Time   `json:"createdAt" yaml:"createdAt"`
}

// PendingStatus is the lifecycle state of a deferred movie search.
type PendingStatus string

const (
	PendingStatusPending   PendingStatus = "pending"
	PendingStatusCompleted PendingStatus = "completed"
	PendingStatusFailed    PendingStatus = "failed"
)

// PendingMovieSearch is a CSV row whose search was deferred by throttling.
type PendingMovieSearch struct {
	ID            int64         `json:"id"`
	CategoryID    int64         `json:"categoryId"`
	Title         string        `json:"title"`
	Director      string        `json:"director,omitempty"`
	Year          int           `json:"year,omitempty"`
	CSVRowData    string        `json:"csvRowData"`
	Status        PendingStatus `json:"status"`
	RetryCount    int           `json:"retryCount"`
	LastAttempted *time.Time    `json:"lastAttempted,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}
