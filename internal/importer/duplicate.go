package importer

import (
	"fmt"
	"strings"

	"github.com/lepinkainen/pricenest/internal/model"
)

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func itemTitle(item model.Item) string {
	if item.Title != "" {
		return item.Title
	}
	return item.Name
}

// findDuplicate looks for an existing movie with the same title, trying the
// most specific match first: title and year, then title and director, then
// title alone.
func findDuplicate(items []model.Item, title, director string, year int) (model.Item, string, bool) {
	title = normalize(title)
	if title == "" {
		return model.Item{}, "", false
	}

	var sameTitle []model.Item
	for _, item := range items {
		if normalize(itemTitle(item)) == title {
			sameTitle = append(sameTitle, item)
		}
	}
	if len(sameTitle) == 0 {
		return model.Item{}, "", false
	}

	if year > 1900 {
		for _, item := range sameTitle {
			if item.Year == year {
				return item, fmt.Sprintf("Same title and year (%d)", year), true
			}
		}
	}
	if d := normalize(director); d != "" {
		for _, item := range sameTitle {
			if normalize(item.Director) == d {
				return item, fmt.Sprintf("Same title and director (%s)", strings.TrimSpace(director)), true
			}
		}
	}
	return sameTitle[0], "Same title (but different details)", true
}

// checkDuplicate turns a found row into a duplicate when the category
// already holds the movie, matching on the CSV fields and then on the
// catalog match.
func checkDuplicate(items []model.Item, row *Row) {
	if row.Status != StatusFound || len(items) == 0 {
		return
	}
	if existing, reason, ok := findDuplicate(items, row.CSV.Title, row.CSV.Director, row.CSV.Year); ok {
		row.markDuplicate(existing, reason)
		return
	}
	if m := row.BestMatch; m != nil && normalize(m.Title) != normalize(row.CSV.Title) {
		checkMatchDuplicate(items, row)
	}
}

// checkMatchDuplicate only compares the catalog match, for rows the user
// re-searched under a different title.
func checkMatchDuplicate(items []model.Item, row *Row) {
	m := row.BestMatch
	if row.Status != StatusFound || m == nil {
		return
	}
	if existing, reason, ok := findDuplicate(items, m.Title, m.Director, m.Year); ok {
		row.markDuplicate(existing, reason)
	}
}
