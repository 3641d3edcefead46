// Package pricing picks the canonical price among catalog candidates,
// estimates prices that no storefront reported and converts currencies.
package pricing

import (
	"math"
	"time"
)

// Book estimate bounds, in GBP.
const (
	bookBasePrice   = 8.99
	bookMinPrice    = 2.99
	bookMaxPrice    = 19.99
	defaultBookPage = 250
)

// Movie estimate tiers, in GBP.
const (
	movieBasePrice   = 3.49
	movieRecentPrice = 3.99
	movieNewPrice    = 4.99
	movieMinPrice    = 2.99
)

// Round rounds v to whole pennies.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}

// EstimateBookPrice derives a price from the page count.
// An unknown page count is treated as an average 250 page book.
func EstimateBookPrice(pageCount int) float64 {
	if pageCount <= 0 {
		pageCount = defaultBookPage
	}

	price := bookBasePrice
	switch {
	case pageCount > 400:
		price = 12.99
	case pageCount > 300:
		price = 10.99
	case pageCount < 150:
		price = 6.99
	}

	return math.Min(bookMaxPrice, math.Max(bookMinPrice, price))
}

// EstimateMoviePrice derives a rental-like price from how recent the movie is.
func EstimateMoviePrice(year int, now time.Time) float64 {
	current := now.Year()
	price := movieBasePrice
	switch {
	case year <= 0:
	case year >= current-1:
		price = movieNewPrice
	case year >= current-3:
		price = movieRecentPrice
	}
	return math.Max(movieMinPrice, price)
}
