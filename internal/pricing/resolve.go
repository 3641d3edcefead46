package pricing

import (
	"time"

	"github.com/lepinkainen/pricenest/internal/catalog"
	"github.com/lepinkainen/pricenest/internal/model"
)

// Resolver chooses the best match among search candidates.
type Resolver struct {
	now func() time.Time
}

// NewResolver returns a Resolver using the wall clock for movie estimates.
func NewResolver() *Resolver {
	return &Resolver{now: time.Now}
}

// Resolve returns the first candidate with a real price. Without one, the best
// remaining candidate is returned, with an estimated price synthesized when it
// carries none. ok is false when there are no candidates.
func (r *Resolver) Resolve(candidates []catalog.Result) (catalog.Result, bool) {
	if len(candidates) == 0 {
		return catalog.Result{}, false
	}

	best := 0
	for i, c := range candidates {
		if c.PriceSource.IsReal() && c.Price > 0 {
			return c, true
		}
		if c.PriceSource.Rank() < candidates[best].PriceSource.Rank() {
			best = i
		}
	}

	match := candidates[best]
	switch match.PriceSource {
	case model.PriceSourceSample:
		return match, true
	case model.PriceSourceEstimated:
		if match.Price > 0 {
			return match, true
		}
	}
	return r.Estimate(match), true
}

// ResolveBook is Resolve with the sample placeholder for an empty list.
func (r *Resolver) ResolveBook(query string, candidates []catalog.Result) catalog.Result {
	if match, ok := r.Resolve(candidates); ok {
		return match
	}
	return catalog.SampleBooks(query)[0]
}

// Estimate replaces the price of c with an estimate for its kind.
func (r *Resolver) Estimate(c catalog.Result) catalog.Result {
	switch c.Kind {
	case catalog.KindMovie:
		c.Price = EstimateMoviePrice(c.Year, r.now())
	default:
		c.Price = EstimateBookPrice(c.PageCount)
	}
	c.PriceSource = model.PriceSourceEstimated
	c.Currency = Base
	return c
}
