package pricing

import (
	"log/slog"
	"strings"
)

// Base is the display currency.
const Base = "GBP"

// Converter converts prices to GBP with fixed rates.
type Converter struct {
	rates map[string]float64
}

// NewConverter builds a converter from currency → GBP multipliers.
// Codes are case-insensitive; GBP always converts at 1.
func NewConverter(rates map[string]float64) *Converter {
	c := &Converter{rates: map[string]float64{Base: 1}}
	for code, rate := range rates {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" || code == Base || rate <= 0 {
			continue
		}
		c.rates[code] = rate
	}
	return c
}

// Rate returns the multiplier for currency.
func (c *Converter) Rate(currency string) (float64, bool) {
	if currency == "" {
		return 1, true
	}
	rate, ok := c.rates[strings.ToUpper(currency)]
	return rate, ok
}

// ToGBP converts amount and rounds to pennies. An unknown currency is passed
// through unconverted.
func (c *Converter) ToGBP(amount float64, currency string) float64 {
	rate, ok := c.Rate(currency)
	if !ok {
		slog.Debug("No conversion rate, keeping original amount", "currency", currency)
		return Round(amount)
	}
	return Round(amount * rate)
}
