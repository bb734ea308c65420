package folio

import (
	"github.com/etnz/folio/date"
	"github.com/shopspring/decimal"
)

// PriceSource provides closing prices for declared securities. The
// mark-to-market engine only needs the most recent known price on or
// before the valuation date.
type PriceSource interface {
	// Price returns the unit price of a security on or before the given
	// day, in the security's trading currency. ok is false when no price
	// is known.
	Price(ticker string, on date.Date) (Money, bool)
}

// PriceTable is an in-memory PriceSource keyed by ticker and day.
type PriceTable struct {
	prices map[string]map[date.Date]Money
}

// NewPriceTable returns an empty price table.
func NewPriceTable() *PriceTable {
	return &PriceTable{prices: make(map[string]map[date.Date]Money)}
}

// Set records the price of a security on a day.
func (t *PriceTable) Set(ticker string, on date.Date, price Money) {
	m, ok := t.prices[ticker]
	if !ok {
		m = make(map[date.Date]Money)
		t.prices[ticker] = m
	}
	m[on] = price
}

// SetFloat is a convenience for tests and imports.
func (t *PriceTable) SetFloat(ticker string, on date.Date, price float64, currency string) {
	t.Set(ticker, on, M(price, currency))
}

// Price returns the latest known price on or before the given day.
func (t *PriceTable) Price(ticker string, on date.Date) (Money, bool) {
	m, ok := t.prices[ticker]
	if !ok {
		return Money{}, false
	}
	var best date.Date
	var found bool
	for day := range m {
		if day.After(on) {
			continue
		}
		if !found || day.After(best) {
			best = day
			found = true
		}
	}
	if !found {
		return Money{}, false
	}
	return m[best], true
}

// Has reports whether the table knows any price for a ticker.
func (t *PriceTable) Has(ticker string) bool {
	return len(t.prices[ticker]) > 0
}

var _ PriceSource = (*PriceTable)(nil)

// fixedRate is a RateSource with a single constant answer, handy for
// single-currency books.
type fixedRate struct{ rate decimal.Decimal }

// FixedRate returns a RateSource that answers every query with the same
// rate. Use IdentityRates for single-currency books.
func FixedRate(rate decimal.Decimal) RateSource { return fixedRate{rate: rate} }

// IdentityRates returns a RateSource that answers 1 for every query.
func IdentityRates() RateSource { return fixedRate{rate: decimal.NewFromInt(1)} }

func (f fixedRate) Rate(from, to string, on date.Date) (decimal.Decimal, error) {
	return f.rate, nil
}
