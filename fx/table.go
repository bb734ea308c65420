// Package fx resolves currency exchange rates, either from an in-memory
// table or from a remote quote service. All rates are day-granular: an
// exchange rate answers "how many units of the quote currency for one unit
// of the base currency on that day".
package fx

import (
	"errors"
	"fmt"

	"github.com/etnz/folio/date"
	"github.com/shopspring/decimal"
)

// ErrRateNotFound is returned when no rate is known for a currency pair.
var ErrRateNotFound = errors.New("exchange rate not found")

type pair struct{ from, to string }

// Table is an in-memory rate source. When no rate exists for the exact
// day it falls back to the most recent earlier rate, which matches how
// ledgers value positions over weekends and holidays.
type Table struct {
	rates map[pair]map[date.Date]decimal.Decimal
}

// NewTable returns an empty rate table.
func NewTable() *Table {
	return &Table{rates: make(map[pair]map[date.Date]decimal.Decimal)}
}

// Set records a rate for a currency pair on a day. It also records the
// inverse pair so lookups work in both directions.
func (t *Table) Set(from, to string, on date.Date, rate decimal.Decimal) {
	t.set(pair{from, to}, on, rate)
	if !rate.IsZero() {
		t.set(pair{to, from}, on, decimal.NewFromInt(1).Div(rate))
	}
}

// SetFloat is a convenience for tests and imports.
func (t *Table) SetFloat(from, to string, on date.Date, rate float64) {
	t.Set(from, to, on, decimal.NewFromFloat(rate))
}

func (t *Table) set(p pair, on date.Date, rate decimal.Decimal) {
	m, ok := t.rates[p]
	if !ok {
		m = make(map[date.Date]decimal.Decimal)
		t.rates[p] = m
	}
	m[on] = rate
}

// Rate returns the rate for a pair on a day, falling back to the latest
// earlier rate. Identical currencies always resolve to 1.
func (t *Table) Rate(from, to string, on date.Date) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	m, ok := t.rates[pair{from, to}]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s/%s", ErrRateNotFound, from, to)
	}
	if rate, ok := m[on]; ok {
		return rate, nil
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
		return decimal.Decimal{}, fmt.Errorf("%w: %s/%s on or before %s", ErrRateNotFound, from, to, on)
	}
	return m[best], nil
}
