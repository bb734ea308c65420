package date

import (
	"fmt"
	"time"
)

// Range represents an inclusive interval of days.
type Range struct {
	From Date
	To   Date
}

// NewRange creates a Range between two dates, swapping them if needed.
func NewRange(from, to Date) Range {
	if to.Before(from) {
		from, to = to, from
	}
	return Range{From: from, To: to}
}

// Month returns the range covering the whole month of d.
func Month(d Date) Range {
	start := StartOfMonth(d)
	return Range{From: start, To: StartOfMonth(start.Add(32)).Add(-1)}
}

// Year returns the range covering the whole year of d.
func Year(d Date) Range {
	return Range{From: StartOfYear(d), To: New(d.y, time.December, 31)}
}

// Contains reports whether the range includes the given date. A zero
// bound is open-ended on that side.
func (r Range) Contains(d Date) bool {
	if !r.From.IsZero() && d.Before(r.From) {
		return false
	}
	return r.To.IsZero() || !d.After(r.To)
}

// String formats the range as "from..to".
func (r Range) String() string {
	return fmt.Sprintf("%s..%s", r.From, r.To)
}
