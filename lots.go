package folio

import (
	"slices"

	"github.com/etnz/folio/date"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SecurityLot represents a single purchase of a security, used for FIFO
// cost basis calculations. A lot is never deleted: once fully consumed its
// Remaining quantity reaches zero and it stays in the book as audit trail.
type SecurityLot struct {
	ID            string
	PortfolioID   string
	Security      string
	AcquiredOn    date.Date
	Quantity      Quantity // original quantity bought
	Remaining     Quantity // still-unsold portion, monotonically non-increasing
	Cost          Money    // total cost of the original lot, in base currency
	RemainingCost Money    // cost basis of the unsold portion
	EntryID       string   // journal entry that opened the lot
}

// Closed reports whether the lot is fully consumed.
func (l *SecurityLot) Closed() bool { return l.Remaining.IsZero() }

// UnitCost returns the average cost per unit of the original lot.
func (l *SecurityLot) UnitCost() Money { return l.Cost.Div(l.Quantity) }

// SecurityAllocation records the consumption of part of a lot by a sale.
// Allocations are immutable once created.
type SecurityAllocation struct {
	ID        string
	LotID     string
	Security  string
	SoldOn    date.Date
	Quantity  Quantity
	CostBasis Money // exact share of the lot's cost consumed
	Proceeds  Money // share of the sale proceeds attributed to this slice
	EntryID   string
}

// Gain returns the realized gain of this allocation, negative for a loss.
func (a SecurityAllocation) Gain() Money { return a.Proceeds.Sub(a.CostBasis) }

// LotBook tracks open and closed lots for all securities of one portfolio,
// in acquisition order.
type LotBook struct {
	portfolioID string
	lots        []*SecurityLot
	allocations []SecurityAllocation
}

// NewLotBook creates an empty lot book for a portfolio.
func NewLotBook(portfolioID string) *LotBook {
	return &LotBook{portfolioID: portfolioID}
}

// Restore rebuilds a lot book from persisted lots and allocations. Lots are
// kept in acquisition order, same-day lots in insertion order.
func Restore(portfolioID string, lots []*SecurityLot, allocations []SecurityAllocation) *LotBook {
	b := &LotBook{portfolioID: portfolioID, lots: lots, allocations: allocations}
	slices.SortStableFunc(b.lots, func(a, c *SecurityLot) int {
		return a.AcquiredOn.Compare(c.AcquiredOn)
	})
	return b
}

// OpenLot records a new purchase lot and returns it.
func (b *LotBook) OpenLot(security string, on date.Date, quantity Quantity, cost Money, entryID string) *SecurityLot {
	l := &SecurityLot{
		ID:            uuid.NewString(),
		PortfolioID:   b.portfolioID,
		Security:      security,
		AcquiredOn:    on,
		Quantity:      quantity,
		Remaining:     quantity,
		Cost:          cost,
		RemainingCost: cost,
		EntryID:       entryID,
	}
	// Keep acquisition order even for back-dated purchases, same-day lots
	// stay in insertion order.
	b.lots = append(b.lots, l)
	slices.SortStableFunc(b.lots, func(a, c *SecurityLot) int {
		return a.AcquiredOn.Compare(c.AcquiredOn)
	})
	return l
}

// Position returns the total open quantity held for a security.
func (b *LotBook) Position(security string) Quantity {
	var total Quantity
	for _, l := range b.lots {
		if l.Security == security {
			total = total.Add(l.Remaining)
		}
	}
	return total
}

// CostBasis returns the total cost basis of the open position in a security.
func (b *LotBook) CostBasis(security string) Money {
	var total Money
	for _, l := range b.lots {
		if l.Security == security {
			total = total.Add(l.RemainingCost)
		}
	}
	return total
}

// Lots returns the lots of a security in acquisition order, including
// closed ones.
func (b *LotBook) Lots(security string) []*SecurityLot {
	var out []*SecurityLot
	for _, l := range b.lots {
		if l.Security == security {
			out = append(out, l)
		}
	}
	return out
}

// Allocations returns all allocations recorded against a security, oldest
// first.
func (b *LotBook) Allocations(security string) []SecurityAllocation {
	var out []SecurityAllocation
	for _, a := range b.allocations {
		if a.Security == security {
			out = append(out, a)
		}
	}
	return out
}

// Touches reports whether the given journal entry opened a lot or
// consumed one through an allocation.
func (b *LotBook) Touches(entryID string) bool {
	for _, l := range b.lots {
		if l.EntryID == entryID {
			return true
		}
	}
	for _, a := range b.allocations {
		if a.EntryID == entryID {
			return true
		}
	}
	return false
}

// AllocateFIFO consumes quantity from the oldest open lots of a security
// and returns the resulting allocations. Proceeds are prorated over the
// slices; the last slice takes the remainder so the parts sum back to
// proceeds exactly. The operation is atomic: when open lots cannot cover
// the quantity it fails with InsufficientLotsError and no lot is touched.
func (b *LotBook) AllocateFIFO(security string, on date.Date, quantity Quantity, proceeds Money, entryID string) ([]SecurityAllocation, error) {
	available := b.Position(security)
	if available.LessThan(quantity) {
		return nil, &InsufficientLotsError{Security: security, Requested: quantity, Available: available}
	}

	type slice struct {
		lot  *SecurityLot
		qty  Quantity
		cost Money
	}

	// Plan the slices first so a failure leaves the book untouched.
	var plan []slice
	remaining := quantity
	for _, l := range b.lots {
		if l.Security != security || l.Closed() {
			continue
		}
		if remaining.IsZero() {
			break
		}
		take := l.Remaining
		var cost Money
		if take.GreaterThan(remaining) {
			take = remaining
			// Prorate cost; the exact remainder stays on the lot so that
			// allocated basis plus remaining cost always equals the
			// original cost.
			cost = l.RemainingCost.Mul(take).Div(l.Remaining)
		} else {
			cost = l.RemainingCost
		}
		plan = append(plan, slice{lot: l, qty: take, cost: cost})
		remaining = remaining.Sub(take)
	}

	// Commit: mutate lots and prorate proceeds, last slice takes the
	// remainder.
	allocs := make([]SecurityAllocation, 0, len(plan))
	var proceedsUsed Money
	for i, s := range plan {
		var part Money
		if i == len(plan)-1 {
			part = proceeds.Sub(proceedsUsed)
		} else {
			part = proceeds.Mul(s.qty).Div(quantity)
		}
		proceedsUsed = proceedsUsed.Add(part)

		s.lot.Remaining = s.lot.Remaining.Sub(s.qty)
		s.lot.RemainingCost = s.lot.RemainingCost.Sub(s.cost)

		allocs = append(allocs, SecurityAllocation{
			ID:        uuid.NewString(),
			LotID:     s.lot.ID,
			Security:  security,
			SoldOn:    on,
			Quantity:  s.qty,
			CostBasis: s.cost,
			Proceeds:  part,
			EntryID:   entryID,
		})
	}
	b.allocations = append(b.allocations, allocs...)
	return allocs, nil
}

// ApplySplit scales the open quantity of every lot of a security by
// num/den. Cost basis is unchanged, so the unit cost adjusts implicitly.
func (b *LotBook) ApplySplit(security string, num, den int64) {
	ratio := decimal.NewFromInt(num).Div(decimal.NewFromInt(den))
	for _, l := range b.lots {
		if l.Security != security || l.Closed() {
			continue
		}
		l.Quantity = Q(l.Quantity.Decimal().Mul(ratio))
		l.Remaining = Q(l.Remaining.Decimal().Mul(ratio))
	}
}
