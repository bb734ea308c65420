package folio

import (
	"errors"
	"testing"

	"github.com/etnz/folio/date"
)

func TestLotBook_AllocateFIFO(t *testing.T) {
	b := NewLotBook("p1")
	b.OpenLot("AAPL", date.MustParse("2025-01-10"), Q(100), eur(1000), "e1")
	b.OpenLot("AAPL", date.MustParse("2025-01-20"), Q(100), eur(1200), "e2")

	allocs, err := b.AllocateFIFO("AAPL", date.MustParse("2025-02-01"), Q(150), eur(1800), "e3")
	if err != nil {
		t.Fatalf("AllocateFIFO: %v", err)
	}
	if len(allocs) != 2 {
		t.Fatalf("got %d allocations, want 2", len(allocs))
	}

	// First lot consumed whole, second lot half: basis 1000 + 600.
	if !allocs[0].Quantity.Equal(Q(100)) || !allocs[0].CostBasis.Decimal().Equal(eur(1000).Decimal()) {
		t.Errorf("first allocation = %s @ %s", allocs[0].Quantity, allocs[0].CostBasis)
	}
	if !allocs[1].Quantity.Equal(Q(50)) || !allocs[1].CostBasis.Decimal().Equal(eur(600).Decimal()) {
		t.Errorf("second allocation = %s @ %s", allocs[1].Quantity, allocs[1].CostBasis)
	}

	var basis, proceeds Money
	for _, a := range allocs {
		basis = basis.Add(a.CostBasis)
		proceeds = proceeds.Add(a.Proceeds)
	}
	if !basis.Decimal().Equal(eur(1600).Decimal()) {
		t.Errorf("total cost basis = %s, want 1600", basis)
	}
	// Proceeds prorated over slices must sum back exactly.
	if !proceeds.Decimal().Equal(eur(1800).Decimal()) {
		t.Errorf("total proceeds = %s, want 1800", proceeds)
	}

	if !b.Position("AAPL").Equal(Q(50)) {
		t.Errorf("remaining position = %s, want 50", b.Position("AAPL"))
	}
	if !b.CostBasis("AAPL").Decimal().Equal(eur(600).Decimal()) {
		t.Errorf("remaining cost basis = %s, want 600", b.CostBasis("AAPL"))
	}
}

func TestLotBook_AllocateFIFO_Insufficient(t *testing.T) {
	b := NewLotBook("p1")
	b.OpenLot("AAPL", date.MustParse("2025-01-10"), Q(10), eur(100), "e1")

	_, err := b.AllocateFIFO("AAPL", date.MustParse("2025-02-01"), Q(11), eur(200), "e2")
	var insufficient *InsufficientLotsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientLotsError, got %v", err)
	}
	// Atomic failure: the lot is untouched.
	if !b.Position("AAPL").Equal(Q(10)) {
		t.Errorf("position after failed allocation = %s", b.Position("AAPL"))
	}
	if !b.CostBasis("AAPL").Decimal().Equal(eur(100).Decimal()) {
		t.Errorf("cost basis after failed allocation = %s", b.CostBasis("AAPL"))
	}
	if len(b.Allocations("AAPL")) != 0 {
		t.Error("failed allocation left allocations behind")
	}
}

func TestLotBook_CostConservation(t *testing.T) {
	// Thirds produce repeating decimals; allocated basis plus remaining
	// cost must still equal the original cost exactly.
	b := NewLotBook("p1")
	lot := b.OpenLot("VT", date.MustParse("2025-01-10"), Q(3), eur(100), "e1")

	allocs, err := b.AllocateFIFO("VT", date.MustParse("2025-02-01"), Q(1), eur(40), "e2")
	if err != nil {
		t.Fatal(err)
	}
	total := allocs[0].CostBasis.Add(lot.RemainingCost)
	if !total.Decimal().Equal(eur(100).Decimal()) {
		t.Errorf("allocated %s + remaining %s = %s, want 100",
			allocs[0].CostBasis, lot.RemainingCost, total)
	}
}

func TestLotBook_LotClosure(t *testing.T) {
	b := NewLotBook("p1")
	lot := b.OpenLot("AAPL", date.MustParse("2025-01-10"), Q(10), eur(100), "e1")

	if _, err := b.AllocateFIFO("AAPL", date.MustParse("2025-02-01"), Q(10), eur(150), "e2"); err != nil {
		t.Fatal(err)
	}
	if !lot.Closed() {
		t.Error("fully consumed lot not closed")
	}
	if !lot.RemainingCost.IsZero() {
		t.Errorf("closed lot keeps cost %s", lot.RemainingCost)
	}
	// Closed lots stay on the book as audit trail.
	if got := len(b.Lots("AAPL")); got != 1 {
		t.Errorf("lots = %d, want 1", got)
	}
}

func TestLotBook_ApplySplit(t *testing.T) {
	b := NewLotBook("p1")
	b.OpenLot("AAPL", date.MustParse("2025-01-10"), Q(10), eur(100), "e1")

	b.ApplySplit("AAPL", 2, 1)
	if !b.Position("AAPL").Equal(Q(20)) {
		t.Errorf("position after split = %s, want 20", b.Position("AAPL"))
	}
	if !b.CostBasis("AAPL").Decimal().Equal(eur(100).Decimal()) {
		t.Errorf("cost basis after split = %s, want 100", b.CostBasis("AAPL"))
	}

	// Reverse split brings it back.
	b.ApplySplit("AAPL", 1, 2)
	if !b.Position("AAPL").Equal(Q(10)) {
		t.Errorf("position after reverse split = %s, want 10", b.Position("AAPL"))
	}
}

func TestLotBook_AllocationGain(t *testing.T) {
	a := SecurityAllocation{CostBasis: eur(400), Proceeds: eur(520)}
	if !a.Gain().Decimal().Equal(eur(120).Decimal()) {
		t.Errorf("gain = %s, want 120", a.Gain())
	}
	loss := SecurityAllocation{CostBasis: eur(500), Proceeds: eur(400)}
	if !loss.Gain().Decimal().Equal(eur(-100).Decimal()) {
		t.Errorf("gain = %s, want -100", loss.Gain())
	}
}

func TestLotBook_BackdatedLot(t *testing.T) {
	b := NewLotBook("p1")
	b.OpenLot("AAPL", date.MustParse("2025-02-01"), Q(10), eur(120), "e1")
	// Recorded later, but acquired earlier.
	b.OpenLot("AAPL", date.MustParse("2025-01-01"), Q(10), eur(100), "e2")

	allocs, err := b.AllocateFIFO("AAPL", date.MustParse("2025-03-01"), Q(10), eur(150), "e3")
	if err != nil {
		t.Fatal(err)
	}
	// FIFO consumes the January lot despite the posting order.
	if !allocs[0].CostBasis.Decimal().Equal(eur(100).Decimal()) {
		t.Errorf("consumed basis = %s, want the back-dated lot's 100", allocs[0].CostBasis)
	}
	if !b.CostBasis("AAPL").Decimal().Equal(eur(120).Decimal()) {
		t.Errorf("remaining basis = %s, want 120", b.CostBasis("AAPL"))
	}
}

func TestRestore_SortsLots(t *testing.T) {
	lots := []*SecurityLot{
		{ID: "b", Security: "AAPL", AcquiredOn: date.MustParse("2025-02-01"), Quantity: Q(5), Remaining: Q(5), Cost: eur(60), RemainingCost: eur(60)},
		{ID: "a", Security: "AAPL", AcquiredOn: date.MustParse("2025-01-01"), Quantity: Q(5), Remaining: Q(5), Cost: eur(50), RemainingCost: eur(50)},
	}
	b := Restore("p1", lots, nil)

	allocs, err := b.AllocateFIFO("AAPL", date.MustParse("2025-03-01"), Q(5), eur(70), "e1")
	if err != nil {
		t.Fatal(err)
	}
	// FIFO must hit the January lot first regardless of restore order.
	if allocs[0].LotID != "a" {
		t.Errorf("allocation consumed lot %q, want the oldest", allocs[0].LotID)
	}
}
