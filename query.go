package folio

import (
	"github.com/etnz/folio/date"
)

// This file is the read side of the book: balances are always derived by
// replaying posted lines, never kept as separate running totals, so a
// balance can never drift from the journal that explains it.

// signed returns the line's contribution to a debit-positive sum.
func signed(l JournalLine) Money {
	if l.Side == Debit {
		return l.Amount
	}
	return l.Amount.Neg()
}

// inScope reports whether an entry dated `on` falls within the period
// ending at `through`. A zero `through` means no upper bound.
func inScope(on, through date.Date) bool {
	return through.IsZero() || !on.After(through)
}

// AccountBalance returns the balance of an account as of the given date,
// signed by the account's normal balance: a positive number means the
// account holds a balance on its normal side. A zero date means "now".
func (b *Book) AccountBalance(code string, through date.Date) Money {
	var sum Money // debit-positive
	for _, e := range b.entries {
		if !inScope(e.EntryDate, through) {
			continue
		}
		for _, l := range e.Lines {
			if l.AccountCode == code {
				sum = sum.Add(signed(l))
			}
		}
	}
	return b.orient(code, sum)
}

// orient flips a debit-positive sum to the account's normal side.
func (b *Book) orient(code string, debitPositive Money) Money {
	a, err := b.chart.Resolve(code)
	if err == nil && a.NormalBalance() == Credit {
		return M(debitPositive.Neg().Decimal(), b.base)
	}
	return M(debitPositive.Decimal(), b.base)
}

// refBalance returns the debit-positive balance of the lines of one
// account tagged with a specific dimension (security ticker or currency).
func (b *Book) refBalance(code, ref string, through date.Date) Money {
	var sum Money
	for _, e := range b.entries {
		if !inScope(e.EntryDate, through) {
			continue
		}
		for _, l := range e.Lines {
			if l.AccountCode == code && l.Ref == ref {
				sum = sum.Add(signed(l))
			}
		}
	}
	return M(sum.Decimal(), b.base)
}

// rangeBalance returns the normal-side balance of an account restricted to
// entries within the period. Used for income statements.
func (b *Book) rangeBalance(code string, period date.Range) Money {
	var sum Money
	for _, e := range b.entries {
		if !period.Contains(e.EntryDate) {
			continue
		}
		for _, l := range e.Lines {
			if l.AccountCode == code {
				sum = sum.Add(signed(l))
			}
		}
	}
	return b.orient(code, sum)
}

// CashBalance returns the cash held in one currency, expressed in that
// currency. Foreign cash is summed from the original foreign amounts;
// base-only adjustment lines change the book value of foreign cash but not
// the foreign amount itself.
func (b *Book) CashBalance(currency string) Money {
	var sum Money
	for _, e := range b.entries {
		for _, l := range e.Lines {
			if l.AccountCode != CodeCash || l.Ref != currency {
				continue
			}
			amount, _, isForeign := l.Foreign()
			switch {
			case isForeign:
				if l.Side == Debit {
					sum = sum.Add(amount)
				} else {
					sum = sum.Sub(amount)
				}
			case currency == b.base:
				if l.Side == Debit {
					sum = sum.Add(l.Amount)
				} else {
					sum = sum.Sub(l.Amount)
				}
			}
		}
	}
	return M(sum.Decimal(), currency)
}

// CashBookValue returns the base-currency carrying value of the cash held
// in one currency, including posted revaluation adjustments.
func (b *Book) CashBookValue(currency string) Money {
	return M(b.refBalance(CodeCash, currency, date.Date{}).Decimal(), b.base)
}

// CashCurrencies returns every currency that ever appeared on a cash line.
func (b *Book) CashCurrencies() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range b.entries {
		for _, l := range e.Lines {
			if l.AccountCode == CodeCash && l.Ref != "" && !seen[l.Ref] {
				seen[l.Ref] = true
				out = append(out, l.Ref)
			}
		}
	}
	return out
}

// Position returns the open quantity held in a security.
func (b *Book) Position(security string) Quantity {
	return b.lots.Position(security)
}

// CostBasis returns the base-currency cost basis of the open position in a
// security.
func (b *Book) CostBasis(security string) Money {
	return M(b.lots.CostBasis(security).Decimal(), b.base)
}

// Lots returns the lots of a security in acquisition order, including
// closed ones.
func (b *Book) Lots(security string) []*SecurityLot {
	return b.lots.Lots(security)
}

// Allocations returns the FIFO allocations recorded against a security.
func (b *Book) Allocations(security string) []SecurityAllocation {
	return b.lots.Allocations(security)
}

// FairValueAdjustment returns the posted mark-to-market adjustment for one
// security, debit-positive: a positive value means the position is carried
// above cost.
func (b *Book) FairValueAdjustment(security string) Money {
	return b.refBalance(CodeFairValueAdjustment, security, date.Date{})
}

// CarryingValue returns the base-currency value a security position is
// carried at: cost basis plus posted fair value adjustment.
func (b *Book) CarryingValue(security string) Money {
	return b.CostBasis(security).Add(b.FairValueAdjustment(security))
}

// EntriesBetween returns the posted entries whose entry date falls within
// the period, in posting order.
func (b *Book) EntriesBetween(period date.Range) []*JournalEntry {
	var out []*JournalEntry
	for _, e := range b.entries {
		if period.Contains(e.EntryDate) {
			out = append(out, e)
		}
	}
	return out
}

// AccountLines returns every line posted to an account up to the given
// date, with its owning entry, oldest first. A zero date means no bound.
func (b *Book) AccountLines(code string, through date.Date) []AccountLine {
	var out []AccountLine
	for _, e := range b.entries {
		if !inScope(e.EntryDate, through) {
			continue
		}
		for _, l := range e.Lines {
			if l.AccountCode == code {
				out = append(out, AccountLine{Entry: e, Line: l})
			}
		}
	}
	return out
}

// AccountLine pairs a journal line with the entry that posted it.
type AccountLine struct {
	Entry *JournalEntry
	Line  JournalLine
}
