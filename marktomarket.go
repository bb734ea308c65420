package folio

import (
	"fmt"

	"github.com/etnz/folio/date"
	"github.com/shopspring/decimal"
)

// Materiality is the smallest base-currency adjustment worth posting.
// Revaluation deltas strictly below this threshold are skipped, which is
// what makes repeated revaluations at an unchanged price idempotent.
var Materiality = decimal.NewFromFloat(0.01)

// material reports whether a delta is worth a journal entry.
func material(delta Money) bool {
	return delta.Abs().Decimal().GreaterThanOrEqual(Materiality)
}

// RevalueSecurity marks one security position to the given unit price. The
// adjustment is incremental: it posts only the difference between the
// target fair value adjustment and what is already on the books, so
// revaluing twice at the same price posts nothing the second time.
//
// The returned entry is nil when the delta is below the materiality
// threshold.
func (b *Book) RevalueSecurity(security string, price Money, on date.Date) (*JournalEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sec, ok := b.securities[security]
	if !ok {
		return nil, fmt.Errorf("security %q not declared in book", security)
	}
	if price.Currency() != "" && price.Currency() != sec.Currency {
		return nil, fmt.Errorf("price currency %s does not match security currency %s", price.Currency(), sec.Currency)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("price must be positive, got %s", price)
	}

	position := b.lots.Position(security)
	marketValue, _, err := b.toBase(M(price.Decimal(), sec.Currency).Mul(position), on)
	if err != nil {
		return nil, err
	}
	target := marketValue.Sub(b.lots.CostBasis(security))
	prior := b.refBalance(CodeFairValueAdjustment, security, date.Date{})
	delta := target.Sub(prior)
	if !material(delta) {
		return nil, nil
	}

	e := b.next(on, EntryAdjustment, SystemActor(),
		fmt.Sprintf("mark %s to market at %s", security, price), "")
	if delta.IsPositive() {
		e.append(
			BaseLine(CodeFairValueAdjustment, Debit, delta, security, "fair value increase"),
			BaseLine(CodeUnrealizedGains, Credit, delta, security, "unrealized gain on "+security),
		)
	} else {
		e.append(
			BaseLine(CodeUnrealizedLosses, Debit, delta.Neg(), security, "unrealized loss on "+security),
			BaseLine(CodeFairValueAdjustment, Credit, delta.Neg(), security, "fair value decrease"),
		)
	}
	if err := e.post(); err != nil {
		return nil, err
	}
	b.entries = append(b.entries, e)
	b.log.Debug().
		Str("security", security).
		Stringer("delta", delta).
		Int("entry", e.EntryNumber).
		Msg("revalued security")
	return e, nil
}

// RevalueCurrency marks the cash held in a foreign currency to the current
// exchange rate. The adjustment moves the base carrying value of the cash;
// the foreign amount itself is untouched. Like security revaluation it is
// incremental and idempotent.
func (b *Book) RevalueCurrency(currency string, on date.Date) (*JournalEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if currency == b.base {
		return nil, fmt.Errorf("cannot revalue the base currency %s", b.base)
	}
	cash := b.CashBalance(currency)
	target, _, err := b.toBase(cash, on)
	if err != nil {
		return nil, err
	}
	book := b.refBalance(CodeCash, currency, date.Date{})
	delta := target.Sub(book)
	if !material(delta) {
		return nil, nil
	}

	e := b.next(on, EntryAdjustment, SystemActor(),
		fmt.Sprintf("revalue %s cash", currency), "")
	if delta.IsPositive() {
		e.append(
			BaseLine(CodeCash, Debit, delta, currency, "fx revaluation"),
			BaseLine(CodeFxGainLoss, Credit, delta, currency, "unrealized fx gain"),
		)
	} else {
		e.append(
			BaseLine(CodeFxGainLoss, Debit, delta.Neg(), currency, "unrealized fx loss"),
			BaseLine(CodeCash, Credit, delta.Neg(), currency, "fx revaluation"),
		)
	}
	if err := e.post(); err != nil {
		return nil, err
	}
	b.entries = append(b.entries, e)
	b.log.Debug().
		Str("currency", currency).
		Stringer("delta", delta).
		Int("entry", e.EntryNumber).
		Msg("revalued cash")
	return e, nil
}

// RevalueAll marks every held security and every foreign cash balance to
// market as of the given day. Securities without a known price are
// skipped. It returns the adjustment entries that were actually posted.
func (b *Book) RevalueAll(prices PriceSource, on date.Date) ([]*JournalEntry, error) {
	var posted []*JournalEntry
	for _, sec := range b.Securities() {
		if b.Position(sec.Ticker).IsZero() && b.FairValueAdjustment(sec.Ticker).IsZero() {
			continue
		}
		price, ok := prices.Price(sec.Ticker, on)
		if !ok {
			b.log.Warn().Str("security", sec.Ticker).Stringer("on", on).Msg("no price, skipping revaluation")
			continue
		}
		e, err := b.RevalueSecurity(sec.Ticker, price, on)
		if err != nil {
			return posted, err
		}
		if e != nil {
			posted = append(posted, e)
		}
	}
	for _, cur := range b.CashCurrencies() {
		if cur == b.base {
			continue
		}
		e, err := b.RevalueCurrency(cur, on)
		if err != nil {
			return posted, err
		}
		if e != nil {
			posted = append(posted, e)
		}
	}
	return posted, nil
}
