package fx

import (
	"context"
	"sync"

	"github.com/etnz/folio/date"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Source is the narrow view Prefetch needs from any rate provider.
type Source interface {
	RateContext(ctx context.Context, from, to string, on date.Date) (decimal.Decimal, error)
}

// Prefetch resolves rates for every listed currency against the base over
// a period, fetching concurrently, and returns them loaded into a Table.
// It is the fast path for revaluing a whole book: the table is then handed
// to the engine so posting itself stays sequential.
func Prefetch(ctx context.Context, src Source, base string, currencies []string, period date.Range) (*Table, error) {
	table := NewTable()
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, cur := range currencies {
		if cur == base {
			continue
		}
		for on := period.From; !on.After(period.To); on = on.Add(1) {
			g.Go(func() error {
				r, err := src.RateContext(ctx, cur, base, on)
				if err != nil {
					return err
				}
				mu.Lock()
				table.Set(cur, base, on, r)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return table, nil
}
