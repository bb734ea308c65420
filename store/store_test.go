package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/etnz/folio"
	"github.com/etnz/folio/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// newBook builds a book with a position, a foreign cash line and a partial
// sale, enough to exercise every table.
func newBook(t *testing.T) *folio.Book {
	t.Helper()
	b, err := folio.NewBook("p1", "test portfolio", "EUR", folio.FixedRate(decimal.NewFromFloat(0.9)), zerolog.Nop())
	require.NoError(t, err)

	day := date.MustParse("2025-02-01")
	post := func(tx folio.Transaction) {
		t.Helper()
		_, err := b.Post(tx, folio.UserActor("tester"))
		require.NoError(t, err)
	}
	post(folio.NewDeclare(day, "", "ALV", "Allianz SE", "EUR"))
	post(folio.NewDeposit(day, "", folio.M(10000, "EUR")))
	post(folio.NewDeposit(day, "", folio.M(500, "USD")))
	post(folio.NewBuy(day, "", "ALV", folio.Q(100), folio.M(1000, "EUR"), folio.Money{}))
	post(folio.NewSell(date.MustParse("2025-03-01"), "", "ALV", folio.Q(40), folio.M(520, "EUR"), folio.Money{}))
	return b
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	b := newBook(t)
	require.NoError(t, s.SaveBook(ctx, b))

	loaded, err := s.LoadBook(ctx, "p1", folio.FixedRate(decimal.NewFromFloat(0.9)), zerolog.Nop())
	require.NoError(t, err)

	require.Equal(t, b.Name(), loaded.Name())
	require.Equal(t, b.BaseCurrency(), loaded.BaseCurrency())
	require.Equal(t, b.EntryCount(), loaded.EntryCount())

	// Balances survive byte for byte.
	for _, code := range []string{folio.CodeCash, folio.CodeInvestments, folio.CodeRealizedGains} {
		want := b.AccountBalance(code, date.Date{})
		got := loaded.AccountBalance(code, date.Date{})
		require.True(t, got.Decimal().Equal(want.Decimal()), "balance %s: got %s want %s", code, got, want)
	}

	// So do the lots: 60 of 100 remain after the partial sale.
	require.True(t, loaded.Position("ALV").Equal(folio.Q(60)))
	require.True(t, loaded.CostBasis("ALV").Decimal().Equal(decimal.NewFromInt(600)))

	// The foreign leg of the USD deposit comes back with amount and rate.
	var foreignSeen bool
	for _, e := range loaded.Entries() {
		for _, l := range e.Lines {
			amount, rate, ok := l.Foreign()
			if !ok {
				continue
			}
			foreignSeen = true
			require.Equal(t, "USD", amount.Currency())
			require.True(t, amount.Decimal().Equal(decimal.NewFromInt(500)))
			require.True(t, rate.Equal(decimal.NewFromFloat(0.9)))
		}
	}
	require.True(t, foreignSeen, "no foreign line survived")
}

func TestSaveBook_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	b := newBook(t)
	require.NoError(t, s.SaveBook(ctx, b))
	require.NoError(t, s.SaveBook(ctx, b))

	loaded, err := s.LoadBook(ctx, "p1", folio.IdentityRates(), zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, b.EntryCount(), loaded.EntryCount())
}

func TestSaveBook_ReversalStatusSync(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	b := newBook(t)
	require.NoError(t, s.SaveBook(ctx, b))

	day := date.MustParse("2025-03-02")
	fee, err := b.Post(folio.NewFee(day, "oops", folio.M(3, "EUR")), folio.UserActor("tester"))
	require.NoError(t, err)
	require.NoError(t, s.SaveBook(ctx, b))

	_, err = b.Reverse(fee.EntryNumber, day, folio.UserActor("tester"))
	require.NoError(t, err)
	require.NoError(t, s.SaveBook(ctx, b))

	loaded, err := s.LoadBook(ctx, "p1", folio.IdentityRates(), zerolog.Nop())
	require.NoError(t, err)
	got, ok := loaded.Entry(fee.EntryNumber)
	require.True(t, ok)
	require.Equal(t, folio.StatusReversed, got.Status)
}

func TestNextEntryNumber(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	n, err := s.NextEntryNumber(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	b := newBook(t)
	require.NoError(t, s.SaveBook(ctx, b))
	n, err = s.NextEntryNumber(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, b.EntryCount()+1, n)
}

func TestLoadBook_NotFound(t *testing.T) {
	s := newStore(t)
	_, err := s.LoadBook(context.Background(), "nope", folio.IdentityRates(), zerolog.Nop())
	require.ErrorIs(t, err, folio.ErrPortfolioNotFound)
}

func TestPortfolios(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveBook(ctx, newBook(t)))

	ids, err := s.Portfolios(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"p1"}, ids)
}

func TestSaveBatch_OptimisticConcurrency(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	batch := folio.NewImportBatch("p1", "broker.jsonl")
	require.NoError(t, s.SaveBatch(ctx, batch))

	batch.Touch(3, 1)
	require.NoError(t, s.SaveBatch(ctx, batch))

	loaded, err := s.LoadBatch(ctx, batch.ID)
	require.NoError(t, err)
	require.Equal(t, 3, loaded.Posted)
	require.Equal(t, 1, loaded.Failed)
	require.Equal(t, 2, loaded.Version)

	// A concurrent run already bumped the stored version: saving a batch
	// whose version skipped ahead is rejected.
	stale := *loaded
	stale.Version = 4
	err = s.SaveBatch(ctx, &stale)
	var conflict *folio.StaleBatchError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, 2, conflict.Actual)
}
