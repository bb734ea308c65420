package folio

import (
	"errors"
	"strings"
	"testing"

	"github.com/etnz/folio/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// newTestBook returns an EUR book with ALV declared, ready for posting.
func newTestBook(t *testing.T) *Book {
	t.Helper()
	b, err := NewBook("p1", "test portfolio", "EUR", IdentityRates(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBook: %v", err)
	}
	mustPost(t, b, NewDeclare(date.MustParse("2025-01-01"), "", "ALV", "Allianz SE", "EUR"))
	return b
}

// mustPost posts a transaction and fails the test on error.
func mustPost(t *testing.T, b *Book, tx Transaction) *JournalEntry {
	t.Helper()
	e, err := b.Post(tx, UserActor("tester"))
	if err != nil {
		t.Fatalf("Post(%s): %v", tx.What(), err)
	}
	return e
}

func eur(v float64) Money { return M(v, "EUR") }
func usd(v float64) Money { return M(v, "USD") }

// wantBalance checks an account's normal-side balance.
func wantBalance(t *testing.T, b *Book, code string, want Money) {
	t.Helper()
	got := b.AccountBalance(code, date.Date{})
	if !got.Decimal().Equal(want.Decimal()) {
		t.Errorf("AccountBalance(%s) = %s, want %s", code, got, want)
	}
}

func TestBook_PostingTemplates(t *testing.T) {
	day := date.MustParse("2025-02-01")
	testCases := []struct {
		name  string
		setup []Transaction
		tx    Transaction
		// expected normal-side balances after posting
		want map[string]Money
	}{
		{
			name: "deposit",
			tx:   NewDeposit(day, "", eur(10000)),
			want: map[string]Money{
				CodeCash:          eur(10000),
				CodeOwnersCapital: eur(10000),
			},
		},
		{
			name:  "withdraw",
			setup: []Transaction{NewDeposit(day, "", eur(10000))},
			tx:    NewWithdraw(day, "", eur(4000)),
			want: map[string]Money{
				CodeCash:          eur(6000),
				CodeOwnersCapital: eur(6000),
			},
		},
		{
			name:  "buy with fee",
			setup: []Transaction{NewDeposit(day, "", eur(10000))},
			tx:    NewBuy(day, "", "ALV", Q(100), eur(1000), eur(5)),
			// The fee is capitalized into the position, not expensed.
			want: map[string]Money{
				CodeCash:        eur(8995),
				CodeInvestments: eur(1005),
				CodeFees:        eur(0),
			},
		},
		{
			name: "sell with gain",
			setup: []Transaction{
				NewDeposit(day, "", eur(10000)),
				NewBuy(day, "", "ALV", Q(100), eur(1000), eur(0)),
			},
			tx: NewSell(day, "", "ALV", Q(40), eur(520), eur(2)),
			// The fee nets against the proceeds: gain = 518 - 400.
			want: map[string]Money{
				CodeCash:          eur(9518), // 10000 - 1000 + 520 - 2
				CodeInvestments:   eur(600),
				CodeRealizedGains: eur(118),
				CodeFees:          eur(0),
			},
		},
		{
			name: "sell at a loss",
			setup: []Transaction{
				NewDeposit(day, "", eur(10000)),
				NewBuy(day, "", "ALV", Q(100), eur(1000), eur(0)),
			},
			tx: NewSell(day, "", "ALV", Q(50), eur(400), eur(0)),
			want: map[string]Money{
				CodeInvestments:    eur(500),
				CodeRealizedLosses: eur(100),
			},
		},
		{
			name:  "dividend with withholding",
			setup: []Transaction{NewDeposit(day, "", eur(1000)), NewBuy(day, "", "ALV", Q(10), eur(500), eur(0))},
			tx:    NewDividend(day, "", "ALV", eur(100), eur(15)),
			want: map[string]Money{
				CodeCash:           eur(585), // 1000 - 500 + 85
				CodeDividendIncome: eur(100),
				CodeTaxExpense:     eur(15),
			},
		},
		{
			name: "interest",
			tx:   NewInterest(day, "", eur(50), eur(10)),
			want: map[string]Money{
				CodeCash:           eur(40),
				CodeInterestIncome: eur(50),
				CodeTaxExpense:     eur(10),
			},
		},
		{
			name:  "standalone fee",
			setup: []Transaction{NewDeposit(day, "", eur(100))},
			tx:    NewFee(day, "custody", eur(12)),
			want: map[string]Money{
				CodeCash: eur(88),
				CodeFees: eur(12),
			},
		},
		{
			name:  "standalone tax",
			setup: []Transaction{NewDeposit(day, "", eur(100))},
			tx:    NewTax(day, "stamp duty", eur(7)),
			want: map[string]Money{
				CodeCash:       eur(93),
				CodeTaxExpense: eur(7),
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := newTestBook(t)
			for _, tx := range tc.setup {
				mustPost(t, b, tx)
			}
			e := mustPost(t, b, tc.tx)
			if e == nil {
				t.Fatal("expected a journal entry")
			}
			if !e.Balanced() {
				t.Errorf("entry not balanced: debits %s credits %s", e.TotalDebits(), e.TotalCredits())
			}
			if e.Status != StatusPosted {
				t.Errorf("entry status = %s, want %s", e.Status, StatusPosted)
			}
			for code, want := range tc.want {
				wantBalance(t, b, code, want)
			}
		})
	}
}

func TestBook_EntryNumbersAreGapless(t *testing.T) {
	b := newTestBook(t)
	day := date.MustParse("2025-02-01")
	mustPost(t, b, NewDeposit(day, "", eur(1000)))
	mustPost(t, b, NewFee(day, "", eur(1)))
	mustPost(t, b, NewFee(day, "", eur(1)))
	for i, e := range b.Entries() {
		if e.EntryNumber != i+1 {
			t.Errorf("entry %d has number %d", i, e.EntryNumber)
		}
	}
}

func TestBook_BuyRequiresCash(t *testing.T) {
	b := newTestBook(t)
	_, err := b.Post(NewBuy(date.MustParse("2025-02-01"), "", "ALV", Q(10), eur(100), eur(0)), UserActor("tester"))
	if err == nil {
		t.Fatal("expected an error buying without cash")
	}
	if !strings.Contains(err.Error(), "cannot buy") {
		t.Errorf("unexpected error: %v", err)
	}
	if b.EntryCount() != 0 {
		t.Errorf("failed buy left %d entries", b.EntryCount())
	}
}

func TestBook_SellMoreThanHeld(t *testing.T) {
	b := newTestBook(t)
	day := date.MustParse("2025-02-01")
	mustPost(t, b, NewDeposit(day, "", eur(1000)))
	mustPost(t, b, NewBuy(day, "", "ALV", Q(10), eur(100), eur(0)))

	_, err := b.Post(NewSell(day, "", "ALV", Q(50), eur(600), eur(0)), UserActor("tester"))
	var insufficient *InsufficientLotsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientLotsError, got %v", err)
	}
	if !b.Position("ALV").Equal(Q(10)) {
		t.Errorf("failed sell changed the position: %s", b.Position("ALV"))
	}
}

func TestBook_SellAll(t *testing.T) {
	b := newTestBook(t)
	day := date.MustParse("2025-02-01")
	mustPost(t, b, NewDeposit(day, "", eur(1000)))
	mustPost(t, b, NewBuy(day, "", "ALV", Q(10), eur(100), eur(0)))

	// Zero quantity resolves to the whole position.
	mustPost(t, b, NewSell(day.Add(1), "", "ALV", Q(0), eur(120), eur(0)))
	if !b.Position("ALV").IsZero() {
		t.Errorf("position after sell all = %s", b.Position("ALV"))
	}
	wantBalance(t, b, CodeRealizedGains, eur(20))
}

func TestBook_WithdrawAll(t *testing.T) {
	b := newTestBook(t)
	day := date.MustParse("2025-02-01")
	mustPost(t, b, NewDeposit(day, "", eur(750)))
	mustPost(t, b, NewWithdraw(day.Add(1), "", eur(0)))
	if got := b.CashBalance("EUR"); !got.IsZero() {
		t.Errorf("cash after withdraw all = %s", got)
	}
}

func TestBook_ConvertResidual(t *testing.T) {
	b := newTestBook(t)
	day := date.MustParse("2025-02-01")
	mustPost(t, b, NewDeposit(day, "", usd(1000)))

	// Identity rates value both legs 1:1, the 50 gap is conversion spread.
	e := mustPost(t, b, NewConvert(day.Add(1), "", usd(500), eur(450)))
	if !e.Balanced() {
		t.Fatalf("convert entry not balanced")
	}
	if got := b.CashBalance("USD"); !got.Decimal().Equal(usd(500).Decimal()) {
		t.Errorf("USD cash = %s, want 500", got)
	}
	if got := b.CashBalance("EUR"); !got.Decimal().Equal(eur(450).Decimal()) {
		t.Errorf("EUR cash = %s, want 450", got)
	}
	// FX gain/loss is credit-normal; the spread is a 50 loss.
	wantBalance(t, b, CodeFxGainLoss, eur(-50))
}

func TestBook_ConvertAll(t *testing.T) {
	b := newTestBook(t)
	day := date.MustParse("2025-02-01")
	mustPost(t, b, NewDeposit(day, "", usd(800)))
	mustPost(t, b, NewConvert(day.Add(1), "", usd(0), eur(800)))
	if got := b.CashBalance("USD"); !got.IsZero() {
		t.Errorf("USD cash after convert all = %s", got)
	}
}

func TestBook_Split(t *testing.T) {
	b := newTestBook(t)
	day := date.MustParse("2025-02-01")
	mustPost(t, b, NewDeposit(day, "", eur(1000)))
	mustPost(t, b, NewBuy(day, "", "ALV", Q(10), eur(100), eur(0)))

	e := mustPost(t, b, NewSplit(day.Add(1), "ALV", 2, 1))
	if e != nil {
		t.Errorf("split should not post a journal entry")
	}
	if !b.Position("ALV").Equal(Q(20)) {
		t.Errorf("position after 2:1 split = %s", b.Position("ALV"))
	}
	if got := b.CostBasis("ALV"); !got.Decimal().Equal(eur(100).Decimal()) {
		t.Errorf("cost basis after split = %s, want 100", got)
	}
}

func TestBook_Reverse(t *testing.T) {
	b := newTestBook(t)
	day := date.MustParse("2025-02-01")
	mustPost(t, b, NewDeposit(day, "", eur(1000)))
	fee := mustPost(t, b, NewFee(day, "", eur(25)))

	rev, err := b.Reverse(fee.EntryNumber, day.Add(1), UserActor("tester"))
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if rev.Type != EntryReversal {
		t.Errorf("reversal type = %s", rev.Type)
	}
	if rev.Reference != fee.ID {
		t.Errorf("reversal reference = %q, want original entry id", rev.Reference)
	}
	if fee.Status != StatusReversed {
		t.Errorf("original status = %s, want %s", fee.Status, StatusReversed)
	}
	wantBalance(t, b, CodeCash, eur(1000))
	wantBalance(t, b, CodeFees, eur(0))

	if _, err := b.Reverse(fee.EntryNumber, day.Add(2), UserActor("tester")); err == nil {
		t.Error("expected an error reversing twice")
	}
	if _, err := b.Reverse(rev.EntryNumber, day, UserActor("tester")); err == nil {
		t.Error("expected an error reversing before the entry date")
	}
}

func TestBook_TradeFeeLifecycle(t *testing.T) {
	b := newTestBook(t)
	day := date.MustParse("2025-02-01")
	mustPost(t, b, NewDeposit(day, "", eur(10000)))

	// The buy fee opens the lot at price plus fee.
	mustPost(t, b, NewBuy(day, "", "ALV", Q(100), eur(1000), eur(5)))
	if got := b.CostBasis("ALV"); !got.Decimal().Equal(eur(1005).Decimal()) {
		t.Errorf("cost basis = %s, want 1005", got)
	}
	wantBalance(t, b, CodeInvestments, eur(1005))
	wantBalance(t, b, CodeFees, eur(0))

	// The sell fee reduces the proceeds: gain = (1200 - 10) - 1005.
	mustPost(t, b, NewSell(day.Add(1), "", "ALV", Q(0), eur(1200), eur(10)))
	wantBalance(t, b, CodeRealizedGains, eur(185))
	wantBalance(t, b, CodeFees, eur(0))
	wantBalance(t, b, CodeCash, eur(10185)) // 10000 - 1005 + 1190
	wantBalance(t, b, CodeInvestments, eur(0))
}

func TestBook_ReverseTradeRejected(t *testing.T) {
	b := newTestBook(t)
	day := date.MustParse("2025-02-01")
	mustPost(t, b, NewDeposit(day, "", eur(10000)))
	buy := mustPost(t, b, NewBuy(day, "", "ALV", Q(100), eur(1000), eur(0)))
	sell := mustPost(t, b, NewSell(day.Add(1), "", "ALV", Q(40), eur(520), eur(0)))

	// Trade entries carry lot side effects the journal alone cannot undo.
	for _, e := range []*JournalEntry{buy, sell} {
		if _, err := b.Reverse(e.EntryNumber, day.Add(2), UserActor("tester")); err == nil {
			t.Errorf("reversing trade entry #%d succeeded", e.EntryNumber)
		} else if !strings.Contains(err.Error(), "offsetting trade") {
			t.Errorf("unexpected error: %v", err)
		}
		if e.Status != StatusPosted {
			t.Errorf("entry #%d status = %s after rejected reversal", e.EntryNumber, e.Status)
		}
	}
	if !b.Position("ALV").Equal(Q(60)) {
		t.Errorf("position = %s, want 60", b.Position("ALV"))
	}
	wantBalance(t, b, CodeInvestments, eur(600))

	// Entries without lot side effects still reverse.
	fee := mustPost(t, b, NewFee(day.Add(2), "", eur(4)))
	if _, err := b.Reverse(fee.EntryNumber, day.Add(3), UserActor("tester")); err != nil {
		t.Fatalf("Reverse(fee): %v", err)
	}
}

func TestBook_CloseBooks(t *testing.T) {
	b := newTestBook(t)
	day := date.MustParse("2025-02-01")
	mustPost(t, b, NewDeposit(day, "", eur(1000)))
	mustPost(t, b, NewInterest(day, "", eur(100), eur(0)))
	mustPost(t, b, NewFee(day, "", eur(30)))

	e, err := b.CloseBooks(date.MustParse("2025-03-01"), UserActor("tester"))
	if err != nil {
		t.Fatalf("CloseBooks: %v", err)
	}
	if e == nil || e.Type != EntryClosing {
		t.Fatalf("expected a closing entry, got %v", e)
	}
	if !e.Balanced() {
		t.Error("closing entry not balanced")
	}
	wantBalance(t, b, CodeInterestIncome, eur(0))
	wantBalance(t, b, CodeFees, eur(0))
	wantBalance(t, b, CodeRetainedEarnings, eur(70))

	// Nothing left to close.
	e2, err := b.CloseBooks(date.MustParse("2025-04-01"), UserActor("tester"))
	if err != nil {
		t.Fatalf("second CloseBooks: %v", err)
	}
	if e2 != nil {
		t.Errorf("expected nil entry on a second close, got #%d", e2.EntryNumber)
	}
}

func TestBook_DeclareTwice(t *testing.T) {
	b := newTestBook(t)
	_, err := b.Post(NewDeclare(date.MustParse("2025-01-02"), "", "ALV", "", "EUR"), UserActor("tester"))
	if err == nil {
		t.Fatal("expected an error declaring the same ticker twice")
	}
}

func TestBook_BuyUndeclaredSecurity(t *testing.T) {
	b := newTestBook(t)
	day := date.MustParse("2025-02-01")
	mustPost(t, b, NewDeposit(day, "", eur(1000)))
	_, err := b.Post(NewBuy(day, "", "ZZZ", Q(1), eur(10), eur(0)), UserActor("tester"))
	if err == nil || !strings.Contains(err.Error(), "not declared") {
		t.Fatalf("expected a not-declared error, got %v", err)
	}
}

func TestBook_ForeignCurrencyBuy(t *testing.T) {
	b, err := NewBook("p1", "test", "EUR", FixedRate(decimal.NewFromFloat(0.9)), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	day := date.MustParse("2025-02-01")
	mustPost(t, b, NewDeclare(day, "", "MSFT", "Microsoft", "USD"))
	mustPost(t, b, NewDeposit(day, "", usd(10000)))

	e := mustPost(t, b, NewBuy(day, "", "MSFT", Q(10), usd(4000), usd(10)))
	if !e.Balanced() {
		t.Fatal("foreign buy entry not balanced")
	}
	// Base amounts at 0.9: cost 3600 plus the capitalized fee 9.
	if got := b.CostBasis("MSFT"); !got.Decimal().Equal(eur(3609).Decimal()) {
		t.Errorf("cost basis = %s, want 3609 EUR", got)
	}
	if got := b.CashBalance("USD"); !got.Decimal().Equal(usd(5990).Decimal()) {
		t.Errorf("USD cash = %s, want 5990", got)
	}
	// The cash line keeps the foreign leg for reconciliation.
	var cashLine *JournalLine
	for i := range e.Lines {
		if e.Lines[i].AccountCode == CodeCash {
			cashLine = &e.Lines[i]
		}
	}
	if cashLine == nil {
		t.Fatal("no cash line on the buy entry")
	}
	foreign, rate, ok := cashLine.Foreign()
	if !ok {
		t.Fatal("cash line lost its foreign leg")
	}
	if !foreign.Decimal().Equal(usd(4010).Decimal()) || foreign.Currency() != "USD" {
		t.Errorf("foreign leg = %s", foreign)
	}
	if !rate.Equal(decimal.NewFromFloat(0.9)) {
		t.Errorf("rate = %s, want 0.9", rate)
	}
}
