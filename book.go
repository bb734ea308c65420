package folio

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/etnz/folio/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RateSource resolves an exchange rate between two currencies on a given
// day. Implementations live in the fx package; the book only needs this
// narrow view.
type RateSource interface {
	// Rate returns how many units of `to` one unit of `from` is worth on
	// that day.
	Rate(from, to string, on date.Date) (decimal.Decimal, error)
}

// Security describes a declared instrument and its trading currency.
type Security struct {
	Ticker   string
	Name     string
	Currency string
}

// Book is the journal engine for a single portfolio. It validates
// transactions, expands them into balanced journal entries through fixed
// posting templates, and keeps the FIFO lot book in sync.
//
// Posting goes through a single mutex so entry numbers are gapless and lot
// consumption is serialized. Queries are not synchronized against a
// concurrent Post; callers that mix the two serialize externally.
type Book struct {
	mu sync.Mutex

	portfolioID string
	name        string
	base        string // base reporting currency
	chart       *ChartOfAccounts
	lots        *LotBook
	securities  map[string]Security
	entries     []*JournalEntry
	rates       RateSource
	log         zerolog.Logger
}

// NewBook creates an initialized book for a portfolio with the given base
// currency. The chart of accounts is seeded with the canonical account set.
func NewBook(portfolioID, name, baseCurrency string, rates RateSource, log zerolog.Logger) (*Book, error) {
	if err := ValidateCurrency(baseCurrency); err != nil {
		return nil, fmt.Errorf("invalid base currency: %w", err)
	}
	chart := NewChartOfAccounts(portfolioID)
	chart.EnsureInitialized()
	return &Book{
		portfolioID: portfolioID,
		name:        name,
		base:        baseCurrency,
		chart:       chart,
		lots:        NewLotBook(portfolioID),
		securities:  make(map[string]Security),
		rates:       rates,
		log:         log.With().Str("portfolio", portfolioID).Logger(),
	}, nil
}

// RestoreBook rebuilds a book from persisted state. Entries must be in
// posting order; the lot book must reflect every posted entry.
func RestoreBook(portfolioID, name, baseCurrency string, securities []Security, entries []*JournalEntry, lots *LotBook, rates RateSource, log zerolog.Logger) *Book {
	b := &Book{
		portfolioID: portfolioID,
		name:        name,
		base:        baseCurrency,
		chart:       NewChartOfAccounts(portfolioID),
		lots:        lots,
		securities:  make(map[string]Security, len(securities)),
		entries:     entries,
		rates:       rates,
		log:         log.With().Str("portfolio", portfolioID).Logger(),
	}
	b.chart.EnsureInitialized()
	for _, s := range securities {
		b.securities[s.Ticker] = s
	}
	return b
}

// PortfolioID returns the portfolio this book belongs to.
func (b *Book) PortfolioID() string { return b.portfolioID }

// Name returns the display name of the portfolio.
func (b *Book) Name() string { return b.name }

// BaseCurrency returns the base reporting currency of the book.
func (b *Book) BaseCurrency() string { return b.base }

// Chart returns the book's chart of accounts.
func (b *Book) Chart() *ChartOfAccounts { return b.chart }

// Security looks up a declared security by ticker.
func (b *Book) Security(ticker string) (Security, bool) {
	s, ok := b.securities[ticker]
	return s, ok
}

// Securities returns the declared securities sorted by ticker.
func (b *Book) Securities() []Security {
	out := make([]Security, 0, len(b.securities))
	for _, s := range b.securities {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, c Security) int {
		return strings.Compare(a.Ticker, c.Ticker)
	})
	return out
}

// EntryCount returns the number of journal entries posted so far.
func (b *Book) EntryCount() int { return len(b.entries) }

// Entries returns the posted journal entries in posting order. The returned
// slice must not be modified.
func (b *Book) Entries() []*JournalEntry { return b.entries }

// Entry returns the journal entry with the given number.
func (b *Book) Entry(number int) (*JournalEntry, bool) {
	if number < 1 || number > len(b.entries) {
		return nil, false
	}
	return b.entries[number-1], true
}

// toBase converts an amount into the base currency at the transaction
// date's rate, keeping full precision. Conversion at a single rate is
// distributive, so parts converted separately still sum exactly.
func (b *Book) toBase(m Money, on date.Date) (Money, decimal.Decimal, error) {
	if m.Currency() == b.base || m.Currency() == "" {
		return M(m.Decimal(), b.base), decimal.NewFromInt(1), nil
	}
	rate, err := b.rates.Rate(m.Currency(), b.base, on)
	if err != nil {
		return Money{}, decimal.Decimal{}, &MissingExchangeRateError{From: m.Currency(), To: b.base, On: on, Err: err}
	}
	return m.MulRate(rate, b.base), rate, nil
}

// cashLine builds the journal line for a cash movement. Foreign cash lines
// carry their original amount and rate; every cash line is tagged with its
// currency so per-currency balances can be derived later.
func (b *Book) cashLine(side Side, amount Money, base Money, rate decimal.Decimal, desc string) JournalLine {
	if amount.Currency() == b.base {
		return BaseLine(CodeCash, side, base, b.base, desc)
	}
	return ForeignLine(CodeCash, side, base, amount, rate, amount.Currency(), desc)
}

// Post validates a transaction and expands it into a posted journal entry.
// Non-monetary commands (init, declare, split) update the book's state and
// return a nil entry.
//
// Posting is atomic: on any error the book is unchanged.
func (b *Book) Post(tx Transaction, by Actor) (*JournalEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tx, err := tx.Validate(b)
	if err != nil {
		return nil, fmt.Errorf("invalid %s transaction: %w", tx.What(), err)
	}

	entry, err := b.expand(tx, by)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	if err := entry.post(); err != nil {
		return nil, err
	}
	b.entries = append(b.entries, entry)
	b.log.Debug().
		Int("entry", entry.EntryNumber).
		Str("type", string(entry.Type)).
		Stringer("date", entry.EntryDate).
		Str("by", entry.CreatedBy.String()).
		Msg("posted journal entry")
	return entry, nil
}

// expand applies the posting template for the transaction type.
func (b *Book) expand(tx Transaction, by Actor) (*JournalEntry, error) {
	switch t := tx.(type) {
	case Init:
		b.base = t.Currency
		if t.Name != "" {
			b.name = t.Name
		}
		return nil, nil
	case Declare:
		b.securities[t.Ticker] = Security{Ticker: t.Ticker, Name: t.Name, Currency: t.Currency}
		return nil, nil
	case Split:
		b.lots.ApplySplit(t.Security, t.Numerator, t.Denominator)
		return nil, nil
	case Buy:
		return b.expandBuy(t, by)
	case Sell:
		return b.expandSell(t, by)
	case Dividend:
		return b.expandDividend(t, by)
	case Interest:
		return b.expandInterest(t, by)
	case Deposit:
		return b.expandDeposit(t, by)
	case Withdraw:
		return b.expandWithdraw(t, by)
	case Fee:
		return b.expandFee(t, by)
	case Tax:
		return b.expandTax(t, by)
	case Convert:
		return b.expandConvert(t, by)
	default:
		return nil, fmt.Errorf("no posting template for command %q", tx.What())
	}
}

func (b *Book) next(on date.Date, typ EntryType, by Actor, desc, ref string) *JournalEntry {
	return newEntry(b.portfolioID, len(b.entries)+1, on, typ, by, desc, ref)
}

// The broker fee is capitalized: the lot opens at price plus fee, and the
// fee only hits the income statement through the realized gain on sale.
func (b *Book) expandBuy(t Buy, by Actor) (*JournalEntry, error) {
	costBase, rate, err := b.toBase(t.Amount, t.Date)
	if err != nil {
		return nil, err
	}
	feeBase := t.Fee.MulRate(rate, b.base)
	total := t.Amount.Add(t.Fee)
	totalBase := costBase.Add(feeBase)

	e := b.next(t.Date, EntryTransaction, by, fmt.Sprintf("buy %s %s", t.Quantity, t.Security), "")
	e.append(
		BaseLine(CodeInvestments, Debit, totalBase, t.Security, "cost of "+t.Security),
		b.cashLine(Credit, total, totalBase, rate, "settlement"),
	)
	b.lots.OpenLot(t.Security, t.Date, t.Quantity, totalBase, e.ID)
	return e, nil
}

func (b *Book) expandSell(t Sell, by Actor) (*JournalEntry, error) {
	proceedsBase, rate, err := b.toBase(t.Amount, t.Date)
	if err != nil {
		return nil, err
	}
	feeBase := t.Fee.MulRate(rate, b.base)
	net := t.Amount.Sub(t.Fee)
	netBase := proceedsBase.Sub(feeBase)

	e := b.next(t.Date, EntryTransaction, by, fmt.Sprintf("sell %s %s", t.Quantity, t.Security), "")

	// The fee reduces the proceeds, so the realized gain is net of it.
	allocs, err := b.lots.AllocateFIFO(t.Security, t.Date, t.Quantity, netBase, e.ID)
	if err != nil {
		return nil, err
	}
	var cost Money
	for _, a := range allocs {
		cost = cost.Add(a.CostBasis)
	}

	gain := netBase.Sub(cost)
	e.append(
		b.cashLine(Debit, net, netBase, rate, "settlement"),
	)
	if gain.IsNegative() {
		e.append(BaseLine(CodeRealizedLosses, Debit, gain.Neg(), t.Security, "realized loss on "+t.Security))
	}
	e.append(BaseLine(CodeInvestments, Credit, cost, t.Security, "cost basis relieved"))
	if gain.IsPositive() {
		e.append(BaseLine(CodeRealizedGains, Credit, gain, t.Security, "realized gain on "+t.Security))
	}
	return e, nil
}

func (b *Book) expandDividend(t Dividend, by Actor) (*JournalEntry, error) {
	grossBase, rate, err := b.toBase(t.Amount, t.Date)
	if err != nil {
		return nil, err
	}
	taxBase := t.Tax.MulRate(rate, b.base)
	net := t.Amount.Sub(t.Tax)

	e := b.next(t.Date, EntryTransaction, by, "dividend "+t.Security, "")
	e.append(
		b.cashLine(Debit, net, grossBase.Sub(taxBase), rate, "dividend received"),
		BaseLine(CodeTaxExpense, Debit, taxBase, t.Security, "withholding tax"),
		BaseLine(CodeDividendIncome, Credit, grossBase, t.Security, "gross dividend"),
	)
	return e, nil
}

func (b *Book) expandInterest(t Interest, by Actor) (*JournalEntry, error) {
	grossBase, rate, err := b.toBase(t.Amount, t.Date)
	if err != nil {
		return nil, err
	}
	taxBase := t.Tax.MulRate(rate, b.base)
	net := t.Amount.Sub(t.Tax)

	e := b.next(t.Date, EntryTransaction, by, "interest", "")
	e.append(
		b.cashLine(Debit, net, grossBase.Sub(taxBase), rate, "interest received"),
		BaseLine(CodeTaxExpense, Debit, taxBase, "", "withholding tax"),
		BaseLine(CodeInterestIncome, Credit, grossBase, "", "gross interest"),
	)
	return e, nil
}

func (b *Book) expandDeposit(t Deposit, by Actor) (*JournalEntry, error) {
	base, rate, err := b.toBase(t.Amount, t.Date)
	if err != nil {
		return nil, err
	}
	e := b.next(t.Date, EntryTransaction, by, "deposit", "")
	e.append(
		b.cashLine(Debit, t.Amount, base, rate, "owner contribution"),
		BaseLine(CodeOwnersCapital, Credit, base, "", "owner contribution"),
	)
	return e, nil
}

func (b *Book) expandWithdraw(t Withdraw, by Actor) (*JournalEntry, error) {
	base, rate, err := b.toBase(t.Amount, t.Date)
	if err != nil {
		return nil, err
	}
	e := b.next(t.Date, EntryTransaction, by, "withdrawal", "")
	e.append(
		BaseLine(CodeOwnersCapital, Debit, base, "", "owner withdrawal"),
		b.cashLine(Credit, t.Amount, base, rate, "owner withdrawal"),
	)
	return e, nil
}

func (b *Book) expandFee(t Fee, by Actor) (*JournalEntry, error) {
	base, rate, err := b.toBase(t.Amount, t.Date)
	if err != nil {
		return nil, err
	}
	e := b.next(t.Date, EntryTransaction, by, "fee", "")
	e.append(
		BaseLine(CodeFees, Debit, base, "", t.Memo),
		b.cashLine(Credit, t.Amount, base, rate, "fee paid"),
	)
	return e, nil
}

func (b *Book) expandTax(t Tax, by Actor) (*JournalEntry, error) {
	base, rate, err := b.toBase(t.Amount, t.Date)
	if err != nil {
		return nil, err
	}
	e := b.next(t.Date, EntryTransaction, by, "tax", "")
	e.append(
		BaseLine(CodeTaxExpense, Debit, base, "", t.Memo),
		b.cashLine(Credit, t.Amount, base, rate, "tax paid"),
	)
	return e, nil
}

// expandConvert posts a currency conversion. The two cash legs are valued
// at their own rates; the residual between them is posted to FX Gain/Loss
// so the entry stays balanced without fudging either cash amount.
func (b *Book) expandConvert(t Convert, by Actor) (*JournalEntry, error) {
	fromBase, fromRate, err := b.toBase(t.FromAmount, t.Date)
	if err != nil {
		return nil, err
	}
	toBase, toRate, err := b.toBase(t.ToAmount, t.Date)
	if err != nil {
		return nil, err
	}

	e := b.next(t.Date, EntryTransaction, by,
		fmt.Sprintf("convert %s to %s", t.FromAmount, t.ToAmount), "")
	e.append(
		b.cashLine(Debit, t.ToAmount, toBase, toRate, "conversion in"),
		b.cashLine(Credit, t.FromAmount, fromBase, fromRate, "conversion out"),
	)
	residual := toBase.Sub(fromBase)
	if residual.IsNegative() {
		e.append(BaseLine(CodeFxGainLoss, Debit, residual.Neg(), t.FromCurrency(), "conversion spread"))
	} else if residual.IsPositive() {
		e.append(BaseLine(CodeFxGainLoss, Credit, residual, t.FromCurrency(), "conversion spread"))
	}
	return e, nil
}

// Reverse posts a mirror image of a previously posted entry and marks the
// original as reversed. The original entry's lines are untouched; the
// ledger stays append-only. Entries that opened or consumed security lots
// cannot be reversed, the correction there is an offsetting trade.
func (b *Book) Reverse(entryNumber int, on date.Date, by Actor) (*JournalEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if entryNumber < 1 || entryNumber > len(b.entries) {
		return nil, fmt.Errorf("entry %d not found", entryNumber)
	}
	orig := b.entries[entryNumber-1]
	if orig.Status == StatusReversed {
		return nil, fmt.Errorf("entry %d is already reversed", entryNumber)
	}
	if on.Before(orig.EntryDate) {
		return nil, fmt.Errorf("reversal date %s is before entry date %s", on, orig.EntryDate)
	}
	if b.lots.Touches(orig.ID) {
		return nil, fmt.Errorf("entry %d affects security lots and cannot be reversed, post an offsetting trade instead", entryNumber)
	}

	e := b.next(on, EntryReversal, by, "reversal of entry "+fmt.Sprint(entryNumber), orig.ID)
	for _, l := range orig.Lines {
		side := Debit
		if l.Side == Debit {
			side = Credit
		}
		if foreign, rate, ok := l.Foreign(); ok {
			e.append(ForeignLine(l.AccountCode, side, l.Amount, foreign, rate, l.Ref, l.Description))
		} else {
			e.append(BaseLine(l.AccountCode, side, l.Amount, l.Ref, l.Description))
		}
	}
	if err := e.post(); err != nil {
		return nil, err
	}
	orig.Status = StatusReversed
	b.entries = append(b.entries, e)
	b.log.Info().Int("entry", e.EntryNumber).Int("reverses", entryNumber).Msg("posted reversal")
	return e, nil
}

// CloseBooks sweeps all revenue and expense balances into retained
// earnings as of the given date. It returns the closing entry, or nil when
// there is nothing to close.
func (b *Book) CloseBooks(on date.Date, by Actor) (*JournalEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.next(on, EntryClosing, by, "period close", "")
	var net Money // credit-positive effect on retained earnings
	for a := range b.chart.Accounts() {
		if a.Type != Revenue && a.Type != Expense {
			continue
		}
		bal := b.AccountBalance(a.Code, on)
		if bal.IsZero() {
			continue
		}
		// Closing zeroes the account: post the balance on the opposite of
		// its normal side.
		if a.NormalBalance() == Credit {
			if bal.IsPositive() {
				e.append(BaseLine(a.Code, Debit, bal, "", "close "+a.Name))
				net = net.Add(bal)
			} else {
				e.append(BaseLine(a.Code, Credit, bal.Neg(), "", "close "+a.Name))
				net = net.Sub(bal.Neg())
			}
		} else {
			if bal.IsPositive() {
				e.append(BaseLine(a.Code, Credit, bal, "", "close "+a.Name))
				net = net.Sub(bal)
			} else {
				e.append(BaseLine(a.Code, Debit, bal.Neg(), "", "close "+a.Name))
				net = net.Add(bal.Neg())
			}
		}
	}
	if len(e.Lines) == 0 {
		return nil, nil
	}
	if net.IsPositive() {
		e.append(BaseLine(CodeRetainedEarnings, Credit, net, "", "net income"))
	} else if net.IsNegative() {
		e.append(BaseLine(CodeRetainedEarnings, Debit, net.Neg(), "", "net loss"))
	}
	if err := e.post(); err != nil {
		return nil, err
	}
	b.entries = append(b.entries, e)
	b.log.Info().Int("entry", e.EntryNumber).Stringer("on", on).Msg("closed books")
	return e, nil
}
