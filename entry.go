package folio

import (
	"fmt"

	"github.com/etnz/folio/date"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType classifies journal entries by origin.
type EntryType string

const (
	// EntryTransaction records an economic event imported from a broker.
	EntryTransaction EntryType = "TRANSACTION"
	// EntryAdjustment records a system-generated mark-to-market adjustment.
	EntryAdjustment EntryType = "ADJUSTMENT"
	// EntryClosing sweeps revenue and expense balances into retained earnings.
	EntryClosing EntryType = "CLOSING"
	// EntryReversal mirrors a previously posted entry.
	EntryReversal EntryType = "REVERSAL"
)

// EntryStatus is the lifecycle state of a journal entry.
type EntryStatus string

const (
	StatusDraft    EntryStatus = "DRAFT"
	StatusPosted   EntryStatus = "POSTED"
	StatusReversed EntryStatus = "REVERSED"
)

// Actor identifies who created a journal entry. Automated adjustments are
// recorded by the system actor so audit queries can tell them apart from
// manual postings; it is a value, not a string literal.
type Actor struct {
	system bool
	userID string
}

// SystemActor returns the actor used for automated postings.
func SystemActor() Actor { return Actor{system: true} }

// UserActor returns the actor for a manual posting by the given user.
func UserActor(id string) Actor { return Actor{userID: id} }

// IsSystem reports whether the actor is the automated system.
func (a Actor) IsSystem() bool { return a.system }

func (a Actor) String() string {
	if a.system {
		return "system"
	}
	if a.userID == "" {
		return "unknown"
	}
	return a.userID
}

// ParseActor parses the persisted form of an Actor.
func ParseActor(s string) Actor {
	if s == "system" {
		return Actor{system: true}
	}
	return Actor{userID: s}
}

// fxLeg holds the foreign-currency side of a journal line. It is only
// reachable through the Foreign accessor so callers are forced to handle
// both pure-base and foreign lines explicitly.
type fxLeg struct {
	amount Money
	rate   decimal.Decimal // base units per one foreign unit, persisted even when 1.0
}

// JournalLine is a single debit or credit against one account, expressed
// in the portfolio's base currency. A line never holds a debit and a
// credit simultaneously.
type JournalLine struct {
	LineNumber  int
	AccountCode string
	Side        Side
	Amount      Money  // always in base currency, non-negative
	Ref         string // optional dimension: security ticker or currency code
	Description string

	foreign *fxLeg
}

// BaseLine builds a pure base-currency line.
func BaseLine(account string, side Side, amount Money, ref, desc string) JournalLine {
	return JournalLine{
		AccountCode: account,
		Side:        side,
		Amount:      amount,
		Ref:         ref,
		Description: desc,
	}
}

// ForeignLine builds a line whose base amount was derived from a foreign
// amount at the given rate. The original amount and rate are retained for
// reconciliation.
func ForeignLine(account string, side Side, base Money, foreign Money, rate decimal.Decimal, ref, desc string) JournalLine {
	return JournalLine{
		AccountCode: account,
		Side:        side,
		Amount:      base,
		Ref:         ref,
		Description: desc,
		foreign:     &fxLeg{amount: foreign, rate: rate},
	}
}

// Foreign returns the foreign amount and the exchange rate the base amount
// was derived with. ok is false for pure base-currency lines.
func (l JournalLine) Foreign() (amount Money, rate decimal.Decimal, ok bool) {
	if l.foreign == nil {
		return Money{}, decimal.Decimal{}, false
	}
	return l.foreign.amount, l.foreign.rate, true
}

// Debit returns the line's debit amount, zero for credit lines.
func (l JournalLine) Debit() Money {
	if l.Side == Debit {
		return l.Amount
	}
	return M(0, l.Amount.Currency())
}

// Credit returns the line's credit amount, zero for debit lines.
func (l JournalLine) Credit() Money {
	if l.Side == Credit {
		return l.Amount
	}
	return M(0, l.Amount.Currency())
}

func (l JournalLine) String() string {
	side := "DR"
	if l.Side == Credit {
		side = "CR"
	}
	return fmt.Sprintf("%s %s %s", side, l.AccountCode, l.Amount)
}

// JournalEntry is a balanced set of debit/credit lines recording one
// economic event. Entries are immutable once posted; corrections go
// through reversal entries.
type JournalEntry struct {
	ID          string
	PortfolioID string
	EntryNumber int // monotonically increasing per portfolio
	EntryDate   date.Date
	PostingDate date.Date
	Type        EntryType
	Status      EntryStatus
	Description string
	CreatedBy   Actor
	Reference   string // source transaction or reversed entry id
	Lines       []JournalLine
}

// newEntry creates a Draft entry header. Lines are appended by the posting
// templates, then the entry is balance-checked and marked Posted.
func newEntry(portfolioID string, number int, on date.Date, typ EntryType, by Actor, desc, ref string) *JournalEntry {
	return &JournalEntry{
		ID:          uuid.NewString(),
		PortfolioID: portfolioID,
		EntryNumber: number,
		EntryDate:   on,
		PostingDate: on,
		Type:        typ,
		Status:      StatusDraft,
		Description: desc,
		CreatedBy:   by,
		Reference:   ref,
	}
}

// append adds a line, numbering it after the existing ones. Zero-amount
// lines are dropped: they carry no information and would bloat the ledger.
func (e *JournalEntry) append(lines ...JournalLine) {
	for _, l := range lines {
		if l.Amount.IsZero() {
			continue
		}
		l.LineNumber = len(e.Lines) + 1
		e.Lines = append(e.Lines, l)
	}
}

// TotalDebits returns the sum of all debit amounts.
func (e *JournalEntry) TotalDebits() Money {
	var total Money
	for _, l := range e.Lines {
		total = total.Add(l.Debit())
	}
	return total
}

// TotalCredits returns the sum of all credit amounts.
func (e *JournalEntry) TotalCredits() Money {
	var total Money
	for _, l := range e.Lines {
		total = total.Add(l.Credit())
	}
	return total
}

// Balanced reports whether debits equal credits exactly. This is the
// load-bearing invariant of the whole ledger: zero tolerance.
func (e *JournalEntry) Balanced() bool {
	return e.TotalDebits().Decimal().Equal(e.TotalCredits().Decimal())
}

// post verifies the balance invariant and marks the entry Posted.
func (e *JournalEntry) post() error {
	if !e.Balanced() {
		return &UnbalancedEntryError{
			EntryNumber: e.EntryNumber,
			Debits:      e.TotalDebits(),
			Credits:     e.TotalCredits(),
		}
	}
	e.Status = StatusPosted
	return nil
}
