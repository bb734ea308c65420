package folio

import (
	"errors"
	"fmt"

	"github.com/etnz/folio/date"
)

// ErrAccountNotFound is returned when a posting references an account code
// that does not exist in the chart of accounts. Missing accounts are never
// auto-created.
var ErrAccountNotFound = errors.New("account not found")

// ErrPortfolioNotFound is returned when an operation targets an unknown portfolio.
var ErrPortfolioNotFound = errors.New("portfolio not found")

// UnbalancedEntryError reports a journal entry whose debits and credits
// do not match. Posting templates net to zero, so this error means a
// template is wrong.
type UnbalancedEntryError struct {
	EntryNumber int
	Debits      Money
	Credits     Money
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("journal entry %d is not balanced: debits %s, credits %s",
		e.EntryNumber, e.Debits, e.Credits)
}

// MissingExchangeRateError reports that no exchange rate exists for a
// currency pair on or before a date. The rate is never defaulted to 1.0.
type MissingExchangeRateError struct {
	From string
	To   string
	On   date.Date
	Err  error
}

func (e *MissingExchangeRateError) Error() string {
	return fmt.Sprintf("no exchange rate for %s/%s on or before %s", e.From, e.To, e.On)
}

func (e *MissingExchangeRateError) Unwrap() error { return e.Err }

// InsufficientLotsError reports an attempt to sell more than the total
// open quantity across all lots of a security. The allocation fails
// atomically: no lot is mutated.
type InsufficientLotsError struct {
	Security  string
	Requested Quantity
	Available Quantity
}

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("insufficient lots to sell %s of %s: only %s open",
		e.Requested, e.Security, e.Available)
}

// StaleBatchError reports a concurrent modification of an import batch,
// detected through its version counter. It is retryable: reload the
// batch and reapply the update.
type StaleBatchError struct {
	BatchID  string
	Expected int
	Actual   int
}

func (e *StaleBatchError) Error() string {
	return fmt.Sprintf("import batch %s version conflict: expected %d, found %d",
		e.BatchID, e.Expected, e.Actual)
}
