// Package folio is a double-entry bookkeeping core for a personal
// investment portfolio. Every economic event, from a broker trade to a
// mark-to-market adjustment, becomes a balanced journal entry against a
// fixed chart of accounts, so the books always reconcile.
//
// The core functionalities include:
//   - Journal Engine: fixed posting templates turn portfolio commands
//     (buy, sell, dividend, interest, deposit, withdraw, fee, tax,
//     convert, split) into balanced, immutable journal entries. Posted
//     entries are never edited, corrections are reversing entries.
//   - Lot Tracking: purchases open FIFO lots, sales consume them to
//     establish exact cost basis and realized gains.
//   - Mark-to-Market: incremental fair value adjustments align carrying
//     values with market prices, and foreign cash with exchange rates.
//     Re-running a revaluation with unchanged prices posts nothing.
//   - Reporting: trial balance, balance sheet, income statement and
//     holdings, all derived by replaying the journal.
//
// All amounts are arbitrary-precision decimals in the portfolio's base
// currency. Foreign amounts are carried alongside their base value with
// the conversion rate, so multi-currency books balance exactly.
//
// This package serves as the foundational logic for the `pfl`
// command-line tool.
package folio
