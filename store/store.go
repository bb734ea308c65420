// Package store persists books in sqlite. The database is an append-only
// mirror of the in-memory journal: entries and allocations are only ever
// inserted, lots are updated in place as they are consumed.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/etnz/folio"
	"github.com/etnz/folio/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite" // pure Go sqlite driver
)

//go:embed schema.sql
var schema string

// Store is a sqlite-backed ledger store.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (creating if needed) the ledger database at path. The
// connection is configured for an audit trail: WAL journaling with full
// synchronous writes.
func Open(path string, log zerolog.Logger) (*Store, error) {
	if !strings.HasPrefix(path, "file:") {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		path = abs
	}

	connStr := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(FULL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ledger database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db, log: log.With().Str("component", "store").Logger()}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// NextEntryNumber returns the next gap-free entry number for a portfolio,
// derived from the database rather than in-memory state. It is the safe
// choice when several processes share one database file.
func (s *Store) NextEntryNumber(ctx context.Context, portfolioID string) (int, error) {
	var n sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(entry_number) FROM journal_entries WHERE portfolio_id = ?`,
		portfolioID).Scan(&n)
	if err != nil {
		return 0, err
	}
	return int(n.Int64) + 1, nil
}

// SaveBook persists the whole state of a book inside one transaction.
// Already-saved entries and allocations are left untouched; lot rows are
// refreshed because their remaining quantity shrinks over time.
func (s *Store) SaveBook(ctx context.Context, b *folio.Book) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO portfolios (id, name, base_currency) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, base_currency = excluded.base_currency`,
		b.PortfolioID(), b.Name(), b.BaseCurrency()); err != nil {
		return fmt.Errorf("saving portfolio: %w", err)
	}

	for a := range b.Chart().Accounts() {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO accounts (portfolio_id, code, name, type) VALUES (?, ?, ?, ?)`,
			b.PortfolioID(), a.Code, a.Name, string(a.Type)); err != nil {
			return fmt.Errorf("saving account %s: %w", a.Code, err)
		}
	}

	for _, sec := range b.Securities() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO securities (portfolio_id, ticker, name, currency) VALUES (?, ?, ?, ?)
			 ON CONFLICT(portfolio_id, ticker) DO UPDATE SET name = excluded.name, currency = excluded.currency`,
			b.PortfolioID(), sec.Ticker, sec.Name, sec.Currency); err != nil {
			return fmt.Errorf("saving security %s: %w", sec.Ticker, err)
		}
	}

	for _, e := range b.Entries() {
		if err := saveEntry(ctx, tx, e); err != nil {
			return err
		}
	}

	for _, sec := range b.Securities() {
		for _, l := range b.Lots(sec.Ticker) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO security_lots (id, portfolio_id, security, acquired_on, quantity, remaining, cost, remaining_cost, entry_id)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT(id) DO UPDATE SET quantity = excluded.quantity, remaining = excluded.remaining, remaining_cost = excluded.remaining_cost`,
				l.ID, l.PortfolioID, l.Security, l.AcquiredOn.String(),
				l.Quantity.String(), l.Remaining.String(),
				l.Cost.Decimal().String(), l.RemainingCost.Decimal().String(),
				l.EntryID); err != nil {
				return fmt.Errorf("saving lot %s: %w", l.ID, err)
			}
		}
		for _, a := range b.Allocations(sec.Ticker) {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO security_allocations (id, lot_id, security, sold_on, quantity, cost_basis, proceeds, entry_id)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				a.ID, a.LotID, a.Security, a.SoldOn.String(),
				a.Quantity.String(), a.CostBasis.Decimal().String(),
				a.Proceeds.Decimal().String(), a.EntryID); err != nil {
				return fmt.Errorf("saving allocation %s: %w", a.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Debug().Str("portfolio", b.PortfolioID()).Int("entries", b.EntryCount()).Msg("saved book")
	return nil
}

func saveEntry(ctx context.Context, tx *sql.Tx, e *folio.JournalEntry) error {
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO journal_entries (id, portfolio_id, entry_number, entry_date, posting_date, type, status, description, created_by, reference)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PortfolioID, e.EntryNumber, e.EntryDate.String(), e.PostingDate.String(),
		string(e.Type), string(e.Status), e.Description, e.CreatedBy.String(), e.Reference)
	if err != nil {
		return fmt.Errorf("saving entry %d: %w", e.EntryNumber, err)
	}
	// Status is the only mutable field of a posted entry (a reversal flips
	// it), keep it in sync for entries that were already saved.
	if n, _ := res.RowsAffected(); n == 0 {
		_, err := tx.ExecContext(ctx,
			`UPDATE journal_entries SET status = ? WHERE id = ?`, string(e.Status), e.ID)
		return err
	}
	for _, l := range e.Lines {
		var fAmount, fCurrency, fRate any
		if foreign, rate, ok := l.Foreign(); ok {
			fAmount = foreign.Decimal().String()
			fCurrency = foreign.Currency()
			fRate = rate.String()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO journal_lines (entry_id, line_number, account_code, side, amount, currency, ref, description, foreign_amount, foreign_currency, rate)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, l.LineNumber, l.AccountCode, string(l.Side),
			l.Amount.Decimal().String(), l.Amount.Currency(),
			l.Ref, l.Description, fAmount, fCurrency, fRate); err != nil {
			return fmt.Errorf("saving entry %d line %d: %w", e.EntryNumber, l.LineNumber, err)
		}
	}
	return nil
}

// LoadBook rebuilds a book from the database.
func (s *Store) LoadBook(ctx context.Context, portfolioID string, rates folio.RateSource, log zerolog.Logger) (*folio.Book, error) {
	var name, base string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, base_currency FROM portfolios WHERE id = ?`, portfolioID).
		Scan(&name, &base)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, folio.ErrPortfolioNotFound
	}
	if err != nil {
		return nil, err
	}

	securities, err := s.loadSecurities(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	entries, err := s.loadEntries(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	lots, allocs, err := s.loadLots(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	book := folio.RestoreBook(portfolioID, name, base, securities, entries,
		folio.Restore(portfolioID, lots, allocs), rates, log)
	s.log.Debug().Str("portfolio", portfolioID).Int("entries", len(entries)).Msg("loaded book")
	return book, nil
}

func (s *Store) loadSecurities(ctx context.Context, portfolioID string) ([]folio.Security, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ticker, name, currency FROM securities WHERE portfolio_id = ? ORDER BY ticker`,
		portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []folio.Security
	for rows.Next() {
		var sec folio.Security
		if err := rows.Scan(&sec.Ticker, &sec.Name, &sec.Currency); err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

func (s *Store) loadEntries(ctx context.Context, portfolioID string) ([]*folio.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, entry_number, entry_date, posting_date, type, status, description, created_by, reference
		 FROM journal_entries WHERE portfolio_id = ? ORDER BY entry_number`,
		portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*folio.JournalEntry
	for rows.Next() {
		var e folio.JournalEntry
		var entryDate, postingDate, typ, status, createdBy string
		if err := rows.Scan(&e.ID, &e.EntryNumber, &entryDate, &postingDate,
			&typ, &status, &e.Description, &createdBy, &e.Reference); err != nil {
			return nil, err
		}
		e.PortfolioID = portfolioID
		if e.EntryDate, err = date.Parse(entryDate); err != nil {
			return nil, fmt.Errorf("entry %d: %w", e.EntryNumber, err)
		}
		if e.PostingDate, err = date.Parse(postingDate); err != nil {
			return nil, fmt.Errorf("entry %d: %w", e.EntryNumber, err)
		}
		e.Type = folio.EntryType(typ)
		e.Status = folio.EntryStatus(status)
		e.CreatedBy = folio.ParseActor(createdBy)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, e := range entries {
		if err := s.loadLines(ctx, e); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (s *Store) loadLines(ctx context.Context, e *folio.JournalEntry) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT line_number, account_code, side, amount, currency, ref, description, foreign_amount, foreign_currency, rate
		 FROM journal_lines WHERE entry_id = ? ORDER BY line_number`, e.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var num int
		var account, side, amount, currency, ref, desc string
		var fAmount, fCurrency, fRate sql.NullString
		if err := rows.Scan(&num, &account, &side, &amount, &currency, &ref, &desc,
			&fAmount, &fCurrency, &fRate); err != nil {
			return err
		}
		base, err := parseMoney(amount, currency)
		if err != nil {
			return fmt.Errorf("entry %d line %d: %w", e.EntryNumber, num, err)
		}
		var line folio.JournalLine
		if fAmount.Valid {
			foreign, err := parseMoney(fAmount.String, fCurrency.String)
			if err != nil {
				return fmt.Errorf("entry %d line %d: %w", e.EntryNumber, num, err)
			}
			rate, err := decimal.NewFromString(fRate.String)
			if err != nil {
				return fmt.Errorf("entry %d line %d: %w", e.EntryNumber, num, err)
			}
			line = folio.ForeignLine(account, folio.Side(side), base, foreign, rate, ref, desc)
		} else {
			line = folio.BaseLine(account, folio.Side(side), base, ref, desc)
		}
		line.LineNumber = num
		e.Lines = append(e.Lines, line)
	}
	return rows.Err()
}

func (s *Store) loadLots(ctx context.Context, portfolioID string) ([]*folio.SecurityLot, []folio.SecurityAllocation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT l.id, l.security, l.acquired_on, l.quantity, l.remaining, l.cost, l.remaining_cost, l.entry_id, p.base_currency
		 FROM security_lots l JOIN portfolios p ON p.id = l.portfolio_id
		 WHERE l.portfolio_id = ? ORDER BY l.acquired_on, l.rowid`, portfolioID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var lots []*folio.SecurityLot
	for rows.Next() {
		var l folio.SecurityLot
		var acquired, quantity, remaining, cost, remainingCost, base string
		if err := rows.Scan(&l.ID, &l.Security, &acquired, &quantity, &remaining,
			&cost, &remainingCost, &l.EntryID, &base); err != nil {
			return nil, nil, err
		}
		l.PortfolioID = portfolioID
		if l.AcquiredOn, err = date.Parse(acquired); err != nil {
			return nil, nil, fmt.Errorf("lot %s: %w", l.ID, err)
		}
		if l.Quantity, err = parseQuantity(quantity); err != nil {
			return nil, nil, fmt.Errorf("lot %s: %w", l.ID, err)
		}
		if l.Remaining, err = parseQuantity(remaining); err != nil {
			return nil, nil, fmt.Errorf("lot %s: %w", l.ID, err)
		}
		if l.Cost, err = parseMoney(cost, base); err != nil {
			return nil, nil, fmt.Errorf("lot %s: %w", l.ID, err)
		}
		if l.RemainingCost, err = parseMoney(remainingCost, base); err != nil {
			return nil, nil, fmt.Errorf("lot %s: %w", l.ID, err)
		}
		lots = append(lots, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	arows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.lot_id, a.security, a.sold_on, a.quantity, a.cost_basis, a.proceeds, a.entry_id, p.base_currency
		 FROM security_allocations a
		 JOIN security_lots l ON l.id = a.lot_id
		 JOIN portfolios p ON p.id = l.portfolio_id
		 WHERE l.portfolio_id = ? ORDER BY a.sold_on, a.rowid`, portfolioID)
	if err != nil {
		return nil, nil, err
	}
	defer arows.Close()

	var allocs []folio.SecurityAllocation
	for arows.Next() {
		var a folio.SecurityAllocation
		var sold, quantity, costBasis, proceeds, base string
		if err := arows.Scan(&a.ID, &a.LotID, &a.Security, &sold, &quantity,
			&costBasis, &proceeds, &a.EntryID, &base); err != nil {
			return nil, nil, err
		}
		if a.SoldOn, err = date.Parse(sold); err != nil {
			return nil, nil, fmt.Errorf("allocation %s: %w", a.ID, err)
		}
		if a.Quantity, err = parseQuantity(quantity); err != nil {
			return nil, nil, fmt.Errorf("allocation %s: %w", a.ID, err)
		}
		if a.CostBasis, err = parseMoney(costBasis, base); err != nil {
			return nil, nil, fmt.Errorf("allocation %s: %w", a.ID, err)
		}
		if a.Proceeds, err = parseMoney(proceeds, base); err != nil {
			return nil, nil, fmt.Errorf("allocation %s: %w", a.ID, err)
		}
		allocs = append(allocs, a)
	}
	return lots, allocs, arows.Err()
}

// SaveBatch persists import batch metadata with optimistic concurrency.
// The update only applies when the stored version is exactly one behind
// the batch's; anything else means a concurrent run touched it, reported
// as StaleBatchError.
func (s *Store) SaveBatch(ctx context.Context, b *folio.ImportBatch) error {
	if b.Version == 1 {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO import_batches (id, portfolio_id, source, started_at, updated_at, posted, failed, version)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.PortfolioID, b.Source,
			b.StartedAt.Format(time.RFC3339), b.UpdatedAt.Format(time.RFC3339),
			b.Posted, b.Failed, b.Version)
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE import_batches SET updated_at = ?, posted = ?, failed = ?, version = ?
		 WHERE id = ? AND version = ?`,
		b.UpdatedAt.Format(time.RFC3339), b.Posted, b.Failed, b.Version,
		b.ID, b.Version-1)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var actual int
		_ = s.db.QueryRowContext(ctx,
			`SELECT version FROM import_batches WHERE id = ?`, b.ID).Scan(&actual)
		return &folio.StaleBatchError{BatchID: b.ID, Expected: b.Version - 1, Actual: actual}
	}
	return nil
}

// LoadBatch reads import batch metadata by id.
func (s *Store) LoadBatch(ctx context.Context, id string) (*folio.ImportBatch, error) {
	var b folio.ImportBatch
	var started, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, portfolio_id, source, started_at, updated_at, posted, failed, version
		 FROM import_batches WHERE id = ?`, id).
		Scan(&b.ID, &b.PortfolioID, &b.Source, &started, &updated, &b.Posted, &b.Failed, &b.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("import batch %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	if b.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
		return nil, err
	}
	return &b, nil
}

// Portfolios lists the portfolio ids present in the database.
func (s *Store) Portfolios(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM portfolios ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func parseMoney(amount, currency string) (folio.Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return folio.Money{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return folio.M(d, currency), nil
}

func parseQuantity(q string) (folio.Quantity, error) {
	d, err := decimal.NewFromString(q)
	if err != nil {
		return folio.Quantity{}, fmt.Errorf("invalid quantity %q: %w", q, err)
	}
	return folio.Q(d), nil
}
