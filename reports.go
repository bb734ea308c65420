package folio

import (
	"github.com/etnz/folio/date"
)

// TrialBalanceRow is one account's debit and credit totals.
type TrialBalanceRow struct {
	Account Account
	Debits  Money
	Credits Money
}

// TrialBalance lists every account's raw debit and credit totals as of a
// date. Total debits always equal total credits; anything else means the
// journal itself is corrupt.
type TrialBalance struct {
	On           date.Date
	Rows         []TrialBalanceRow
	TotalDebits  Money
	TotalCredits Money
}

// Balanced reports whether total debits equal total credits exactly.
func (t TrialBalance) Balanced() bool {
	return t.TotalDebits.Decimal().Equal(t.TotalCredits.Decimal())
}

// TrialBalance computes the trial balance as of the given date. Accounts
// with no activity are omitted. A zero date means "now".
func (b *Book) TrialBalance(through date.Date) TrialBalance {
	tb := TrialBalance{On: through}
	for a := range b.chart.Accounts() {
		row := TrialBalanceRow{
			Account: a,
			Debits:  M(0, b.base),
			Credits: M(0, b.base),
		}
		for _, e := range b.entries {
			if !inScope(e.EntryDate, through) {
				continue
			}
			for _, l := range e.Lines {
				if l.AccountCode != a.Code {
					continue
				}
				if l.Side == Debit {
					row.Debits = row.Debits.Add(l.Amount)
				} else {
					row.Credits = row.Credits.Add(l.Amount)
				}
			}
		}
		if row.Debits.IsZero() && row.Credits.IsZero() {
			continue
		}
		tb.Rows = append(tb.Rows, row)
		tb.TotalDebits = tb.TotalDebits.Add(row.Debits)
		tb.TotalCredits = tb.TotalCredits.Add(row.Credits)
	}
	tb.TotalDebits = M(tb.TotalDebits.Decimal(), b.base)
	tb.TotalCredits = M(tb.TotalCredits.Decimal(), b.base)
	return tb
}

// BalanceLine is one account's normal-side balance on a report.
type BalanceLine struct {
	Account Account
	Balance Money
}

// BalanceSheet is the statement of financial position as of a date.
// NetIncome carries the not-yet-closed revenue and expense balances so the
// accounting equation holds between period closes.
type BalanceSheet struct {
	On          date.Date
	Assets      []BalanceLine
	Liabilities []BalanceLine
	Equity      []BalanceLine

	TotalAssets      Money
	TotalLiabilities Money
	TotalEquity      Money
	NetIncome        Money
}

// Balanced reports whether assets equal liabilities plus equity plus
// current net income.
func (s BalanceSheet) Balanced() bool {
	rhs := s.TotalLiabilities.Add(s.TotalEquity).Add(s.NetIncome)
	return s.TotalAssets.Decimal().Equal(rhs.Decimal())
}

// BalanceSheet computes the balance sheet as of the given date. A zero
// date means "now".
func (b *Book) BalanceSheet(through date.Date) BalanceSheet {
	s := BalanceSheet{
		On:               through,
		TotalAssets:      M(0, b.base),
		TotalLiabilities: M(0, b.base),
		TotalEquity:      M(0, b.base),
		NetIncome:        M(0, b.base),
	}
	for a := range b.chart.Accounts() {
		bal := b.AccountBalance(a.Code, through)
		if bal.IsZero() {
			continue
		}
		line := BalanceLine{Account: a, Balance: bal}
		switch a.Type {
		case Asset:
			s.Assets = append(s.Assets, line)
			s.TotalAssets = s.TotalAssets.Add(bal)
		case Liability:
			s.Liabilities = append(s.Liabilities, line)
			s.TotalLiabilities = s.TotalLiabilities.Add(bal)
		case Equity:
			s.Equity = append(s.Equity, line)
			s.TotalEquity = s.TotalEquity.Add(bal)
		case Revenue:
			s.NetIncome = s.NetIncome.Add(bal)
		case Expense:
			s.NetIncome = s.NetIncome.Sub(bal)
		}
	}
	return s
}

// IncomeStatement is the profit and loss statement over a period.
type IncomeStatement struct {
	Period       date.Range
	Revenues     []BalanceLine
	Expenses     []BalanceLine
	TotalRevenue Money
	TotalExpense Money
	NetIncome    Money
}

// IncomeStatement computes revenues, expenses and net income over a
// period.
func (b *Book) IncomeStatement(period date.Range) IncomeStatement {
	s := IncomeStatement{
		Period:       period,
		TotalRevenue: M(0, b.base),
		TotalExpense: M(0, b.base),
	}
	for a := range b.chart.Accounts() {
		if a.Type != Revenue && a.Type != Expense {
			continue
		}
		bal := b.rangeBalance(a.Code, period)
		if bal.IsZero() {
			continue
		}
		line := BalanceLine{Account: a, Balance: bal}
		if a.Type == Revenue {
			s.Revenues = append(s.Revenues, line)
			s.TotalRevenue = s.TotalRevenue.Add(bal)
		} else {
			s.Expenses = append(s.Expenses, line)
			s.TotalExpense = s.TotalExpense.Add(bal)
		}
	}
	s.NetIncome = s.TotalRevenue.Sub(s.TotalExpense)
	return s
}

// HoldingReport summarizes one open security position.
type HoldingReport struct {
	Security      Security
	Position      Quantity
	CostBasis     Money
	CarryingValue Money
	Unrealized    Money // carrying value minus cost basis
}

// Holdings reports every security with an open position.
func (b *Book) Holdings() []HoldingReport {
	var out []HoldingReport
	for _, sec := range b.Securities() {
		pos := b.Position(sec.Ticker)
		if pos.IsZero() {
			continue
		}
		cost := b.CostBasis(sec.Ticker)
		carrying := b.CarryingValue(sec.Ticker)
		out = append(out, HoldingReport{
			Security:      sec,
			Position:      pos,
			CostBasis:     cost,
			CarryingValue: carrying,
			Unrealized:    carrying.Sub(cost),
		})
	}
	return out
}
