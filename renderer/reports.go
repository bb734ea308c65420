package renderer

import (
	"github.com/etnz/folio"
)

// TrialBalanceMarkdown renders the trial balance as a markdown table.
func TrialBalanceMarkdown(tb folio.TrialBalance) string {
	r := newRenderer()
	r.Printf("# Trial Balance (as of %s)\n\n", asOf(tb.On))
	r.Printf("| Code | Account | Debits | Credits |\n")
	r.Printf("|:---|:---|---:|---:|\n")
	for _, row := range tb.Rows {
		r.Printf("| %s | %s | %s | %s |\n",
			row.Account.Code, row.Account.Name, row.Debits, row.Credits)
	}
	r.Printf("| | **Total** | **%s** | **%s** |\n", tb.TotalDebits, tb.TotalCredits)
	if !tb.Balanced() {
		r.Printf("\n**WARNING: trial balance does not balance.**\n")
	}
	return r.String()
}

// BalanceSheetMarkdown renders the statement of financial position.
func BalanceSheetMarkdown(s folio.BalanceSheet) string {
	r := newRenderer()
	r.Printf("# Balance Sheet (as of %s)\n\n", asOf(s.On))

	section := func(title string, lines []folio.BalanceLine, total folio.Money) {
		r.Printf("## %s\n\n", title)
		if len(lines) == 0 {
			r.Printf("_none_\n\n")
			return
		}
		r.Printf("| Code | Account | Balance |\n")
		r.Printf("|:---|:---|---:|\n")
		for _, l := range lines {
			r.Printf("| %s | %s | %s |\n", l.Account.Code, l.Account.Name, l.Balance)
		}
		r.Printf("| | **Total** | **%s** |\n\n", total)
	}
	section("Assets", s.Assets, s.TotalAssets)
	section("Liabilities", s.Liabilities, s.TotalLiabilities)
	section("Equity", s.Equity, s.TotalEquity)

	r.Printf("Net income (unclosed): %s\n", s.NetIncome.SignedString())
	if !s.Balanced() {
		r.Printf("\n**WARNING: assets do not equal liabilities plus equity.**\n")
	}
	return r.String()
}

// IncomeStatementMarkdown renders the profit and loss statement.
func IncomeStatementMarkdown(s folio.IncomeStatement) string {
	r := newRenderer()
	r.Printf("# Income Statement (%s to %s)\n\n", asOf(s.Period.From), asOf(s.Period.To))

	section := func(title string, lines []folio.BalanceLine, total folio.Money) {
		r.Printf("## %s\n\n", title)
		if len(lines) == 0 {
			r.Printf("_none_\n\n")
			return
		}
		r.Printf("| Code | Account | Amount |\n")
		r.Printf("|:---|:---|---:|\n")
		for _, l := range lines {
			r.Printf("| %s | %s | %s |\n", l.Account.Code, l.Account.Name, l.Balance)
		}
		r.Printf("| | **Total** | **%s** |\n\n", total)
	}
	section("Revenues", s.Revenues, s.TotalRevenue)
	section("Expenses", s.Expenses, s.TotalExpense)

	r.Printf("**Net income: %s**\n", s.NetIncome.SignedString())
	return r.String()
}

// HoldingsMarkdown renders open positions with their carrying values.
func HoldingsMarkdown(holdings []folio.HoldingReport) string {
	r := newRenderer()
	r.Printf("# Holdings\n\n")
	if len(holdings) == 0 {
		r.Printf("_no open positions_\n")
		return r.String()
	}
	r.Printf("| Ticker | Name | Position | Cost Basis | Carrying Value | Unrealized |\n")
	r.Printf("|:---|:---|---:|---:|---:|---:|\n")
	for _, h := range holdings {
		r.Printf("| %s | %s | %s | %s | %s | %s |\n",
			h.Security.Ticker, h.Security.Name, h.Position,
			h.CostBasis, h.CarryingValue, h.Unrealized.SignedString())
	}
	return r.String()
}

// JournalMarkdown renders journal entries with their lines.
func JournalMarkdown(entries []*folio.JournalEntry) string {
	r := newRenderer()
	r.Printf("# Journal\n\n")
	if len(entries) == 0 {
		r.Printf("_no entries_\n")
		return r.String()
	}
	for _, e := range entries {
		r.Printf("## #%d %s %s\n\n", e.EntryNumber, e.EntryDate, e.Description)
		r.Printf("%s entry, %s, by %s\n\n", e.Type, e.Status, e.CreatedBy)
		r.Printf("| # | Account | Side | Amount | Ref | Description |\n")
		r.Printf("|---:|:---|:---|---:|:---|:---|\n")
		for _, l := range e.Lines {
			amount := l.Amount.String()
			if foreign, rate, ok := l.Foreign(); ok {
				amount = foreign.String() + " @ " + rate.String()
			}
			r.Printf("| %d | %s | %s | %s | %s | %s |\n",
				l.LineNumber, l.AccountCode, l.Side, amount, l.Ref, l.Description)
		}
		r.Printf("\n")
	}
	return r.String()
}
