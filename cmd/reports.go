package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/folio"
	"github.com/etnz/folio/date"
	"github.com/etnz/folio/renderer"
	"github.com/google/subcommands"
)

// render prints a markdown report, pretty-printed for the terminal unless
// raw markdown was requested.
func render(markdown string, raw bool) subcommands.ExitStatus {
	if raw {
		fmt.Print(markdown)
		return subcommands.ExitSuccess
	}
	out, err := glamour.Render(markdown, "auto")
	if err != nil {
		// Fall back to raw markdown rather than losing the report.
		fmt.Print(markdown)
		return subcommands.ExitSuccess
	}
	fmt.Print(out)
	return subcommands.ExitSuccess
}

// reportCmd carries the flags shared by every report subcommand.
type reportCmd struct {
	day string
	raw bool
}

func (p *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.day, "d", "", "Report date (defaults to the full ledger).")
	f.BoolVar(&p.raw, "md", false, "Print raw markdown instead of rendering it.")
}

// through parses the -d flag, zero meaning "the whole ledger".
func (p *reportCmd) through() (date.Date, error) {
	if p.day == "" {
		return date.Date{}, nil
	}
	return date.Parse(p.day)
}

type trialBalanceCmd struct{ reportCmd }

func (*trialBalanceCmd) Name() string     { return "trial-balance" }
func (*trialBalanceCmd) Synopsis() string { return "print the trial balance" }
func (*trialBalanceCmd) Usage() string {
	return `pfl trial-balance [-d <date>] [-md]

  Lists every account's debit and credit totals. The two columns always
  agree, a mismatch means the journal is corrupt.
`
}

func (p *trialBalanceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	through, err := p.through()
	if err != nil {
		return fail(err)
	}
	a, err := open(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.close()
	if err := a.requireBook(); err != nil {
		return fail(err)
	}
	return render(renderer.TrialBalanceMarkdown(a.book.TrialBalance(through)), p.raw)
}

type balanceSheetCmd struct{ reportCmd }

func (*balanceSheetCmd) Name() string     { return "balance-sheet" }
func (*balanceSheetCmd) Synopsis() string { return "print the balance sheet" }
func (*balanceSheetCmd) Usage() string {
	return `pfl balance-sheet [-d <date>] [-md]
`
}

func (p *balanceSheetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	through, err := p.through()
	if err != nil {
		return fail(err)
	}
	a, err := open(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.close()
	if err := a.requireBook(); err != nil {
		return fail(err)
	}
	return render(renderer.BalanceSheetMarkdown(a.book.BalanceSheet(through)), p.raw)
}

type incomeCmd struct {
	from string
	to   string
	raw  bool
}

func (*incomeCmd) Name() string     { return "income" }
func (*incomeCmd) Synopsis() string { return "print the income statement" }
func (*incomeCmd) Usage() string {
	return `pfl income [-from <date>] [-to <date>] [-md]

  Revenues, expenses and net income over the period. Omitted bounds
  extend to the edge of the ledger.
`
}

func (p *incomeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.from, "from", "", "Start of the period (inclusive).")
	f.StringVar(&p.to, "to", "", "End of the period (inclusive).")
	f.BoolVar(&p.raw, "md", false, "Print raw markdown instead of rendering it.")
}

func (p *incomeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var period date.Range
	var err error
	if p.from != "" {
		if period.From, err = date.Parse(p.from); err != nil {
			return fail(err)
		}
	}
	if p.to != "" {
		if period.To, err = date.Parse(p.to); err != nil {
			return fail(err)
		}
	}
	a, err := open(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.close()
	if err := a.requireBook(); err != nil {
		return fail(err)
	}
	return render(renderer.IncomeStatementMarkdown(a.book.IncomeStatement(period)), p.raw)
}

type holdingsCmd struct {
	raw bool
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "print open positions" }
func (*holdingsCmd) Usage() string {
	return `pfl holdings [-md]

  Open positions with cost basis, carrying value and unrealized
  gain or loss.
`
}

func (p *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&p.raw, "md", false, "Print raw markdown instead of rendering it.")
}

func (p *holdingsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := open(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.close()
	if err := a.requireBook(); err != nil {
		return fail(err)
	}
	return render(renderer.HoldingsMarkdown(a.book.Holdings()), p.raw)
}

type journalCmd struct {
	from  string
	to    string
	entry int
	raw   bool
}

func (*journalCmd) Name() string     { return "journal" }
func (*journalCmd) Synopsis() string { return "print journal entries" }
func (*journalCmd) Usage() string {
	return `pfl journal [-from <date>] [-to <date>] [-e <entry number>] [-md]

  Prints journal entries with their debit and credit lines. With -e a
  single entry is printed.
`
}

func (p *journalCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.from, "from", "", "Start of the period (inclusive).")
	f.StringVar(&p.to, "to", "", "End of the period (inclusive).")
	f.IntVar(&p.entry, "e", 0, "Print only this entry.")
	f.BoolVar(&p.raw, "md", false, "Print raw markdown instead of rendering it.")
}

func (p *journalCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := open(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.close()
	if err := a.requireBook(); err != nil {
		return fail(err)
	}

	var entries []*folio.JournalEntry
	if p.entry > 0 {
		e, ok := a.book.Entry(p.entry)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: no entry #%d\n", p.entry)
			return subcommands.ExitFailure
		}
		entries = []*folio.JournalEntry{e}
	} else {
		var period date.Range
		if p.from != "" {
			if period.From, err = date.Parse(p.from); err != nil {
				return fail(err)
			}
		}
		if p.to != "" {
			if period.To, err = date.Parse(p.to); err != nil {
				return fail(err)
			}
		}
		entries = a.book.EntriesBetween(period)
	}
	return render(renderer.JournalMarkdown(entries), p.raw)
}
