package renderer

import (
	"strings"
	"testing"

	"github.com/etnz/folio"
	"github.com/etnz/folio/date"
	"github.com/rs/zerolog"
)

func seedBook(t *testing.T) *folio.Book {
	t.Helper()
	b, err := folio.NewBook("p1", "test portfolio", "EUR", folio.IdentityRates(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	day := date.MustParse("2025-02-01")
	post := func(tx folio.Transaction) {
		t.Helper()
		if _, err := b.Post(tx, folio.UserActor("tester")); err != nil {
			t.Fatalf("Post(%s): %v", tx.What(), err)
		}
	}
	post(folio.NewDeclare(day, "", "ALV", "Allianz SE", "EUR"))
	post(folio.NewDeposit(day, "", folio.M(10000, "EUR")))
	post(folio.NewBuy(day, "", "ALV", folio.Q(100), folio.M(1000, "EUR"), folio.Money{}))
	return b
}

func TestTrialBalanceMarkdown(t *testing.T) {
	b := seedBook(t)
	md := TrialBalanceMarkdown(b.TrialBalance(date.Date{}))

	for _, want := range []string{
		"# Trial Balance (as of now)",
		"| 1000 | Cash |",
		"| 1200 | Investments at Cost |",
		"**Total**",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "WARNING") {
		t.Error("balanced book rendered a warning")
	}
}

func TestTrialBalanceMarkdown_Warning(t *testing.T) {
	tb := folio.TrialBalance{
		TotalDebits:  folio.M(100, "EUR"),
		TotalCredits: folio.M(90, "EUR"),
	}
	if !strings.Contains(TrialBalanceMarkdown(tb), "WARNING") {
		t.Error("unbalanced trial balance rendered without a warning")
	}
}

func TestBalanceSheetMarkdown(t *testing.T) {
	b := seedBook(t)
	md := BalanceSheetMarkdown(b.BalanceSheet(date.MustParse("2025-03-01")))

	for _, want := range []string{
		"# Balance Sheet (as of 2025-03-01)",
		"## Assets",
		"## Equity",
		"| 3000 | Owner's Capital |",
		"Net income (unclosed):",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	// No liabilities on this book.
	if !strings.Contains(md, "_none_") {
		t.Error("empty section not marked")
	}
}

func TestIncomeStatementMarkdown(t *testing.T) {
	b := seedBook(t)
	if _, err := b.Post(folio.NewFee(date.MustParse("2025-02-10"), "custody", folio.M(3, "EUR")), folio.UserActor("tester")); err != nil {
		t.Fatal(err)
	}
	md := IncomeStatementMarkdown(b.IncomeStatement(date.Range{}))
	for _, want := range []string{"## Revenues", "## Expenses", "| 5000 | Fees and Commissions |", "Net income: -", "3.00"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestHoldingsMarkdown(t *testing.T) {
	b := seedBook(t)
	md := HoldingsMarkdown(b.Holdings())
	for _, want := range []string{"| Ticker |", "| ALV | Allianz SE | 100 |"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if got := HoldingsMarkdown(nil); !strings.Contains(got, "_no open positions_") {
		t.Errorf("empty holdings rendered as:\n%s", got)
	}
}

func TestJournalMarkdown(t *testing.T) {
	b := seedBook(t)
	md := JournalMarkdown(b.Entries())
	for _, want := range []string{
		"## #1 2025-02-01",
		"## #2 2025-02-01",
		"TRANSACTION entry, POSTED, by tester",
		"| 1 | 1000 | DEBIT |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}
