package folio

import (
	"errors"
	"testing"
)

func TestChart_EnsureInitialized(t *testing.T) {
	c := NewChartOfAccounts("p1")
	c.EnsureInitialized()

	var codes []string
	for a := range c.Accounts() {
		codes = append(codes, a.Code)
		if a.ID == "" {
			t.Errorf("account %s has no id", a.Code)
		}
	}
	if len(codes) != len(canonicalAccounts) {
		t.Fatalf("chart has %d accounts, want %d", len(codes), len(canonicalAccounts))
	}

	// Re-initializing must not touch existing accounts.
	cash, err := c.Resolve(CodeCash)
	if err != nil {
		t.Fatal(err)
	}
	c.EnsureInitialized()
	again, _ := c.Resolve(CodeCash)
	if again.ID != cash.ID {
		t.Error("EnsureInitialized replaced an existing account")
	}
}

func TestChart_Resolve(t *testing.T) {
	c := NewChartOfAccounts("p1")
	c.EnsureInitialized()

	if _, err := c.Resolve("9999"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("Resolve(9999) = %v, want ErrAccountNotFound", err)
	}
	a, err := c.Resolve(CodeRetainedEarnings)
	if err != nil {
		t.Fatal(err)
	}
	if a.Type != Equity {
		t.Errorf("retained earnings type = %s, want equity", a.Type)
	}
}

func TestChart_Add(t *testing.T) {
	c := NewChartOfAccounts("p1")
	c.EnsureInitialized()

	if err := c.Add(Account{Code: "1500", Name: "Crypto", Type: Asset}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := c.Add(Account{Code: "1500", Name: "Duplicate", Type: Asset}); err == nil {
		t.Error("duplicate code accepted")
	}
	if err := c.Add(Account{Code: "1600", Name: "Bad", Type: AccountType("WEIRD")}); err == nil {
		t.Error("unknown account type accepted")
	}
	if err := c.Add(Account{Name: "No Code", Type: Asset}); err == nil {
		t.Error("missing code accepted")
	}
}

func TestAccounts_SortedByCode(t *testing.T) {
	c := NewChartOfAccounts("p1")
	c.EnsureInitialized()
	c.Add(Account{Code: "0100", Name: "First", Type: Asset})

	var prev string
	for a := range c.Accounts() {
		if a.Code < prev {
			t.Fatalf("accounts out of order: %s after %s", a.Code, prev)
		}
		prev = a.Code
	}
}

func TestNormalBalance(t *testing.T) {
	testCases := []struct {
		typ  AccountType
		want Side
	}{
		{Asset, Debit},
		{Expense, Debit},
		{Liability, Credit},
		{Equity, Credit},
		{Revenue, Credit},
	}
	for _, tc := range testCases {
		if got := tc.typ.NormalBalance(); got != tc.want {
			t.Errorf("%s normal balance = %s, want %s", tc.typ, got, tc.want)
		}
	}
}

func TestParseAccountType(t *testing.T) {
	if _, err := ParseAccountType("ASSET"); err != nil {
		t.Error(err)
	}
	if _, err := ParseAccountType("asset"); err == nil {
		t.Error("lowercase type accepted")
	}
	if _, err := ParseSide("DEBIT"); err != nil {
		t.Error(err)
	}
	if _, err := ParseSide("left"); err == nil {
		t.Error("unknown side accepted")
	}
}
