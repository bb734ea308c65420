package folio

import (
	"fmt"
	"iter"
	"slices"

	"github.com/google/uuid"
)

// AccountType classifies an account along the accounting equation:
// Assets = Liabilities + Equity + (Revenue - Expenses).
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

// ParseAccountType parses a string into an AccountType.
func ParseAccountType(s string) (AccountType, error) {
	switch AccountType(s) {
	case Asset, Liability, Equity, Revenue, Expense:
		return AccountType(s), nil
	default:
		return "", fmt.Errorf("unknown account type: %q", s)
	}
}

// Side identifies the debit or credit column of a journal line.
type Side string

const (
	Debit  Side = "DEBIT"
	Credit Side = "CREDIT"
)

// ParseSide parses a string into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case Debit, Credit:
		return Side(s), nil
	default:
		return "", fmt.Errorf("unknown side: %q", s)
	}
}

// NormalBalance returns the side on which accounts of this type increase.
func (t AccountType) NormalBalance() Side {
	switch t {
	case Asset, Expense:
		return Debit
	default:
		return Credit
	}
}

// Account is one entry of the chart of accounts. Every journal line must
// reference an existing account; postings never create accounts.
type Account struct {
	ID   string
	Code string // stable short identifier, e.g. "1000"
	Name string
	Type AccountType
}

// NormalBalance returns the account's normal balance side.
func (a Account) NormalBalance() Side { return a.Type.NormalBalance() }

// Canonical account codes. The numbering follows the usual convention:
// 1xxx assets, 3xxx equity, 4xxx revenue, 5xxx expenses.
const (
	CodeCash                = "1000"
	CodeInvestments         = "1200"
	CodeFairValueAdjustment = "1250"
	CodeOwnersCapital       = "3000"
	CodeRetainedEarnings    = "3100"
	CodeDividendIncome      = "4000"
	CodeInterestIncome      = "4100"
	CodeRealizedGains       = "4200"
	CodeUnrealizedGains     = "4300"
	CodeFxGainLoss          = "4400"
	CodeFees                = "5000"
	CodeTaxExpense          = "5100"
	CodeRealizedLosses      = "5200"
	CodeUnrealizedLosses    = "5300"
)

// canonicalAccounts is the default account set created for every portfolio.
var canonicalAccounts = []Account{
	{Code: CodeCash, Name: "Cash", Type: Asset},
	{Code: CodeInvestments, Name: "Investments at Cost", Type: Asset},
	{Code: CodeFairValueAdjustment, Name: "Fair Value Adjustment", Type: Asset},
	{Code: CodeOwnersCapital, Name: "Owner's Capital", Type: Equity},
	{Code: CodeRetainedEarnings, Name: "Retained Earnings", Type: Equity},
	{Code: CodeDividendIncome, Name: "Dividend Income", Type: Revenue},
	{Code: CodeInterestIncome, Name: "Interest Income", Type: Revenue},
	{Code: CodeRealizedGains, Name: "Realized Gains", Type: Revenue},
	{Code: CodeUnrealizedGains, Name: "Unrealized Gains", Type: Revenue},
	{Code: CodeFxGainLoss, Name: "Foreign Exchange Gain/Loss", Type: Revenue},
	{Code: CodeFees, Name: "Fees and Commissions", Type: Expense},
	{Code: CodeTaxExpense, Name: "Tax Expense", Type: Expense},
	{Code: CodeRealizedLosses, Name: "Realized Losses", Type: Expense},
	{Code: CodeUnrealizedLosses, Name: "Unrealized Losses", Type: Expense},
}

// ChartOfAccounts is the per-portfolio registry of accounts, indexed by code.
type ChartOfAccounts struct {
	portfolioID string
	byCode      map[string]Account
	order       []string // codes in insertion order
}

// NewChartOfAccounts creates an empty chart for a portfolio.
func NewChartOfAccounts(portfolioID string) *ChartOfAccounts {
	return &ChartOfAccounts{
		portfolioID: portfolioID,
		byCode:      make(map[string]Account),
	}
}

// EnsureInitialized idempotently creates the canonical account set.
// Accounts that already exist are left untouched, so re-invocation is a no-op.
func (c *ChartOfAccounts) EnsureInitialized() {
	for _, a := range canonicalAccounts {
		if _, ok := c.byCode[a.Code]; ok {
			continue
		}
		a.ID = uuid.NewString()
		c.byCode[a.Code] = a
		c.order = append(c.order, a.Code)
	}
}

// Add registers a custom account. Codes are unique per portfolio.
func (c *ChartOfAccounts) Add(a Account) error {
	if a.Code == "" {
		return fmt.Errorf("account code is missing")
	}
	if _, ok := c.byCode[a.Code]; ok {
		return fmt.Errorf("account code %q already exists", a.Code)
	}
	if _, err := ParseAccountType(string(a.Type)); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	c.byCode[a.Code] = a
	c.order = append(c.order, a.Code)
	return nil
}

// Resolve returns the account with the given code. A missing account is a
// configuration error and never silently defaulted.
func (c *ChartOfAccounts) Resolve(code string) (Account, error) {
	a, ok := c.byCode[code]
	if !ok {
		return Account{}, fmt.Errorf("resolve %q: %w", code, ErrAccountNotFound)
	}
	return a, nil
}

// Accounts iterates over all accounts sorted by code.
func (c *ChartOfAccounts) Accounts() iter.Seq[Account] {
	return func(yield func(Account) bool) {
		codes := slices.Clone(c.order)
		slices.Sort(codes)
		for _, code := range codes {
			if !yield(c.byCode[code]) {
				return
			}
		}
	}
}
