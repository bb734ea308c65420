package folio

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/etnz/folio/date"
)

// CommandType is a typed string for identifying transaction commands.
type CommandType string

// Command types used for identifying transactions.
const (
	CmdInit     CommandType = "init"
	CmdDeclare  CommandType = "declare"
	CmdBuy      CommandType = "buy"
	CmdSell     CommandType = "sell"
	CmdDividend CommandType = "dividend"
	CmdInterest CommandType = "interest"
	CmdDeposit  CommandType = "deposit"
	CmdWithdraw CommandType = "withdraw"
	CmdFee      CommandType = "fee"
	CmdTax      CommandType = "tax"
	CmdConvert  CommandType = "convert"
	CmdSplit    CommandType = "split"
)

// Transaction defines the common interface for all financial transactions
// that can be posted to the book.
type Transaction interface {
	What() CommandType // What returns the command type of the transaction (e.g., "buy", "sell").
	When() date.Date   // When returns the date on which the transaction occurred.
	Equal(Transaction) bool
	Validate(b *Book) (Transaction, error)
}

type baseCmd struct {
	Command CommandType `json:"command"`        // Command specifies the type of transaction (e.g., "buy", "sell").
	Date    date.Date   `json:"date"`           // Date is the date when the transaction took place.
	Memo    string      `json:"memo,omitempty"` // Memo provides an optional rationale or note for the transaction.
}

// What returns the command name for the transaction.
func (t baseCmd) What() CommandType {
	return t.Command
}

// When returns the date of the transaction.
func (t baseCmd) When() date.Date {
	return t.Date
}

// Rationale returns the memo associated with the transaction.
func (t baseCmd) Rationale() string {
	return t.Memo
}

// MarshalJSON implements the json.Marshaler interface for baseCmd.
func (t baseCmd) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("command", t.Command)
	w.Append("date", t.Date)
	w.Optional("memo", t.Memo)
	return w.MarshalJSON()
}

// Validate checks the base command fields. It sets the date to today if it's
// zero. It's meant to be embedded in other transaction validation methods.
func (t *baseCmd) Validate() {
	if t.Date.IsZero() {
		t.Date = date.Today()
	}
}

// secCmd is a component for security-based transactions (buy, sell, dividend).
type secCmd struct {
	baseCmd
	Security string `json:"security"` // Security is the ticker symbol of the security involved in the transaction.
}

// Validate checks the security command fields. It validates the base command
// and ensures the ticker resolves to a declared security.
func (t *secCmd) Validate(b *Book) error {
	t.baseCmd.Validate()

	if t.Security == "" {
		return errors.New("security ticker is missing")
	}
	if _, ok := b.Security(t.Security); !ok {
		return fmt.Errorf("security %q not declared in book", t.Security)
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface for secCmd.
func (t secCmd) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseCmd)
	w.Append("security", t.Security)
	return w.MarshalJSON()
}

// --- Init Command ---

// Init opens the book. It sets the base currency and must come before any
// other transaction.
type Init struct {
	baseCmd
	Currency string `json:"currency"`
	Name     string `json:"name,omitempty"`
}

// NewInit creates a new Init transaction.
func NewInit(day date.Date, memo, currency, name string) Init {
	return Init{
		baseCmd:  baseCmd{Command: CmdInit, Date: day, Memo: memo},
		Currency: currency,
		Name:     name,
	}
}

func (t Init) Equal(other Transaction) bool {
	o, ok := other.(Init)
	return ok && t.baseCmd == o.baseCmd && t.Currency == o.Currency && t.Name == o.Name
}

// Validate checks the Init transaction's fields.
func (t Init) Validate(b *Book) (Transaction, error) {
	t.baseCmd.Validate()
	if err := ValidateCurrency(t.Currency); err != nil {
		return t, fmt.Errorf("invalid currency for init: %w", err)
	}
	if b.EntryCount() > 0 {
		return t, errors.New("book is already initialized")
	}
	return t, nil
}

// MarshalJSON implements the json.Marshaler interface for Init.
func (t Init) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseCmd)
	w.Append("currency", t.Currency)
	w.Optional("name", t.Name)
	return w.MarshalJSON()
}

// --- Declare Command ---

// Declare maps a book-internal ticker to a security and its trading
// currency. Securities must be declared before they can be traded.
type Declare struct {
	baseCmd
	Ticker   string `json:"ticker"`
	Name     string `json:"name,omitempty"`
	Currency string `json:"currency"`
}

// NewDeclare creates a new Declare transaction.
func NewDeclare(day date.Date, memo, ticker, name, currency string) Declare {
	return Declare{
		baseCmd:  baseCmd{Command: CmdDeclare, Date: day, Memo: memo},
		Ticker:   ticker,
		Name:     name,
		Currency: currency,
	}
}

// MarshalJSON implements the json.Marshaler interface for Declare.
func (t Declare) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseCmd)
	w.Append("ticker", t.Ticker)
	w.Optional("name", t.Name)
	w.Append("currency", t.Currency)
	return w.MarshalJSON()
}

func (t Declare) Equal(other Transaction) bool {
	o, ok := other.(Declare)
	return ok && t.baseCmd == o.baseCmd && t.Ticker == o.Ticker && t.Name == o.Name && t.Currency == o.Currency
}

// Validate checks the Declare transaction's fields. It ensures the ticker is
// not already taken and the currency is a known code.
func (t Declare) Validate(b *Book) (Transaction, error) {
	t.baseCmd.Validate()
	if t.Ticker == "" {
		return t, errors.New("declaration ticker is missing")
	}
	if err := ValidateCurrency(t.Currency); err != nil {
		return t, fmt.Errorf("invalid currency for declaration: %w", err)
	}
	if _, ok := b.Security(t.Ticker); ok {
		return t, fmt.Errorf("security %q already declared in book", t.Ticker)
	}
	return t, nil
}

// --- Buy Command ---

// Buy represents a transaction where a quantity of a security is purchased
// for a specified amount, with an optional broker fee.
type Buy struct {
	secCmd
	Quantity Quantity // Quantity is the number of shares or units bought.
	Amount   Money    // Amount is the total cost of the purchase, excluding fees.
	Fee      Money    // Fee is the optional broker commission, in the same currency.
}

// NewBuy creates a new Buy transaction.
func NewBuy(day date.Date, memo, security string, quantity Quantity, amount, fee Money) Buy {
	return Buy{
		secCmd:   secCmd{baseCmd: baseCmd{Command: CmdBuy, Date: day, Memo: memo}, Security: security},
		Quantity: quantity,
		Amount:   amount,
		Fee:      fee,
	}
}

// MarshalJSON implements the json.Marshaler interface for Buy.
func (t Buy) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.secCmd)
	w.Append("quantity", t.Quantity)
	w.EmbedFrom(t.Amount)
	if !t.Fee.IsZero() {
		w.Append("fee", t.Fee.Decimal())
	}
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Buy.
// It handles the custom structure where amount and currency are separate fields.
func (t *Buy) UnmarshalJSON(data []byte) error {
	var temp struct {
		secCmd
		amountCmd
		Quantity Quantity `json:"quantity"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.secCmd = temp.secCmd
	t.Quantity = temp.Quantity
	t.Amount = temp.Money()
	t.Fee = temp.FeeMoney()
	return nil
}

func (t Buy) Equal(other Transaction) bool {
	o, ok := other.(Buy)
	return ok && t.secCmd == o.secCmd && t.Quantity.Equal(o.Quantity) && t.Amount.Equal(o.Amount) && t.Fee.Equal(o.Fee)
}

func (t *Buy) Currency() string { return t.Amount.Currency() }

// Validate checks the Buy transaction's fields. It ensures that the quantity
// and amount are positive, fixes a missing currency from the security's
// declaration, and verifies there is enough cash to cover cost plus fee.
func (t Buy) Validate(b *Book) (Transaction, error) {
	if err := t.secCmd.Validate(b); err != nil {
		return t, err
	}

	if !t.Quantity.IsPositive() {
		return t, fmt.Errorf("buy quantity must be positive, got %s", t.Quantity)
	}
	if !t.Amount.IsPositive() {
		return t, fmt.Errorf("buy amount must be positive, got %s", t.Amount)
	}
	if t.Fee.IsNegative() {
		return t, fmt.Errorf("buy fee cannot be negative, got %s", t.Fee)
	}

	sec, _ := b.Security(t.Security)
	if t.Currency() == "" {
		t.Amount = M(t.Amount.Decimal(), sec.Currency)
	} else if t.Currency() != sec.Currency {
		return t, fmt.Errorf("buy currency %s does not match security currency %s", t.Currency(), sec.Currency)
	}
	t.Fee = M(t.Fee.Decimal(), t.Currency())

	cash, cost := b.CashBalance(t.Currency()), t.Amount.Add(t.Fee)
	if cash.LessThan(cost) {
		return t, fmt.Errorf("on %s, cannot buy for %s cash balance is %s", t.When(), cost, cash)
	}
	return t, nil
}

// --- Sell Command ---

// Sell represents a transaction where a quantity of a security is sold
// for a specified amount, with an optional broker fee.
type Sell struct {
	secCmd
	Quantity Quantity // Quantity is the number of shares or units sold.
	Amount   Money    // Amount is the total proceeds from the sale, before fees.
	Fee      Money    // Fee is the optional broker commission, in the same currency.
}

// NewSell creates a new Sell transaction.
// A zero quantity signifies a "sell all" instruction; the actual number of
// shares is resolved during validation from the position on the transaction
// date.
func NewSell(day date.Date, memo, security string, quantity Quantity, amount, fee Money) Sell {
	return Sell{
		secCmd:   secCmd{baseCmd: baseCmd{Command: CmdSell, Date: day, Memo: memo}, Security: security},
		Quantity: quantity,
		Amount:   amount,
		Fee:      fee,
	}
}

// MarshalJSON implements the json.Marshaler interface for Sell.
func (t Sell) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.secCmd)
	w.Append("quantity", t.Quantity)
	w.EmbedFrom(t.Amount)
	if !t.Fee.IsZero() {
		w.Append("fee", t.Fee.Decimal())
	}
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Sell.
func (t *Sell) UnmarshalJSON(data []byte) error {
	var temp struct {
		secCmd
		amountCmd
		Quantity Quantity `json:"quantity"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.secCmd = temp.secCmd
	t.Quantity = temp.Quantity
	t.Amount = temp.Money()
	t.Fee = temp.FeeMoney()
	return nil
}

func (t Sell) Equal(other Transaction) bool {
	o, ok := other.(Sell)
	return ok && t.secCmd == o.secCmd && t.Quantity.Equal(o.Quantity) && t.Amount.Equal(o.Amount) && t.Fee.Equal(o.Fee)
}

func (t *Sell) Currency() string { return t.Amount.Currency() }

// Validate checks the Sell transaction's fields. It resolves a zero quantity
// to the full position, then ensures the position covers the sale.
func (t Sell) Validate(b *Book) (Transaction, error) {
	if err := t.secCmd.Validate(b); err != nil {
		return t, err
	}

	sec, _ := b.Security(t.Security)
	if t.Currency() == "" {
		t.Amount = M(t.Amount.Decimal(), sec.Currency)
	} else if t.Currency() != sec.Currency {
		return t, fmt.Errorf("sell currency %s does not match security currency %s", t.Currency(), sec.Currency)
	}
	if !t.Amount.IsPositive() {
		return t, fmt.Errorf("sell amount must be positive, got %s", t.Amount)
	}
	if t.Fee.IsNegative() {
		return t, fmt.Errorf("sell fee cannot be negative, got %s", t.Fee)
	}
	t.Fee = M(t.Fee.Decimal(), t.Currency())

	pos := b.Position(t.Security)
	if t.Quantity.IsZero() {
		// quick fix, sell all.
		t.Quantity = pos
	}
	if !t.Quantity.IsPositive() {
		return t, fmt.Errorf("sell quantity must be positive, got %s", t.Quantity)
	}
	if pos.LessThan(t.Quantity) {
		return t, &InsufficientLotsError{Security: t.Security, Requested: t.Quantity, Available: pos}
	}
	return t, nil
}

// --- Dividend Command ---

// Dividend represents a cash dividend received for a held security. Amount
// is the gross dividend; Tax is the part withheld at source, so the cash
// received is Amount minus Tax.
type Dividend struct {
	secCmd
	Amount Money // Amount is the gross dividend before withholding.
	Tax    Money // Tax is the amount withheld at source, possibly zero.
}

// NewDividend creates a new Dividend transaction.
func NewDividend(day date.Date, memo, security string, amount, tax Money) Dividend {
	return Dividend{
		secCmd: secCmd{baseCmd: baseCmd{Command: CmdDividend, Date: day, Memo: memo}, Security: security},
		Amount: amount,
		Tax:    tax,
	}
}

// MarshalJSON implements the json.Marshaler interface for Dividend.
func (t Dividend) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.secCmd)
	w.EmbedFrom(t.Amount)
	if !t.Tax.IsZero() {
		w.Append("tax", t.Tax.Decimal())
	}
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Dividend.
func (t *Dividend) UnmarshalJSON(data []byte) error {
	var temp struct {
		secCmd
		amountCmd
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.secCmd = temp.secCmd
	t.Amount = temp.Money()
	t.Tax = temp.TaxMoney()
	return nil
}

func (t Dividend) Equal(other Transaction) bool {
	o, ok := other.(Dividend)
	return ok && t.secCmd == o.secCmd && t.Amount.Equal(o.Amount) && t.Tax.Equal(o.Tax)
}

// Validate checks the Dividend transaction's fields.
func (t Dividend) Validate(b *Book) (Transaction, error) {
	if err := t.secCmd.Validate(b); err != nil {
		return t, err
	}
	if !t.Amount.IsPositive() {
		return t, errors.New("dividend must have a positive gross amount")
	}
	if t.Tax.IsNegative() {
		return t, fmt.Errorf("dividend tax cannot be negative, got %s", t.Tax)
	}

	sec, _ := b.Security(t.Security)
	if t.Amount.Currency() == "" {
		t.Amount = M(t.Amount.Decimal(), sec.Currency)
	} else if err := ValidateCurrency(t.Amount.Currency()); err != nil {
		return t, fmt.Errorf("invalid currency for dividend: %w", err)
	}
	t.Tax = M(t.Tax.Decimal(), t.Amount.Currency())
	if t.Amount.LessThan(t.Tax) {
		return t, fmt.Errorf("dividend tax %s exceeds gross amount %s", t.Tax, t.Amount)
	}
	return t, nil
}

// --- Interest Command ---

// Interest represents interest received on a cash balance.
type Interest struct {
	baseCmd
	Amount Money // Amount is the gross interest received.
	Tax    Money // Tax is the amount withheld at source, possibly zero.
}

// NewInterest creates a new Interest transaction.
func NewInterest(day date.Date, memo string, amount, tax Money) Interest {
	return Interest{
		baseCmd: baseCmd{Command: CmdInterest, Date: day, Memo: memo},
		Amount:  amount,
		Tax:     tax,
	}
}

// MarshalJSON implements the json.Marshaler interface for Interest.
func (t Interest) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseCmd)
	w.EmbedFrom(t.Amount)
	if !t.Tax.IsZero() {
		w.Append("tax", t.Tax.Decimal())
	}
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Interest.
func (t *Interest) UnmarshalJSON(data []byte) error {
	var temp struct {
		baseCmd
		amountCmd
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.baseCmd = temp.baseCmd
	t.Amount = temp.Money()
	t.Tax = temp.TaxMoney()
	return nil
}

func (t Interest) Equal(other Transaction) bool {
	o, ok := other.(Interest)
	return ok && t.baseCmd == o.baseCmd && t.Amount.Equal(o.Amount) && t.Tax.Equal(o.Tax)
}

// Validate checks the Interest transaction's fields.
func (t Interest) Validate(b *Book) (Transaction, error) {
	t.baseCmd.Validate()
	if !t.Amount.IsPositive() {
		return t, fmt.Errorf("interest amount must be positive, got %s", t.Amount)
	}
	if err := ValidateCurrency(t.Amount.Currency()); err != nil {
		return t, fmt.Errorf("invalid currency for interest: %w", err)
	}
	if t.Tax.IsNegative() {
		return t, fmt.Errorf("interest tax cannot be negative, got %s", t.Tax)
	}
	t.Tax = M(t.Tax.Decimal(), t.Amount.Currency())
	if t.Amount.LessThan(t.Tax) {
		return t, fmt.Errorf("interest tax %s exceeds gross amount %s", t.Tax, t.Amount)
	}
	return t, nil
}

// --- Deposit Command ---

// Deposit represents an owner contribution of cash into the portfolio.
type Deposit struct {
	baseCmd
	Amount Money // Amount is the quantity of cash deposited.
}

// NewDeposit creates a new Deposit transaction.
func NewDeposit(day date.Date, memo string, amount Money) Deposit {
	return Deposit{
		baseCmd: baseCmd{Command: CmdDeposit, Date: day, Memo: memo},
		Amount:  amount,
	}
}

func (t Deposit) Currency() string { return t.Amount.Currency() }

// MarshalJSON implements the json.Marshaler interface for Deposit.
func (t Deposit) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseCmd)
	w.EmbedFrom(t.Amount)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Deposit.
func (t *Deposit) UnmarshalJSON(data []byte) error {
	var temp struct {
		baseCmd
		amountCmd
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.baseCmd = temp.baseCmd
	t.Amount = temp.Money()
	return nil
}

func (t Deposit) Equal(other Transaction) bool {
	o, ok := other.(Deposit)
	return ok && t.baseCmd == o.baseCmd && t.Amount.Equal(o.Amount)
}

// Validate checks the Deposit transaction's fields.
func (t Deposit) Validate(b *Book) (Transaction, error) {
	t.baseCmd.Validate()
	if !t.Amount.IsPositive() {
		return t, fmt.Errorf("deposit amount must be positive, got %s", t.Amount)
	}
	if err := ValidateCurrency(t.Amount.Currency()); err != nil {
		return t, fmt.Errorf("invalid currency for deposit: %w", err)
	}
	return t, nil
}

// --- Withdraw Command ---

// Withdraw represents an owner withdrawal of cash from the portfolio.
type Withdraw struct {
	baseCmd
	Amount Money // Amount is the quantity of cash withdrawn.
}

// NewWithdraw creates a new Withdraw transaction.
// A zero amount signifies a "withdraw all" instruction for the given
// currency, resolved during validation from the cash balance.
func NewWithdraw(day date.Date, memo string, amount Money) Withdraw {
	return Withdraw{
		baseCmd: baseCmd{Command: CmdWithdraw, Date: day, Memo: memo},
		Amount:  amount,
	}
}

func (t *Withdraw) Currency() string { return t.Amount.Currency() }

// MarshalJSON implements the json.Marshaler interface for Withdraw.
func (t Withdraw) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseCmd)
	w.EmbedFrom(t.Amount)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Withdraw.
func (t *Withdraw) UnmarshalJSON(data []byte) error {
	var temp struct {
		baseCmd
		amountCmd
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.baseCmd = temp.baseCmd
	t.Amount = temp.Money()
	return nil
}

func (t Withdraw) Equal(other Transaction) bool {
	o, ok := other.(Withdraw)
	return ok && t.baseCmd == o.baseCmd && t.Amount.Equal(o.Amount)
}

// Validate checks the Withdraw transaction's fields. It handles the
// "withdraw all" case and verifies the cash balance covers the withdrawal.
func (t Withdraw) Validate(b *Book) (Transaction, error) {
	t.baseCmd.Validate()
	if err := ValidateCurrency(t.Amount.Currency()); err != nil {
		return t, fmt.Errorf("invalid currency for withdraw: %w", err)
	}
	if t.Amount.IsZero() {
		t.Amount = b.CashBalance(t.Amount.Currency())
	}
	if !t.Amount.IsPositive() {
		return t, fmt.Errorf("withdraw amount must be positive, got %s", t.Amount)
	}
	cash := b.CashBalance(t.Amount.Currency())
	if cash.LessThan(t.Amount) {
		return t, fmt.Errorf("on %s, cannot withdraw %s cash balance is %s", t.When(), t.Amount, cash)
	}
	return t, nil
}

// --- Fee Command ---

// Fee represents a standalone charge paid in cash, such as a custody or
// account maintenance fee.
type Fee struct {
	baseCmd
	Amount Money // Amount is the fee paid.
}

// NewFee creates a new Fee transaction.
func NewFee(day date.Date, memo string, amount Money) Fee {
	return Fee{
		baseCmd: baseCmd{Command: CmdFee, Date: day, Memo: memo},
		Amount:  amount,
	}
}

// MarshalJSON implements the json.Marshaler interface for Fee.
func (t Fee) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseCmd)
	w.EmbedFrom(t.Amount)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Fee.
func (t *Fee) UnmarshalJSON(data []byte) error {
	var temp struct {
		baseCmd
		amountCmd
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.baseCmd = temp.baseCmd
	t.Amount = temp.Money()
	return nil
}

func (t Fee) Equal(other Transaction) bool {
	o, ok := other.(Fee)
	return ok && t.baseCmd == o.baseCmd && t.Amount.Equal(o.Amount)
}

// Validate checks the Fee transaction's fields.
func (t Fee) Validate(b *Book) (Transaction, error) {
	t.baseCmd.Validate()
	if !t.Amount.IsPositive() {
		return t, fmt.Errorf("fee amount must be positive, got %s", t.Amount)
	}
	if err := ValidateCurrency(t.Amount.Currency()); err != nil {
		return t, fmt.Errorf("invalid currency for fee: %w", err)
	}
	return t, nil
}

// --- Tax Command ---

// Tax represents a standalone tax payment in cash, outside of withholding
// on dividends or interest.
type Tax struct {
	baseCmd
	Amount Money // Amount is the tax paid.
}

// NewTax creates a new Tax transaction.
func NewTax(day date.Date, memo string, amount Money) Tax {
	return Tax{
		baseCmd: baseCmd{Command: CmdTax, Date: day, Memo: memo},
		Amount:  amount,
	}
}

// MarshalJSON implements the json.Marshaler interface for Tax.
func (t Tax) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseCmd)
	w.EmbedFrom(t.Amount)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Tax.
func (t *Tax) UnmarshalJSON(data []byte) error {
	var temp struct {
		baseCmd
		amountCmd
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.baseCmd = temp.baseCmd
	t.Amount = temp.Money()
	return nil
}

func (t Tax) Equal(other Transaction) bool {
	o, ok := other.(Tax)
	return ok && t.baseCmd == o.baseCmd && t.Amount.Equal(o.Amount)
}

// Validate checks the Tax transaction's fields.
func (t Tax) Validate(b *Book) (Transaction, error) {
	t.baseCmd.Validate()
	if !t.Amount.IsPositive() {
		return t, fmt.Errorf("tax amount must be positive, got %s", t.Amount)
	}
	if err := ValidateCurrency(t.Amount.Currency()); err != nil {
		return t, fmt.Errorf("invalid currency for tax: %w", err)
	}
	return t, nil
}

// --- Convert Command ---

// Convert represents an internal currency conversion between two cash
// balances.
type Convert struct {
	baseCmd
	FromAmount Money
	ToAmount   Money
}

// NewConvert creates a new Convert transaction.
func NewConvert(day date.Date, memo string, fromAmount, toAmount Money) Convert {
	return Convert{
		baseCmd:    baseCmd{Command: CmdConvert, Date: day, Memo: memo},
		FromAmount: fromAmount,
		ToAmount:   toAmount,
	}
}

// MarshalJSON implements the json.Marshaler interface for Convert.
func (t Convert) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseCmd)
	w.Append("fromAmount", t.FromAmount.Decimal())
	w.Append("fromCurrency", t.FromAmount.Currency())
	w.Append("toAmount", t.ToAmount.Decimal())
	w.Append("toCurrency", t.ToAmount.Currency())
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Convert.
func (t *Convert) UnmarshalJSON(data []byte) error {
	temp := convertCmd{}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.baseCmd = temp.baseCmd
	t.FromAmount = temp.FromMoney()
	t.ToAmount = temp.ToMoney()
	return nil
}

func (t Convert) Equal(other Transaction) bool {
	o, ok := other.(Convert)
	return ok && t.baseCmd == o.baseCmd && t.FromAmount.Equal(o.FromAmount) && t.ToAmount.Equal(o.ToAmount)
}

func (t *Convert) FromCurrency() string { return t.FromAmount.Currency() }
func (t *Convert) ToCurrency() string   { return t.ToAmount.Currency() }

// Validate checks the Convert transaction's fields. It handles a
// "convert all" case when the from-amount is zero and verifies the source
// cash balance covers the conversion.
func (t Convert) Validate(b *Book) (Transaction, error) {
	t.baseCmd.Validate()
	if err := ValidateCurrency(t.FromCurrency()); err != nil {
		return t, fmt.Errorf("invalid 'from' currency: %w", err)
	}
	if err := ValidateCurrency(t.ToCurrency()); err != nil {
		return t, fmt.Errorf("invalid 'to' currency: %w", err)
	}
	if t.FromCurrency() == t.ToCurrency() {
		return t, fmt.Errorf("cannot convert to the same currency: %s", t.FromCurrency())
	}
	if !t.ToAmount.IsPositive() {
		return t, fmt.Errorf("convert 'to' amount must be positive, got %s", t.ToAmount)
	}
	if t.FromAmount.IsZero() {
		t.FromAmount = b.CashBalance(t.FromCurrency())
	}
	if !t.FromAmount.IsPositive() {
		return t, fmt.Errorf("convert 'from' amount must be positive, got %s", t.FromAmount)
	}
	cash := b.CashBalance(t.FromCurrency())
	if cash.LessThan(t.FromAmount) {
		return t, fmt.Errorf("on %s, cannot convert %s cash balance is %s", t.When(), t.FromAmount, cash)
	}
	return t, nil
}

// --- Split Command ---

// Split represents a stock split event for a security. Open lot quantities
// are scaled by Numerator/Denominator; cost basis is unchanged.
type Split struct {
	secCmd
	Numerator   int64 `json:"num"`
	Denominator int64 `json:"den"`
}

// NewSplit creates a new Split transaction.
func NewSplit(day date.Date, ticker string, num, den int64) Split {
	return Split{
		secCmd: secCmd{
			baseCmd:  baseCmd{Command: CmdSplit, Date: day},
			Security: ticker,
		},
		Numerator:   num,
		Denominator: den,
	}
}

func (t Split) Equal(other Transaction) bool {
	o, ok := other.(Split)
	return ok && t.secCmd == o.secCmd && t.Numerator == o.Numerator && t.Denominator == o.Denominator
}

// Validate checks the Split transaction's fields.
func (t Split) Validate(b *Book) (Transaction, error) {
	if err := t.secCmd.Validate(b); err != nil {
		return t, err
	}
	if t.Numerator <= 0 {
		return t, fmt.Errorf("split numerator must be positive, got %d", t.Numerator)
	}
	if t.Denominator <= 0 {
		return t, fmt.Errorf("split denominator must be positive, got %d", t.Denominator)
	}
	return t, nil
}

// MarshalJSON implements the json.Marshaler interface for Split.
func (t Split) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.secCmd)
	w.Append("num", t.Numerator)
	w.Append("den", t.Denominator)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Split.
func (t *Split) UnmarshalJSON(data []byte) error {
	var temp struct {
		secCmd
		Numerator   int64 `json:"num"`
		Denominator int64 `json:"den"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	if temp.Denominator == 0 {
		temp.Denominator = 1
	}
	t.secCmd = temp.secCmd
	t.Numerator = temp.Numerator
	t.Denominator = temp.Denominator
	return nil
}
