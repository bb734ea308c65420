package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/folio"
	"github.com/etnz/folio/date"
	"github.com/google/subcommands"
)

// parseDay parses a -d flag value, defaulting to today.
func parseDay(s string) (date.Date, error) {
	if s == "" {
		return date.Today(), nil
	}
	return date.Parse(s)
}

// --- buy ---

type buyCmd struct {
	day      string
	memo     string
	security string
	quantity float64
	amount   float64
	fee      float64
	currency string
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record a security purchase" }
func (*buyCmd) Usage() string {
	return `pfl buy -s <ticker> -q <quantity> -a <amount> [-fee <fee>] [-d <date>] [-m <memo>]

  Records a purchase: the cost moves from cash into the investment
  position and opens a new FIFO lot.
`
}

func (p *buyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.day, "d", "", "Transaction date (defaults to today).")
	f.StringVar(&p.memo, "m", "", "Optional memo.")
	f.StringVar(&p.security, "s", "", "Ticker of the security bought.")
	f.Float64Var(&p.quantity, "q", 0, "Quantity bought.")
	f.Float64Var(&p.amount, "a", 0, "Total cost, excluding fees.")
	f.Float64Var(&p.fee, "fee", 0, "Broker fee.")
	f.StringVar(&p.currency, "c", "", "Currency (defaults to the security's).")
}

func (p *buyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	day, err := parseDay(p.day)
	if err != nil {
		return fail(err)
	}
	tx := folio.NewBuy(day, p.memo, p.security,
		folio.Q(p.quantity), folio.M(p.amount, p.currency), folio.M(p.fee, p.currency))
	return post(ctx, tx)
}

// --- sell ---

type sellCmd struct {
	day      string
	memo     string
	security string
	quantity float64
	amount   float64
	fee      float64
	currency string
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "record a security sale" }
func (*sellCmd) Usage() string {
	return `pfl sell -s <ticker> -q <quantity> -a <amount> [-fee <fee>] [-d <date>] [-m <memo>]

  Records a sale: FIFO lots are consumed to establish cost basis and the
  realized gain or loss is posted. A quantity of 0 sells the whole
  position.
`
}

func (p *sellCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.day, "d", "", "Transaction date (defaults to today).")
	f.StringVar(&p.memo, "m", "", "Optional memo.")
	f.StringVar(&p.security, "s", "", "Ticker of the security sold.")
	f.Float64Var(&p.quantity, "q", 0, "Quantity sold, 0 to sell all.")
	f.Float64Var(&p.amount, "a", 0, "Total proceeds, before fees.")
	f.Float64Var(&p.fee, "fee", 0, "Broker fee.")
	f.StringVar(&p.currency, "c", "", "Currency (defaults to the security's).")
}

func (p *sellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	day, err := parseDay(p.day)
	if err != nil {
		return fail(err)
	}
	tx := folio.NewSell(day, p.memo, p.security,
		folio.Q(p.quantity), folio.M(p.amount, p.currency), folio.M(p.fee, p.currency))
	return post(ctx, tx)
}

// --- dividend ---

type dividendCmd struct {
	day      string
	memo     string
	security string
	amount   float64
	tax      float64
	currency string
}

func (*dividendCmd) Name() string     { return "dividend" }
func (*dividendCmd) Synopsis() string { return "record a cash dividend" }
func (*dividendCmd) Usage() string {
	return `pfl dividend -s <ticker> -a <gross> [-tax <withheld>] [-d <date>] [-m <memo>]

  Records a dividend: cash receives the net amount, withholding goes to
  tax expense, income is recognized gross.
`
}

func (p *dividendCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.day, "d", "", "Transaction date (defaults to today).")
	f.StringVar(&p.memo, "m", "", "Optional memo.")
	f.StringVar(&p.security, "s", "", "Ticker of the paying security.")
	f.Float64Var(&p.amount, "a", 0, "Gross dividend amount.")
	f.Float64Var(&p.tax, "tax", 0, "Tax withheld at source.")
	f.StringVar(&p.currency, "c", "", "Currency (defaults to the security's).")
}

func (p *dividendCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	day, err := parseDay(p.day)
	if err != nil {
		return fail(err)
	}
	tx := folio.NewDividend(day, p.memo, p.security,
		folio.M(p.amount, p.currency), folio.M(p.tax, p.currency))
	return post(ctx, tx)
}

// --- interest ---

type interestCmd struct {
	day      string
	memo     string
	amount   float64
	tax      float64
	currency string
}

func (*interestCmd) Name() string     { return "interest" }
func (*interestCmd) Synopsis() string { return "record interest received" }
func (*interestCmd) Usage() string {
	return `pfl interest -a <gross> -c <currency> [-tax <withheld>] [-d <date>] [-m <memo>]
`
}

func (p *interestCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.day, "d", "", "Transaction date (defaults to today).")
	f.StringVar(&p.memo, "m", "", "Optional memo.")
	f.Float64Var(&p.amount, "a", 0, "Gross interest amount.")
	f.Float64Var(&p.tax, "tax", 0, "Tax withheld at source.")
	f.StringVar(&p.currency, "c", "", "Currency of the interest.")
}

func (p *interestCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	day, err := parseDay(p.day)
	if err != nil {
		return fail(err)
	}
	tx := folio.NewInterest(day, p.memo,
		folio.M(p.amount, p.currency), folio.M(p.tax, p.currency))
	return post(ctx, tx)
}

// --- deposit ---

type depositCmd struct {
	day      string
	memo     string
	amount   float64
	currency string
}

func (*depositCmd) Name() string     { return "deposit" }
func (*depositCmd) Synopsis() string { return "record an owner cash deposit" }
func (*depositCmd) Usage() string {
	return `pfl deposit -a <amount> -c <currency> [-d <date>] [-m <memo>]
`
}

func (p *depositCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.day, "d", "", "Transaction date (defaults to today).")
	f.StringVar(&p.memo, "m", "", "Optional memo.")
	f.Float64Var(&p.amount, "a", 0, "Amount deposited.")
	f.StringVar(&p.currency, "c", "", "Currency of the deposit.")
}

func (p *depositCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	day, err := parseDay(p.day)
	if err != nil {
		return fail(err)
	}
	return post(ctx, folio.NewDeposit(day, p.memo, folio.M(p.amount, p.currency)))
}

// --- withdraw ---

type withdrawCmd struct {
	day      string
	memo     string
	amount   float64
	currency string
}

func (*withdrawCmd) Name() string     { return "withdraw" }
func (*withdrawCmd) Synopsis() string { return "record an owner cash withdrawal" }
func (*withdrawCmd) Usage() string {
	return `pfl withdraw -a <amount> -c <currency> [-d <date>] [-m <memo>]

  An amount of 0 withdraws the whole balance of that currency.
`
}

func (p *withdrawCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.day, "d", "", "Transaction date (defaults to today).")
	f.StringVar(&p.memo, "m", "", "Optional memo.")
	f.Float64Var(&p.amount, "a", 0, "Amount withdrawn, 0 for all.")
	f.StringVar(&p.currency, "c", "", "Currency of the withdrawal.")
}

func (p *withdrawCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	day, err := parseDay(p.day)
	if err != nil {
		return fail(err)
	}
	return post(ctx, folio.NewWithdraw(day, p.memo, folio.M(p.amount, p.currency)))
}

// --- fee ---

type feeCmd struct {
	day      string
	memo     string
	amount   float64
	currency string
}

func (*feeCmd) Name() string     { return "fee" }
func (*feeCmd) Synopsis() string { return "record a standalone fee" }
func (*feeCmd) Usage() string {
	return `pfl fee -a <amount> -c <currency> [-d <date>] [-m <memo>]
`
}

func (p *feeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.day, "d", "", "Transaction date (defaults to today).")
	f.StringVar(&p.memo, "m", "", "Optional memo.")
	f.Float64Var(&p.amount, "a", 0, "Fee amount.")
	f.StringVar(&p.currency, "c", "", "Currency of the fee.")
}

func (p *feeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	day, err := parseDay(p.day)
	if err != nil {
		return fail(err)
	}
	return post(ctx, folio.NewFee(day, p.memo, folio.M(p.amount, p.currency)))
}

// --- tax ---

type taxCmd struct {
	day      string
	memo     string
	amount   float64
	currency string
}

func (*taxCmd) Name() string     { return "tax" }
func (*taxCmd) Synopsis() string { return "record a standalone tax payment" }
func (*taxCmd) Usage() string {
	return `pfl tax -a <amount> -c <currency> [-d <date>] [-m <memo>]
`
}

func (p *taxCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.day, "d", "", "Transaction date (defaults to today).")
	f.StringVar(&p.memo, "m", "", "Optional memo.")
	f.Float64Var(&p.amount, "a", 0, "Tax amount.")
	f.StringVar(&p.currency, "c", "", "Currency of the payment.")
}

func (p *taxCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	day, err := parseDay(p.day)
	if err != nil {
		return fail(err)
	}
	return post(ctx, folio.NewTax(day, p.memo, folio.M(p.amount, p.currency)))
}

// --- convert ---

type convertCmd struct {
	day          string
	memo         string
	fromAmount   float64
	fromCurrency string
	toAmount     float64
	toCurrency   string
}

func (*convertCmd) Name() string     { return "convert" }
func (*convertCmd) Synopsis() string { return "record a currency conversion" }
func (*convertCmd) Usage() string {
	return `pfl convert -fa <amount> -fc <currency> -ta <amount> -tc <currency> [-d <date>] [-m <memo>]

  Moves cash between two currency balances. The difference between the
  two legs' base values is posted to FX gain/loss, never silently
  dropped. A from-amount of 0 converts the whole balance.
`
}

func (p *convertCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.day, "d", "", "Transaction date (defaults to today).")
	f.StringVar(&p.memo, "m", "", "Optional memo.")
	f.Float64Var(&p.fromAmount, "fa", 0, "Amount sold, 0 for the whole balance.")
	f.StringVar(&p.fromCurrency, "fc", "", "Currency sold.")
	f.Float64Var(&p.toAmount, "ta", 0, "Amount received.")
	f.StringVar(&p.toCurrency, "tc", "", "Currency received.")
}

func (p *convertCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	day, err := parseDay(p.day)
	if err != nil {
		return fail(err)
	}
	tx := folio.NewConvert(day, p.memo,
		folio.M(p.fromAmount, p.fromCurrency), folio.M(p.toAmount, p.toCurrency))
	return post(ctx, tx)
}

// --- split ---

type splitCmd struct {
	day      string
	security string
	num      int64
	den      int64
}

func (*splitCmd) Name() string     { return "split" }
func (*splitCmd) Synopsis() string { return "record a stock split" }
func (*splitCmd) Usage() string {
	return `pfl split -s <ticker> -num <n> -den <d> [-d <date>]

  Scales open lot quantities by num/den. A 2-for-1 split is -num 2 -den 1.
`
}

func (p *splitCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.day, "d", "", "Split date (defaults to today).")
	f.StringVar(&p.security, "s", "", "Ticker of the security.")
	f.Int64Var(&p.num, "num", 1, "Split numerator.")
	f.Int64Var(&p.den, "den", 1, "Split denominator.")
}

func (p *splitCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	day, err := parseDay(p.day)
	if err != nil {
		return fail(err)
	}
	return post(ctx, folio.NewSplit(day, p.security, p.num, p.den))
}

// readTransactions loads a JSONL transaction file, sorted by date.
func readTransactions(path string) ([]folio.Transaction, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return folio.DecodeTransactions(r)
}

// --- import ---

type importCmd struct {
	file   string
	source string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import transactions from a JSONL file" }
func (*importCmd) Usage() string {
	return `pfl import -f <file.jsonl> [-source <name>]

  Posts every transaction in the file in date order. Rejected
  transactions are reported and skipped; the batch records how many
  posted and how many failed.
`
}

func (p *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.file, "f", "", "JSONL file of transactions.")
	f.StringVar(&p.source, "source", "", "Batch source label (defaults to the file name).")
}

func (p *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.file == "" {
		fmt.Println(p.Usage())
		return subcommands.ExitUsageError
	}
	a, err := open(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.close()
	if err := a.requireBook(); err != nil {
		return fail(err)
	}

	txs, err := readTransactions(p.file)
	if err != nil {
		return fail(err)
	}
	source := p.source
	if source == "" {
		source = p.file
	}
	batch := folio.NewImportBatch(a.book.PortfolioID(), source)
	if err := a.store.SaveBatch(ctx, batch); err != nil {
		return fail(err)
	}

	res := a.book.PostBatch(batch, txs, a.actor())
	if err := a.save(ctx); err != nil {
		return fail(err)
	}
	if err := a.store.SaveBatch(ctx, batch); err != nil {
		return fail(err)
	}
	for _, e := range res.Errors {
		fmt.Fprintln(flag.CommandLine.Output(), "skipped:", e)
	}
	fmt.Printf("Imported %d entries, %d rejected (batch %s)\n", batch.Posted, batch.Failed, batch.ID)
	return subcommands.ExitSuccess
}
