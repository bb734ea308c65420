// Package cmd implements the CLI application to manage a portfolio ledger.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/folio"
	"github.com/etnz/folio/fx"
	"github.com/etnz/folio/store"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Register registers all subcommands on the commander. A main package
// calls Register() and then Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&initCmd{}, "portfolio")
	c.Register(&declareCmd{}, "portfolio")

	c.Register(&buyCmd{}, "transactions")
	c.Register(&sellCmd{}, "transactions")
	c.Register(&dividendCmd{}, "transactions")
	c.Register(&interestCmd{}, "transactions")
	c.Register(&depositCmd{}, "transactions")
	c.Register(&withdrawCmd{}, "transactions")
	c.Register(&feeCmd{}, "transactions")
	c.Register(&taxCmd{}, "transactions")
	c.Register(&convertCmd{}, "transactions")
	c.Register(&splitCmd{}, "transactions")
	c.Register(&importCmd{}, "transactions")
	c.Register(&reverseCmd{}, "transactions")

	c.Register(&revalueCmd{}, "valuation")
	c.Register(&closeCmd{}, "valuation")

	c.Register(&trialBalanceCmd{}, "reports")
	c.Register(&balanceSheetCmd{}, "reports")
	c.Register(&incomeCmd{}, "reports")
	c.Register(&holdingsCmd{}, "reports")
	c.Register(&journalCmd{}, "reports")

	c.Register(&topicCmd{}, "help")
}

// The CLI is short lived, global flags shared by every subcommand are ok.
var (
	configPath = flag.String("config", DefaultConfigPath(), "Path to the TOML configuration file")
	dbPath     = flag.String("db", "", "Path to the ledger database (overrides config)")
	portfolio  = flag.String("portfolio", "", "Portfolio id to operate on (overrides config)")
	verbose    = flag.Bool("v", false, "Enable debug logging")
)

// app bundles everything a subcommand needs to run.
type app struct {
	cfg   Config
	log   zerolog.Logger
	store *store.Store
	book  *folio.Book
	rates folio.RateSource
}

// open loads configuration, opens the store, and loads the book.
func open(ctx context.Context) (*app, error) {
	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return nil, err
	}
	if *dbPath != "" {
		cfg.Database = *dbPath
	}
	if *portfolio != "" {
		cfg.Portfolio = *portfolio
	}

	level := zerolog.WarnLevel
	if cfg.Verbose || *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()

	st, err := store.Open(cfg.Database, log)
	if err != nil {
		return nil, err
	}

	if cfg.Materiality > 0 {
		folio.Materiality = decimal.NewFromFloat(cfg.Materiality)
	}

	rates := folio.RateSource(fx.NewClient(cfg.FxService, log))
	book, err := st.LoadBook(ctx, cfg.Portfolio, rates, log)
	if err != nil && err != folio.ErrPortfolioNotFound {
		st.Close()
		return nil, err
	}
	return &app{cfg: cfg, log: log, store: st, book: book, rates: rates}, nil
}

// close releases the store.
func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

// requireBook fails when the portfolio has not been initialized yet.
func (a *app) requireBook() error {
	if a.book == nil {
		return fmt.Errorf("portfolio %q not found, run 'init' first", a.cfg.Portfolio)
	}
	return nil
}

// actor returns the actor for manual postings.
func (a *app) actor() folio.Actor {
	return folio.UserActor(a.cfg.User)
}

// save persists the book.
func (a *app) save(ctx context.Context) error {
	return a.store.SaveBook(ctx, a.book)
}

// fail prints an error and returns the failure exit status.
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "Error:", err)
	return subcommands.ExitFailure
}

// post posts one transaction and saves the book, the shared tail of every
// transaction subcommand.
func post(ctx context.Context, tx folio.Transaction) subcommands.ExitStatus {
	a, err := open(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.close()
	if err := a.requireBook(); err != nil {
		return fail(err)
	}
	e, err := a.book.Post(tx, a.actor())
	if err != nil {
		return fail(err)
	}
	if err := a.save(ctx); err != nil {
		return fail(err)
	}
	if e != nil {
		fmt.Printf("Posted entry #%d (%s)\n", e.EntryNumber, e.Description)
	} else {
		fmt.Println("Recorded.")
	}
	return subcommands.ExitSuccess
}
