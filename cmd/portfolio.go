package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/folio"
	"github.com/google/subcommands"
)

type initCmd struct {
	day      string
	name     string
	currency string
}

func (*initCmd) Name() string     { return "init" }
func (*initCmd) Synopsis() string { return "create a new portfolio ledger" }
func (*initCmd) Usage() string {
	return `pfl init [-name <name>] [-c <currency>] [-d <date>]

  Creates the portfolio with its chart of accounts. The base currency is
  fixed at creation and every ledger amount is expressed in it.
`
}

func (p *initCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.day, "d", "", "Opening date (defaults to today).")
	f.StringVar(&p.name, "name", "", "Display name (defaults to the portfolio id).")
	f.StringVar(&p.currency, "c", "", "Base currency (defaults to the configured one).")
}

func (p *initCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	day, err := parseDay(p.day)
	if err != nil {
		return fail(err)
	}
	a, err := open(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.close()
	if a.book != nil {
		return fail(fmt.Errorf("portfolio %q already exists", a.cfg.Portfolio))
	}

	name := p.name
	if name == "" {
		name = a.cfg.Portfolio
	}
	currency := p.currency
	if currency == "" {
		currency = a.cfg.Currency
	}
	book, err := folio.NewBook(a.cfg.Portfolio, name, currency, a.rates, a.log)
	if err != nil {
		return fail(err)
	}
	a.book = book
	if _, err := a.book.Post(folio.NewInit(day, "", currency, name), a.actor()); err != nil {
		return fail(err)
	}
	if err := a.save(ctx); err != nil {
		return fail(err)
	}
	fmt.Printf("Initialized portfolio %q (base %s)\n", a.cfg.Portfolio, currency)
	return subcommands.ExitSuccess
}

type declareCmd struct {
	day      string
	memo     string
	ticker   string
	name     string
	currency string
}

func (*declareCmd) Name() string     { return "declare" }
func (*declareCmd) Synopsis() string { return "declare a security" }
func (*declareCmd) Usage() string {
	return `pfl declare -s <ticker> [-name <name>] [-c <currency>] [-d <date>]

  Registers a security so it can be traded. The currency defaults to the
  portfolio's base currency.
`
}

func (p *declareCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.day, "d", "", "Declaration date (defaults to today).")
	f.StringVar(&p.memo, "m", "", "Optional memo.")
	f.StringVar(&p.ticker, "s", "", "Ticker of the security.")
	f.StringVar(&p.name, "name", "", "Display name (defaults to the ticker).")
	f.StringVar(&p.currency, "c", "", "Trading currency (defaults to the base currency).")
}

func (p *declareCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	day, err := parseDay(p.day)
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
	currency := p.currency
	if currency == "" {
		currency = a.book.BaseCurrency()
	}
	if _, err := a.book.Post(folio.NewDeclare(day, p.memo, p.ticker, p.name, currency), a.actor()); err != nil {
		return fail(err)
	}
	if err := a.save(ctx); err != nil {
		return fail(err)
	}
	fmt.Printf("Declared %s (%s)\n", p.ticker, currency)
	return subcommands.ExitSuccess
}
