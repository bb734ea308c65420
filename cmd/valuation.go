package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/folio"
	"github.com/etnz/folio/date"
	"github.com/google/subcommands"
	"github.com/robfig/cron/v3"
)

type revalueCmd struct {
	day      string
	security string
	price    float64
	currency string
	prices   string
	every    string
}

func (*revalueCmd) Name() string     { return "revalue" }
func (*revalueCmd) Synopsis() string { return "mark holdings to market" }
func (*revalueCmd) Usage() string {
	return `pfl revalue [-s <ticker> -p <price>] [-prices <file.jsonl>] [-d <date>] [-every <cron>]

  Posts fair value adjustments so carrying values match market prices,
  and revalues foreign cash balances at current exchange rates.
  Adjustments are incremental: running revalue twice with the same
  prices posts nothing the second time.

  With -s and -p a single security is revalued at the given price.
  With -prices, prices are read from a JSONL file of
  {"ticker","date","price","currency"} records. Either way, foreign
  cash is revalued too.

  With -every the revaluation repeats on a cron schedule until
  interrupted, e.g. -every "0 18 * * MON-FRI".
`
}

func (p *revalueCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.day, "d", "", "Valuation date (defaults to today).")
	f.StringVar(&p.security, "s", "", "Revalue only this security.")
	f.Float64Var(&p.price, "p", 0, "Market price for -s.")
	f.StringVar(&p.currency, "c", "", "Currency of -p (defaults to the security's).")
	f.StringVar(&p.prices, "prices", "", "JSONL price file.")
	f.StringVar(&p.every, "every", "", "Cron schedule to repeat the revaluation.")
}

func (p *revalueCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.every == "" {
		return p.run(ctx)
	}
	c := cron.New()
	if _, err := c.AddFunc(p.every, func() { p.run(ctx) }); err != nil {
		return fail(fmt.Errorf("invalid -every schedule: %w", err))
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return subcommands.ExitSuccess
}

func (p *revalueCmd) run(ctx context.Context) subcommands.ExitStatus {
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

	var entries []*folio.JournalEntry
	if p.security != "" {
		sec, ok := a.book.Security(p.security)
		if !ok {
			return fail(fmt.Errorf("security %q is not declared", p.security))
		}
		currency := p.currency
		if currency == "" {
			currency = sec.Currency
		}
		e, err := a.book.RevalueSecurity(p.security, folio.M(p.price, currency), day)
		if err != nil {
			return fail(err)
		}
		if e != nil {
			entries = append(entries, e)
		}
		for _, cur := range a.book.CashCurrencies() {
			if cur == a.book.BaseCurrency() {
				continue
			}
			e, err := a.book.RevalueCurrency(cur, day)
			if err != nil {
				return fail(err)
			}
			if e != nil {
				entries = append(entries, e)
			}
		}
	} else {
		prices := folio.NewPriceTable()
		if p.prices != "" {
			if err := readPrices(p.prices, prices); err != nil {
				return fail(err)
			}
		}
		entries, err = a.book.RevalueAll(prices, day)
		if err != nil {
			return fail(err)
		}
	}
	if err := a.save(ctx); err != nil {
		return fail(err)
	}
	if len(entries) == 0 {
		fmt.Println("Nothing to adjust.")
		return subcommands.ExitSuccess
	}
	for _, e := range entries {
		fmt.Printf("Posted entry #%d (%s)\n", e.EntryNumber, e.Description)
	}
	return subcommands.ExitSuccess
}

// readPrices loads a JSONL price file into the table.
func readPrices(path string, t *folio.PriceTable) error {
	r, err := os.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	type record struct {
		Ticker   string  `json:"ticker"`
		Date     string  `json:"date"`
		Price    float64 `json:"price"`
		Currency string  `json:"currency"`
	}
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("%s:%d: %w", path, n, err)
		}
		day, err := date.Parse(rec.Date)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", path, n, err)
		}
		t.SetFloat(rec.Ticker, day, rec.Price, rec.Currency)
	}
	return sc.Err()
}

type closeCmd struct {
	day string
}

func (*closeCmd) Name() string     { return "close" }
func (*closeCmd) Synopsis() string { return "close the books for the period" }
func (*closeCmd) Usage() string {
	return `pfl close [-d <date>]

  Sweeps revenue and expense balances into retained earnings, resetting
  the income statement for the next period.
`
}

func (p *closeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.day, "d", "", "Closing date (defaults to today).")
}

func (p *closeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	e, err := a.book.CloseBooks(day, a.actor())
	if err != nil {
		return fail(err)
	}
	if e == nil {
		fmt.Println("Nothing to close.")
		return subcommands.ExitSuccess
	}
	if err := a.save(ctx); err != nil {
		return fail(err)
	}
	fmt.Printf("Posted entry #%d (%s)\n", e.EntryNumber, e.Description)
	return subcommands.ExitSuccess
}

type reverseCmd struct {
	day   string
	entry int
}

func (*reverseCmd) Name() string     { return "reverse" }
func (*reverseCmd) Synopsis() string { return "reverse a posted entry" }
func (*reverseCmd) Usage() string {
	return `pfl reverse -e <entry number> [-d <date>]

  Posts a mirror-image entry that cancels the original. The original is
  never edited, the reversal is a new entry in the journal. Buys and
  sells cannot be reversed, record an offsetting trade instead.
`
}

func (p *reverseCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.day, "d", "", "Reversal date (defaults to today).")
	f.IntVar(&p.entry, "e", 0, "Number of the entry to reverse.")
}

func (p *reverseCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	e, err := a.book.Reverse(p.entry, day, a.actor())
	if err != nil {
		return fail(err)
	}
	if err := a.save(ctx); err != nil {
		return fail(err)
	}
	fmt.Printf("Posted entry #%d (%s)\n", e.EntryNumber, e.Description)
	return subcommands.ExitSuccess
}
