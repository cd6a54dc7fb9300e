package cli

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/subcommands"

	"PriceStation/internal/ratelimit"
)

type historyCmd struct {
	symbol    string
	startYear int
	endYear   int
	delay     time.Duration
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "backfill whole years, newest first" }
func (*historyCmd) Usage() string {
	return `history -start-year YYYY -end-year YYYY [-symbol <code>] [-delay 5m]

  Fetches every year from end-year down to start-year, resting between years.
  Future years are skipped. Stops at the first year that fails.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "Gold", "symbol code")
	f.IntVar(&c.startYear, "start-year", 0, "oldest year to fetch")
	f.IntVar(&c.endYear, "end-year", 0, "newest year to fetch")
	f.DurationVar(&c.delay, "delay", 0, "rest between years (default rate_limit.year_delay)")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.startYear <= 0 || c.endYear <= 0 {
		fmt.Fprintln(stderr, "-start-year and -end-year are required")
		return subcommands.ExitUsageError
	}
	if c.startYear > c.endYear {
		fmt.Fprintln(stderr, "start year must not be after end year")
		return subcommands.ExitUsageError
	}

	st, err := openStation()
	if err != nil {
		fmt.Fprintf(stderr, "open station: %v\n", err)
		return subcommands.ExitFailure
	}
	defer st.Close()

	sym, err := st.Catalog.Lookup(c.symbol)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitFailure
	}
	if sym.Derived != nil {
		fmt.Fprintf(stderr, "%s is derived, backfill its inputs and run update\n", sym.Code)
		return subcommands.ExitUsageError
	}

	delay := c.delay
	if delay <= 0 {
		delay = st.Config.RateLimit.YearDelay
	}
	pace := ratelimit.New(filepath.Join(st.Config.DataDir, ".history_pace"), delay)

	fmt.Fprintf(stdout, "backfilling %s %d..%d, %s between years\n", sym.Code, c.endYear, c.startYear, delay)
	results, err := st.Reconciler.Backfill(ctx, sym.Code, c.startYear, c.endYear, pace)
	status := subcommands.ExitSuccess
	for _, r := range results {
		if r.Skipped {
			fmt.Fprintf(stdout, "%d: skipped, in the future\n", r.Year)
			continue
		}
		fmt.Fprintf(stdout, "%d: %d rows, %d ok, %d failed\n", r.Year, r.Outcome.Fetched, r.Outcome.Succeeded, r.Outcome.Failed)
		if !r.Outcome.OK() {
			status = subcommands.ExitFailure
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "history: %v\n", err)
		return subcommands.ExitFailure
	}
	printCoverage(stdout, st, sym.Code)
	return status
}
