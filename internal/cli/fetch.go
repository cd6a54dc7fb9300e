package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"PriceStation/internal/model"
	"PriceStation/internal/reconciler"
)

type fetchCmd struct {
	symbol string
	start  string
	end    string
	force  bool
	nowait bool
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "fetch the missing days of a series" }
func (*fetchCmd) Usage() string {
	return `fetch [-symbol <code>] [-start YYYY-MM-DD] [-end YYYY-MM-DD] [-force] [-nowait]

  Fetches the days missing from the local series between start (default one
  year before end) and end (default today). -force refetches the whole range.
  Without -nowait the command waits out the upstream rate limit.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "Gold", "symbol code")
	f.StringVar(&c.start, "start", "", "first day to fetch")
	f.StringVar(&c.end, "end", "", "last day to fetch")
	f.BoolVar(&c.force, "force", false, "refetch the whole range, ignoring local data")
	f.BoolVar(&c.nowait, "nowait", false, "fail instead of waiting when rate limited")
}

func (c *fetchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	start, hasStart, err := parseDate(c.start)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitUsageError
	}
	end, hasEnd, err := parseDate(c.end)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitUsageError
	}

	st, err := openStation()
	if err != nil {
		fmt.Fprintf(stderr, "open station: %v\n", err)
		return subcommands.ExitFailure
	}
	defer st.Close()

	if !hasEnd {
		end = model.Day(st.Now())
	}
	if !hasStart {
		start = end.AddDate(0, 0, -365)
	}
	if start.After(end) {
		fmt.Fprintf(stderr, "start %s is after end %s\n", start.Format(model.DateLayout), end.Format(model.DateLayout))
		return subcommands.ExitUsageError
	}

	fmt.Fprintf(stdout, "fetching %s %s\n", c.symbol, model.NewDateRange(start, end))
	out, err := st.Fetch(ctx, reconciler.Request{
		Symbol:   c.symbol,
		Start:    start,
		End:      end,
		Force:    c.force,
		Blocking: !c.nowait,
	})
	if err != nil {
		fmt.Fprintf(stderr, "fetch %s: %v\n", c.symbol, err)
		return subcommands.ExitFailure
	}
	printOutcome(stdout, out)
	printCoverage(stdout, st, out.Symbol)
	return exitStatus(out)
}
