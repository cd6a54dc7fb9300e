package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"PriceStation/internal/scheduler"
)

type updateCmd struct {
	symbol   string
	onceADay bool
	nowait   bool
}

func (*updateCmd) Name() string     { return "update" }
func (*updateCmd) Synopsis() string { return "bring series up to today" }
func (*updateCmd) Usage() string {
	return `update [-symbol <code>] [-once-per-day] [-nowait]

  Updates one symbol, or every catalog symbol when -symbol is empty. Derived
  series are recomputed after their inputs. With -once-per-day the full update
  is skipped when it already ran today.
`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "", "symbol code, empty for all")
	f.BoolVar(&c.onceADay, "once-per-day", false, "skip when the daily update already ran today")
	f.BoolVar(&c.nowait, "nowait", false, "fail instead of waiting when rate limited")
}

func (c *updateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	st, err := openStation()
	if err != nil {
		fmt.Fprintf(stderr, "open station: %v\n", err)
		return subcommands.ExitFailure
	}
	defer st.Close()

	if c.symbol != "" {
		out, err := st.Update(ctx, c.symbol, !c.nowait)
		if err != nil {
			fmt.Fprintf(stderr, "update %s: %v\n", c.symbol, err)
			return subcommands.ExitFailure
		}
		printOutcome(stdout, out)
		printCoverage(stdout, st, out.Symbol)
		return exitStatus(out)
	}

	marker := scheduler.NewDailyMarker(st.Config.DailyMarker())
	if c.onceADay && marker.Done() {
		fmt.Fprintln(stdout, "daily update already done today")
		return subcommands.ExitSuccess
	}
	outcomes, err := st.UpdateAll(ctx, false, !c.nowait)
	for _, out := range outcomes {
		printOutcome(stdout, out)
	}
	if err != nil {
		fmt.Fprintf(stderr, "update: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.onceADay {
		if err := marker.Mark(); err != nil {
			fmt.Fprintln(stderr, err)
		}
	}
	return subcommands.ExitSuccess
}
