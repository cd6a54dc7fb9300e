package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"PriceStation/internal/calculator"
	"PriceStation/internal/model"
)

type statsCmd struct {
	symbol string
	rng    string
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "print price statistics over a time range" }
func (*statsCmd) Usage() string {
	return `stats [-symbol <code>] [-range 1W|1M|3M|6M|1Y|ALL]

  Prints first, current, min, max and average price, the change over the
  range, the position of the current price in its range, SMA20, RSI14 and
  the moving-average trend.
`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "Gold", "symbol code")
	f.StringVar(&c.rng, "range", string(model.RangeAll), "time range")
}

func (c *statsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	r, err := model.ParseTimeRange(c.rng)
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

	sym, series, err := st.Window(c.symbol, r)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitFailure
	}
	s, err := calculator.Stats(series, sym.PriceField)
	if err != nil {
		fmt.Fprintf(stdout, "%s: %v in %s\n", sym.Code, err, r)
		return subcommands.ExitSuccess
	}

	from, to, _ := series.Coverage()
	fmt.Fprintf(stdout, "%s %s (%s): %d rows, %s to %s\n", sym.Code, s.Field, r, s.Count,
		from.Format(model.DateLayout), to.Format(model.DateLayout))
	fmt.Fprintf(stdout, "  current   %s\n", money(s.Current))
	fmt.Fprintf(stdout, "  first     %s\n", money(s.First))
	fmt.Fprintf(stdout, "  change    %s (%s%%)\n", money(s.Change), s.ChangePct.StringFixed(2))
	fmt.Fprintf(stdout, "  min       %s\n", money(s.Min))
	fmt.Fprintf(stdout, "  max       %s\n", money(s.Max))
	fmt.Fprintf(stdout, "  average   %s\n", money(s.Avg))
	fmt.Fprintf(stdout, "  position  %.0f%% of range\n", s.Position*100)
	if s.HasSMA20 {
		fmt.Fprintf(stdout, "  SMA20     %s\n", humanize.CommafWithDigits(s.SMA20, 2))
	}
	fmt.Fprintf(stdout, "  RSI14     %.1f\n", s.RSI14)
	if s.Trend != calculator.TrendUnknown {
		fmt.Fprintf(stdout, "  trend     %s\n", s.Trend)
	}
	return subcommands.ExitSuccess
}

func money(d decimal.Decimal) string {
	return humanize.CommafWithDigits(d.Round(4).InexactFloat64(), 4)
}
