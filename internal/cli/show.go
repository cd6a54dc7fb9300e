package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/google/subcommands"

	"PriceStation/internal/model"
)

type showCmd struct {
	symbol string
	rng    string
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "print the stored series over a time range" }
func (*showCmd) Usage() string {
	return `show [-symbol <code>] [-range 1W|1M|3M|6M|1Y|ALL]

  Prints the local observations of a symbol as a table, oldest first.
`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "Gold", "symbol code")
	f.StringVar(&c.rng, "range", string(model.Range1M), "time range")
}

func (c *showCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	if series.Empty() {
		fmt.Fprintf(stdout, "%s: no data in %s, run fetch first\n", sym.Code, r)
		return subcommands.ExitSuccess
	}

	fmt.Fprintf(stdout, "%s (%s), %s\n", sym.Name, sym.Code, r)
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "date\t%s\t\n", strings.Join(series.Schema.Fields, "\t"))
	for _, o := range series.Observations {
		cells := make([]string, 0, len(series.Schema.Fields))
		for _, f := range series.Schema.Fields {
			v, ok := o.Value(f)
			if !ok {
				cells = append(cells, "-")
				continue
			}
			cells = append(cells, humanize.CommafWithDigits(v, 4))
		}
		fmt.Fprintf(w, "%s\t%s\t\n", o.Time.Format(model.DateLayout), strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
