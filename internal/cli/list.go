package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/google/subcommands"

	"PriceStation/internal/model"
)

type listCmd struct {
	runs int
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list symbols with their latest price and recent runs" }
func (*listCmd) Usage() string {
	return `list [-runs N]

  Lists every known symbol with its latest stored price, then the most
  recent reconciliation runs from the journal.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.runs, "runs", 10, "number of recent runs to show, 0 to hide")
}

func (c *listCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	st, err := openStation()
	if err != nil {
		fmt.Fprintf(stderr, "open station: %v\n", err)
		return subcommands.ExitFailure
	}
	defer st.Close()

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "code\tname\tsource\tlatest\tdate\trows")
	for _, sym := range st.Catalog.All() {
		series := st.Store.Load(sym.Code)
		latest, ok := series.Latest()
		v, hasV := latest.Value(sym.PriceField)
		if !ok || !hasV {
			fmt.Fprintf(w, "%s\t%s\t%s\t(no data)\t-\t0\n", sym.Code, sym.Name, sym.Source)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", sym.Code, sym.Name, sym.Source,
			humanize.CommafWithDigits(v, 4), latest.Time.Format(model.DateLayout), series.Len())
	}
	w.Flush()

	if c.runs <= 0 {
		return subcommands.ExitSuccess
	}
	runs, err := st.Recorder.RecentRuns(c.runs)
	if err != nil {
		fmt.Fprintf(stderr, "recent runs: %v\n", err)
		return subcommands.ExitFailure
	}
	if len(runs) == 0 {
		return subcommands.ExitSuccess
	}
	fmt.Fprintln(stdout, "\nrecent runs:")
	w = tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	for _, r := range runs {
		state := "ok"
		switch {
		case r.Aborted:
			state = "aborted"
		case r.Failed > 0:
			state = fmt.Sprintf("%d failed", r.Failed)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d rows\t%s\t%s\n", r.Symbol, r.Mode,
			model.NewDateRange(r.Start, r.End), r.Fetched, state, humanize.Time(r.At))
	}
	w.Flush()
	return subcommands.ExitSuccess
}
