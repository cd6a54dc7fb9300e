// Package cli implements the price station subcommands.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"PriceStation/internal/catalog"
	"PriceStation/internal/config"
	"PriceStation/internal/model"
	"PriceStation/internal/reconciler"
	"PriceStation/internal/station"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

var configPath = flag.String("config", "", "path to the YAML config (default $CONFIG_PATH or "+config.DefaultPath+")")

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(&fetchCmd{}, "data")
	c.Register(&updateCmd{}, "data")
	c.Register(&historyCmd{}, "data")

	c.Register(&showCmd{}, "report")
	c.Register(&statsCmd{}, "report")
	c.Register(&listCmd{}, "report")

	c.Register(&notifyCmd{}, "service")
	c.Register(&daemonCmd{}, "service")
}

func loadConfig() (*config.Config, error) {
	path := *configPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// openStation loads the configuration and assembles the station.
func openStation() (*station.Station, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return station.Open(cfg)
}

// parseDate parses an optional YYYY-MM-DD flag value.
func parseDate(s string) (time.Time, bool, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, false, nil
	}
	t, err := model.ParseDay(s)
	return t, err == nil, err
}

func printOutcome(w io.Writer, out reconciler.Outcome) {
	if len(out.Ranges) == 0 && out.Mode != catalog.SourceDerived && out.RateLimit == nil {
		fmt.Fprintf(w, "✓ %s: local data already complete\n", out.Symbol)
		return
	}
	for _, r := range out.Ranges {
		if r.Err != nil {
			fmt.Fprintf(w, "  ✗ %s: %v\n", r.Range, r.Err)
			continue
		}
		fmt.Fprintf(w, "  ✓ %s: %d rows\n", r.Range, r.Fetched)
	}
	if out.RateLimit != nil {
		fmt.Fprintf(w, "✗ %s: %v\n", out.Symbol, out.RateLimit)
	}
	fmt.Fprintf(w, "%s: %d rows fetched, %d ok, %d failed\n", out.Symbol, out.Fetched, out.Succeeded, out.Failed)
}

func printCoverage(w io.Writer, st *station.Station, code string) {
	series := st.Store.Load(code)
	from, to, ok := series.Coverage()
	if !ok {
		fmt.Fprintf(w, "%s: no local data\n", code)
		return
	}
	fmt.Fprintf(w, "%s: %d rows, %s to %s\n", code, series.Len(), from.Format(model.DateLayout), to.Format(model.DateLayout))
}

// exitStatus maps a run to 0 when every range succeeded and 1 otherwise.
func exitStatus(out reconciler.Outcome) subcommands.ExitStatus {
	if out.OK() {
		return subcommands.ExitSuccess
	}
	return subcommands.ExitFailure
}
