package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type notifyCmd struct {
	test bool
}

func (*notifyCmd) Name() string     { return "notify" }
func (*notifyCmd) Synopsis() string { return "send the market summary and any triggered alerts" }
func (*notifyCmd) Usage() string {
	return `notify [-test]

  Builds the daily summary plus triggered alerts and sends it to every
  configured channel. -test prints the message without sending it.
`
}

func (c *notifyCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.test, "test", false, "print the message instead of sending it")
}

func (c *notifyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	st, err := openStation()
	if err != nil {
		fmt.Fprintf(stderr, "open station: %v\n", err)
		return subcommands.ExitFailure
	}
	defer st.Close()

	msg, err := st.Patrol(ctx, true, c.test)
	if msg != "" {
		fmt.Fprintln(stdout, msg)
	}
	if err != nil {
		fmt.Fprintf(stderr, "notify: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
