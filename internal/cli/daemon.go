package cli

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"

	"PriceStation/internal/notifier"
	"PriceStation/internal/scheduler"
)

type daemonCmd struct{}

func (*daemonCmd) Name() string     { return "daemon" }
func (*daemonCmd) Synopsis() string { return "run the polling and daily update schedule" }
func (*daemonCmd) Usage() string {
	return `daemon

  Polls open markets and checks alerts on schedule.poll_cron, updates every
  symbol on schedule.daily_cron and, with telegram.polling, answers chat
  commands. Set RUN_ON_START=true to poll once at startup.
`
}

func (*daemonCmd) SetFlags(*flag.FlagSet) {}

func (*daemonCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	st, err := openStation()
	if err != nil {
		fmt.Fprintf(stderr, "open station: %v\n", err)
		return subcommands.ExitFailure
	}
	defer st.Close()
	cfg := st.Config

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.NewScheduler(ctx, st, scheduler.NewDailyMarker(cfg.DailyMarker()))
	if err := sched.RegisterAll(cfg.Schedule.PollCron, cfg.Schedule.DailyCron); err != nil {
		fmt.Fprintf(stderr, "register cron tasks: %v\n", err)
		return subcommands.ExitFailure
	}
	sched.Start()
	defer sched.Stop()

	if cfg.Telegram.Polling && cfg.TelegramEnabled() {
		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}
	if len(st.Notifiers) == 0 {
		log.Println("[WARN] no notification channel configured, alerts will only be logged")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing poll task now")
		go sched.RunPollNow()
	}

	log.Println("[INFO] PriceStation is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Println("[INFO] shutdown signal received, stopping...")
	case <-ctx.Done():
	}
	cancel()
	return subcommands.ExitSuccess
}
