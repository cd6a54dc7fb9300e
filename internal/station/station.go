// Package station wires the store, fetchers, reconciler, alerting and
// notification channels from configuration.
package station

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"PriceStation/internal/alert"
	"PriceStation/internal/catalog"
	"PriceStation/internal/collector"
	"PriceStation/internal/config"
	"PriceStation/internal/crossrate"
	"PriceStation/internal/gaps"
	"PriceStation/internal/model"
	"PriceStation/internal/notifier"
	"PriceStation/internal/ratelimit"
	"PriceStation/internal/reconciler"
	"PriceStation/internal/recorder"
	"PriceStation/internal/store"
)

// Station is the assembled application.
type Station struct {
	Config     *config.Config
	Catalog    *catalog.Catalog
	Store      *store.Store
	Reconciler *reconciler.Reconciler
	Alerts     *alert.Engine
	Notifiers  []notifier.Notifier
	Recorder   recorder.Recorder
	Now        func() time.Time

	limiters map[string]*ratelimit.Limiter
}

// Open builds a Station from cfg. The SQLite journal falls back to a no-op
// recorder when it cannot be opened.
func Open(cfg *config.Config) (*Station, error) {
	slots, err := cfg.SummarySlots()
	if err != nil {
		return nil, err
	}
	st, err := store.New(cfg.DataDir, store.Config{Retention: cfg.Store.Retention, Backup: cfg.Store.Backup})
	if err != nil {
		return nil, err
	}

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	s := &Station{
		Config:   cfg,
		Catalog:  catalog.Default(),
		Store:    st,
		Recorder: rec,
		Now:      time.Now,
		limiters: map[string]*ratelimit.Limiter{
			catalog.SourceBOT:   ratelimit.New(cfg.LimiterState(catalog.SourceBOT), cfg.RateLimit.MinInterval),
			catalog.SourceYahoo: ratelimit.New(cfg.LimiterState(catalog.SourceYahoo), cfg.Yahoo.MinInterval),
		},
	}
	s.Reconciler = reconciler.New(st, rec)
	s.Reconciler.Lookback = cfg.Yahoo.Backfill

	var gold collector.Fetcher = collector.NewGoldFetcher(cfg.Gold.BaseURL, cfg.Proxy)
	var yahoo collector.Fetcher = collector.NewYahooFetcher(cfg.Yahoo.Interval, cfg.Proxy, s.Catalog.Tickers())
	for _, sym := range s.Catalog.All() {
		st.Register(sym.Code, sym.Schema)
		var f collector.Fetcher
		switch sym.Source {
		case catalog.SourceBOT:
			f = gold
		case catalog.SourceYahoo:
			f = yahoo
		default:
			continue
		}
		if cfg.Mock {
			f = &collector.MockFetcher{Schema: sym.Schema}
		}
		s.Reconciler.Register(sym.Code, reconciler.Source{
			Fetcher: f,
			Limiter: s.limiters[sym.Source],
			Gaps:    gaps.Finder{SkipWeekends: sym.SkipWeekends},
		})
	}

	s.Alerts = alert.NewEngine(alert.LoadState(cfg.Alerts.StateFile), alert.StoreQuotes{Store: st, Catalog: s.Catalog})
	s.Alerts.Slots = slots

	if cfg.LineEnabled() {
		s.Notifiers = append(s.Notifiers, notifier.NewLineNotifier(cfg.Line.ChannelAccessToken, cfg.Line.UserID, cfg.Proxy))
	}
	if cfg.TelegramEnabled() {
		s.Notifiers = append(s.Notifiers, notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy))
	}
	return s, nil
}

// Close releases the journal.
func (s *Station) Close() error {
	return s.Recorder.Close()
}

// Limiter returns the rate limiter guarding source.
func (s *Station) Limiter(source string) *ratelimit.Limiter {
	return s.limiters[source]
}

// Fetch reconciles a date range. Derived symbols are recomputed from their inputs.
func (s *Station) Fetch(ctx context.Context, req reconciler.Request) (reconciler.Outcome, error) {
	sym, err := s.Catalog.Lookup(req.Symbol)
	if err != nil {
		return reconciler.Outcome{}, err
	}
	if sym.Derived != nil {
		return s.derive(sym)
	}
	req.Symbol = sym.Code
	return s.Reconciler.Reconcile(ctx, req)
}

// Update brings one symbol up to today.
func (s *Station) Update(ctx context.Context, code string, blocking bool) (reconciler.Outcome, error) {
	sym, err := s.Catalog.Lookup(code)
	if err != nil {
		return reconciler.Outcome{}, err
	}
	if sym.Derived != nil {
		return s.derive(sym)
	}
	return s.Reconciler.Update(ctx, sym.Code, blocking)
}

func (s *Station) derive(sym catalog.Symbol) (reconciler.Outcome, error) {
	out := reconciler.Outcome{Symbol: sym.Code, Mode: catalog.SourceDerived}
	series, err := crossrate.Update(s.Store, *sym.Derived)
	if err != nil {
		out.Failed = 1
		return out, err
	}
	out.Succeeded = 1
	out.Fetched = series.Len()
	return out, nil
}

// UpdateAll updates every catalog symbol, optionally only those whose market
// is open, then recomputes derived series. It keeps going past failures and
// reports them joined. Without blocking a rate-limited source aborts instead
// of waiting.
func (s *Station) UpdateAll(ctx context.Context, onlyOpen, blocking bool) ([]reconciler.Outcome, error) {
	now := s.Now()
	var (
		outcomes []reconciler.Outcome
		errs     []error
		derived  []catalog.Symbol
	)
	for _, sym := range s.Catalog.All() {
		if sym.Derived != nil {
			derived = append(derived, sym)
			continue
		}
		if onlyOpen && !sym.IsOpen(now) {
			log.Printf("[INFO] %s: market closed, skipping", sym.Code)
			continue
		}
		out, err := s.Reconciler.Update(ctx, sym.Code, blocking)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sym.Code, err))
		} else if !out.OK() {
			errs = append(errs, fmt.Errorf("%s: %d failed range(s), aborted=%v", sym.Code, out.Failed, out.Aborted))
		}
		outcomes = append(outcomes, out)
		if ctx.Err() != nil {
			return outcomes, ctx.Err()
		}
	}
	for _, sym := range derived {
		out, err := s.derive(sym)
		if err != nil {
			errs = append(errs, err)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, errors.Join(errs...)
}

// Patrol evaluates alert rules and, when a summary slot is due or force is
// set, the daily summary. The message is returned either way; "" means
// nothing to report. A dry run neither sends nor touches the alert state.
func (s *Station) Patrol(ctx context.Context, force, dryRun bool) (string, error) {
	engine := s.Alerts
	if dryRun {
		scratch := *s.Alerts
		scratch.State = s.Alerts.State.Scratch()
		engine = &scratch
	}
	alerts := engine.Check(s.Config.Alerts.Rules)

	summary := ""
	if force {
		summary = notifier.FormatSummary(engine.Summary(s.Config.Summary.Symbols))
	} else if slot, due := engine.SummaryDue(s.Now()); due {
		log.Printf("[INFO] summary slot %s due", slot)
		summary = notifier.FormatSummary(engine.Summary(s.Config.Summary.Symbols))
	}

	msg := notifier.FormatMessage(summary, alerts)
	if msg == "" {
		log.Println("[INFO] patrol: no abnormal moves and no summary due")
		return "", nil
	}
	if dryRun {
		return msg, nil
	}
	if len(s.Notifiers) == 0 {
		log.Println("[WARN] patrol: no notification channel configured, message not sent")
		return msg, nil
	}

	sendErr := notifier.Broadcast(ctx, s.Notifiers, msg, 3)
	for _, a := range alerts {
		s.recordAlert(&recorder.AlertRecord{
			Symbol: a.Quote.Symbol, AlertType: a.Kind, Price: a.Quote.Price,
			Change: a.ChangePct, Message: notifier.FormatAlert(a), Delivered: sendErr == nil,
		})
	}
	if summary != "" {
		s.recordAlert(&recorder.AlertRecord{AlertType: "summary", Message: summary, Delivered: sendErr == nil})
	}
	return msg, sendErr
}

func (s *Station) recordAlert(rec *recorder.AlertRecord) {
	rec.At = s.Now()
	if err := s.Recorder.RecordAlert(rec); err != nil {
		log.Printf("[ERROR] record alert: %v", err)
	}
}

// Window returns the stored series of code restricted to the lookback r.
func (s *Station) Window(code string, r model.TimeRange) (catalog.Symbol, model.Series, error) {
	sym, err := s.Catalog.Lookup(code)
	if err != nil {
		return catalog.Symbol{}, model.Series{}, err
	}
	return sym, s.Store.Load(sym.Code).Window(r.Since(s.Now())), nil
}

// Cleanup applies the retention collapse to every stored series.
func (s *Station) Cleanup() (int, error) {
	var (
		total int
		errs  []error
	)
	for _, sym := range s.Catalog.All() {
		n, err := s.Store.Cleanup(sym.Code)
		if err != nil {
			errs = append(errs, fmt.Errorf("cleanup %s: %w", sym.Code, err))
			continue
		}
		total += n
	}
	if total > 0 {
		log.Printf("[INFO] cleanup collapsed %d intraday rows", total)
	}
	return total, errors.Join(errs...)
}
