// Package reconciler brings a stored series up to date by fetching only what
// is missing, one rate-limited remote call at a time.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"PriceStation/internal/collector"
	"PriceStation/internal/gaps"
	"PriceStation/internal/model"
	"PriceStation/internal/ratelimit"
	"PriceStation/internal/recorder"
	"PriceStation/internal/store"
)

// Mode names recorded in the journal.
const (
	ModeGaps     = "gaps"
	ModeForce    = "force"
	ModeUpdate   = "update"
	ModeBackfill = "backfill"
)

// Request describes one reconciliation.
type Request struct {
	Symbol   string
	Start    time.Time
	End      time.Time
	Force    bool // fetch the whole range instead of only the gaps
	Blocking bool // wait out the rate limit instead of aborting
	mode     string
}

// RangeResult is the fate of one requested range.
type RangeResult struct {
	Range   model.DateRange
	Fetched int
	Err     error
}

// Outcome summarizes a run. Data merged before an abort stays merged.
type Outcome struct {
	RunID     string
	Symbol    string
	Mode      string
	Ranges    []RangeResult
	Fetched   int
	Succeeded int
	Failed    int
	Aborted   bool
	RateLimit *ratelimit.ExceededError
}

// OK reports whether every range was reconciled.
func (o Outcome) OK() bool { return !o.Aborted && o.Failed == 0 }

// Source binds a symbol to the fetcher, limiter and gap policy that serve it.
type Source struct {
	Fetcher collector.Fetcher
	Limiter *ratelimit.Limiter
	Gaps    gaps.Finder
}

// Reconciler drives store, gap finder, limiter and fetchers.
type Reconciler struct {
	Store    *store.Store
	Recorder recorder.Recorder
	Lookback time.Duration // how far Update reaches back on an empty series
	Now      func() time.Time

	sources map[string]Source
}

// New creates a Reconciler. A nil recorder disables the journal.
func New(st *store.Store, rec recorder.Recorder) *Reconciler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Reconciler{
		Store:    st,
		Recorder: rec,
		Lookback: 30 * 24 * time.Hour,
		Now:      time.Now,
		sources:  make(map[string]Source),
	}
}

// Register routes symbol to src.
func (r *Reconciler) Register(symbol string, src Source) {
	r.sources[symbol] = src
}

func (r *Reconciler) today() time.Time { return model.Day(r.Now()) }

// Reconcile fetches the missing (or, with Force, all) days of [Start, End]
// and merges each chunk into the store as soon as it arrives.
func (r *Reconciler) Reconcile(ctx context.Context, req Request) (Outcome, error) {
	src, ok := r.sources[req.Symbol]
	if !ok {
		return Outcome{}, fmt.Errorf("no source registered for %q", req.Symbol)
	}

	out := Outcome{RunID: uuid.NewString(), Symbol: req.Symbol, Mode: req.mode}
	if out.Mode == "" {
		out.Mode = ModeGaps
		if req.Force {
			out.Mode = ModeForce
		}
	}

	start, end := model.Day(req.Start), model.Day(req.End)
	if end.After(r.today()) {
		end = r.today()
	}
	if start.After(end) {
		log.Printf("[INFO] reconcile %s: nothing to do for %s..%s", req.Symbol,
			start.Format(model.DateLayout), end.Format(model.DateLayout))
		return out, nil
	}

	var ranges []model.DateRange
	if req.Force {
		ranges = []model.DateRange{{From: start, To: end}}
	} else {
		ranges = src.Gaps.FindMissing(r.Store.Load(req.Symbol), start, end)
	}
	if len(ranges) == 0 {
		log.Printf("[INFO] reconcile %s: no gaps in %s..%s", req.Symbol,
			start.Format(model.DateLayout), end.Format(model.DateLayout))
		return out, nil
	}

	log.Printf("[INFO] reconcile %s (%s): %d range(s) to fetch", req.Symbol, out.Mode, len(ranges))
	for _, rng := range ranges {
		res, err := r.fetchRange(ctx, src, req, rng)
		out.Ranges = append(out.Ranges, res)
		out.Fetched += res.Fetched

		var exceeded *ratelimit.ExceededError
		switch {
		case errors.As(err, &exceeded):
			log.Printf("[WARN] reconcile %s: %v, aborting remaining ranges", req.Symbol, exceeded)
			out.Aborted = true
			out.RateLimit = exceeded
		case ctx.Err() != nil:
			log.Printf("[WARN] reconcile %s: %v, aborting remaining ranges", req.Symbol, ctx.Err())
			out.Aborted = true
		case err != nil:
			log.Printf("[ERROR] reconcile %s %s: %v", req.Symbol, rng, err)
			out.Failed++
			continue
		default:
			out.Succeeded++
			continue
		}
		break
	}

	r.journal(out, start, end)
	return out, nil
}

// fetchRange walks the fetcher's chunks of rng. Every chunk is one remote call
// and is merged before the next one is requested.
func (r *Reconciler) fetchRange(ctx context.Context, src Source, req Request, rng model.DateRange) (RangeResult, error) {
	res := RangeResult{Range: rng}
	for _, chunk := range collector.Chunks(src.Fetcher, rng) {
		if src.Limiter != nil {
			if err := src.Limiter.Check(ctx, req.Blocking); err != nil {
				res.Err = err
				return res, err
			}
		}
		obs, err := src.Fetcher.FetchRange(ctx, req.Symbol, chunk)
		if src.Limiter != nil {
			if rerr := src.Limiter.Record(); rerr != nil {
				log.Printf("[WARN] reconcile %s: %v", req.Symbol, rerr)
			}
		}
		if err != nil {
			res.Err = fmt.Errorf("fetch %s: %w", chunk, err)
			return res, res.Err
		}
		if len(obs) == 0 {
			continue
		}
		if _, err := r.Store.Merge(req.Symbol, obs); err != nil {
			res.Err = fmt.Errorf("merge %s: %w", chunk, err)
			return res, res.Err
		}
		res.Fetched += len(obs)
	}
	log.Printf("[INFO] reconcile %s %s: %d observation(s)", req.Symbol, rng, res.Fetched)
	return res, nil
}

func (r *Reconciler) journal(out Outcome, start, end time.Time) {
	rec := &recorder.RunRecord{
		RunID:     out.RunID,
		Symbol:    out.Symbol,
		Mode:      out.Mode,
		Start:     start,
		End:       end,
		Ranges:    len(out.Ranges),
		Fetched:   out.Fetched,
		Succeeded: out.Succeeded,
		Failed:    out.Failed,
		Aborted:   out.Aborted,
		At:        r.Now(),
	}
	if out.RateLimit != nil {
		rec.Note = out.RateLimit.Error()
	}
	if err := r.Recorder.RecordRun(rec); err != nil {
		log.Printf("[WARN] journal run %s: %v", out.RunID, err)
	}
}

// Update refetches from the day of the latest stored observation through today.
// An empty series starts Lookback before today.
func (r *Reconciler) Update(ctx context.Context, symbol string, blocking bool) (Outcome, error) {
	today := r.today()
	start := model.Day(today.Add(-r.Lookback))
	if latest, ok := r.Store.Latest(symbol); ok {
		start = model.Day(latest.Time)
	}
	return r.Reconcile(ctx, Request{
		Symbol:   symbol,
		Start:    start,
		End:      today,
		Force:    true,
		Blocking: blocking,
		mode:     ModeUpdate,
	})
}
