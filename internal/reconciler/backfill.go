package reconciler

import (
	"context"
	"fmt"
	"log"
	"time"

	"PriceStation/internal/ratelimit"
)

// YearResult is the outcome of one backfilled year.
type YearResult struct {
	Year    int
	Outcome Outcome
	Skipped bool
}

// Backfill reconciles whole years from endYear down to startYear. Future years
// are skipped; pace, when set, spaces consecutive years. It stops at the first
// year that was aborted or where every range failed.
func (r *Reconciler) Backfill(ctx context.Context, symbol string, startYear, endYear int, pace *ratelimit.Limiter) ([]YearResult, error) {
	if startYear > endYear {
		return nil, fmt.Errorf("start year %d after end year %d", startYear, endYear)
	}
	thisYear := r.Now().Year()

	var results []YearResult
	for year := endYear; year >= startYear; year-- {
		if year > thisYear {
			log.Printf("[INFO] backfill %s: skipping future year %d", symbol, year)
			results = append(results, YearResult{Year: year, Skipped: true})
			continue
		}
		if pace != nil {
			if err := pace.Wait(ctx); err != nil {
				return results, err
			}
		}

		log.Printf("[INFO] backfill %s: year %d", symbol, year)
		out, err := r.Reconcile(ctx, Request{
			Symbol:   symbol,
			Start:    time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
			End:      time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
			Blocking: true,
			mode:     ModeBackfill,
		})
		if err != nil {
			return results, err
		}
		results = append(results, YearResult{Year: year, Outcome: out})

		if pace != nil && len(out.Ranges) > 0 {
			if err := pace.Record(); err != nil {
				log.Printf("[WARN] backfill %s: %v", symbol, err)
			}
		}
		if out.Aborted || (out.Failed > 0 && out.Succeeded == 0) {
			log.Printf("[ERROR] backfill %s: year %d failed, stopping", symbol, year)
			break
		}
	}
	return results, nil
}
