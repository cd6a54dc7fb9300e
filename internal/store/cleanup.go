package store

import (
	"time"

	"PriceStation/internal/model"
)

// Dedupe keeps one observation per timestamp. The newest RecordedAt wins;
// when RecordedAt ties or is missing the later observation in obs wins.
// The result is sorted ascending by time.
func Dedupe(obs []model.Observation) []model.Observation {
	index := make(map[int64]int, len(obs))
	out := make([]model.Observation, 0, len(obs))
	for _, o := range obs {
		key := o.Time.UnixNano()
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, o)
			continue
		}
		if supersedes(o, out[i]) {
			out[i] = o
		}
	}
	model.SortByTime(out)
	return out
}

func supersedes(cand, kept model.Observation) bool {
	if cand.RecordedAt.IsZero() || kept.RecordedAt.IsZero() {
		return true
	}
	return !cand.RecordedAt.Before(kept.RecordedAt)
}

// Collapse reduces observations older than cutoff to the last one of each UTC
// calendar day. Observations at or after cutoff are kept as they are.
// obs must be sorted ascending by time.
func Collapse(obs []model.Observation, cutoff time.Time) []model.Observation {
	if cutoff.IsZero() || len(obs) == 0 {
		return obs
	}
	out := make([]model.Observation, 0, len(obs))
	for i, o := range obs {
		if !o.Time.Before(cutoff) {
			out = append(out, o)
			continue
		}
		next := i + 1
		if next < len(obs) && obs[next].Time.Before(cutoff) && model.Day(obs[next].Time).Equal(model.Day(o.Time)) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// filterComplete drops observations missing a required field.
func filterComplete(schema model.Schema, obs []model.Observation) (kept []model.Observation, dropped int) {
	kept = make([]model.Observation, 0, len(obs))
	for _, o := range obs {
		if !schema.Complete(o) {
			dropped++
			continue
		}
		kept = append(kept, o)
	}
	return kept, dropped
}
