package crossrate

import (
	"fmt"
	"log"
	"time"

	"PriceStation/internal/model"
	"PriceStation/internal/store"
)

// Pair names a derived series and the two series it divides.
// The derived value is Numerator / Denominator.
type Pair struct {
	Symbol      string
	Denominator string
	Numerator   string
	Field       string
}

// Derive joins a and b on identical timestamps and returns b/a for field.
// Rows where either value is missing or a is zero are skipped.
func Derive(symbol string, a, b model.Series, field string) model.Series {
	out := model.Series{Symbol: symbol, Schema: model.RateSchema}
	if a.Empty() || b.Empty() {
		return out
	}

	byTime := make(map[int64]model.Observation, a.Len())
	for _, o := range a.Observations {
		byTime[o.Time.UnixNano()] = o
	}

	for _, ob := range b.Observations {
		oa, ok := byTime[ob.Time.UnixNano()]
		if !ok {
			continue
		}
		den, ok := oa.Value(field)
		if !ok || den == 0 {
			continue
		}
		num, ok := ob.Value(field)
		if !ok {
			continue
		}
		out.Observations = append(out.Observations, model.Observation{
			Time:       ob.Time,
			Fields:     map[string]float64{model.FieldClose: num / den},
			RecordedAt: later(oa.RecordedAt, ob.RecordedAt),
		})
	}
	model.SortByTime(out.Observations)
	return out
}

func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// Update derives p from the stored inputs and merges the result into st.
func Update(st *store.Store, p Pair) (model.Series, error) {
	field := p.Field
	if field == "" {
		field = model.FieldClose
	}
	derived := Derive(p.Symbol, st.Load(p.Denominator), st.Load(p.Numerator), field)
	if derived.Empty() {
		log.Printf("[WARN] crossrate %s: no overlapping %s/%s data", p.Symbol, p.Numerator, p.Denominator)
		return st.Load(p.Symbol), nil
	}
	merged, err := st.Merge(p.Symbol, derived.Observations)
	if err != nil {
		return model.Series{}, fmt.Errorf("crossrate %s: %w", p.Symbol, err)
	}
	log.Printf("[INFO] crossrate %s: %d derived rows, %d stored", p.Symbol, derived.Len(), merged.Len())
	return merged, nil
}
