package alert

import (
	"log"
	"sort"
	"time"

	"PriceStation/internal/calculator"
	"PriceStation/internal/catalog"
	"PriceStation/internal/model"
	"PriceStation/internal/store"
)

// Quote is the latest and previous price of a symbol.
type Quote struct {
	Symbol  string
	Name    string
	Price   float64
	Prev    float64
	HasPrev bool
	Time    time.Time
	Gold    bool
}

// ChangePercent returns the move from Prev to Price in percent.
func (q Quote) ChangePercent() (float64, bool) {
	if !q.HasPrev {
		return 0, false
	}
	return calculator.ChangePercent(q.Price, q.Prev)
}

// QuoteSource looks up quotes by symbol.
type QuoteSource interface {
	Quote(symbol string) (Quote, bool)
}

// StoreQuotes reads quotes from the series store using each symbol's price field.
type StoreQuotes struct {
	Store   *store.Store
	Catalog *catalog.Catalog
}

func (q StoreQuotes) Quote(symbol string) (Quote, bool) {
	field := model.FieldClose
	name := symbol
	gold := false
	if sym, err := q.Catalog.Lookup(symbol); err == nil {
		symbol, field, name = sym.Code, sym.PriceField, sym.Name
		gold = sym.Source == catalog.SourceBOT
	}
	s := q.Store.Load(symbol)
	latest, ok := s.Latest()
	if !ok {
		return Quote{}, false
	}
	price, ok := latest.Value(field)
	if !ok {
		return Quote{}, false
	}
	out := Quote{Symbol: symbol, Name: name, Price: price, Time: latest.Time, Gold: gold}
	if prev, ok := s.Previous(); ok {
		out.Prev, out.HasPrev = prev.Value(field)
	}
	return out, true
}

// Alert is a fired rule.
type Alert struct {
	Rule      Rule
	Kind      string // TypeFluctuation or TypePriceTarget
	Quote     Quote
	ChangePct float64
}

// Slot is a daily summary time in UTC.
type Slot struct {
	Name   string
	Offset time.Duration // since UTC midnight
}

// DefaultSlots are 02:00, 04:50 and 09:00 UTC.
var DefaultSlots = []Slot{
	{Name: "morning", Offset: 2 * time.Hour},
	{Name: "noon", Offset: 4*time.Hour + 50*time.Minute},
	{Name: "afternoon", Offset: 9 * time.Hour},
}

// Engine evaluates rules against the store and remembers what it notified.
type Engine struct {
	State  *State
	Quotes QuoteSource
	Slots  []Slot
}

// NewEngine creates an engine with the default summary slots.
func NewEngine(state *State, quotes QuoteSource) *Engine {
	return &Engine{State: state, Quotes: quotes, Slots: DefaultSlots}
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// Check evaluates rules. A rule whose symbol lacks two prices is skipped, and
// a rule already notified for the latest observation stays silent. Any rule
// flags an abnormal move; price_target rules also fire at or beyond target.
func (e *Engine) Check(rules []Rule) []Alert {
	var fired []Alert
	for _, r := range rules {
		q, ok := e.Quotes.Quote(r.Symbol)
		if !ok || !q.HasPrev || q.Prev == 0 || q.Price == 0 {
			continue
		}
		key := r.StateKey()
		if e.State.Get(key) == stamp(q.Time) {
			continue
		}

		change, _ := q.ChangePercent()
		triggered := false
		if abs(change) >= r.Threshold() {
			fired = append(fired, Alert{Rule: r, Kind: TypeFluctuation, Quote: q, ChangePct: change})
			triggered = true
		}
		if r.Kind() == TypePriceTarget && r.TargetPrice > 0 {
			hit := (r.Direction == "above" && q.Price >= r.TargetPrice) ||
				(r.Direction == "below" && q.Price <= r.TargetPrice)
			if hit {
				fired = append(fired, Alert{Rule: r, Kind: TypePriceTarget, Quote: q, ChangePct: change})
				triggered = true
			}
		}

		if triggered {
			if err := e.State.Set(key, stamp(q.Time)); err != nil {
				log.Printf("[WARN] %v", err)
			}
		}
	}
	return fired
}

// SummaryDue reports whether a summary should go out now. It takes the latest
// slot already passed today that hasn't been sent and marks it, together with
// any earlier unsent slot, as sent.
func (e *Engine) SummaryDue(now time.Time) (string, bool) {
	now = now.UTC()
	today := now.Format(model.DateLayout)
	midnight := model.Day(now)

	slots := append([]Slot(nil), e.Slots...)
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Offset < slots[j].Offset })

	due := ""
	var pending []string
	for _, s := range slots {
		if now.Before(midnight.Add(s.Offset)) {
			continue
		}
		key := "summary_sent_" + s.Name
		if e.State.Get(key) == today {
			due = ""
			pending = pending[:0]
			continue
		}
		due = s.Name
		pending = append(pending, key)
	}
	if due == "" {
		return "", false
	}
	for _, key := range pending {
		if err := e.State.Set(key, today); err != nil {
			log.Printf("[WARN] %v", err)
		}
	}
	return due, true
}

// Summary returns the latest quote of each symbol that has data.
func (e *Engine) Summary(symbols []string) []Quote {
	out := make([]Quote, 0, len(symbols))
	for _, sym := range symbols {
		if q, ok := e.Quotes.Quote(sym); ok {
			out = append(out, q)
		}
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
