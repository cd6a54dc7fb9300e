package catalog

import (
	"fmt"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	"PriceStation/internal/crossrate"
	"PriceStation/internal/model"
)

// Upstream names.
const (
	SourceBOT     = "bot"
	SourceYahoo   = "yahoo"
	SourceDerived = "derived"
)

// Session is a weekday trading window in a market's local time, end inclusive.
type Session struct {
	Location    *time.Location
	Open, Close time.Duration // offsets from local midnight
}

// Contains reports whether t falls inside the session.
func (s Session) Contains(t time.Time) bool {
	local := t.In(s.Location)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	y, m, d := local.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, s.Location)
	offset := local.Sub(midnight)
	return offset >= s.Open && offset <= s.Close
}

// Symbol describes one tracked series.
type Symbol struct {
	Code         string
	Name         string
	Ticker       string // upstream ticker, empty for BOT and derived series
	Source       string
	Schema       model.Schema
	PriceField   string
	SkipWeekends bool
	Session      *Session // nil trades around the clock
	Derived      *crossrate.Pair
}

// IsOpen reports whether the symbol's market is trading at now.
func (s Symbol) IsOpen(now time.Time) bool {
	if s.Session == nil {
		return true
	}
	return s.Session.Contains(now)
}

// Catalog is the set of known symbols.
type Catalog struct {
	symbols map[string]Symbol
	order   []string
}

func hm(h, m int) time.Duration { return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute }

// Default returns the built-in symbols.
func Default() *Catalog {
	taipei, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		taipei = time.FixedZone("CST", 8*3600)
	}
	twStocks := &Session{Location: taipei, Open: hm(9, 0), Close: hm(13, 35)}
	botGold := &Session{Location: taipei, Open: hm(9, 0), Close: hm(15, 35)}

	// weekdays marks symbols Yahoo publishes no weekend bars for.
	market := func(code, name, ticker string, weekdays bool, session *Session) Symbol {
		return Symbol{
			Code: code, Name: name, Ticker: ticker, Source: SourceYahoo,
			Schema: model.MarketSchema, PriceField: model.FieldClose,
			SkipWeekends: weekdays, Session: session,
		}
	}

	c := New()
	c.Add(Symbol{
		Code: "Gold", Name: "黃金存摺 (BOT)", Source: SourceBOT,
		Schema: model.GoldSchema, PriceField: model.FieldSell,
		SkipWeekends: true, Session: botGold,
	})
	c.Add(market("USDTWD", "USD vs NTD (TWD)", "TWD=X", true, nil))
	c.Add(market("USDVND", "USD vs VND", "VND=X", true, nil))
	c.Add(market("BTC", "Bitcoin (BTC) vs USD", "BTC-USD", false, nil))
	c.Add(market("TSMC", "TSMC (2330)", "2330.TW", true, twStocks))
	c.Add(market("UMC", "UMC (2303)", "2303.TW", true, twStocks))
	c.Add(market("Creative", "Creative (3443)", "3443.TW", true, twStocks))
	c.Add(market("IntlGold", "Intl Gold (USD/oz)", "GC=F", true, nil))
	c.Add(Symbol{
		Code: "NTDVND", Name: "NTD vs VND (Cross Rate)", Source: SourceDerived,
		Schema: model.RateSchema, PriceField: model.FieldClose,
		Derived: &crossrate.Pair{Symbol: "NTDVND", Denominator: "USDTWD", Numerator: "USDVND", Field: model.FieldClose},
	})
	return c
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{symbols: make(map[string]Symbol)}
}

// Add registers or replaces a symbol.
func (c *Catalog) Add(s Symbol) {
	if _, ok := c.symbols[s.Code]; !ok {
		c.order = append(c.order, s.Code)
	}
	c.symbols[s.Code] = s
}

// Lookup finds a symbol by code, case-insensitively.
func (c *Catalog) Lookup(code string) (Symbol, error) {
	if s, ok := c.symbols[code]; ok {
		return s, nil
	}
	for _, k := range c.order {
		if strings.EqualFold(k, code) {
			return c.symbols[k], nil
		}
	}
	known := append([]string(nil), c.order...)
	sort.Strings(known)
	return Symbol{}, fmt.Errorf("unknown symbol %q (known: %s)", code, strings.Join(known, ", "))
}

// All returns the symbols in registration order.
func (c *Catalog) All() []Symbol {
	out := make([]Symbol, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.symbols[k])
	}
	return out
}

// BySource returns the symbols served by source.
func (c *Catalog) BySource(source string) []Symbol {
	var out []Symbol
	for _, s := range c.All() {
		if s.Source == source {
			out = append(out, s)
		}
	}
	return out
}

// Tickers maps symbol codes to upstream tickers.
func (c *Catalog) Tickers() map[string]string {
	m := make(map[string]string)
	for _, s := range c.All() {
		if s.Ticker != "" {
			m[s.Code] = s.Ticker
		}
	}
	return m
}
