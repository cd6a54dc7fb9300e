package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"PriceStation/internal/model"
)

// DefaultYahooBaseURL is the public chart API host.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	BaseURL   string
	Interval  string // "1d", "1h", "15m"...
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
	Now       func() time.Time
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(interval, proxyURL string, symbols map[string]string) *YahooFetcher {
	if interval == "" {
		interval = "1d"
	}
	return &YahooFetcher{
		BaseURL:   DefaultYahooBaseURL,
		Interval:  interval,
		Client:    newHTTPClient(proxyURL),
		SymbolMap: symbols,
		Now:       time.Now,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

func (f *YahooFetcher) daily() bool {
	return strings.HasSuffix(f.Interval, "d") || strings.HasSuffix(f.Interval, "wk") || strings.HasSuffix(f.Interval, "mo")
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				GMTOffset int64 `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func valueAt(vs []*float64, i int) float64 {
	if i >= len(vs) || vs[i] == nil {
		return math.NaN()
	}
	return *vs[i]
}

// FetchRange requests [r.From, r.To] in one call. Null bars come back with NaN
// fields and are dropped when merged into the store.
func (f *YahooFetcher) FetchRange(ctx context.Context, symbol string, r model.DateRange) ([]model.Observation, error) {
	period1 := model.Day(r.From).Unix()
	period2 := model.Day(r.To).AddDate(0, 0, 1).Unix()
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&period1=%d&period2=%d",
		strings.TrimRight(f.BaseURL, "/"), url.PathEscape(f.yahooSymbol(symbol)), url.QueryEscape(f.Interval), period1, period2)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, &NetworkError{Source: f.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Source: f.Name(), Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{Source: f.Name(), Err: fmt.Errorf("status %d, body: %s", resp.StatusCode, truncate(string(body), 200))}
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, &ParseError{Source: f.Name(), Err: err}
	}
	if chart.Chart.Error != nil {
		return nil, &ParseError{Source: f.Name(), Err: fmt.Errorf("api error: %s", chart.Chart.Error.Description)}
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	recordedAt := f.Now().UTC()
	obs := make([]model.Observation, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		t := time.Unix(ts, 0).UTC()
		if f.daily() {
			// Daily bars are stamped at the exchange's session open; key them by its local day.
			t = model.Day(time.Unix(ts+result.Meta.GMTOffset, 0))
		}
		if !r.Contains(t) {
			continue
		}
		obs = append(obs, model.Observation{
			Time: t,
			Fields: map[string]float64{
				model.FieldOpen:   valueAt(quote.Open, i),
				model.FieldHigh:   valueAt(quote.High, i),
				model.FieldLow:    valueAt(quote.Low, i),
				model.FieldClose:  valueAt(quote.Close, i),
				model.FieldVolume: valueAt(quote.Volume, i),
			},
			RecordedAt: recordedAt,
		})
	}

	model.SortByTime(obs)
	return obs, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
