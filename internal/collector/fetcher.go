package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"PriceStation/internal/model"
)

// Fetcher retrieves observations for a symbol over a range of days.
type Fetcher interface {
	Name() string
	FetchRange(ctx context.Context, symbol string, r model.DateRange) ([]model.Observation, error)
}

// Chunker is implemented by fetchers whose upstream answers one slice of a
// range per request. Each chunk costs exactly one remote call.
type Chunker interface {
	Chunks(r model.DateRange) []model.DateRange
}

// Chunks splits r the way f requests it. Fetchers without a Chunker take r whole.
func Chunks(f Fetcher, r model.DateRange) []model.DateRange {
	if c, ok := f.(Chunker); ok {
		return c.Chunks(r)
	}
	return []model.DateRange{r}
}

// NetworkError is a transport or HTTP status failure talking to an upstream.
type NetworkError struct {
	Source string
	Err    error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: network: %v", e.Source, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError is an upstream response that could not be understood.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string { return fmt.Sprintf("%s: parse: %v", e.Source, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

// MonthChunks splits r on calendar month boundaries.
func MonthChunks(r model.DateRange) []model.DateRange {
	if r.Days() == 0 {
		return nil
	}
	var out []model.DateRange
	from := model.Day(r.From)
	to := model.Day(r.To)
	for !from.After(to) {
		monthEnd := time.Date(from.Year(), from.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
		if monthEnd.After(to) {
			monthEnd = to
		}
		out = append(out, model.DateRange{From: from, To: monthEnd})
		from = monthEnd.AddDate(0, 0, 1)
	}
	return out
}
