package collector

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"PriceStation/internal/model"
)

// DefaultGoldBaseURL is the Bank of Taiwan rate site.
const DefaultGoldBaseURL = "https://rate.bot.com.tw"

// GoldFetcher scrapes the Bank of Taiwan passbook gold price table, one month per request.
type GoldFetcher struct {
	BaseURL string
	Client  *http.Client
	Now     func() time.Time
}

// NewGoldFetcher creates a gold fetcher with optional proxy support.
func NewGoldFetcher(baseURL, proxyURL string) *GoldFetcher {
	if baseURL == "" {
		baseURL = DefaultGoldBaseURL
	}
	return &GoldFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  newHTTPClient(proxyURL),
		Now:     time.Now,
	}
}

func (f *GoldFetcher) Name() string { return "bot-gold" }

// Chunks implements Chunker: the upstream serves a calendar month per query.
func (f *GoldFetcher) Chunks(r model.DateRange) []model.DateRange { return MonthChunks(r) }

// FetchRange queries every month touched by r and keeps the rows inside r.
func (f *GoldFetcher) FetchRange(ctx context.Context, _ string, r model.DateRange) ([]model.Observation, error) {
	var out []model.Observation
	for _, chunk := range MonthChunks(r) {
		obs, err := f.fetchMonth(ctx, chunk.From.Year(), int(chunk.From.Month()))
		if err != nil {
			return out, err
		}
		for _, o := range obs {
			if r.Contains(o.Time) {
				out = append(out, o)
			}
		}
	}
	model.SortByTime(out)
	return out, nil
}

func (f *GoldFetcher) fetchMonth(ctx context.Context, year, month int) ([]model.Observation, error) {
	form := url.Values{
		"search_range": {"date"},
		"year":         {fmt.Sprintf("%d", year)},
		"month":        {fmt.Sprintf("%02d", month)},
		"currency":     {"TWD"},
		"search_hours": {"0"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.BaseURL+"/gold/chart", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Referer", f.BaseURL+"/gold/passbook")

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
		return nil, &NetworkError{Source: f.Name(), Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	obs, err := parseGoldTable(string(body), f.Now().UTC())
	if err != nil {
		return nil, &ParseError{Source: f.Name(), Err: fmt.Errorf("%d/%02d: %w", year, month, err)}
	}
	if obs == nil {
		log.Printf("[WARN] bot-gold: no price table for %d/%02d", year, month)
	}
	return obs, nil
}

// parseGoldTable reads the rows of the first table.table. Columns 0, 3 and 4
// hold the date, the bank's buy price and its sell price. A page without the
// table yields no observations. Rows without a usable price are skipped; a
// table where every dated row is unusable is an error.
func parseGoldTable(page string, recordedAt time.Time) ([]model.Observation, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, err
	}
	table := findNode(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Table && hasClass(n, "table")
	})
	if table == nil {
		return nil, nil
	}
	tbody := findNode(table, func(n *html.Node) bool { return n.DataAtom == atom.Tbody })
	if tbody == nil {
		log.Println("[WARN] bot-gold: price table has no rows")
		return nil, nil
	}

	obs := []model.Observation{}
	bad := 0
	for tr := tbody.FirstChild; tr != nil; tr = tr.NextSibling {
		if tr.DataAtom != atom.Tr {
			continue
		}
		cells := cellTexts(tr)
		if len(cells) < 5 {
			continue
		}
		day, err := time.ParseInLocation("2006/01/02", cells[0], time.UTC)
		if err != nil {
			continue
		}
		buy, berr := parsePrice(cells[3])
		sell, serr := parsePrice(cells[4])
		if berr != nil || serr != nil {
			log.Printf("[WARN] bot-gold: row %s has no price (%q, %q), skipped", cells[0], cells[3], cells[4])
			bad++
			continue
		}
		obs = append(obs, model.Observation{
			Time:       day,
			Fields:     map[string]float64{model.FieldBuy: buy, model.FieldSell: sell},
			RecordedAt: recordedAt,
		})
	}
	if len(obs) == 0 && bad > 0 {
		return nil, fmt.Errorf("none of %d dated rows carries a price", bad)
	}
	return obs, nil
}

func parsePrice(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func cellTexts(tr *html.Node) []string {
	var cells []string
	for td := tr.FirstChild; td != nil; td = td.NextSibling {
		if td.DataAtom == atom.Td || td.DataAtom == atom.Th {
			cells = append(cells, strings.TrimSpace(textContent(td)))
		}
	}
	return cells
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}
