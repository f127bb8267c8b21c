// Package stock is the Alpha Vantage client behind the finance panel:
// symbol suggestions for a keyword and the 5-minute intraday series for a
// chosen symbol.
package stock

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/pulse-dashboard/internal/provider"
)

// DefaultBaseURL is the public Alpha Vantage root.
const DefaultBaseURL = "https://www.alphavantage.co"

// Interval is the only intraday resolution the panel charts.
const Interval = "5min"

const (
	seriesKey       = "Time Series (" + Interval + ")"
	timestampLayout = "2006-01-02 15:04:05"
)

// Alpha Vantage reports an exhausted free tier with HTTP 200 and an
// "Information" (older accounts: "Note") field mentioning the product name.
var quotaMatcher = provider.MustMatcher(
	"contains(Information || '', 'Alpha Vantage') || contains(Note || '', 'Alpha Vantage')",
	"Information || Note",
)

// Match is one symbol suggestion.
type Match struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Region   string `json:"region"`
	Currency string `json:"currency"`
}

// Key identifies a suggestion for selection.
func Key(m Match) string {
	return m.Symbol
}

// Point is one bar of the intraday series.
// A line chart plots Open; a candlestick uses all four prices.
type Point struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Series is the detail shown for a selected symbol.
type Series struct {
	Symbol   string  `json:"symbol"`
	Interval string  `json:"interval"`
	TimeZone string  `json:"timeZone"`
	Points   []Point `json:"points"` // ascending by time
}

// Client talks to Alpha Vantage.
type Client struct {
	fetcher *provider.Fetcher
	baseURL string
	apiKey  string
}

// NewClient creates a client. An empty baseURL means DefaultBaseURL.
func NewClient(f *provider.Fetcher, baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{fetcher: f, baseURL: baseURL, apiKey: apiKey}
}

// Search returns symbol suggestions. An empty (or blank) keyword yields an
// empty result without calling the provider. Alpha Vantage does not page
// suggestions, so page is ignored.
func (c *Client) Search(ctx context.Context, keywords string, _ int) provider.Outcome[provider.ResultSet[Match]] {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return provider.OK(provider.ResultSet[Match]{})
	}

	u, err := c.query(url.Values{"function": {"SYMBOL_SEARCH"}, "keywords": {keywords}})
	if err != nil {
		return provider.Transport[provider.ResultSet[Match]](err)
	}

	o := provider.GetJSON[symbolSearch](ctx, c.fetcher, u, nil, quotaMatcher)
	if !o.Ok() {
		return provider.Retag[symbolSearch, provider.ResultSet[Match]](o)
	}
	rs, err := mapMatches(o.Value)
	if err != nil {
		return provider.Malformed[provider.ResultSet[Match]](err)
	}
	return provider.OK(rs)
}

// Intraday loads the 5-minute series for symbol.
func (c *Client) Intraday(ctx context.Context, symbol string) provider.Outcome[Series] {
	u, err := c.query(url.Values{
		"function": {"TIME_SERIES_INTRADAY"},
		"symbol":   {symbol},
		"interval": {Interval},
	})
	if err != nil {
		return provider.Transport[Series](err)
	}

	o := provider.GetJSON[intraday](ctx, c.fetcher, u, nil, quotaMatcher)
	if !o.Ok() {
		return provider.Retag[intraday, Series](o)
	}
	s, err := mapSeries(symbol, o.Value)
	if err != nil {
		return provider.Malformed[Series](err)
	}
	return provider.OK(s)
}

// Detail adapts Intraday to the panel's detail loader.
func (c *Client) Detail(ctx context.Context, m Match) provider.Outcome[Series] {
	return c.Intraday(ctx, m.Symbol)
}

func (c *Client) query(q url.Values) (*url.URL, error) {
	q.Set("apikey", c.apiKey)
	return provider.Endpoint(c.baseURL, "query", q)
}

type symbolSearch struct {
	BestMatches []map[string]string `json:"bestMatches"`
	Error       string              `json:"Error Message"`
}

type intraday struct {
	Meta   map[string]string            `json:"Meta Data"`
	Series map[string]map[string]string `json:"Time Series (5min)"`
	Error  string                       `json:"Error Message"`
}

func mapMatches(s symbolSearch) (provider.ResultSet[Match], error) {
	if s.BestMatches == nil {
		if s.Error != "" {
			return provider.ResultSet[Match]{}, fmt.Errorf("stock: %s", s.Error)
		}
		return provider.ResultSet[Match]{}, fmt.Errorf("stock: response has no bestMatches")
	}
	items := make([]Match, 0, len(s.BestMatches))
	for _, m := range s.BestMatches {
		if m["1. symbol"] == "" {
			continue
		}
		items = append(items, Match{
			Symbol:   m["1. symbol"],
			Name:     m["2. name"],
			Type:     m["3. type"],
			Region:   m["4. region"],
			Currency: m["8. currency"],
		})
	}
	return provider.ResultSet[Match]{Items: items, Total: len(items)}, nil
}

// mapSeries converts the keyed object into ascending points. Timestamps are
// in the zone named by the metadata (US/Eastern in practice).
func mapSeries(symbol string, raw intraday) (Series, error) {
	if raw.Series == nil {
		if raw.Error != "" {
			return Series{}, fmt.Errorf("stock: %s", raw.Error)
		}
		return Series{}, fmt.Errorf("stock: response has no %q", seriesKey)
	}

	tz := raw.Meta["6. Time Zone"]
	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	points := make([]Point, 0, len(raw.Series))
	for stamp, bar := range raw.Series {
		p, err := parsePoint(stamp, bar, loc)
		if err != nil {
			return Series{}, err
		}
		points = append(points, p)
	}
	slices.SortFunc(points, func(a, b Point) int {
		return a.Time.Compare(b.Time)
	})

	if sym := raw.Meta["2. Symbol"]; sym != "" {
		symbol = sym
	}
	return Series{Symbol: symbol, Interval: Interval, TimeZone: tz, Points: points}, nil
}

func parsePoint(stamp string, bar map[string]string, loc *time.Location) (Point, error) {
	t, err := time.ParseInLocation(timestampLayout, stamp, loc)
	if err != nil {
		return Point{}, fmt.Errorf("stock: bad timestamp %q: %w", stamp, err)
	}
	p := Point{Time: t}
	for field, dst := range map[string]*float64{
		"1. open":  &p.Open,
		"2. high":  &p.High,
		"3. low":   &p.Low,
		"4. close": &p.Close,
	} {
		v, err := strconv.ParseFloat(bar[field], 64)
		if err != nil {
			return Point{}, fmt.Errorf("stock: bad %s at %s: %w", field, stamp, err)
		}
		*dst = v
	}
	if vol := bar["5. volume"]; vol != "" {
		n, err := strconv.ParseInt(vol, 10, 64)
		if err != nil {
			return Point{}, fmt.Errorf("stock: bad volume at %s: %w", stamp, err)
		}
		p.Volume = n
	}
	return p, nil
}
