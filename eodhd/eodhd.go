// Package eodhd fetches historical prices from eodhd.com and turns them into price frames
// ready to backtest.
package eodhd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/date"
	"golang.org/x/sync/errgroup"
)

// APIKeyEnv is the environment variable holding the API key.
const APIKeyEnv = "EODHD_API_KEY"

// DefaultBaseURL is the root of the eodhd.com API.
const DefaultBaseURL = "https://eodhd.com/api"

// ErrNoPrices is returned when the requested tickers have no trading day in common.
var ErrNoPrices = errors.New("no common trading day")

// Client queries the eodhd.com API.
type Client struct {
	Key     string
	BaseURL string       // defaults to DefaultBaseURL
	HTTP    *http.Client // defaults to a client caching responses for the day
}

// NewClient returns a client using key, caching responses in cacheDir for the day.
func NewClient(key, cacheDir string) *Client {
	return &Client{Key: key, BaseURL: DefaultBaseURL, HTTP: NewCachingClient(cacheDir)}
}

// Bar is a daily price of a ticker.
type Bar struct {
	Date  date.Date `json:"date"`
	Open  float64   `json:"open"`
	Close float64   `json:"adjusted_close"` // close adjusted for splits and dividends
}

// Daily returns the daily bars of ticker (e.g. "SPY.US") between from and to, both
// included.
func (c *Client) Daily(ctx context.Context, ticker string, from, to date.Date) ([]Bar, error) {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	q := url.Values{}
	q.Set("fmt", "json")
	q.Set("api_token", c.Key)
	q.Set("from", from.String())
	q.Set("to", to.String())
	addr := fmt.Sprintf("%s/eod/%s?%s", base, url.PathEscape(ticker), q.Encode())

	var bars []Bar
	if err := c.jwget(ctx, addr, &bars); err != nil {
		return nil, fmt.Errorf("daily prices of %s: %w", ticker, err)
	}
	slices.SortFunc(bars, func(a, b Bar) int { return a.Date.Compare(b.Date) })
	return bars, nil
}

// Prices fetches the adjusted close of every ticker, at most limit at once, and returns
// them as a price frame with one column per ticker. Only the days when every ticker
// traded are kept.
func (c *Client) Prices(ctx context.Context, from, to date.Date, limit int, tickers ...string) (*backtest.Frame, error) {
	if len(tickers) == 0 {
		return nil, errors.New("no ticker")
	}
	bars := make([][]Bar, len(tickers))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, ticker := range tickers {
		g.Go(func() (err error) {
			bars[i], err = c.Daily(ctx, ticker, from, to)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return align(tickers, bars)
}

// align joins bars on the days present in all of them.
func align(tickers []string, bars [][]Bar) (*backtest.Frame, error) {
	count := make(map[date.Date]int)
	closes := make([]map[date.Date]float64, len(bars))
	for i, list := range bars {
		closes[i] = make(map[date.Date]float64, len(list))
		for _, b := range list {
			if _, dup := closes[i][b.Date]; dup {
				continue
			}
			closes[i][b.Date] = b.Close
			count[b.Date]++
		}
	}
	var days []date.Date
	for day, n := range count {
		if n == len(bars) {
			days = append(days, day)
		}
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("%w between %v", ErrNoPrices, tickers)
	}
	slices.SortFunc(days, date.Date.Compare)

	series := make(map[string][]float64, len(tickers))
	for i, ticker := range tickers {
		col := make([]float64, len(days))
		for j, day := range days {
			col[j] = closes[i][day]
		}
		series[ticker] = col
	}
	return backtest.FromSeries(days, series)
}

// jwget performs an HTTP GET request and decodes the JSON response into data.
func (c *Client) jwget(ctx context.Context, addr string, data any) error {
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot http GET %v%v: %v", req.URL.Host, req.URL.Path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(data)
}
