package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/date"
	"github.com/etnz/backtest/eodhd"
	"github.com/google/subcommands"
)

type fetchCmd struct {
	apiKey   string
	baseURL  string
	cache    string
	from     string
	to       string
	output   string
	parallel int
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "download historical prices from eodhd.com" }
func (*fetchCmd) Usage() string {
	return `fetch [-from <date>] [-to <date>] [-o <file>] <ticker>...

  Downloads the daily adjusted close of tickers (e.g. SPY.US, TLT.US) from eodhd.com
  into a price file. Only the days when every ticker traded are kept, so the file can
  be backtested as is.

  Requires an API key, passed with -eodhd-api-key or the ` + eodhd.APIKeyEnv + ` environment
  variable. Responses are cached for the day.

`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.apiKey, "eodhd-api-key", "", "EODHD API key, takes precedence over the "+eodhd.APIKeyEnv+" environment variable. You can get one at https://eodhd.com/")
	f.StringVar(&c.baseURL, "eodhd-url", eodhd.DefaultBaseURL, "root of the EODHD API")
	f.StringVar(&c.cache, "cache", "", "directory of the response cache (default system temporary directory)")
	f.StringVar(&c.from, "from", date.Today().Add(-365).String(), "first day to fetch")
	f.StringVar(&c.to, "to", date.Today().String(), "last day to fetch")
	f.StringVar(&c.output, "o", "prices.csv", "price file to write (.csv or .jsonl)")
	f.IntVar(&c.parallel, "parallel", 4, "maximum number of requests at once")
}

func (c *fetchCmd) key() string {
	if c.apiKey == "" {
		c.apiKey = os.Getenv(eodhd.APIKeyEnv)
	}
	return c.apiKey
}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		return usagef("fetch takes at least one ticker")
	}
	key := c.key()
	if key == "" {
		return usagef("EODHD API key is not set. Use -eodhd-api-key flag or %s environment variable", eodhd.APIKeyEnv)
	}
	from, err := date.Parse(c.from)
	if err != nil {
		return usagef("invalid -from: %v", err)
	}
	to, err := date.Parse(c.to)
	if err != nil {
		return usagef("invalid -to: %v", err)
	}
	if to.Before(from) {
		return usagef("-to %s is before -from %s", to, from)
	}

	client := eodhd.NewClient(key, c.cache)
	client.BaseURL = c.baseURL
	prices, err := client.Prices(ctx, from, to, c.parallel, f.Args()...)
	if err != nil {
		return failf("could not fetch from eodhd.com: %v", err)
	}
	if err := writeFrame(c.output, prices); err != nil {
		return failf("%v", err)
	}
	fmt.Printf("%d days of %s written to %s\n", prices.Len(), strings.Join(prices.Columns(), ", "), c.output)
	return subcommands.ExitSuccess
}

// writeFrame writes f into a .csv or .jsonl file.
func writeFrame(name string, f *backtest.Frame) error {
	encode := backtest.EncodeFrameCSV
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv":
	case ".jsonl":
		encode = backtest.EncodeFrameJSONL
	default:
		return fmt.Errorf("unsupported price file extension %q", ext)
	}
	out, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := encode(out, f); err != nil {
		out.Close()
		return fmt.Errorf("writing %q: %w", name, err)
	}
	return out.Close()
}
