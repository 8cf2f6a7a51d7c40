package cmd

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/strategy"
)

// Config describes a backtest. It is read from a JSON file and completed by flags.
//
//	{
//	  "prices": "prices.csv",
//	  "balance": 10000,
//	  "weights": {"SPY": 0.6, "TLT": 0.4},
//	  "strategy": {"name": "rebalance", "every": "quarterly", "weights": {"SPY": 0.6, "TLT": 0.4}}
//	}
type Config struct {
	Prices   string           `json:"prices"`             // price file: .csv, .jsonl or .json
	Data     string           `json:"data,omitempty"`     // feature file passed to the strategy, defaults to prices
	JSONPath string           `json:"jsonpath,omitempty"` // selects rows in .json files
	Balance  float64          `json:"balance"`
	Currency string           `json:"currency,omitempty"`
	Weights  backtest.Weights `json:"weights,omitempty"` // initial allocation, cash if empty
	Start    int              `json:"start,omitempty"`   // first simulated row
	Label    string           `json:"label,omitempty"`
	Strategy strategy.Spec    `json:"strategy"`
}

// LoadConfig reads a Config from a JSON file.
func LoadConfig(name string) (Config, error) {
	var c Config
	f, err := os.Open(name)
	if err != nil {
		return c, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return c, fmt.Errorf("reading config %q: %w", name, err)
	}
	return c, nil
}

// Validate checks that c describes a runnable backtest.
func (c Config) Validate() error {
	var errs []error
	if c.Prices == "" {
		errs = append(errs, errors.New("no price file"))
	}
	if !(c.Balance > 0) {
		errs = append(errs, fmt.Errorf("balance must be positive, got %v", c.Balance))
	}
	if c.Start < 0 {
		errs = append(errs, fmt.Errorf("start must not be negative, got %d", c.Start))
	}
	if err := c.Weights.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("initial weights: %w", err))
	}
	return errors.Join(errs...)
}

// Backtester loads the files of c and returns a backtester ready to run, with a fresh
// strategy.
func (c Config) Backtester() (*backtest.Backtester, error) {
	data, prices, err := c.frames()
	if err != nil {
		return nil, err
	}
	b, err := backtest.New(data, prices, c.Balance, c.Weights)
	if err != nil {
		return nil, err
	}
	if c.Currency != "" {
		b.SetCurrency(c.Currency)
	}
	s, err := strategy.Parse(c.Strategy)
	if err != nil {
		return nil, err
	}
	b.SetStrategy(s)
	return b, nil
}

// frames loads the feature and price files.
func (c Config) frames() (data, prices *backtest.Frame, err error) {
	prices, err = backtest.OpenFrame(c.Prices, c.JSONPath)
	if err != nil {
		return nil, nil, err
	}
	if c.Data == "" || c.Data == c.Prices {
		return prices, prices, nil
	}
	data, err = backtest.OpenFrame(c.Data, c.JSONPath)
	if err != nil {
		return nil, nil, err
	}
	return data, prices, nil
}

// ParseWeights parses weights written as "SPY=0.6,TLT=0.4". An empty string is cash.
func ParseWeights(s string) (backtest.Weights, error) {
	w := backtest.Weights{}
	if strings.TrimSpace(s) == "" {
		return w, nil
	}
	for _, item := range strings.Split(s, ",") {
		symbol, raw, ok := strings.Cut(item, "=")
		symbol = strings.TrimSpace(symbol)
		if !ok || symbol == "" {
			return nil, fmt.Errorf("invalid weight %q, want SYMBOL=WEIGHT", item)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight for %q: %w", symbol, err)
		}
		w[symbol] = v
	}
	return w, nil
}

// configFlags are the flags shared by commands that run backtests. A flag set on the
// command line overrides the configuration file.
type configFlags struct {
	config   string
	prices   string
	data     string
	jsonPath string
	balance  float64
	currency string
	weights  string
	start    int
	label    string

	strategy string
	every    string
	lookback int
	symbols  string
	target   string
}

func (c *configFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.config, "config", "", "JSON configuration file of the run")
	f.StringVar(&c.prices, "prices", "", "price file (.csv, .jsonl or .json)")
	f.StringVar(&c.data, "data", "", "feature file passed to the strategy, defaults to the price file")
	f.StringVar(&c.jsonPath, "jsonpath", "", "JSONPath expression selecting the rows of .json files")
	f.Float64Var(&c.balance, "balance", 10000, "starting balance")
	f.StringVar(&c.currency, "currency", "", "currency of the balance (default USD)")
	f.StringVar(&c.weights, "weights", "", "initial allocation as SYMBOL=WEIGHT,... (default cash)")
	f.IntVar(&c.start, "start", 0, "index of the first simulated row")
	f.StringVar(&c.label, "label", "", "label of the run")

	f.StringVar(&c.strategy, "strategy", "", "strategy: "+strings.Join(strategy.Names(), ", "))
	f.StringVar(&c.every, "every", "", "rebalance period: daily, weekly, monthly, quarterly or yearly")
	f.IntVar(&c.lookback, "lookback", 0, "momentum lookback, in rows")
	f.StringVar(&c.symbols, "symbols", "", "comma separated momentum candidates")
	f.StringVar(&c.target, "target", "", "target allocation of buy-and-hold and rebalance, as SYMBOL=WEIGHT,...")
}

// Config returns the configuration file, if any, overridden by the flags set in f.
func (c *configFlags) Config(f *flag.FlagSet) (Config, error) {
	cfg := Config{Balance: 10000}
	if c.config != "" {
		var err error
		if cfg, err = LoadConfig(c.config); err != nil {
			return cfg, err
		}
	}
	if cfg.Balance == 0 {
		cfg.Balance = c.balance
	}
	var errs []error
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "prices":
			cfg.Prices = c.prices
		case "data":
			cfg.Data = c.data
		case "jsonpath":
			cfg.JSONPath = c.jsonPath
		case "balance":
			cfg.Balance = c.balance
		case "currency":
			cfg.Currency = c.currency
		case "weights":
			w, err := ParseWeights(c.weights)
			errs = append(errs, err)
			cfg.Weights = w
		case "start":
			cfg.Start = c.start
		case "label":
			cfg.Label = c.label
		case "strategy":
			cfg.Strategy.Name = c.strategy
		case "every":
			cfg.Strategy.Every = c.every
		case "lookback":
			cfg.Strategy.Lookback = c.lookback
		case "symbols":
			cfg.Strategy.Symbols = strings.Split(c.symbols, ",")
		case "target":
			w, err := ParseWeights(c.target)
			errs = append(errs, err)
			cfg.Strategy.Weights = w
		}
	})
	if err := errors.Join(errs...); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}
