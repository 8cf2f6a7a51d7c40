package cmd

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"math"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/renderer"
	"github.com/etnz/backtest/strategy"
	"github.com/google/subcommands"
)

type sweepCmd struct {
	configFlags

	lookbacks string
	periods   string
	baseline  bool
	parallel  int
	save      bool
}

func (*sweepCmd) Name() string     { return "sweep" }
func (*sweepCmd) Synopsis() string { return "compare variants of a strategy" }
func (*sweepCmd) Usage() string {
	return `sweep [-config <file>] -prices <file> (-lookbacks 5,20,60 | -periods monthly,yearly) [-save]

  Backtests several variants of a strategy in parallel, and prints their statistics side
  by side, best return first.

  -lookbacks runs the momentum strategy for each lookback.
  -periods runs the rebalance strategy for each period.

`
}

func (c *sweepCmd) SetFlags(f *flag.FlagSet) {
	c.configFlags.SetFlags(f)
	f.StringVar(&c.lookbacks, "lookbacks", "", "comma separated momentum lookbacks")
	f.StringVar(&c.periods, "periods", "", "comma separated rebalance periods")
	f.BoolVar(&c.baseline, "baseline", true, "also run the initial allocation without trading")
	f.IntVar(&c.parallel, "parallel", runtime.NumCPU(), "maximum number of backtests running at once")
	f.BoolVar(&c.save, "save", false, "save the runs in the database")
}

// variants returns the strategy specs to compare.
func (c *sweepCmd) variants(base strategy.Spec) ([]strategy.Spec, error) {
	var specs []strategy.Spec
	switch {
	case c.lookbacks != "" && c.periods != "":
		return nil, fmt.Errorf("-lookbacks and -periods are exclusive")
	case c.lookbacks != "":
		for _, item := range strings.Split(c.lookbacks, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(item))
			if err != nil {
				return nil, fmt.Errorf("invalid lookback %q: %w", item, err)
			}
			s := base
			s.Name, s.Lookback = strategy.NameMomentum, n
			specs = append(specs, s)
		}
	case c.periods != "":
		for _, item := range strings.Split(c.periods, ",") {
			s := base
			s.Name, s.Every = strategy.NameRebalance, strings.TrimSpace(item)
			specs = append(specs, s)
		}
	default:
		return nil, fmt.Errorf("either -lookbacks or -periods is required")
	}
	if c.baseline {
		specs = append(specs, strategy.Spec{Name: strategy.NameHold})
	}
	return specs, nil
}

func (c *sweepCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := c.Config(f)
	if err != nil {
		return usagef("invalid run configuration: %v", err)
	}
	specs, err := c.variants(cfg.Strategy)
	if err != nil {
		return usagef("%v", err)
	}

	// load files once, every job gets its own backtester and strategy.
	data, prices, err := cfg.frames()
	if err != nil {
		return failf("%v", err)
	}
	jobs := make([]backtest.Job, len(specs))
	for i, spec := range specs {
		s, err := strategy.Parse(spec)
		if err != nil {
			return usagef("%v", err)
		}
		jobs[i] = backtest.Job{
			Name:     spec.String(),
			Strategy: s,
			Start:    cfg.Start,
			New: func() (*backtest.Backtester, error) {
				b, err := backtest.New(data, prices, cfg.Balance, cfg.Weights)
				if err == nil && cfg.Currency != "" {
					b.SetCurrency(cfg.Currency)
				}
				return b, err
			},
		}
	}

	results, err := backtest.RunAll(ctx, jobs, c.parallel)
	if err != nil {
		return failf("%v", err)
	}
	printMarkdown(renderer.ComparisonMarkdown(byROI(results)))

	if c.save {
		names := make([]string, len(results))
		for i, r := range results {
			names[i] = r.Label
		}
		if err := saveRuns(results, names); err != nil {
			return failf("%v", err)
		}
		fmt.Printf("%d runs saved\n", len(results))
	}
	return subcommands.ExitSuccess
}

// byROI returns results sorted by decreasing ROI, empty runs last.
func byROI(results []*backtest.Result) []*backtest.Result {
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b *backtest.Result) int {
		x, y := float64(a.Stats.ROI), float64(b.Stats.ROI)
		switch {
		case math.IsNaN(x) && math.IsNaN(y):
			return 0
		case math.IsNaN(x):
			return 1
		case math.IsNaN(y):
			return -1
		}
		return cmp.Compare(y, x)
	})
	return sorted
}
