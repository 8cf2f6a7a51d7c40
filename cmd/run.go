package cmd

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/renderer"
	"github.com/google/subcommands"
)

type runCmd struct {
	configFlags

	info    bool
	trades  bool
	plot    bool
	verbose bool
	chart   string
	csv     string
	save    bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "backtest a strategy over historical prices" }
func (*runCmd) Usage() string {
	return `run [-config <file>] -prices <file> [-strategy <name> ...] [-trades] [-plot] [-save]

  Simulates the value of a portfolio driven by a strategy over historical prices, and
  prints the summary of the run.

  The run is described by a JSON configuration file, flags set on the command line
  override it.

`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	c.configFlags.SetFlags(f)
	f.BoolVar(&c.info, "info", true, "print the summary of the run")
	f.BoolVar(&c.trades, "trades", false, "print the rebalancing events")
	f.BoolVar(&c.plot, "plot", false, "plot the value curve into a PNG file")
	f.BoolVar(&c.verbose, "v", false, "log every step")
	f.StringVar(&c.chart, "chart", "", "PNG file of the plot (default <label or run id>.png)")
	f.StringVar(&c.csv, "csv", "", "export the value history into a CSV file")
	f.BoolVar(&c.save, "save", false, "save the run in the database")
}

func (c *runCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 0 {
		return usagef("unexpected arguments %q", f.Args())
	}
	cfg, err := c.Config(f)
	if err != nil {
		return usagef("invalid run configuration: %v", err)
	}
	b, err := cfg.Backtester()
	if err != nil {
		return failf("%v", err)
	}

	var report bytes.Buffer
	opts := backtest.Options{
		Info:     c.info,
		Trades:   c.trades,
		Plot:     c.plot,
		Verbose:  c.verbose,
		Label:    cfg.Label,
		Reporter: &renderer.Reporter{Out: &report, ChartFile: c.chart},
	}
	r, err := b.Run(cfg.Start, opts)
	if err != nil {
		if r != nil && r.Len() > 0 {
			printMarkdown(renderer.SummaryMarkdown(r))
		}
		return failf("%v", err)
	}
	printMarkdown(report.String())

	if c.csv != "" {
		if err := writeHistoryCSV(c.csv, r); err != nil {
			return failf("%v", err)
		}
		fmt.Printf("Value history written to %s\n", c.csv)
	}
	if c.save {
		if err := saveRuns([]*backtest.Result{r}, []string{cfg.Strategy.String()}); err != nil {
			return failf("%v", err)
		}
		fmt.Printf("Run saved as %s\n", r.ID)
	}
	return subcommands.ExitSuccess
}

func writeHistoryCSV(name string, r *backtest.Result) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := backtest.EncodeHistoryCSV(f, r); err != nil {
		f.Close()
		return fmt.Errorf("writing %q: %w", name, err)
	}
	return f.Close()
}

// saveRuns saves results in the app database, strategies[i] describes the strategy of
// results[i].
func saveRuns(results []*backtest.Result, strategies []string) error {
	db, err := OpenStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("warning, closing the database: %v", err)
		}
	}()
	for i, r := range results {
		if err := db.SaveRun(r, strategies[i]); err != nil {
			return err
		}
	}
	return nil
}
