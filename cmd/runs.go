package cmd

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/renderer"
	"github.com/etnz/backtest/store"
	"github.com/google/subcommands"
	md "github.com/nao1215/markdown"
)

type runsCmd struct {
	limit int
}

func (*runsCmd) Name() string     { return "runs" }
func (*runsCmd) Synopsis() string { return "list saved runs" }
func (*runsCmd) Usage() string {
	return `runs [-n <count>]

  Lists the runs saved in the database, newest first.

`
}

func (c *runsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 20, "maximum number of runs to list, 0 for all")
}

func (c *runsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	db, err := OpenStore()
	if err != nil {
		return failf("%v", err)
	}
	defer db.Close()

	runs, err := db.Runs(c.limit)
	if err != nil {
		return failf("%v", err)
	}
	printMarkdown(RunsMarkdown(runs))
	return subcommands.ExitSuccess
}

// RunsMarkdown renders a list of saved runs.
func RunsMarkdown(runs []store.Summary) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1("Saved runs")

	if len(runs) == 0 {
		doc.PlainText("No saved run.")
		return doc.String()
	}
	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignLeft,
			md.AlignLeft,
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
		},
		Header: []string{"ID", "Created", "Label", "Strategy", "Final value", "ROI", "Trades"},
		Rows:   [][]string{},
	}
	for _, r := range runs {
		final := "n/a"
		if !math.IsNaN(r.Final) {
			final = backtest.M(r.Final, r.Currency).String()
		}
		table.Rows = append(table.Rows, []string{
			"`" + r.ID[:min(8, len(r.ID))] + "`",
			r.Created.Local().Format("2006-01-02 15:04"),
			r.Label,
			r.Strategy,
			final,
			r.ROI.SignedString(),
			fmt.Sprint(r.Trades),
		})
	}
	doc.Table(table)
	return doc.String()
}

type showCmd struct {
	trades bool
	plot   bool
	chart  string
	csv    string
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "display a saved run" }
func (*showCmd) Usage() string {
	return `show [-trades] [-plot] [-csv <file>] <run id>

  Displays the summary of a saved run. The run id can be abbreviated to any unique prefix.

`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.trades, "trades", true, "print the rebalancing events")
	f.BoolVar(&c.plot, "plot", false, "plot the value curve into a PNG file")
	f.StringVar(&c.chart, "chart", "", "PNG file of the plot (default <label or run id>.png)")
	f.StringVar(&c.csv, "csv", "", "export the value history into a CSV file")
}

func (c *showCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usagef("show takes exactly one run id")
	}
	db, err := OpenStore()
	if err != nil {
		return failf("%v", err)
	}
	defer db.Close()

	sum, r, err := db.Run(f.Arg(0))
	if err != nil {
		return failf("%v", err)
	}

	var report bytes.Buffer
	fmt.Fprintf(&report, "Run `%s` saved on %s, strategy: %s\n\n", sum.ID, sum.Created.Local().Format("2006-01-02 15:04"), sum.Strategy)
	rep := &renderer.Reporter{Out: &report, ChartFile: c.chart}
	if err := rep.Report(r, backtest.Options{Info: true, Trades: c.trades, Plot: c.plot}); err != nil {
		return failf("%v", err)
	}
	printMarkdown(report.String())

	if c.csv != "" {
		if err := writeHistoryCSV(c.csv, r); err != nil {
			return failf("%v", err)
		}
		fmt.Printf("Value history written to %s\n", c.csv)
	}
	return subcommands.ExitSuccess
}

type deleteCmd struct{}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete saved runs" }
func (*deleteCmd) Usage() string {
	return `delete <run id>...

  Deletes runs from the database. Run ids must be complete.

`
}

func (*deleteCmd) SetFlags(*flag.FlagSet) {}

func (*deleteCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		return usagef("delete takes at least one run id")
	}
	db, err := OpenStore()
	if err != nil {
		return failf("%v", err)
	}
	defer db.Close()

	status := subcommands.ExitSuccess
	for _, id := range f.Args() {
		if err := db.Delete(id); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Printf("Deleted %s\n", id)
	}
	return status
}
