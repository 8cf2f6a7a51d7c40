package renderer

import (
	"fmt"
	"io"
	"os"

	"github.com/etnz/backtest"
)

// Reporter presents completed runs according to their display options:
//   - Info writes the summary,
//   - Trades writes the rebalancing events, if any,
//   - Plot writes the value curve to a PNG file, unless the run is empty.
//
// Markdown is written to Out, os.Stdout if nil.
type Reporter struct {
	Out       io.Writer
	ChartFile string // chart destination, defaults to "<label or id>.png"
}

// Report implements backtest.Reporter.
func (rep *Reporter) Report(r *backtest.Result, opts backtest.Options) error {
	out := rep.Out
	if out == nil {
		out = os.Stdout
	}
	if opts.Info {
		if _, err := fmt.Fprintln(out, SummaryMarkdown(r)); err != nil {
			return err
		}
	}
	if opts.Trades {
		err := ConditionalBlock(out, func(w io.Writer) bool {
			fmt.Fprintln(w, TradesMarkdown(r))
			return r.Trades.Len() > 0
		})
		if err != nil {
			return err
		}
	}
	if opts.Plot && r.Len() == 0 {
		fmt.Fprintln(out, "Nothing to plot.")
	}
	if opts.Plot && r.Len() > 0 {
		img, err := Chart(r, opts.Trades)
		if err != nil {
			return err
		}
		name := rep.chartFile(r)
		if err := os.WriteFile(name, img, 0o644); err != nil {
			return fmt.Errorf("writing chart: %w", err)
		}
		fmt.Fprintf(out, "Chart written to %s\n", name)
	}
	return nil
}

func (rep *Reporter) chartFile(r *backtest.Result) string {
	if rep.ChartFile != "" {
		return rep.ChartFile
	}
	if r.Label != "" {
		return r.Label + ".png"
	}
	return r.ID + ".png"
}
