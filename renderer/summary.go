package renderer

import (
	"bytes"
	"fmt"
	"math"

	"github.com/etnz/backtest"
	md "github.com/nao1215/markdown"
)

// title returns the display title of a run.
func title(r *backtest.Result) string {
	if r.Label != "" {
		return r.Label
	}
	if len(r.ID) >= 8 {
		return "Backtest " + r.ID[:8]
	}
	return "Backtest"
}

// volatility formats a volatility as a percent, it is NaN without returns.
func volatility(v float64) string { return backtest.Percent(100 * v).String() }

// SummaryMarkdown renders the statistics of a run.
func SummaryMarkdown(r *backtest.Result) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1(title(r))

	if r.Len() == 0 {
		doc.PlainText("Nothing was simulated.")
		return doc.String()
	}
	doc.PlainTextf("From %s to %s, %d steps.", r.Dates[0], r.Dates[r.Len()-1], r.Len())

	s := r.Stats
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{"Statistic", "Value"},
		Rows: [][]string{
			{"Starting balance", r.Money(s.Start).String()},
			{"Final value", r.Money(s.End).String()},
			{"Return on investment", s.ROI.SignedString()},
			{"Volatility", volatility(s.Volatility)},
			{"Biggest loss", r.Money(s.BiggestLoss).SignedString()},
			{"Max drawdown", s.MaxDrawdown.SignedString()},
			{"Trades", fmt.Sprint(s.TradeCount)},
		},
	})
	return doc.String()
}

// TradesMarkdown renders the rebalancing events of a run.
func TradesMarkdown(r *backtest.Result) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H2("Trades")

	if r.Trades.Len() == 0 {
		doc.PlainText("No rebalancing.")
		return doc.String()
	}
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight},
		Header:    []string{"Date", "Value", "Since previous"},
		Rows:      [][]string{},
	}
	previous := r.Start
	for i, on := range r.Trades.Dates {
		value := r.Trades.Values[i]
		table.Rows = append(table.Rows, []string{
			on.String(),
			r.Money(value).String(),
			backtest.ROI(previous, value).SignedString(),
		})
		previous = value
	}
	doc.Table(table)
	return doc.String()
}

// ComparisonMarkdown renders the statistics of several runs side by side, in the given
// order.
func ComparisonMarkdown(results []*backtest.Result) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1("Comparison")

	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
		},
		Header: []string{"Run", "Final value", "ROI", "Volatility", "Biggest loss", "Max drawdown", "Trades"},
		Rows:   [][]string{},
	}
	for _, r := range results {
		s := r.Stats
		final := "n/a"
		if !math.IsNaN(s.End) {
			final = r.Money(s.End).String()
		}
		table.Rows = append(table.Rows, []string{
			title(r),
			final,
			s.ROI.SignedString(),
			volatility(s.Volatility),
			r.Money(s.BiggestLoss).SignedString(),
			s.MaxDrawdown.SignedString(),
			fmt.Sprint(s.TradeCount),
		})
	}
	doc.Table(table)
	return doc.String()
}
