// Command bt backtests allocation strategies over historical prices.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/backtest/cmd"
	"github.com/etnz/backtest/strategy"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	completion().Complete(path.Base(os.Args[0]))

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// completion describes the command line for shell completion.
// Install it with COMP_INSTALL=1 bt.
func completion() *complete.Command {
	files := predict.Or(predict.Files("*.csv"), predict.Files("*.jsonl"), predict.Files("*.json"))
	config := map[string]complete.Predictor{
		"config":   predict.Files("*.json"),
		"prices":   files,
		"data":     files,
		"jsonpath": predict.Something,
		"balance":  predict.Something,
		"currency": predict.Set{"USD", "EUR", "GBP", "CHF", "JPY"},
		"weights":  predict.Something,
		"start":    predict.Something,
		"label":    predict.Something,
		"strategy": predict.Set(strategy.Names()),
		"every":    periods,
		"lookback": predict.Something,
		"symbols":  predict.Something,
		"target":   predict.Something,
	}
	with := func(extra map[string]complete.Predictor) map[string]complete.Predictor {
		flags := make(map[string]complete.Predictor, len(config)+len(extra))
		for k, v := range config {
			flags[k] = v
		}
		for k, v := range extra {
			flags[k] = v
		}
		return flags
	}

	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"store": predict.Files("*.db"),
			"raw":   predict.Nothing,
		},
		Sub: map[string]*complete.Command{
			"run": {Flags: with(map[string]complete.Predictor{
				"info":   predict.Nothing,
				"trades": predict.Nothing,
				"plot":   predict.Nothing,
				"v":      predict.Nothing,
				"chart":  predict.Files("*.png"),
				"csv":    predict.Files("*.csv"),
				"save":   predict.Nothing,
			})},
			"sweep": {Flags: with(map[string]complete.Predictor{
				"lookbacks": predict.Something,
				"periods":   periods,
				"baseline":  predict.Nothing,
				"parallel":  predict.Something,
				"save":      predict.Nothing,
			})},
			"fetch": {Flags: map[string]complete.Predictor{
				"eodhd-api-key": predict.Something,
				"eodhd-url":     predict.Something,
				"cache":         predict.Dirs("*"),
				"from":          predict.Something,
				"to":            predict.Something,
				"o":             predict.Or(predict.Files("*.csv"), predict.Files("*.jsonl")),
				"parallel":      predict.Something,
			}},
			"runs": {Flags: map[string]complete.Predictor{"n": predict.Something}},
			"show": {Flags: map[string]complete.Predictor{
				"trades": predict.Nothing,
				"plot":   predict.Nothing,
				"chart":  predict.Files("*.png"),
				"csv":    predict.Files("*.csv"),
			}},
			"delete":   {},
			"topic":    {Args: predict.Set{"*", "readme", "config", "formats", "strategies", "statistics", "fetch"}},
			"help":     {},
			"flags":    {},
			"commands": {},
		},
	}
}

var periods = predict.Set{"daily", "weekly", "monthly", "quarterly", "yearly"}
