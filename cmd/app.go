// Package cmd implements the CLI application to backtest allocation strategies.
package cmd

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/backtest/store"
	"github.com/google/subcommands"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&runCmd{}, "backtest")
	c.Register(&sweepCmd{}, "backtest")

	c.Register(&fetchCmd{}, "data")

	c.Register(&topicCmd{}, "help")

	c.Register(&runsCmd{}, "saved runs")
	c.Register(&showCmd{}, "saved runs")
	c.Register(&deleteCmd{}, "saved runs")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var storePath = flag.String("store", "backtests.db", "Path to the SQLite database of saved runs")
var rawMarkdown = flag.Bool("raw", false, "print markdown reports as is, without terminal rendering")

// OpenStore opens the app database of saved runs.
func OpenStore() (*store.Store, error) { return store.Open(*storePath) }

// printMarkdown prints a markdown document on the standard output, rendered for the
// terminal unless -raw is set.
func printMarkdown(md string) {
	if *rawMarkdown {
		fmt.Println(md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithEnvironmentConfig(), glamour.WithWordWrap(120))
	if err != nil {
		log.Printf("warning, cannot render markdown: %v", err)
		fmt.Println(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		log.Printf("warning, cannot render markdown: %v", err)
		fmt.Println(md)
		return
	}
	fmt.Print(out)
}

// failf prints an error and returns subcommands.ExitFailure.
func failf(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitFailure
}

// usagef prints a usage error and returns subcommands.ExitUsageError.
func usagef(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitUsageError
}
