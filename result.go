package backtest

import (
	"log"

	"github.com/etnz/backtest/date"
)

// Options controls a single Run.
//
// Display toggles are only read by the Reporter, the simulation itself only uses Verbose.
type Options struct {
	Plot    bool   // plot the value curve
	Info    bool   // print a summary of the run
	Verbose bool   // log every step, also passed to the strategy
	Trades  bool   // show rebalancing events
	Label   string // display label of the run

	Logger   *log.Logger // destination of verbose lines, defaults to the standard logger
	Reporter Reporter    // optional, called once the run has completed
}

func (o Options) logf(format string, v ...any) {
	if o.Logger != nil {
		o.Logger.Printf(format, v...)
		return
	}
	log.Printf(format, v...)
}

// Reporter consumes the outcome of a completed run, to print or plot it.
type Reporter interface {
	Report(r *Result, opts Options) error
}

// TradeLog records the dates on which the strategy issued a new allocation, and the
// portfolio value at that moment.
type TradeLog struct {
	Dates  []date.Date
	Values []float64
}

// Len returns the number of trades.
func (t TradeLog) Len() int { return len(t.Dates) }

func (t *TradeLog) append(on date.Date, value float64) {
	t.Dates = append(t.Dates, on)
	t.Values = append(t.Values, value)
}

// Result is the outcome of a Run.
type Result struct {
	ID       string  // unique run identifier
	Label    string  // display label
	Currency string  // currency of the values
	Start    float64 // starting balance of the backtester

	Dates   []date.Date // simulated dates
	Values  []float64   // portfolio value at the end of each simulated date
	Returns []float64   // per step returns, see Returns
	Trades  TradeLog
	Stats   Statistics
}

// Len returns the number of simulated steps.
func (r *Result) Len() int { return len(r.Dates) }

// Final returns the last value, or the starting balance if nothing was simulated.
func (r *Result) Final() float64 {
	if len(r.Values) == 0 {
		return r.Start
	}
	return r.Values[len(r.Values)-1]
}

// Money returns v as Money in the currency of the run.
func (r *Result) Money(v float64) Money { return M(v, r.Currency) }

// IsTrade reports whether a trade happened on the given date.
func (r *Result) IsTrade(on date.Date) bool {
	for _, d := range r.Trades.Dates {
		if d == on {
			return true
		}
	}
	return false
}

func (r *Result) append(on date.Date, value float64) {
	r.Dates = append(r.Dates, on)
	r.Values = append(r.Values, value)
}

// finish computes the derived series and statistics.
func (r *Result) finish() {
	r.Returns = Returns(r.Values)
	r.Stats = NewStatistics(r.Start, r.Values)
	r.Stats.TradeCount = r.Trades.Len()
}
