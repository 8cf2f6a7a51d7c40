package backtest

import (
	"fmt"
	"math"

	"github.com/etnz/backtest/date"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Backtester simulates the value of a portfolio driven by a Strategy over historical
// prices.
//
// The holding created by New is mutated by every Run and carries over from one Run to
// the next, use Reset to restart from the initial state. A Backtester must not be used
// by concurrent Runs.
type Backtester struct {
	data     *Frame
	prices   *Frame
	start    decimal.Decimal
	initial  Weights
	currency string
	strategy Strategy

	holding Holding
}

// New returns a backtester over feature data and prices, which must share the same date
// index, starting with a positive balance allocated according to weights.
//
// It fails with an *InvalidAllocationError if weights sum neither to ~0 nor to ~1.
func New(data, prices *Frame, start float64, weights Weights) (*Backtester, error) {
	if data == nil || prices == nil {
		return nil, fmt.Errorf("%w: missing data or prices", ErrMisaligned)
	}
	if !data.Index().Equal(prices.Index()) {
		return nil, fmt.Errorf("%w: %d feature rows and %d price rows", ErrMisaligned, data.Len(), prices.Len())
	}
	if !(start > 0) || math.IsInf(start, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrStartBalance, start)
	}
	for _, symbol := range weights.Symbols() {
		if !prices.Has(symbol) {
			return nil, fmt.Errorf("%w %q in initial allocation", ErrUnknownSymbol, symbol)
		}
	}
	b := &Backtester{
		data:     data,
		prices:   prices,
		start:    decimal.NewFromFloat(start),
		initial:  weights.Clone(),
		currency: DefaultCurrency,
	}
	if err := b.Reset(); err != nil {
		return nil, err
	}
	return b, nil
}

// SetStrategy sets the strategy used by Run.
func (b *Backtester) SetStrategy(s Strategy) { b.strategy = s }

// SetCurrency sets the currency used to report values.
func (b *Backtester) SetCurrency(currency string) { b.currency = currency }

// Reset restores the holding to the starting balance and weights.
func (b *Backtester) Reset() error {
	h, err := newHolding(b.start, b.initial)
	if err != nil {
		return err
	}
	b.holding = h
	return nil
}

// Index returns the date index of the backtest.
func (b *Backtester) Index() date.Index { return b.prices.Index() }

// Value returns the latest computed value of the portfolio.
func (b *Backtester) Value() Money { return M(b.holding.Value(), b.currency) }

// Holding returns a copy of the current holding.
func (b *Backtester) Holding() Holding {
	h := b.holding
	h.weights, h.quantities = h.weights.Clone(), h.quantities.Clone()
	return h
}

// Run simulates every date of the index from position startIndex to the end.
//
// Run fails with ErrNoStrategy if no strategy was set, and does nothing. A startIndex
// past the end of the index simulates nothing and returns an empty Result. When a step
// fails, for instance with an *InvalidAllocationError from the strategy, the run stops
// and the returned Result holds the steps completed so far.
//
// Once the run is complete, opts.Reporter is called if set.
func (b *Backtester) Run(startIndex int, opts Options) (*Result, error) {
	if b.strategy == nil {
		return nil, ErrNoStrategy
	}
	if startIndex < 0 {
		return nil, fmt.Errorf("%w: %d", ErrStartIndex, startIndex)
	}
	r := &Result{
		ID:       uuid.NewString(),
		Label:    opts.Label,
		Currency: b.currency,
		Start:    b.start.InexactFloat64(),
	}
	for i := startIndex; i < b.prices.Len(); i++ {
		on := b.prices.At(i)
		if err := b.step(on, opts, r); err != nil {
			r.finish()
			return r, fmt.Errorf("backtest aborted on %s: %w", on, err)
		}
	}
	r.finish()

	if opts.Reporter != nil {
		if err := opts.Reporter.Report(r, opts); err != nil {
			return r, fmt.Errorf("reporting run %s: %w", r.ID, err)
		}
	}
	return r, nil
}

// step simulates a single date.
func (b *Backtester) step(on date.Date, opts Options, r *Result) error {
	h := &b.holding
	if err := h.ensureQuantities(on, b.prices); err != nil {
		return err
	}
	if err := h.revalue(on, b.prices); err != nil {
		return err
	}
	value := h.Value().InexactFloat64()

	weights, err := b.strategy.Allocate(b.data.Upto(on), opts.Verbose)
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if len(weights) > 0 {
		r.Trades.append(on, value)
		if err := h.rebalance(on, weights, b.prices); err != nil {
			return err
		}
	}
	r.append(on, value)

	if opts.Verbose {
		opts.logf("%s value=%.2f weights=%v", on, value, h.weights)
	}
	return nil
}
