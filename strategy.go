package backtest

// Strategy decides the allocation of the portfolio at each step of a backtest.
//
// Allocate receives the feature data up to and including the current date, and the
// verbose flag of the run. It returns the new weights, or empty weights to keep the
// current holding unchanged. Returned weights must sum to ~0 or ~1, the run aborts
// otherwise. A non nil error aborts the run.
type Strategy interface {
	Allocate(window *Frame, verbose bool) (Weights, error)
}

// StrategyFunc is an adapter to use an ordinary function as a Strategy.
type StrategyFunc func(window *Frame, verbose bool) (Weights, error)

// Allocate calls f(window, verbose).
func (f StrategyFunc) Allocate(window *Frame, verbose bool) (Weights, error) {
	return f(window, verbose)
}
