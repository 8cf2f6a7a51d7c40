// Package backtest simulates the value of a portfolio over historical prices, driven by a
// pluggable allocation Strategy.
//
// A Backtester holds a portfolio described by Weights, the fraction of its value per
// asset symbol. Weights always sum to ~0 (all cash) or ~1 (fully invested), within an
// absolute Tolerance of 0.009. Once valued, weights are converted into Quantities, the
// units held per asset, and those quantities are carried from one date to the next so
// that the value follows the prices until the strategy rebalances.
//
// At each date of the index, Run:
//   - revalues the portfolio at the prices of the day (cash keeps its value),
//   - calls the strategy with the feature data up to and including the day,
//   - applies the new weights if any, recording a trade,
//   - appends the value to the history.
//
// The Result holds the value history, the return series, the trades and Statistics
// (ROI, volatility, biggest single-step loss). Presentation is left to a Reporter,
// see package renderer.
//
// Frames are decoded from CSV, JSONL or JSON files, see OpenFrame.
package backtest
