package backtest

import (
	"maps"
	"math"
	"slices"

	"github.com/shopspring/decimal"
)

// Tolerance is the absolute tolerance around 0 and 1 accepted for a weights checksum.
const Tolerance = 0.009

var (
	tolerance = decimal.NewFromFloat(Tolerance)
	one       = decimal.NewFromInt(1)
)

// Weights is the weight form of an allocation: the fraction of the total value held in
// each asset symbol.
//
// Valid weights sum to 0 (all cash) or to 1 (fully invested), within Tolerance.
type Weights map[string]float64

// Checksum returns the exact decimal sum of the weights.
//
// Weights are converted with their shortest decimal representation, so 0.991 is
// summed as 0.991 and not as its binary approximation. It panics on NaN or infinite
// weights, call Validate first.
func (w Weights) Checksum() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range w {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return sum
}

// IsCash reports whether the checksum is ~0.
func (w Weights) IsCash() bool { return w.finite() && w.Checksum().Abs().LessThanOrEqual(tolerance) }

// IsInvested reports whether the checksum is ~1.
func (w Weights) IsInvested() bool {
	return w.finite() && w.Checksum().Sub(one).Abs().LessThanOrEqual(tolerance)
}

// Validate returns an *InvalidAllocationError unless w is cash or invested.
func (w Weights) Validate() error {
	if !w.finite() {
		return &InvalidAllocationError{Checksum: math.NaN()}
	}
	if w.IsCash() || w.IsInvested() {
		return nil
	}
	return &InvalidAllocationError{Checksum: w.Checksum().InexactFloat64()}
}

// Symbols returns the symbols in alphabetical order.
func (w Weights) Symbols() []string { return slices.Sorted(maps.Keys(w)) }

// Clone returns a copy of w.
func (w Weights) Clone() Weights { return maps.Clone(w) }

func (w Weights) finite() bool {
	for _, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
