package backtest

import (
	"github.com/etnz/backtest/date"
	"github.com/shopspring/decimal"
)

// Holding is the state of a simulated portfolio: its total value, the latest weights
// issued and the quantities they were converted into.
//
// A holding is either in cash (weights sum to ~0, no quantities, the value is carried
// unchanged) or invested (weights sum to ~1, the value follows the prices of the held
// quantities). Quantities are nil until the first valuation.
type Holding struct {
	value      decimal.Decimal
	weights    Weights
	quantities Quantities
}

func newHolding(value decimal.Decimal, weights Weights) (Holding, error) {
	if err := weights.Validate(); err != nil {
		return Holding{}, err
	}
	return Holding{value: value, weights: weights.Clone()}, nil
}

// Value returns the latest computed value.
func (h *Holding) Value() decimal.Decimal { return h.value }

// Weights returns a copy of the latest weights.
func (h *Holding) Weights() Weights { return h.weights.Clone() }

// Quantities returns a copy of the held quantities, nil before the first valuation.
func (h *Holding) Quantities() Quantities { return h.quantities.Clone() }

// IsCash reports whether the holding is fully in cash.
func (h *Holding) IsCash() bool { return !h.weights.IsInvested() }

// ensureQuantities derives quantities from the weights if they have never been.
func (h *Holding) ensureQuantities(on date.Date, prices Prices) error {
	if h.quantities != nil {
		return nil
	}
	q, err := QuantitiesFromWeights(on, h.weights, h.value, prices)
	if err != nil {
		return err
	}
	h.quantities = q
	return nil
}

// revalue updates the value at the prices of the given date. Cash does not earn or lose.
func (h *Holding) revalue(on date.Date, prices Prices) error {
	if h.IsCash() {
		return nil
	}
	v, err := ValueAt(on, h.quantities, prices)
	if err != nil {
		return err
	}
	h.value = v
	return nil
}

// rebalance replaces the weights and converts them into quantities at the current value.
// The holding is left untouched on error.
func (h *Holding) rebalance(on date.Date, weights Weights, prices Prices) error {
	if err := weights.Validate(); err != nil {
		return err
	}
	q, err := QuantitiesFromWeights(on, weights, h.value, prices)
	if err != nil {
		return err
	}
	h.weights, h.quantities = weights.Clone(), q
	return nil
}
