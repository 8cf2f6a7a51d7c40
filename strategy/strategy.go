// Package strategy provides ready-made backtest.Strategy implementations.
//
// Strategies are stateful: they remember what they last issued so that they only
// trade when their decision changes. Use a new instance for each independent run.
package strategy

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/date"
)

// Names of the available strategies, as used by Parse.
const (
	NameHold       = "hold"
	NameBuyAndHold = "buy-and-hold"
	NameRebalance  = "rebalance"
	NameMomentum   = "momentum"
)

// Names returns the names accepted by Parse.
func Names() []string { return []string{NameHold, NameBuyAndHold, NameRebalance, NameMomentum} }

var ErrUnknownStrategy = errors.New("unknown strategy")

// Spec describes a strategy and its parameters, typically read from a run configuration.
type Spec struct {
	Name     string           `json:"name"`
	Weights  backtest.Weights `json:"weights,omitempty"`  // buy-and-hold, rebalance
	Every    string           `json:"every,omitempty"`    // rebalance period: daily, weekly, monthly, quarterly, yearly
	Lookback int              `json:"lookback,omitempty"` // momentum, in rows
	Symbols  []string         `json:"symbols,omitempty"`  // momentum candidates
}

// String returns a short human description of the spec.
func (s Spec) String() string {
	switch s.Name {
	case NameRebalance:
		return fmt.Sprintf("%s %s %v", s.Name, s.Every, s.Weights)
	case NameBuyAndHold:
		return fmt.Sprintf("%s %v", s.Name, s.Weights)
	case NameMomentum:
		return fmt.Sprintf("%s %d [%s]", s.Name, s.Lookback, strings.Join(s.Symbols, " "))
	default:
		return s.Name
	}
}

// Parse builds the strategy described by s.
func Parse(s Spec) (backtest.Strategy, error) {
	switch s.Name {
	case NameHold, "":
		return Hold(), nil
	case NameBuyAndHold:
		if err := s.Weights.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name, err)
		}
		return BuyAndHold(s.Weights), nil
	case NameRebalance:
		if err := s.Weights.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name, err)
		}
		every := date.Monthly
		if s.Every != "" {
			p, err := date.ParsePeriod(s.Every)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", s.Name, err)
			}
			every = p
		}
		return Rebalance(s.Weights, every), nil
	case NameMomentum:
		if s.Lookback < 1 {
			return nil, fmt.Errorf("%s: lookback must be at least 1, got %d", s.Name, s.Lookback)
		}
		if len(s.Symbols) == 0 {
			return nil, fmt.Errorf("%s: no candidate symbols", s.Name)
		}
		return Momentum(s.Lookback, s.Symbols...), nil
	default:
		return nil, fmt.Errorf("%w %q, want one of %s", ErrUnknownStrategy, s.Name, strings.Join(Names(), ", "))
	}
}

// Hold returns a strategy that never trades: the initial allocation drifts with prices.
func Hold() backtest.Strategy {
	return backtest.StrategyFunc(func(*backtest.Frame, bool) (backtest.Weights, error) { return nil, nil })
}

// BuyAndHold returns a strategy that allocates w on its first step and never trades again.
func BuyAndHold(w backtest.Weights) backtest.Strategy {
	return &buyAndHold{weights: w.Clone()}
}

type buyAndHold struct {
	weights backtest.Weights
	done    bool
}

func (s *buyAndHold) Allocate(window *backtest.Frame, verbose bool) (backtest.Weights, error) {
	if s.done {
		return nil, nil
	}
	s.done = true
	if verbose {
		log.Printf("buy-and-hold: allocating %v on %s", s.weights, window.Index().Latest())
	}
	return s.weights.Clone(), nil
}

// Rebalance returns a strategy that restores w on its first step and on the first step
// of every new period.
func Rebalance(w backtest.Weights, every date.Period) backtest.Strategy {
	return &rebalance{weights: w.Clone(), every: every}
}

type rebalance struct {
	weights backtest.Weights
	every   date.Period
	last    date.Date // last rebalancing date
}

func (s *rebalance) Allocate(window *backtest.Frame, verbose bool) (backtest.Weights, error) {
	on := window.Index().Latest()
	if on.IsZero() {
		return nil, nil
	}
	if !s.last.IsZero() && on.SamePeriod(s.last, s.every) {
		return nil, nil
	}
	s.last = on
	if verbose {
		log.Printf("rebalance: new %s period on %s, restoring %v", s.every, on, s.weights)
	}
	return s.weights.Clone(), nil
}

// Momentum returns a strategy fully invested in the candidate with the best positive
// return over the last lookback rows of the window, or in cash if none is positive.
//
// Candidates are read from the feature columns of the same name. The strategy does not
// trade until the window holds lookback+1 rows, and only trades when its pick changes.
func Momentum(lookback int, symbols ...string) backtest.Strategy {
	return &momentum{lookback: lookback, symbols: slices.Sorted(slices.Values(symbols))}
}

type momentum struct {
	lookback int
	symbols  []string
	started  bool
	pick     string // "" for cash
}

func (s *momentum) Allocate(window *backtest.Frame, verbose bool) (backtest.Weights, error) {
	last := window.Len() - 1
	base := last - s.lookback
	if base < 0 {
		return nil, nil
	}
	pick, best := "", 0.0
	for _, symbol := range s.symbols {
		if !window.Has(symbol) {
			return nil, fmt.Errorf("momentum: no feature column %q", symbol)
		}
		from, ok1 := window.Value(base, symbol)
		to, ok2 := window.Value(last, symbol)
		if !ok1 || !ok2 || from <= 0 {
			continue
		}
		if r := to/from - 1; r > best {
			pick, best = symbol, r
		}
	}
	if s.started && pick == s.pick {
		return nil, nil
	}
	s.started, s.pick = true, pick

	w := make(backtest.Weights, len(s.symbols))
	for _, symbol := range s.symbols {
		w[symbol] = 0
	}
	if pick != "" {
		w[pick] = 1
	}
	if verbose {
		if pick == "" {
			log.Printf("momentum: no positive return over %d rows on %s, going to cash", s.lookback, window.At(last))
		} else {
			log.Printf("momentum: switching to %s (%+.2f%% over %d rows) on %s", pick, 100*best, s.lookback, window.At(last))
		}
	}
	return w, nil
}
