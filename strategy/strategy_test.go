package strategy

import (
	"errors"
	"testing"
	"time"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/date"
)

// prices returns a frame over consecutive days starting on start.
func prices(t *testing.T, start date.Date, series map[string][]float64) *backtest.Frame {
	t.Helper()
	n := 0
	for _, values := range series {
		n = len(values)
	}
	days := make([]date.Date, n)
	for i := range days {
		days[i] = start.Add(i)
	}
	f, err := backtest.FromSeries(days, series)
	if err != nil {
		t.Fatalf("FromSeries() error: %v", err)
	}
	return f
}

// run backtests s over f from the start weights.
func run(t *testing.T, f *backtest.Frame, start backtest.Weights, s backtest.Strategy) *backtest.Result {
	t.Helper()
	b, err := backtest.New(f, f, 1000, start)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	b.SetStrategy(s)
	r, err := b.Run(0, backtest.Options{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	return r
}

func TestHold(t *testing.T) {
	f := prices(t, date.New(2025, time.January, 1), map[string][]float64{"X": {10, 20, 15}})
	r := run(t, f, backtest.Weights{"X": 1}, Hold())
	if r.Trades.Len() != 0 {
		t.Errorf("Hold() traded %d times want 0", r.Trades.Len())
	}
	if got := r.Final(); got != 1500 {
		t.Errorf("Hold() final value = %v want 1500", got)
	}
}

func TestBuyAndHold(t *testing.T) {
	f := prices(t, date.New(2025, time.January, 1), map[string][]float64{
		"X": {10, 20, 20},
		"Y": {10, 10, 20},
	})
	r := run(t, f, backtest.Weights{}, BuyAndHold(backtest.Weights{"X": 0.5, "Y": 0.5}))
	if r.Trades.Len() != 1 || r.Trades.Dates[0] != f.At(0) {
		t.Errorf("BuyAndHold() trades = %v want one on %s", r.Trades.Dates, f.At(0))
	}
	// 50 X and 50 Y
	if got := r.Final(); got != 2000 {
		t.Errorf("BuyAndHold() final value = %v want 2000", got)
	}
}

func TestRebalance(t *testing.T) {
	// two days in January, then three in February
	f := prices(t, date.New(2025, time.January, 30), map[string][]float64{
		"X": {10, 10, 10, 10, 10},
		"Y": {10, 10, 10, 10, 10},
	})
	testCases := []struct {
		every date.Period
		want  int
	}{
		{date.Daily, 5},
		{date.Monthly, 2},
		{date.Yearly, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.every.String(), func(t *testing.T) {
			r := run(t, f, backtest.Weights{}, Rebalance(backtest.Weights{"X": 0.5, "Y": 0.5}, tc.every))
			if got := r.Trades.Len(); got != tc.want {
				t.Errorf("Rebalance(%s) traded on %v want %d trades", tc.every, r.Trades.Dates, tc.want)
			}
		})
	}
}

func TestMomentum(t *testing.T) {
	f := prices(t, date.New(2025, time.January, 1), map[string][]float64{
		"X": {10, 11, 12, 12, 11, 10},
		"Y": {10, 10, 10, 11, 12, 13},
	})
	s := Momentum(1, "Y", "X")

	var picks []backtest.Weights
	for i := range f.Len() {
		w, err := s.Allocate(f.Head(i+1), false)
		if err != nil {
			t.Fatalf("Allocate() error: %v", err)
		}
		picks = append(picks, w)
	}
	want := []backtest.Weights{
		nil,              // not enough rows
		{"X": 1, "Y": 0}, // X +10%
		nil,              // X still best
		{"X": 0, "Y": 1}, // Y +10%, X flat
		nil,              // Y still best
		nil,              // Y still best
	}
	for i := range want {
		if !sameWeights(picks[i], want[i]) {
			t.Errorf("Allocate() on row %d = %v want %v", i, picks[i], want[i])
		}
	}
}

func TestMomentumCash(t *testing.T) {
	f := prices(t, date.New(2025, time.January, 1), map[string][]float64{
		"X": {10, 9, 8},
	})
	r := run(t, f, backtest.Weights{"X": 1}, Momentum(1, "X"))
	// goes to cash on the second day, first decision is always issued.
	if r.Trades.Len() != 1 {
		t.Errorf("Momentum() traded on %v want once", r.Trades.Dates)
	}
	if want := []float64{1000, 900, 900}; !equal(r.Values, want) {
		t.Errorf("Momentum() values = %v want %v", r.Values, want)
	}
}

func TestMomentumUnknownColumn(t *testing.T) {
	f := prices(t, date.New(2025, time.January, 1), map[string][]float64{"X": {10, 11}})
	if _, err := Momentum(1, "Z").Allocate(f, false); err == nil {
		t.Errorf("Momentum(Z).Allocate() succeeded want error")
	}
}

func TestParse(t *testing.T) {
	testCases := []struct {
		spec    Spec
		wantErr error
	}{
		{Spec{}, nil},
		{Spec{Name: "hold"}, nil},
		{Spec{Name: "buy-and-hold", Weights: backtest.Weights{"X": 1}}, nil},
		{Spec{Name: "rebalance", Weights: backtest.Weights{"X": 0.5, "Y": 0.5}, Every: "quarterly"}, nil},
		{Spec{Name: "momentum", Lookback: 20, Symbols: []string{"X", "Y"}}, nil},
		{Spec{Name: "buy-and-hold", Weights: backtest.Weights{"X": 0.5}}, &backtest.InvalidAllocationError{}},
		{Spec{Name: "rebalance", Weights: backtest.Weights{"X": 1}, Every: "fortnightly"}, errAny},
		{Spec{Name: "momentum", Symbols: []string{"X"}}, errAny},
		{Spec{Name: "momentum", Lookback: 5}, errAny},
		{Spec{Name: "martingale"}, ErrUnknownStrategy},
	}
	for _, tc := range testCases {
		t.Run(tc.spec.String(), func(t *testing.T) {
			s, err := Parse(tc.spec)
			switch {
			case tc.wantErr == nil && err != nil:
				t.Errorf("Parse(%v) error: %v", tc.spec, err)
			case tc.wantErr == nil && s == nil:
				t.Errorf("Parse(%v) returned no strategy", tc.spec)
			case tc.wantErr != nil && err == nil:
				t.Errorf("Parse(%v) succeeded want error", tc.spec)
			case tc.wantErr == ErrUnknownStrategy && !errors.Is(err, ErrUnknownStrategy):
				t.Errorf("Parse(%v) error = %v want %v", tc.spec, err, ErrUnknownStrategy)
			}
			var invalid *backtest.InvalidAllocationError
			if _, ok := tc.wantErr.(*backtest.InvalidAllocationError); ok && !errors.As(err, &invalid) {
				t.Errorf("Parse(%v) error = %v want *InvalidAllocationError", tc.spec, err)
			}
		})
	}
}

var errAny = errors.New("any error")

func sameWeights(a, b backtest.Weights) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

func equal(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if d := a[i] - b[i]; d > 1e-9 || d < -1e-9 {
			return false
		}
	}
	return true
}
