package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/etnz/backtest/date"
)

// days returns n consecutive dates starting on 2025-01-01.
func days(n int) []date.Date {
	d := make([]date.Date, n)
	for i := range d {
		d[i] = date.New(2025, time.January, 1+i)
	}
	return d
}

// frame is a helper for test to create a frame over consecutive days.
func frame(t *testing.T, series map[string][]float64) *Frame {
	t.Helper()
	n := 0
	for _, values := range series {
		n = len(values)
		break
	}
	f, err := FromSeries(days(n), series)
	if err != nil {
		t.Fatalf("FromSeries() error: %v", err)
	}
	return f
}

// hold is a strategy that never trades.
var hold = StrategyFunc(func(*Frame, bool) (Weights, error) { return nil, nil })

// near reports whether a and b are equal within 1e-9.
func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func equalValues(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !near(a[i], b[i]) {
			return false
		}
	}
	return true
}
