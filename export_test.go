package backtest

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestEncodeHistoryCSV(t *testing.T) {
	prices := frame(t, map[string][]float64{"X": {10, 20, 10}})
	b, err := New(prices, prices, 1000, Weights{"X": 1})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	// an empty allocation is no trade, go to cash explicitly on day 2.
	b.SetStrategy(StrategyFunc(func(window *Frame, _ bool) (Weights, error) {
		if window.Len() == 2 {
			return Weights{"X": 0}, nil
		}
		return nil, nil
	}))
	r, err := b.Run(0, Options{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	var buf bytes.Buffer
	if err := EncodeHistoryCSV(&buf, r); err != nil {
		t.Fatalf("EncodeHistoryCSV() error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("EncodeHistoryCSV() wrote %d lines want 4:\n%s", len(lines), buf.String())
	}
	if got, want := lines[0], "date,value,return,trade"; got != want {
		t.Errorf("EncodeHistoryCSV() header = %q want %q", got, want)
	}
	if !strings.HasPrefix(lines[1], "2025-01-01,1000,") || !strings.HasSuffix(lines[1], ",false") {
		t.Errorf("EncodeHistoryCSV() first row = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "2025-01-02,2000,") || !strings.HasSuffix(lines[2], ",true") {
		t.Errorf("EncodeHistoryCSV() trade row = %q", lines[2])
	}
}

func TestEncodeFrameCSV(t *testing.T) {
	f := frame(t, map[string][]float64{"Y": {20, math.NaN()}, "X": {10.5, 11}})

	var buf bytes.Buffer
	if err := EncodeFrameCSV(&buf, f); err != nil {
		t.Fatalf("EncodeFrameCSV() error: %v", err)
	}
	want := "date,X,Y\n2025-01-01,10.5,20\n2025-01-02,11,\n"
	if got := buf.String(); got != want {
		t.Errorf("EncodeFrameCSV() = %q want %q", got, want)
	}

	back, err := DecodeFrameCSV(&buf)
	if err != nil {
		t.Fatalf("DecodeFrameCSV() error: %v", err)
	}
	checkFrame(t, back, []string{"X", "Y"}, map[string][]float64{"X": {10.5, 11}, "Y": {20, math.NaN()}})
}

func TestRunAll(t *testing.T) {
	prices := frame(t, map[string][]float64{"X": {10, 12, 9}})
	newBacktester := func(weights Weights) func() (*Backtester, error) {
		return func() (*Backtester, error) { return New(prices, prices, 1000, weights) }
	}
	jobs := []Job{
		{Name: "invested", New: newBacktester(Weights{"X": 1}), Strategy: hold},
		{Name: "cash", New: newBacktester(Weights{}), Strategy: hold},
		{Name: "late", New: newBacktester(Weights{"X": 1}), Strategy: hold, Start: 1, Options: Options{Label: "late start"}},
	}
	results, err := RunAll(context.Background(), jobs, 2)
	if err != nil {
		t.Fatalf("RunAll() error: %v", err)
	}
	if len(results) != len(jobs) {
		t.Fatalf("RunAll() returned %d results want %d", len(results), len(jobs))
	}
	wants := []struct {
		label string
		final float64
	}{
		{"invested", 900},
		{"cash", 1000},
		{"late start", 750},
	}
	for i, want := range wants {
		r := results[i]
		if r.Label != want.label || !near(r.Final(), want.final) {
			t.Errorf("RunAll()[%d] = %q ending at %v want %q ending at %v", i, r.Label, r.Final(), want.label, want.final)
		}
	}
}

func TestRunAllError(t *testing.T) {
	prices := frame(t, map[string][]float64{"X": {10, 12}})
	jobs := []Job{
		{Name: "ok", New: func() (*Backtester, error) { return New(prices, prices, 1000, Weights{}) }, Strategy: hold},
		{Name: "bad", New: func() (*Backtester, error) { return New(prices, prices, 1000, Weights{"X": 0.5}) }, Strategy: hold},
	}
	_, err := RunAll(context.Background(), jobs, 0)
	var invalid *InvalidAllocationError
	if !errors.As(err, &invalid) {
		t.Errorf("RunAll() error = %v want *InvalidAllocationError", err)
	}
	if err != nil && !strings.Contains(err.Error(), `"bad"`) {
		t.Errorf("RunAll() error = %v want the job name", err)
	}
}
