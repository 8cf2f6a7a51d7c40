package backtest

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/etnz/backtest/date"
)

// Frame is a table of float64 observations indexed by date: one row per date and one
// column per name (an asset symbol for prices, any feature for strategy data).
//
// A NaN cell means there is no observation. Frames are immutable, Head and Upto return
// views sharing the same storage.
type Frame struct {
	index   date.Index
	columns []string
	cols    map[string]int
	rows    [][]float64
}

// NewFrame returns a frame over index. rows[i][j] is the value of columns[j] at index.At(i).
func NewFrame(index date.Index, columns []string, rows [][]float64) (*Frame, error) {
	if len(rows) != index.Len() {
		return nil, fmt.Errorf("frame has %d rows for %d dates", len(rows), index.Len())
	}
	cols := make(map[string]int, len(columns))
	for j, c := range columns {
		if _, exists := cols[c]; exists {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		cols[c] = j
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %s has %d values for %d columns", index.At(i), len(row), len(columns))
		}
	}
	return &Frame{
		index:   index,
		columns: slices.Clone(columns),
		cols:    cols,
		rows:    rows,
	}, nil
}

// FromSeries builds a frame from one series per column. Every series must have one value
// per date. Columns are sorted alphabetically.
func FromSeries(dates []date.Date, series map[string][]float64) (*Frame, error) {
	index, err := date.NewIndex(dates...)
	if err != nil {
		return nil, err
	}
	columns := slices.Sorted(maps.Keys(series))
	rows := make([][]float64, len(dates))
	for i := range rows {
		rows[i] = make([]float64, len(columns))
	}
	for j, c := range columns {
		values := series[c]
		if len(values) != len(dates) {
			return nil, fmt.Errorf("series %q has %d values for %d dates", c, len(values), len(dates))
		}
		for i, v := range values {
			rows[i][j] = v
		}
	}
	return NewFrame(index, columns, rows)
}

// Index returns the time index of the frame.
func (f *Frame) Index() date.Index { return f.index }

// Len returns the number of rows.
func (f *Frame) Len() int { return f.index.Len() }

// Columns returns the column names.
func (f *Frame) Columns() []string { return slices.Clone(f.columns) }

// Has reports whether the frame has a column named c.
func (f *Frame) Has(c string) bool {
	_, ok := f.cols[c]
	return ok
}

// At returns the date of row i.
func (f *Frame) At(i int) date.Date { return f.index.At(i) }

// Value returns the value of column c on row i, and false if there is none.
func (f *Frame) Value(i int, c string) (float64, bool) {
	j, ok := f.cols[c]
	if !ok || i < 0 || i >= len(f.rows) {
		return 0, false
	}
	v := f.rows[i][j]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Price returns the value of column symbol on the given date, and false if there is none.
func (f *Frame) Price(on date.Date, symbol string) (float64, bool) {
	i, found := f.index.Position(on)
	if !found {
		return 0, false
	}
	return f.Value(i, symbol)
}

// Column returns a copy of the values of column c, or nil if there is no such column.
func (f *Frame) Column(c string) []float64 {
	j, ok := f.cols[c]
	if !ok {
		return nil
	}
	values := make([]float64, len(f.rows))
	for i, row := range f.rows {
		values[i] = row[j]
	}
	return values
}

// Head returns a view on the first n rows.
func (f *Frame) Head(n int) *Frame {
	n = min(max(n, 0), len(f.rows))
	return &Frame{
		index:   f.index.Slice(0, n),
		columns: f.columns,
		cols:    f.cols,
		rows:    f.rows[:n:n],
	}
}

// Upto returns a view on all rows on or before the given date.
func (f *Frame) Upto(on date.Date) *Frame { return f.Head(f.index.Upto(on)) }
