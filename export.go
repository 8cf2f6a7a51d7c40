package backtest

import (
	"io"
	"math"
	"strconv"

	"github.com/gocarina/gocsv"
)

// historyRow is one line of an exported value history.
type historyRow struct {
	Date   string  `csv:"date"`
	Value  float64 `csv:"value"`
	Return float64 `csv:"return"`
	Trade  bool    `csv:"trade"`
}

// EncodeHistoryCSV writes the value history of r as CSV, one row per simulated date.
//
// The return of a row is the return from the previous row to this one, 0 on the first.
func EncodeHistoryCSV(w io.Writer, r *Result) error {
	rows := make([]*historyRow, len(r.Dates))
	for i, on := range r.Dates {
		row := &historyRow{
			Date:  on.String(),
			Value: r.Values[i],
			Trade: r.IsTrade(on),
		}
		if i > 0 {
			row.Return = r.Returns[i-1]
		}
		rows[i] = row
	}
	return gocsv.Marshal(&rows, w)
}

// EncodeFrameCSV writes f in the CSV format read by DecodeFrameCSV. Missing observations
// are empty cells.
func EncodeFrameCSV(w io.Writer, f *Frame) error {
	out := gocsv.DefaultCSVWriter(w)
	if err := out.Write(append([]string{attrDate}, f.columns...)); err != nil {
		return err
	}
	for i, row := range f.rows {
		rec := make([]string, 0, len(row)+1)
		rec = append(rec, f.At(i).String())
		for _, v := range row {
			cell := ""
			if !math.IsNaN(v) {
				cell = strconv.FormatFloat(v, 'f', -1, 64)
			}
			rec = append(rec, cell)
		}
		if err := out.Write(rec); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}
