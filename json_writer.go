package backtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
)

// jsonObjectWriter builds a JSON object keeping the order of its fields.
// Its zero value is ready to use.
type jsonObjectWriter struct {
	bytes.Buffer
	err error
}

// Append adds a key-value pair, the value is marshaled with json.Marshal.
func (w *jsonObjectWriter) Append(key string, value any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	k, err := json.Marshal(key)
	if err != nil {
		w.err = err
		return w
	}
	v, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("failed to marshal value for key %q: %w", key, err)
		return w
	}
	w.Write(k)
	w.WriteByte(':')
	w.Write(v)
	w.WriteByte(',')
	return w
}

// Number adds a numeric field, NaN is null.
func (w *jsonObjectWriter) Number(key string, v float64) *jsonObjectWriter {
	if math.IsNaN(v) {
		return w.Append(key, nil)
	}
	return w.Append(key, v)
}

// MarshalJSON returns the object built so far.
func (w *jsonObjectWriter) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	content := bytes.TrimSuffix(w.Bytes(), []byte(","))
	final := make([]byte, 0, len(content)+2)
	final = append(final, '{')
	final = append(final, content...)
	return append(final, '}'), nil
}

// EncodeFrameJSONL writes f in the JSONL format read by DecodeFrameJSONL, the date first
// then columns in order. Missing observations are null.
func EncodeFrameJSONL(w io.Writer, f *Frame) error {
	for i, row := range f.rows {
		var obj jsonObjectWriter
		obj.Append(attrDate, f.At(i))
		for j, c := range f.columns {
			obj.Number(c, row[j])
		}
		line, err := obj.MarshalJSON()
		if err != nil {
			return err
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return err
		}
	}
	return nil
}
