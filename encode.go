package backtest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/backtest/date"
	"github.com/gocarina/gocsv"
)

// attrDate is the name of the column or attribute holding the date of a row.
const attrDate = "date"

// This file decodes frames from human-readable files.
//
// Every format describes one row per date, with a "date" attribute and one numeric
// attribute per column:
//   CSV:   a header "date,X,Y" then one line per date. Empty cells have no observation.
//   JSONL: one object per line {"date":"2025-01-02","X":10,"Y":null}.
//   JSON:  any document, the list of row objects is selected with a JSONPath expression.
//
// Rows must be in strictly increasing date order. Columns are sorted alphabetically.

// frameBuilder accumulates rows in a file order, columns are discovered on the way.
type frameBuilder struct {
	index   date.Index
	rows    []map[string]float64
	columns map[string]struct{}
}

func (b *frameBuilder) add(on date.Date, values map[string]float64) error {
	if err := b.index.Append(on); err != nil {
		return err
	}
	if b.columns == nil {
		b.columns = make(map[string]struct{})
	}
	for c := range values {
		b.columns[c] = struct{}{}
	}
	b.rows = append(b.rows, values)
	return nil
}

func (b *frameBuilder) build() (*Frame, error) {
	columns := slices.Sorted(maps.Keys(b.columns))
	rows := make([][]float64, len(b.rows))
	for i, values := range b.rows {
		row := make([]float64, len(columns))
		for j, c := range columns {
			v, ok := values[c]
			if !ok {
				v = math.NaN()
			}
			row[j] = v
		}
		rows[i] = row
	}
	return NewFrame(b.index, columns, rows)
}

// DecodeFrameCSV decodes a frame from CSV.
func DecodeFrameCSV(r io.Reader) (*Frame, error) {
	records, err := gocsv.CSVToMaps(r)
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	var b frameBuilder
	for i, rec := range records {
		line := i + 2 // 1-based, after the header
		on, values, err := parseCSVRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("format error on line %d: %w", line, err)
		}
		if err := b.add(on, values); err != nil {
			return nil, fmt.Errorf("format error on line %d: %w", line, err)
		}
	}
	return b.build()
}

func parseCSVRecord(rec map[string]string) (date.Date, map[string]float64, error) {
	raw, ok := rec[attrDate]
	if !ok {
		return date.Date{}, nil, fmt.Errorf("missing %q column", attrDate)
	}
	on, err := date.Parse(strings.TrimSpace(raw))
	if err != nil {
		return date.Date{}, nil, err
	}
	values := make(map[string]float64, len(rec)-1)
	for c, cell := range rec {
		if c == attrDate {
			continue
		}
		cell = strings.TrimSpace(cell)
		if cell == "" {
			values[c] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return date.Date{}, nil, fmt.Errorf("invalid value %q in column %q: %w", cell, c, err)
		}
		values[c] = v
	}
	return on, values, nil
}

// DecodeFrameJSONL decodes a frame from JSONL, one row object per line.
func DecodeFrameJSONL(r io.Reader) (*Frame, error) {
	var b frameBuilder
	scanner := bufio.NewScanner(r)
	i := 0
	for scanner.Scan() {
		i++
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			return nil, fmt.Errorf("format error on line %d %q: %w", i, string(line), err)
		}
		if err := b.addObject(obj); err != nil {
			return nil, fmt.Errorf("format error on line %d: %w", i, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return b.build()
}

// DecodeFrameJSON decodes a frame from a JSON document. path is a JSONPath expression
// selecting the list of row objects, like "$.data" or "$.series[*]". An empty path
// selects the root.
func DecodeFrameJSON(r io.Reader, path string) (*Frame, error) {
	var doc any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("reading json: %w", err)
	}
	if path == "" {
		path = "$"
	}
	selected, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, fmt.Errorf("evaluating %q: %w", path, err)
	}
	list, ok := selected.([]any)
	if !ok {
		return nil, fmt.Errorf("%q does not select a list of rows but %T", path, selected)
	}
	var b frameBuilder
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("row %d is not an object but %T", i, item)
		}
		if err := b.addObject(obj); err != nil {
			return nil, fmt.Errorf("format error in row %d: %w", i, err)
		}
	}
	return b.build()
}

// addObject adds a row read from json.
func (b *frameBuilder) addObject(obj map[string]any) error {
	raw, ok := obj[attrDate].(string)
	if !ok {
		return fmt.Errorf("missing %q string attribute", attrDate)
	}
	on, err := date.Parse(raw)
	if err != nil {
		return err
	}
	values := make(map[string]float64, len(obj)-1)
	for c, jv := range obj {
		if c == attrDate {
			continue
		}
		switch v := jv.(type) {
		case nil:
			values[c] = math.NaN()
		case float64:
			values[c] = v
		case string:
			// some APIs quote their numbers
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value %q for %q: %w", v, c, err)
			}
			values[c] = f
		default:
			return fmt.Errorf("invalid value %v for %q: not a number", jv, c)
		}
	}
	return b.add(on, values)
}

// OpenFrame decodes a frame from a file, the format is chosen from the extension:
// ".csv", ".jsonl" or ".json". jsonPath is only used for ".json" files.
func OpenFrame(name, jsonPath string) (*Frame, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var frame *Frame
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv":
		frame, err = DecodeFrameCSV(f)
	case ".jsonl":
		frame, err = DecodeFrameJSONL(f)
	case ".json":
		frame, err = DecodeFrameJSON(f, jsonPath)
	default:
		return nil, fmt.Errorf("unsupported file format %q for %q", ext, name)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %w", name, err)
	}
	return frame, nil
}
