// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package table

// samples.go reads profiler output, one row per measured region, into a Samples table.

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Input formats
const (
	InputJSON      = "json"
	InputJSONLines = "jsonl"
	InputCSV       = "csv"
)

// ErrNotNumeric is returned when a numeric value is requested from a text cell
var ErrNotNumeric = fmt.Errorf("value is not numeric")

// Row maps a column name to its value. Values are float64 for numbers and string for
// text. Missing cells have no entry.
type Row map[string]any

// Samples is an ordered set of columns and the rows that populate them
type Samples struct {
	Columns []string
	Rows    []Row
}

// Value returns the value of a column and whether it is present
func (r Row) Value(column string) (any, bool) {
	v, ok := r[column]
	return v, ok
}

// Float returns the numeric value of a column. A missing cell reads as NaN.
func (r Row) Float(column string) (float64, error) {
	v, ok := r[column]
	if !ok {
		return math.NaN(), nil
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	default:
		return math.NaN(), fmt.Errorf("%w: %s=%v", ErrNotNumeric, column, v)
	}
}

// AddRow appends a row, extending the column list with any new column names in the
// order given by keys
func (s *Samples) AddRow(row Row, keys []string) {
	for _, key := range keys {
		if !s.hasColumn(key) {
			s.Columns = append(s.Columns, key)
		}
	}
	s.Rows = append(s.Rows, row)
}

func (s *Samples) hasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// FormatFromPath returns the input format implied by a file's extension
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return InputJSON, nil
	case ".jsonl", ".ndjson":
		return InputJSONLines, nil
	case ".csv":
		return InputCSV, nil
	}
	return "", fmt.Errorf("unrecognized input file extension: %s", path)
}

// Load reads samples from a file, choosing the decoder by file extension
func Load(path string) (samples Samples, err error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return
	}
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		err = errors.Wrap(err, "failed to open input file")
		return
	}
	defer f.Close()
	samples, err = Read(f, format)
	if err != nil {
		err = errors.Wrapf(err, "failed to read %s", path)
	}
	return
}

// Read decodes samples in the given format
func Read(r io.Reader, format string) (Samples, error) {
	switch format {
	case InputJSON, InputJSONLines:
		return readJSON(r)
	case InputCSV:
		return readCSV(r)
	}
	return Samples{}, fmt.Errorf("unsupported input format: %s", format)
}

// readJSON accepts either an array of objects or a stream of objects (JSON lines)
func readJSON(r io.Reader) (samples Samples, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	isArray := data[0] == '['
	if isArray {
		if _, err = dec.Token(); err != nil {
			return
		}
	}
	for dec.More() {
		var row Row
		var keys []string
		if row, keys, err = decodeObject(dec); err != nil {
			err = errors.Wrapf(err, "row %d", len(samples.Rows))
			return
		}
		samples.AddRow(row, keys)
	}
	if isArray {
		if _, err = dec.Token(); err != nil {
			return
		}
	}
	return
}

// decodeObject reads one JSON object token by token to keep the key order
func decodeObject(dec *json.Decoder) (row Row, keys []string, err error) {
	tok, err := dec.Token()
	if err != nil {
		return
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		err = fmt.Errorf("expected object, found %v", tok)
		return
	}
	row = make(Row)
	for dec.More() {
		if tok, err = dec.Token(); err != nil {
			return
		}
		key, ok := tok.(string)
		if !ok {
			err = fmt.Errorf("expected object key, found %v", tok)
			return
		}
		var raw any
		if err = dec.Decode(&raw); err != nil {
			return
		}
		keys = append(keys, key)
		switch val := raw.(type) {
		case nil:
			// null is a missing cell
		case json.Number:
			var f float64
			if f, err = strconv.ParseFloat(val.String(), 64); err != nil {
				return
			}
			row[key] = f
		case string:
			row[key] = val
		default:
			// keep booleans and nested values as text
			row[key] = fmt.Sprintf("%v", val)
		}
	}
	// closing brace
	_, err = dec.Token()
	return
}

func readCSV(r io.Reader) (samples Samples, err error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err == io.EOF {
		err = nil
		return
	}
	if err != nil {
		return
	}
	for {
		var record []string
		record, err = reader.Read()
		if err == io.EOF {
			err = nil
			break
		}
		if err != nil {
			return
		}
		row := make(Row)
		for i, cell := range record {
			if cell == "" {
				continue
			}
			if f, parseErr := strconv.ParseFloat(cell, 64); parseErr == nil {
				row[header[i]] = f
			} else {
				row[header[i]] = cell
			}
		}
		samples.AddRow(row, header)
	}
	return
}
