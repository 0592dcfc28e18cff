// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package topdown

import (
	"bytes"
	"encoding/json"
	"math"
)

// BoundednessField is the name of the classification entry in an output record
const BoundednessField = "boundedness"

// Record is the sparse output for one sample: its passthrough fields, without NaN
// values, followed by the boundedness labels
type Record struct {
	Fields      []Field
	Boundedness []string
}

// Get returns the value of a record entry
func (r Record) Get(name string) (any, bool) {
	if name == BoundednessField {
		return r.Boundedness, r.Boundedness != nil
	}
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Names returns the entry names of the record in output order
func (r Record) Names() []string {
	names := make([]string, 0, len(r.Fields)+1)
	for _, f := range r.Fields {
		names = append(names, f.Name)
	}
	return append(names, BoundednessField)
}

// MarshalJSON encodes the record as an object with entries in output order. Infinite
// values, which JSON cannot represent, are encoded as the strings "inf" and "-inf".
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, f := range r.Fields {
		if err := writeEntry(&buf, f.Name, jsonValue(f.Value)); err != nil {
			return nil, err
		}
		buf.WriteByte(',')
	}
	if err := writeEntry(&buf, BoundednessField, r.Boundedness); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeEntry(buf *bytes.Buffer, name string, value any) error {
	key, err := json.Marshal(name)
	if err != nil {
		return err
	}
	val, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(key)
	buf.WriteByte(':')
	buf.Write(val)
	return nil
}

func jsonValue(v any) any {
	if f, ok := v.(float64); ok {
		switch {
		case math.IsInf(f, 1):
			return "inf"
		case math.IsInf(f, -1):
			return "-inf"
		}
	}
	return v
}

// isNaN reports whether a passthrough value is a floating point NaN
func isNaN(v any) bool {
	f, ok := v.(float64)
	return ok && math.IsNaN(f)
}

// Assemble builds one record per sample, in input order. The hierarchical metrics are
// not part of the record. NaN values are omitted; infinite values are kept.
func Assemble(samples []Sample) []Record {
	records := make([]Record, 0, len(samples))
	for _, s := range samples {
		record := Record{Boundedness: s.Boundedness}
		for _, f := range s.Fields {
			if isNaN(f.Value) {
				continue
			}
			record.Fields = append(record.Fields, f)
		}
		records = append(records, record)
	}
	return records
}
