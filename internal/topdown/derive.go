// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package topdown

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"topdown/internal/arch"
	"topdown/internal/table"
)

// ErrNonNumericCounter is returned when a raw counter cell holds text
var ErrNonNumericCounter = errors.New("non-numeric counter value")

// Counters holds the raw counter values of one sample, indexed by logical counter
type Counters [arch.NumCounters]float64

// Field is a named value carried from the input row to the output record
type Field struct {
	Name  string
	Value any
}

// Sample is one analyzed input row
type Sample struct {
	Index       int     // position in the input table
	Fields      []Field // passthrough columns in input order, followed by expression metrics
	Counters    Counters
	Metrics     Metrics
	Boundedness []string
}

// Field returns the value of a passthrough field
func (s Sample) Field(name string) (any, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// ReadCounters binds the raw counter fields of a row to logical counters. Missing cells
// read as NaN.
func ReadCounters(row table.Row, a arch.Architecture) (counters Counters, err error) {
	for _, c := range arch.Counters() {
		var v float64
		if v, err = row.Float(a.Field(c)); err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrNonNumericCounter, c, err)
			return
		}
		counters[c] = v
	}
	return
}

// DeriveMetrics computes every hierarchical metric from one sample's counters.
// Division by zero yields infinity and 0/0 yields NaN; both propagate.
// Products feeding a sum are converted explicitly so they are rounded before the addition.
func DeriveMetrics(c Counters, a arch.Architecture) (m Metrics) {
	slots := float64(a.Slots)
	l1Latency := float64(a.L1Latency)
	clocks := c[arch.Clocks]
	totalSlots := slots * clocks

	// level 1
	m[Retiring] = c[arch.RetireSlots] / totalSlots
	m[BadSpeculation] = ((c[arch.UopsAny] - c[arch.RetireSlots]) + float64(slots*c[arch.RecoveryCycles])) / totalSlots
	m[FrontendBound] = c[arch.UopsNotDelivered] / totalSlots
	m[BackendBound] = 1 - ((m[FrontendBound] + m[BadSpeculation]) + m[Retiring])

	// level 2, bad speculation
	m[BranchMispredict] = c[arch.Branches] / (c[arch.Branches] + c[arch.MachineClears])
	m[MachineClear] = 1 - m[BranchMispredict]

	// level 2, frontend bound
	notDelivered := c[arch.UopsNotDelivered]
	if notDelivered < slots { // NaN stays NaN
		notDelivered = slots
	}
	m[FrontendLatency] = notDelivered / clocks
	m[FrontendBandwidth] = 1 - m[FrontendLatency]

	// level 2, backend bound
	m[MemoryBound] = c[arch.MemStalls] / clocks
	exeBound := ((c[arch.IdleCycles] + c[arch.ThreadC1]) - c[arch.ThreadC2]) / clocks
	m[CoreBound] = exeBound - m[MemoryBound]

	// level 3, memory bound
	weightedMisses := float64(l1Latency * c[arch.L3Miss])
	l3HitFraction := c[arch.L3Hit] / (c[arch.L3Hit] + weightedMisses)
	l3MissFraction := weightedMisses / (c[arch.L3Hit] + weightedMisses)
	m[MemBound] = (c[arch.L2Stalls] * l3MissFraction) / clocks
	m[L1Bound] = (c[arch.MemStalls] - c[arch.L1Stalls]) / clocks
	m[L2Bound] = (c[arch.L1Stalls] - c[arch.L2Stalls]) / clocks
	m[L3Bound] = (c[arch.L2Stalls] * l3HitFraction) / clocks
	m[UncoreBound] = c[arch.L2Stalls] / clocks
	return
}

// Derive validates the table's columns against the architecture and then derives the
// metrics of every row. A missing counter column fails the whole table before any row
// is processed. Counter columns are not carried into the samples' passthrough fields.
func Derive(samples table.Samples, a arch.Architecture) ([]Sample, error) {
	if err := a.Validate(samples.Columns); err != nil {
		return nil, err
	}
	passthrough := passthroughColumns(samples.Columns, a)
	slog.Debug("deriving topdown metrics", slog.String("arch", a.Name), slog.Int("rows", len(samples.Rows)), slog.Int("passthrough", len(passthrough)))
	result := make([]Sample, 0, len(samples.Rows))
	for i, row := range samples.Rows {
		counters, err := ReadCounters(row, a)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		sample := Sample{
			Index:    i,
			Counters: counters,
			Metrics:  DeriveMetrics(counters, a),
		}
		for _, column := range passthrough {
			if v, ok := row.Value(column); ok {
				sample.Fields = append(sample.Fields, Field{Name: column, Value: v})
			}
		}
		result = append(result, sample)
	}
	return result, nil
}

// passthroughColumns returns the input columns that survive into the output: every
// column that is not a raw counter, a derived metric, or the boundedness result
func passthroughColumns(columns []string, a arch.Architecture) []string {
	var kept []string
	for _, column := range columns {
		if a.IsCounterField(column) || column == BoundednessField {
			continue
		}
		if slices.Contains(metricNames[:], column) {
			continue
		}
		kept = append(kept, column)
	}
	return kept
}
