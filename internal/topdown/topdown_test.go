// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package topdown

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topdown/internal/arch"
	"topdown/internal/table"
)

const tolerance = 1e-12

// counterRow builds an input row holding the raw fields of the given logical counters
func counterRow(a arch.Architecture, values map[arch.Counter]float64) table.Row {
	row := make(table.Row)
	for c, v := range values {
		row[a.Field(c)] = v
	}
	return row
}

// newSamples builds a table with a path column followed by every raw counter column
func newSamples(a arch.Architecture, paths []string, rows []map[arch.Counter]float64) table.Samples {
	var samples table.Samples
	keys := append([]string{"path"}, a.RawFields()...)
	for i, values := range rows {
		row := counterRow(a, values)
		row["path"] = paths[i]
		samples.AddRow(row, keys)
	}
	return samples
}

func mustResolve(t *testing.T, name string) arch.Architecture {
	t.Helper()
	a, err := arch.Resolve(name)
	require.NoError(t, err)
	return a
}

// retiringRow is dominated by retiring
func retiringRow() map[arch.Counter]float64 {
	return map[arch.Counter]float64{
		arch.Clocks:           1000,
		arch.RetireSlots:      2000,
		arch.RecoveryCycles:   10,
		arch.UopsAny:          2200,
		arch.UopsNotDelivered: 800,
		arch.Branches:         90,
		arch.MachineClears:    10,
		arch.IdleCycles:       100,
		arch.ThreadC1:         300,
		arch.ThreadC2:         150,
		arch.L3Hit:            70,
		arch.L3Miss:           10,
		arch.MemStalls:        400,
		arch.L1Stalls:         300,
		arch.L2Stalls:         140,
	}
}

// memoryRow is backend and memory bound with no L3 activity
func memoryRow() map[arch.Counter]float64 {
	return map[arch.Counter]float64{
		arch.Clocks:           1000,
		arch.RetireSlots:      800,
		arch.RecoveryCycles:   0,
		arch.UopsAny:          800,
		arch.UopsNotDelivered: 400,
		arch.Branches:         5,
		arch.MachineClears:    5,
		arch.IdleCycles:       500,
		arch.ThreadC1:         300,
		arch.ThreadC2:         100,
		arch.L3Hit:            0,
		arch.L3Miss:           0,
		arch.MemStalls:        600,
		arch.L1Stalls:         500,
		arch.L2Stalls:         100,
	}
}

func TestDeriveMetrics(t *testing.T) {
	a := mustResolve(t, arch.IvyBridge)
	var c Counters
	for k, v := range retiringRow() {
		c[k] = v
	}
	m := DeriveMetrics(c, a)
	expected := map[Metric]float64{
		Retiring:          0.5,
		BadSpeculation:    0.06,
		FrontendBound:     0.2,
		BackendBound:      0.24,
		BranchMispredict:  0.9,
		MachineClear:      0.1,
		FrontendLatency:   0.8,
		FrontendBandwidth: 0.2,
		MemoryBound:       0.4,
		CoreBound:         -0.15,
		MemBound:          0.07,
		L1Bound:           0.1,
		L2Bound:           0.16,
		L3Bound:           0.07,
		UncoreBound:       0.14,
	}
	for metric, value := range expected {
		assert.InDelta(t, value, m[metric], tolerance, metric.String())
	}
}

func TestDeriveMetricsWorkedExample(t *testing.T) {
	a := mustResolve(t, arch.Broadwell)
	var c Counters
	c[arch.Clocks] = 1000
	c[arch.RetireSlots] = 3200
	c[arch.RecoveryCycles] = 0
	c[arch.UopsAny] = 3200
	c[arch.Branches] = 90
	c[arch.MachineClears] = 10
	m := DeriveMetrics(c, a)
	assert.Equal(t, 0.8, m[Retiring])
	assert.Equal(t, 0.0, m[BadSpeculation])
	assert.InDelta(t, 0.9, m[BranchMispredict], tolerance)
	assert.InDelta(t, 0.1, m[MachineClear], tolerance)
}

func TestDeriveMetricsComplementarySums(t *testing.T) {
	a := mustResolve(t, arch.IvyBridge)
	for _, values := range []map[arch.Counter]float64{retiringRow(), memoryRow()} {
		var c Counters
		for k, v := range values {
			c[k] = v
		}
		m := DeriveMetrics(c, a)
		assert.InDelta(t, 1.0, m[Retiring]+m[BadSpeculation]+m[FrontendBound]+m[BackendBound], tolerance)
		assert.InDelta(t, 1.0, m[BranchMispredict]+m[MachineClear], tolerance)
		assert.InDelta(t, 1.0, m[FrontendLatency]+m[FrontendBandwidth], tolerance)
	}
}

func TestDeriveMetricsFrontendClip(t *testing.T) {
	a := mustResolve(t, arch.IvyBridge)
	var c Counters
	c[arch.Clocks] = 100
	c[arch.UopsNotDelivered] = 2
	m := DeriveMetrics(c, a)
	assert.Equal(t, 4.0/100, m[FrontendLatency])

	c[arch.UopsNotDelivered] = math.NaN()
	m = DeriveMetrics(c, a)
	assert.True(t, math.IsNaN(m[FrontendLatency]))
}

func TestDeriveMetricsDegenerate(t *testing.T) {
	a := mustResolve(t, arch.IvyBridge)
	c := Counters{}
	c[arch.Clocks] = 0
	c[arch.RetireSlots] = 10
	m := DeriveMetrics(c, a)
	assert.True(t, math.IsInf(m[Retiring], 1))
	assert.True(t, math.IsInf(m[BadSpeculation], -1))
	assert.True(t, math.IsNaN(m[BranchMispredict]))
	assert.True(t, math.IsNaN(m[MemBound]))
}

func TestDeriveMetricsNoL3Activity(t *testing.T) {
	a := mustResolve(t, arch.IvyBridge)
	var c Counters
	for k, v := range memoryRow() {
		c[k] = v
	}
	m := DeriveMetrics(c, a)
	assert.True(t, math.IsNaN(m[MemBound]))
	assert.True(t, math.IsNaN(m[L3Bound]))
	assert.InDelta(t, 0.1, m[L1Bound], tolerance)
	assert.InDelta(t, 0.4, m[L2Bound], tolerance)
	assert.InDelta(t, 0.1, m[UncoreBound], tolerance)
}

func TestDerive(t *testing.T) {
	a := mustResolve(t, arch.IvyBridge)
	samples := newSamples(a, []string{"main", "main/solve"}, []map[arch.Counter]float64{retiringRow(), memoryRow()})
	// an unmapped counter and a stale metric column are not passed through
	samples.Rows[0]["libpfm.counter.INST_RETIRED.ANY"] = 12.0
	samples.Rows[0]["retiring"] = 0.99
	samples.Rows[0]["count"] = 3.0
	samples.Columns = append(samples.Columns, "libpfm.counter.INST_RETIRED.ANY", "retiring", "count")

	derived, err := Derive(samples, a)
	require.NoError(t, err)
	require.Len(t, derived, 2)
	assert.Equal(t, []Field{{Name: "path", Value: "main"}, {Name: "count", Value: 3.0}}, derived[0].Fields)
	assert.Equal(t, []Field{{Name: "path", Value: "main/solve"}}, derived[1].Fields)
	assert.Equal(t, 1, derived[1].Index)
	assert.InDelta(t, 0.5, derived[0].Metrics[Retiring], tolerance)
}

func TestDeriveMissingColumn(t *testing.T) {
	ivb := mustResolve(t, arch.IvyBridge)
	bdw := mustResolve(t, arch.Broadwell)
	// broadwell names its clocks and branches fields differently
	samples := newSamples(bdw, []string{"main"}, []map[arch.Counter]float64{retiringRow()})
	derived, err := Derive(samples, ivb)
	require.Error(t, err)
	assert.True(t, errors.Is(err, arch.ErrMissingCounter))
	assert.Nil(t, derived)
}

func TestDeriveMissingCell(t *testing.T) {
	a := mustResolve(t, arch.IvyBridge)
	samples := newSamples(a, []string{"main"}, []map[arch.Counter]float64{retiringRow()})
	delete(samples.Rows[0], a.Field(arch.L3Hit))
	derived, err := Derive(samples, a)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(derived[0].Counters[arch.L3Hit]))
	assert.True(t, math.IsNaN(derived[0].Metrics[L3Bound]))
}

func TestDeriveNonNumericCounter(t *testing.T) {
	a := mustResolve(t, arch.IvyBridge)
	samples := newSamples(a, []string{"main"}, []map[arch.Counter]float64{retiringRow()})
	samples.Rows[0][a.Field(arch.Clocks)] = "n/a"
	_, err := Derive(samples, a)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNonNumericCounter))
	assert.True(t, errors.Is(err, table.ErrNotNumeric))
	assert.Contains(t, err.Error(), "row 0")
}

func TestMetricNames(t *testing.T) {
	assert.Equal(t, []string{
		"retiring", "bad_speculation", "frontend_bound", "backend_bound",
		"branch_mispredict", "machine_clear", "frontend_latency", "frontend_bandwidth",
		"memory_bound", "core_bound", "mem_bound", "l1_bound", "l2_bound", "l3_bound", "uncore_bound",
	}, MetricNames())
	m, ok := MetricByName("l3_bound")
	require.True(t, ok)
	assert.Equal(t, L3Bound, m)
	assert.Equal(t, 3, m.Level())
	_, ok = MetricByName("boundedness")
	assert.False(t, ok)
	assert.Equal(t, "Metric(99)", Metric(99).String())
}
