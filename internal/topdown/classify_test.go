// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package topdown

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func metrics(values map[Metric]float64) Metrics {
	var m Metrics
	for k, v := range values {
		m[k] = v
	}
	return m
}

func TestClassify(t *testing.T) {
	nan := math.NaN()
	inf := math.Inf(1)
	tests := []struct {
		name     string
		metrics  Metrics
		expected []string
	}{
		{
			name: "backend memory l3",
			metrics: metrics(map[Metric]float64{
				Retiring: 0.1, BadSpeculation: 0.2, FrontendBound: 0.3, BackendBound: 0.4,
				CoreBound: 0.1, MemoryBound: 0.3,
				L1Bound: 0.05, L2Bound: 0.02, L3Bound: 0.1, MemBound: 0.08, UncoreBound: 0.1,
			}),
			expected: []string{"backend_bound 40.00%", "memory_bound 30.00%", "l3_bound 10.00%"},
		},
		{
			name: "backend core has no level 3",
			metrics: metrics(map[Metric]float64{
				Retiring: 0.1, BadSpeculation: 0.1, FrontendBound: 0.1, BackendBound: 0.7,
				CoreBound: 0.5, MemoryBound: 0.2, L1Bound: 0.9,
			}),
			expected: []string{"backend_bound 70.00%", "core_bound 50.00%"},
		},
		{
			name: "level 1 tie first listed wins",
			metrics: metrics(map[Metric]float64{
				Retiring: 0.25, BadSpeculation: 0.25, FrontendBound: 0.25, BackendBound: 0.25,
			}),
			expected: []string{"retiring 25.00%"},
		},
		{
			name: "frontend bandwidth",
			metrics: metrics(map[Metric]float64{
				Retiring: 0.2, BadSpeculation: 0.1, FrontendBound: 0.5, BackendBound: 0.2,
				FrontendLatency: 0.4, FrontendBandwidth: 0.6,
			}),
			expected: []string{"frontend_bound 50.00%", "frontend_bandwidth 60.00%"},
		},
		{
			name: "bad speculation",
			metrics: metrics(map[Metric]float64{
				Retiring: 0.2, BadSpeculation: 0.5, FrontendBound: 0.2, BackendBound: 0.1,
				BranchMispredict: 0.9, MachineClear: 0.1,
			}),
			expected: []string{"bad_speculation 50.00%", "branch_mispredict 90.00%"},
		},
		{
			name: "leading NaN sticks and is undetermined",
			metrics: metrics(map[Metric]float64{
				Retiring: nan, BadSpeculation: 0.5, FrontendBound: 0.2, BackendBound: 0.3,
			}),
			expected: []string{Undetermined},
		},
		{
			name: "infinite level 1 still walks level 2",
			metrics: metrics(map[Metric]float64{
				Retiring: 0.1, BadSpeculation: inf, FrontendBound: 0.2, BackendBound: -inf,
				BranchMispredict: 0.7, MachineClear: 0.3,
			}),
			expected: []string{"branch_mispredict 70.00%"},
		},
		{
			name: "level 2 NaN is appended",
			metrics: metrics(map[Metric]float64{
				Retiring: 0.1, BadSpeculation: 0.1, FrontendBound: 0.1, BackendBound: 0.7,
				CoreBound: nan, MemoryBound: 0.2,
			}),
			expected: []string{"backend_bound 70.00%", "core_bound nan%"},
		},
		{
			name: "level 3 with NaN candidates",
			metrics: metrics(map[Metric]float64{
				Retiring: 0.2, BadSpeculation: 0.0, FrontendBound: 0.1, BackendBound: 0.7,
				CoreBound: 0.1, MemoryBound: 0.6,
				L1Bound: 0.1, L2Bound: 0.4, L3Bound: nan, MemBound: nan, UncoreBound: 0.1,
			}),
			expected: []string{"backend_bound 70.00%", "memory_bound 60.00%", "l2_bound 40.00%"},
		},
		{
			name:     "all NaN",
			metrics:  metrics(map[Metric]float64{Retiring: nan, BadSpeculation: nan, FrontendBound: nan, BackendBound: nan}),
			expected: []string{Undetermined},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.metrics))
		})
	}
}

func TestSelectMax(t *testing.T) {
	nan := math.NaN()
	m := metrics(map[Metric]float64{Retiring: 0.5, BadSpeculation: nan, FrontendBound: 0.6, BackendBound: 0.6})
	// a NaN after the first candidate is never selected
	assert.Equal(t, FrontendBound, selectMax(m, level1Candidates))
	// strictly greater replaces, equal does not
	assert.Equal(t, FrontendBound, selectMax(m, []Metric{FrontendBound, BackendBound}))
	assert.Equal(t, BadSpeculation, selectMax(m, []Metric{BadSpeculation, Retiring, FrontendBound}))
}

func TestClassifyAll(t *testing.T) {
	samples := []Sample{
		{Metrics: metrics(map[Metric]float64{Retiring: 0.9, BackendBound: 0.1})},
		{Metrics: metrics(map[Metric]float64{Retiring: math.NaN()})},
	}
	ClassifyAll(samples)
	assert.Equal(t, []string{"retiring 90.00%"}, samples[0].Boundedness)
	assert.Equal(t, []string{Undetermined}, samples[1].Boundedness)
}

func TestFormatPercentage(t *testing.T) {
	tests := []struct {
		value    float64
		expected string
	}{
		{0.9234, "92.34%"},
		{12.345, "1,234.50%"},
		{0, "0.00%"},
		{1, "100.00%"},
		{-0.05, "-5.00%"},
		{-0.15, "-15.00%"},
		{1234.56789, "123,456.79%"},
		{0.00001, "0.00%"},
		{-0.00001, "-0.00%"},
		{math.NaN(), "nan%"},
		{math.Inf(1), "inf%"},
		{math.Inf(-1), "-inf%"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatPercentage(tt.value))
		})
	}
}
