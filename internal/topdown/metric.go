// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package topdown derives the topdown pipeline-slot breakdown from raw hardware counters
// and classifies each sample by its dominant bottleneck.
package topdown

import (
	"fmt"
	"math"
	"slices"
)

// Metric identifies one of the hierarchical topdown ratios
type Metric int

// Level 1
const (
	Retiring Metric = iota
	BadSpeculation
	FrontendBound
	BackendBound
	// Level 2
	BranchMispredict
	MachineClear
	FrontendLatency
	FrontendBandwidth
	MemoryBound
	CoreBound
	// Level 3
	MemBound
	L1Bound
	L2Bound
	L3Bound
	UncoreBound
	NumMetrics // must be last
)

var metricNames = [NumMetrics]string{
	Retiring:          "retiring",
	BadSpeculation:    "bad_speculation",
	FrontendBound:     "frontend_bound",
	BackendBound:      "backend_bound",
	BranchMispredict:  "branch_mispredict",
	MachineClear:      "machine_clear",
	FrontendLatency:   "frontend_latency",
	FrontendBandwidth: "frontend_bandwidth",
	MemoryBound:       "memory_bound",
	CoreBound:         "core_bound",
	MemBound:          "mem_bound",
	L1Bound:           "l1_bound",
	L2Bound:           "l2_bound",
	L3Bound:           "l3_bound",
	UncoreBound:       "uncore_bound",
}

var metricLevels = [NumMetrics]int{
	Retiring: 1, BadSpeculation: 1, FrontendBound: 1, BackendBound: 1,
	BranchMispredict: 2, MachineClear: 2, FrontendLatency: 2, FrontendBandwidth: 2, MemoryBound: 2, CoreBound: 2,
	MemBound: 3, L1Bound: 3, L2Bound: 3, L3Bound: 3, UncoreBound: 3,
}

func (m Metric) String() string {
	if m < 0 || m >= NumMetrics {
		return fmt.Sprintf("Metric(%d)", int(m))
	}
	return metricNames[m]
}

// Level returns the hierarchy level, 1 through 3, of the metric
func (m Metric) Level() int {
	return metricLevels[m]
}

// MetricNames returns the names of all metrics in hierarchy order
func MetricNames() []string {
	return slices.Clone(metricNames[:])
}

// MetricByName returns the metric with the given name
func MetricByName(name string) (Metric, bool) {
	for i, n := range metricNames {
		if n == name {
			return Metric(i), true
		}
	}
	return NumMetrics, false
}

// Metrics holds the value of every hierarchical metric for one sample.
// Values may be NaN (0/0) or infinite (x/0).
type Metrics [NumMetrics]float64

// Get returns the value of a metric
func (m Metrics) Get(metric Metric) float64 {
	return m[metric]
}

// Finite reports whether the metric value is neither NaN nor infinite
func (m Metrics) Finite(metric Metric) bool {
	v := m[metric]
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
