// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package topdown

import (
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Undetermined is the sole boundedness label of a sample with no finite level 1 winner
const Undetermined = "undetermined"

var (
	level1Candidates       = []Metric{Retiring, BadSpeculation, FrontendBound, BackendBound}
	badSpeculationChildren = []Metric{BranchMispredict, MachineClear}
	frontendBoundChildren  = []Metric{FrontendLatency, FrontendBandwidth}
	backendBoundChildren   = []Metric{CoreBound, MemoryBound}
	memoryBoundChildren    = []Metric{L1Bound, L2Bound, L3Bound, MemBound, UncoreBound}
)

// selectMax returns the candidate with the largest value. Candidates are scanned in
// order and only a strictly greater value replaces the current choice, so the first
// listed wins ties and a NaN in first position is never replaced.
func selectMax(m Metrics, candidates []Metric) Metric {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if m[c] > m[best] {
			best = c
		}
	}
	return best
}

// children returns the level 2 candidates below a level 1 metric
func children(level1 Metric) []Metric {
	switch level1 {
	case BadSpeculation:
		return badSpeculationChildren
	case FrontendBound:
		return frontendBoundChildren
	case BackendBound:
		return backendBoundChildren
	}
	return nil
}

// Classify walks the hierarchy and names the dominant bottleneck at each level, e.g.,
// ["backend_bound 60.00%", "memory_bound 45.00%", "l3_bound 20.00%"]. Only the level 1
// label requires a finite value. A sample with no label is ["undetermined"].
func Classify(m Metrics) []string {
	var boundedness []string
	level1 := selectMax(m, level1Candidates)
	if m.Finite(level1) {
		boundedness = append(boundedness, label(m, level1))
	}
	if candidates := children(level1); candidates != nil {
		level2 := selectMax(m, candidates)
		boundedness = append(boundedness, label(m, level2))
		if level2 == MemoryBound {
			level3 := selectMax(m, memoryBoundChildren)
			boundedness = append(boundedness, label(m, level3))
		}
	}
	if len(boundedness) == 0 {
		boundedness = append(boundedness, Undetermined)
	}
	return boundedness
}

// ClassifyAll sets the boundedness of every sample
func ClassifyAll(samples []Sample) {
	for i := range samples {
		samples[i].Boundedness = Classify(samples[i].Metrics)
	}
}

func label(m Metrics, metric Metric) string {
	return metric.String() + " " + FormatPercentage(m[metric])
}

// FormatPercentage renders a ratio as a percentage with two decimals and thousands
// separators, e.g., 0.9234 -> 92.34% and 12.345 -> 1,234.50%. Non-finite values render
// as nan%, inf% and -inf%.
func FormatPercentage(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan%"
	case math.IsInf(v, 1):
		return "inf%"
	case math.IsInf(v, -1):
		return "-inf%"
	}
	// round the exact binary value first, the printer then only adds grouping
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(v*100, 'f', 2, 64), 64)
	if err != nil {
		rounded = v * 100
	}
	sign := ""
	if math.Signbit(rounded) {
		sign = "-"
		rounded = -rounded
	}
	p := message.NewPrinter(language.English) // use printer to get commas at thousands
	return sign + p.Sprintf("%.2f", rounded) + "%"
}
