// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package topdown

// functions to create summary (mean,min,max,stddev) statistics of the hierarchical metrics

import (
	"math"
	"strings"

	"github.com/montanaflynn/stats"
)

// MetricStats summarizes the finite values of one metric across samples
type MetricStats struct {
	Metric Metric
	Count  int // number of finite values
	Mean   float64
	Min    float64
	Max    float64
	StdDev float64 // population standard deviation
}

// BoundednessCount is the number of samples whose level 1 winner is Category
type BoundednessCount struct {
	Category string
	Count    int
}

// Summary holds run-wide statistics
type Summary struct {
	Samples int
	Metrics []MetricStats
	Counts  []BoundednessCount // level 1 categories in hierarchy order, then undetermined
}

// Summarize computes statistics of every metric, ignoring NaN and infinite values, and
// counts the samples by level 1 classification. Samples must be classified.
func Summarize(samples []Sample) Summary {
	summary := Summary{Samples: len(samples)}
	for metric := Metric(0); metric < NumMetrics; metric++ {
		var data stats.Float64Data
		for _, s := range samples {
			if s.Metrics.Finite(metric) {
				data = append(data, s.Metrics[metric])
			}
		}
		summary.Metrics = append(summary.Metrics, metricStats(metric, data))
	}
	counts := make(map[string]int)
	for _, s := range samples {
		counts[level1Category(s.Boundedness)]++
	}
	for _, m := range level1Candidates {
		summary.Counts = append(summary.Counts, BoundednessCount{Category: m.String(), Count: counts[m.String()]})
	}
	summary.Counts = append(summary.Counts, BoundednessCount{Category: Undetermined, Count: counts[Undetermined]})
	return summary
}

func metricStats(metric Metric, data stats.Float64Data) MetricStats {
	ms := MetricStats{
		Metric: metric,
		Count:  data.Len(),
		Mean:   math.NaN(),
		Min:    math.NaN(),
		Max:    math.NaN(),
		StdDev: math.NaN(),
	}
	if data.Len() == 0 {
		return ms
	}
	// errors only occur for empty input
	ms.Mean, _ = stats.Mean(data)
	ms.Min, _ = stats.Min(data)
	ms.Max, _ = stats.Max(data)
	ms.StdDev, _ = stats.StandardDeviationPopulation(data)
	return ms
}

// level1Category returns the metric name of the first boundedness label. A sample whose
// level 1 value was not finite starts with a level 2 label and counts as undetermined.
func level1Category(boundedness []string) string {
	if len(boundedness) == 0 {
		return Undetermined
	}
	name, _, _ := strings.Cut(boundedness[0], " ")
	if m, ok := MetricByName(name); ok && m.Level() == 1 {
		return name
	}
	return Undetermined
}
