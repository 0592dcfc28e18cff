// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package topdown

import (
	"log/slog"

	"topdown/internal/arch"
	"topdown/internal/table"
)

// Options adjusts an analysis
type Options struct {
	Expressions *ExpressionSet // optional user-defined metrics
}

// Result is the outcome of analyzing a table
type Result struct {
	Architecture arch.Architecture
	Samples      []Sample
	Records      []Record
}

// Analyze resolves the architecture, derives and classifies every row, and assembles
// the output records. An unsupported architecture or a missing counter column fails
// before any row is derived.
func Analyze(samples table.Samples, archName string, opts Options) (result Result, err error) {
	if result.Architecture, err = arch.Resolve(archName); err != nil {
		return
	}
	if result.Samples, err = Derive(samples, result.Architecture); err != nil {
		return
	}
	for i := range result.Samples {
		opts.Expressions.Evaluate(&result.Samples[i])
	}
	ClassifyAll(result.Samples)
	result.Records = Assemble(result.Samples)
	slog.Debug("analysis complete", slog.String("arch", archName), slog.Int("records", len(result.Records)))
	return
}
