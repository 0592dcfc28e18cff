// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package topdown

// expression.go evaluates user-defined metrics, written as expressions over the logical
// counters, the hierarchical metrics, and previously defined expression metrics

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/casbin/govaluate"
	mapset "github.com/deckarep/golang-set/v2"
	"gopkg.in/yaml.v2"

	"topdown/internal/arch"
)

// ExpressionDefinition is a user-defined metric as read from a metric file
type ExpressionDefinition struct {
	Name        string                         `yaml:"name"`
	Expression  string                         `yaml:"expression"`
	Description string                         `yaml:"description"`
	Evaluable   *govaluate.EvaluableExpression `yaml:"-"` // parse expression once, store here for use in metric evaluation
}

type expressionFile struct {
	Metrics []ExpressionDefinition `yaml:"metrics"`
}

// ExpressionSet is an ordered list of parsed expression metrics
type ExpressionSet struct {
	Definitions []ExpressionDefinition
}

// LoadExpressions reads and parses a YAML metric file, e.g.,
//
//	metrics:
//	  - name: ipc_slots
//	    expression: retire_slots / (4 * clocks)
//	  - name: stalled
//	    expression: max(frontend_bound, backend_bound)
func LoadExpressions(path string) (*ExpressionSet, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read metric file: %w", err)
	}
	var file expressionFile
	if err = yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse metric file %s: %w", path, err)
	}
	return NewExpressionSet(file.Metrics)
}

// NewExpressionSet parses the expressions and checks that every variable refers to a
// counter, a hierarchical metric, or an expression metric defined earlier in the list
func NewExpressionSet(definitions []ExpressionDefinition) (*ExpressionSet, error) {
	known := mapset.NewSet[string]()
	for _, c := range arch.Counters() {
		known.Add(c.String())
	}
	known.Append(metricNames[:]...)
	reserved := known.Clone()
	reserved.Add(BoundednessField)

	functions := getEvaluatorFunctions()
	set := &ExpressionSet{}
	for _, def := range definitions {
		def.Name = strings.TrimSpace(def.Name)
		if def.Name == "" {
			return nil, fmt.Errorf("metric name cannot be empty, expression: %s", def.Expression)
		}
		if reserved.Contains(def.Name) {
			return nil, fmt.Errorf("metric name %s is reserved", def.Name)
		}
		if slices.ContainsFunc(set.Definitions, func(d ExpressionDefinition) bool { return d.Name == def.Name }) {
			return nil, fmt.Errorf("metric %s is defined more than once", def.Name)
		}
		var err error
		if def.Evaluable, err = govaluate.NewEvaluableExpressionWithFunctions(def.Expression, functions); err != nil {
			slog.Error("failed to create evaluable expression for metric", slog.String("error", err.Error()), slog.String("name", def.Name), slog.String("expression", def.Expression))
			return nil, fmt.Errorf("failed to parse expression for metric %s: %w", def.Name, err)
		}
		unknown := mapset.NewSet(def.Evaluable.Vars()...).Difference(known)
		if unknown.Cardinality() > 0 {
			names := unknown.ToSlice()
			slices.Sort(names)
			return nil, fmt.Errorf("metric %s references unknown variable(s): %s", def.Name, strings.Join(names, ", "))
		}
		slog.Debug("parsed expression metric", slog.String("name", def.Name), slog.String("expression", def.Expression), slog.String("description", def.Description))
		known.Add(def.Name)
		set.Definitions = append(set.Definitions, def)
	}
	return set, nil
}

// Names returns the expression metric names in definition order
func (s *ExpressionSet) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Definitions))
	for _, def := range s.Definitions {
		names = append(names, def.Name)
	}
	return names
}

// Evaluate computes every expression metric for a sample and appends the results to its
// fields. A failed evaluation yields NaN.
func (s *ExpressionSet) Evaluate(sample *Sample) {
	if s == nil {
		return
	}
	variables := make(map[string]any, int(arch.NumCounters)+int(NumMetrics)+len(s.Definitions))
	for _, c := range arch.Counters() {
		variables[c.String()] = sample.Counters[c]
	}
	for i, name := range metricNames {
		variables[name] = sample.Metrics[i]
	}
	for _, def := range s.Definitions {
		value := math.NaN()
		result, err := evaluateExpression(def, variables)
		if err != nil {
			slog.Debug("failed to evaluate expression", slog.Int("sample", sample.Index), slog.String("error", err.Error()))
		} else if f, ok := result.(float64); ok {
			value = f
		} else {
			slog.Debug("expression result is not a number", slog.Int("sample", sample.Index), slog.String("metric", def.Name), slog.Any("result", result))
		}
		variables[def.Name] = value
		sample.Fields = append(sample.Fields, Field{Name: def.Name, Value: value})
	}
}

// function to call evaluator so that we can catch panics that come from the evaluator
func evaluateExpression(def ExpressionDefinition, variables map[string]any) (result any, err error) {
	defer func() {
		if errx := recover(); errx != nil {
			err = fmt.Errorf("%v : %s : %s", errx, def.Name, def.Expression)
		}
	}()
	if result, err = def.Evaluable.Evaluate(variables); err != nil {
		err = fmt.Errorf("%v : %s : %s", err, def.Name, def.Expression)
	}
	return
}

// getEvaluatorFunctions defines functions that can be called in metric expressions
func getEvaluatorFunctions() (functions map[string]govaluate.ExpressionFunction) {
	functions = make(map[string]govaluate.ExpressionFunction)
	functions["max"] = func(args ...any) (any, error) {
		values, err := toFloats(args)
		if err != nil {
			return nil, err
		}
		return slices.Max(values), nil
	}
	functions["min"] = func(args ...any) (any, error) {
		values, err := toFloats(args)
		if err != nil {
			return nil, err
		}
		return slices.Min(values), nil
	}
	return
}

func toFloats(args []any) ([]float64, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("expected at least one argument")
	}
	values := make([]float64, 0, len(args))
	for _, arg := range args {
		switch t := arg.(type) {
		case int:
			values = append(values, float64(t))
		case float64:
			values = append(values, t)
		default:
			return nil, fmt.Errorf("expected a number, got %v", arg)
		}
	}
	return values, nil
}
