package analyze

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// tables.go converts analysis results into report tables

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"topdown/internal/report"
	"topdown/internal/table"
	"topdown/internal/topdown"
	"topdown/internal/util"
)

const (
	RecordsTableName       = "Records"
	MetricSummaryTableName = "Metric Summary"
	BoundednessTableName   = "Boundedness"
)

const boundednessSeparator = "; "

func init() {
	report.RegisterTextRenderer(BoundednessTableName, boundednessTableTextRenderer)
}

// formatValue renders a record entry as table text
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		switch {
		case math.IsInf(t, 1):
			return "inf"
		case math.IsInf(t, -1):
			return "-inf"
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	case []string:
		return strings.Join(t, boundednessSeparator)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// sampleTables creates one table per record, listing its entries in output order
func sampleTables(records []topdown.Record) []table.TableValues {
	var tables []table.TableValues
	for i, record := range records {
		var fields []table.Field
		for _, name := range record.Names() {
			value, _ := record.Get(name)
			fields = append(fields, table.Field{Name: name, Values: []string{formatValue(value)}})
		}
		tables = append(tables, table.NewTableValues(table.TableDefinition{Name: fmt.Sprintf("Sample %d", i)}, fields))
	}
	if len(tables) == 0 {
		tables = append(tables, table.TableValues{TableDefinition: table.TableDefinition{Name: RecordsTableName, NoDataFound: report.NoDataFound}})
	}
	return tables
}

// recordsTable creates a single table with one row per record. Its columns are the union
// of the record entries in first-appearance order, with boundedness last. Entries missing
// from a record are left blank.
func recordsTable(records []topdown.Record) table.TableValues {
	var names []string
	for _, record := range records {
		for _, f := range record.Fields {
			names = util.UniqueAppend(names, f.Name)
		}
	}
	if len(records) == 0 {
		return table.TableValues{TableDefinition: table.TableDefinition{Name: RecordsTableName, HasRows: true, NoDataFound: report.NoDataFound}}
	}
	names = append(names, topdown.BoundednessField)
	fields := make([]table.Field, len(names))
	for i, name := range names {
		fields[i].Name = name
		for _, record := range records {
			value, _ := record.Get(name)
			fields[i].Values = append(fields[i].Values, formatValue(value))
		}
	}
	return table.NewTableValues(table.TableDefinition{Name: RecordsTableName, HasRows: true}, fields)
}

// summaryTables creates the metric statistics and boundedness count tables
func summaryTables(summary topdown.Summary) []table.TableValues {
	metricFields := []table.Field{
		{Name: "metric"},
		{Name: "level"},
		{Name: "samples"},
		{Name: "mean"},
		{Name: "min"},
		{Name: "max"},
		{Name: "stddev"},
	}
	for _, ms := range summary.Metrics {
		metricFields[0].Values = append(metricFields[0].Values, ms.Metric.String())
		metricFields[1].Values = append(metricFields[1].Values, strconv.Itoa(ms.Metric.Level()))
		metricFields[2].Values = append(metricFields[2].Values, strconv.Itoa(ms.Count))
		metricFields[3].Values = append(metricFields[3].Values, topdown.FormatPercentage(ms.Mean))
		metricFields[4].Values = append(metricFields[4].Values, topdown.FormatPercentage(ms.Min))
		metricFields[5].Values = append(metricFields[5].Values, topdown.FormatPercentage(ms.Max))
		metricFields[6].Values = append(metricFields[6].Values, topdown.FormatPercentage(ms.StdDev))
	}
	countFields := []table.Field{
		{Name: "category"},
		{Name: "samples"},
		{Name: "share"},
	}
	for _, bc := range summary.Counts {
		share := math.NaN()
		if summary.Samples > 0 {
			share = float64(bc.Count) / float64(summary.Samples)
		}
		countFields[0].Values = append(countFields[0].Values, bc.Category)
		countFields[1].Values = append(countFields[1].Values, strconv.Itoa(bc.Count))
		countFields[2].Values = append(countFields[2].Values, topdown.FormatPercentage(share))
	}
	return []table.TableValues{
		table.NewTableValues(table.TableDefinition{Name: MetricSummaryTableName, HasRows: true}, metricFields),
		table.NewTableValues(table.TableDefinition{Name: BoundednessTableName, HasRows: true}, countFields),
	}
}

const barWidth = 40

// boundednessTableTextRenderer draws a bar for each category's share of the samples
func boundednessTableTextRenderer(tableValues table.TableValues) string {
	if len(tableValues.Fields) < 3 {
		return report.DefaultTextTableRendererFunc(tableValues)
	}
	categoryIdx, err := table.GetFieldIndex("category", tableValues)
	if err != nil {
		return report.DefaultTextTableRendererFunc(tableValues)
	}
	samplesIdx, err := table.GetFieldIndex("samples", tableValues)
	if err != nil {
		return report.DefaultTextTableRendererFunc(tableValues)
	}
	shareIdx, err := table.GetFieldIndex("share", tableValues)
	if err != nil {
		return report.DefaultTextTableRendererFunc(tableValues)
	}
	total := 0
	for _, s := range tableValues.Fields[samplesIdx].Values {
		n, _ := strconv.Atoi(s)
		total += n
	}
	width := 0
	for _, c := range tableValues.Fields[categoryIdx].Values {
		width = max(width, len(c))
	}
	var sb strings.Builder
	for i, category := range tableValues.Fields[categoryIdx].Values {
		count, _ := strconv.Atoi(tableValues.Fields[samplesIdx].Values[i])
		bar := 0
		if total > 0 {
			bar = count * barWidth / total
		}
		fmt.Fprintf(&sb, "%-*s %6d %9s %s\n", width, category, count, tableValues.Fields[shareIdx].Values[i], strings.Repeat("#", bar))
	}
	return sb.String()
}

// summaryJSON is the final json line emitted when a summary is requested
type summaryJSON struct {
	Summary summaryBody `json:"summary"`
}

type summaryBody struct {
	Samples     int                `json:"samples"`
	Metrics     []metricStatsJSON  `json:"metrics"`
	Boundedness []boundednessCount `json:"boundedness"`
}

type metricStatsJSON struct {
	Metric string   `json:"metric"`
	Level  int      `json:"level"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	StdDev *float64 `json:"stddev"`
}

type boundednessCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// finiteOrNil maps values that JSON cannot represent to null
func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func newSummaryJSON(summary topdown.Summary) summaryJSON {
	body := summaryBody{Samples: summary.Samples}
	for _, ms := range summary.Metrics {
		body.Metrics = append(body.Metrics, metricStatsJSON{
			Metric: ms.Metric.String(),
			Level:  ms.Metric.Level(),
			Count:  ms.Count,
			Mean:   finiteOrNil(ms.Mean),
			Min:    finiteOrNil(ms.Min),
			Max:    finiteOrNil(ms.Max),
			StdDev: finiteOrNil(ms.StdDev),
		})
	}
	for _, bc := range summary.Counts {
		body.Boundedness = append(body.Boundedness, boundednessCount{Category: bc.Category, Count: bc.Count})
	}
	return summaryJSON{Summary: body}
}
