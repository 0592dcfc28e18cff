package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"strings"
	"unicode/utf8"

	"topdown/internal/table"
)

// Package-level map for custom text renderers
var customTextRenderers = map[string]table.TextTableRenderer{}

// RegisterTextRenderer allows other packages to register a custom text renderer for a table name
func RegisterTextRenderer(tableName string, renderer table.TextTableRenderer) {
	customTextRenderers[tableName] = renderer
}

const columnSpacing = 3

func createTextReport(allTableValues []table.TableValues) (out []byte, err error) {
	var sb strings.Builder
	for _, tableValues := range allTableValues {
		sb.WriteString(tableValues.Name + "\n")
		sb.WriteString(strings.Repeat("=", utf8.RuneCountInString(tableValues.Name)) + "\n")
		if len(tableValues.Fields) == 0 || len(tableValues.Fields[0].Values) == 0 {
			msg := NoDataFound
			if tableValues.NoDataFound != "" {
				msg = tableValues.NoDataFound
			}
			sb.WriteString(msg + "\n\n")
			continue
		}
		if renderer, ok := customTextRenderers[tableValues.Name]; ok {
			sb.WriteString(renderer(tableValues))
		} else {
			sb.WriteString(DefaultTextTableRendererFunc(tableValues))
		}
		sb.WriteString("\n")
	}
	out = []byte(sb.String())
	return
}

// padRight pads s with spaces to width characters
func padRight(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// DefaultTextTableRendererFunc renders tables with rows as aligned columns under a header,
// and other tables as one "name: value" line per field
func DefaultTextTableRendererFunc(tableValues table.TableValues) string {
	var sb strings.Builder
	if !tableValues.HasRows {
		maxFieldNameLen := 0
		for _, field := range tableValues.Fields {
			maxFieldNameLen = max(maxFieldNameLen, utf8.RuneCountInString(field.Name))
		}
		for _, field := range tableValues.Fields {
			var value string
			if len(field.Values) > 0 {
				value = field.Values[0]
			}
			sb.WriteString(padRight(field.Name+":", maxFieldNameLen+1) + " " + value + "\n")
		}
		return sb.String()
	}
	// a column is as wide as its header or its longest value, except the last, which is not padded
	widths := make([]int, len(tableValues.Fields))
	for i, field := range tableValues.Fields[:len(tableValues.Fields)-1] {
		widths[i] = utf8.RuneCountInString(field.Name)
		for _, val := range field.Values {
			widths[i] = max(widths[i], utf8.RuneCountInString(val))
		}
		widths[i] += columnSpacing
	}
	writeLine := func(cell func(table.Field) string) {
		var line strings.Builder
		for i, field := range tableValues.Fields {
			line.WriteString(padRight(cell(field), widths[i]))
		}
		sb.WriteString(strings.TrimRight(line.String(), " ") + "\n")
	}
	writeLine(func(f table.Field) string { return f.Name })
	writeLine(func(f table.Field) string { return strings.Repeat("-", utf8.RuneCountInString(f.Name)) })
	for row := 0; row < len(tableValues.Fields[0].Values); row++ {
		writeLine(func(f table.Field) string { return f.Values[row] })
	}
	return sb.String()
}
