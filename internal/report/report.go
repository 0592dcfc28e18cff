// Package report provides functions to render tables in various formats such as txt, csv, xlsx.
package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"strings"

	"topdown/internal/table"
)

const (
	FormatTxt  = "txt"
	FormatCsv  = "csv"
	FormatJson = "json"
	FormatXlsx = "xlsx"
)

const NoDataFound = "No data found."

// FormatOptions are the formats supported by Create
var FormatOptions = []string{FormatTxt, FormatCsv, FormatXlsx}

// Create generates a report in the specified format from the provided table values.
// The function ensures that all fields have the same number of values before generating the report.
// JSON output is produced from records with CreateJSONLines instead.
// If the format is not supported, the function panics with an error message.
func Create(format string, allTableValues []table.TableValues) (out []byte, err error) {
	// make sure that all fields have the same number of values
	for _, tableValue := range allTableValues {
		numRows := -1
		for _, fieldValues := range tableValue.Fields {
			if numRows == -1 {
				numRows = len(fieldValues.Values)
				continue
			}
			if len(fieldValues.Values) != numRows {
				return nil, fmt.Errorf("expected %d value(s) for field, found %d", numRows, len(fieldValues.Values))
			}
		}
	}
	// create the report based on the specified format
	switch format {
	case FormatTxt:
		return createTextReport(allTableValues)
	case FormatCsv:
		return createCsvReport(allTableValues)
	case FormatXlsx:
		return createXlsxReport(allTableValues)
	}
	panic(fmt.Sprintf("expected one of %s, got %s", strings.Join(FormatOptions, ", "), format))
}
