package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"topdown/internal/table"
)

// createCsvReport writes each table as a header row followed by its rows. Tables are
// separated by an empty line. Tables without rows are written as name,value pairs.
func createCsvReport(allTableValues []table.TableValues) (out []byte, err error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for i, tableValues := range allTableValues {
		if i > 0 {
			buf.WriteString("\n")
		}
		if len(tableValues.Fields) == 0 {
			continue
		}
		if tableValues.HasRows {
			header := make([]string, 0, len(tableValues.Fields))
			for _, field := range tableValues.Fields {
				header = append(header, field.Name)
			}
			if err = w.Write(header); err != nil {
				return
			}
			for row := 0; row < len(tableValues.Fields[0].Values); row++ {
				record := make([]string, 0, len(tableValues.Fields))
				for _, field := range tableValues.Fields {
					record = append(record, field.Values[row])
				}
				if err = w.Write(record); err != nil {
					return
				}
			}
		} else {
			for _, field := range tableValues.Fields {
				var value string
				if len(field.Values) > 0 {
					value = field.Values[0]
				}
				if err = w.Write([]string{field.Name, value}); err != nil {
					return
				}
			}
		}
		// flush before a table separator is written directly to the buffer
		w.Flush()
		if err = w.Error(); err != nil {
			err = fmt.Errorf("failed to write csv report: %w", err)
			return
		}
	}
	out = buf.Bytes()
	return
}
