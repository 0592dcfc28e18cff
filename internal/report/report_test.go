package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"topdown/internal/table"
)

func testTables() []table.TableValues {
	return []table.TableValues{
		{
			TableDefinition: table.TableDefinition{Name: "Records", HasRows: true},
			Fields: []table.Field{
				{Name: "path", Values: []string{"main", "main/solve"}},
				{Name: "time", Values: []string{"1.5", ""}},
				{Name: "boundedness", Values: []string{"retiring 50.00%", "backend_bound 70.00%; memory_bound 60.00%"}},
			},
		},
		{
			TableDefinition: table.TableDefinition{Name: "Sample 1"},
			Fields: []table.Field{
				{Name: "path", Values: []string{"main"}},
				{Name: "boundedness", Values: []string{"retiring 50.00%"}},
			},
		},
		{
			TableDefinition: table.TableDefinition{Name: "Empty", NoDataFound: "nothing here"},
		},
	}
}

func TestCreateText(t *testing.T) {
	out, err := Create(FormatTxt, testTables())
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "Records\n=======\n")
	assert.Contains(t, text, "path         time   boundedness")
	assert.Contains(t, text, "main/solve          backend_bound 70.00%; memory_bound 60.00%")
	assert.Contains(t, text, "path:        main\n")
	assert.Contains(t, text, "boundedness: retiring 50.00%\n")
	assert.Contains(t, text, "nothing here")
}

func TestRegisterTextRenderer(t *testing.T) {
	RegisterTextRenderer("Custom", func(tv table.TableValues) string {
		return "custom " + tv.Fields[0].Values[0] + "\n"
	})
	defer delete(customTextRenderers, "Custom")
	out, err := Create(FormatTxt, []table.TableValues{{
		TableDefinition: table.TableDefinition{Name: "Custom"},
		Fields:          []table.Field{{Name: "a", Values: []string{"x"}}},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Custom\n======\ncustom x\n\n", string(out))
}

func TestCreateCsv(t *testing.T) {
	out, err := Create(FormatCsv, testTables()[:2])
	require.NoError(t, err)
	expected := strings.Join([]string{
		"path,time,boundedness",
		"main,1.5,retiring 50.00%",
		"main/solve,,backend_bound 70.00%; memory_bound 60.00%",
		"",
		"path,main",
		"boundedness,retiring 50.00%",
		"",
	}, "\n")
	assert.Equal(t, expected, string(out))
}

func TestCreateXlsx(t *testing.T) {
	out, err := Create(FormatXlsx, testTables())
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Records", "Sample 1", "Empty"}, f.GetSheetList())

	v, err := f.GetCellValue("Records", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Records", v)
	v, err = f.GetCellValue("Records", "C2")
	require.NoError(t, err)
	assert.Equal(t, "boundedness", v)
	v, err = f.GetCellValue("Records", "B3")
	require.NoError(t, err)
	assert.Equal(t, "1.5", v)
	v, err = f.GetCellValue("Sample 1", "B2")
	require.NoError(t, err)
	assert.Equal(t, "main", v)
}

func TestCreateMismatchedFields(t *testing.T) {
	_, err := Create(FormatTxt, []table.TableValues{{
		TableDefinition: table.TableDefinition{Name: "bad"},
		Fields:          []table.Field{{Name: "a", Values: []string{"1"}}, {Name: "b"}},
	}})
	assert.Error(t, err)
}

func TestCreateUnsupportedFormatPanics(t *testing.T) {
	assert.Panics(t, func() { _, _ = Create("html", nil) })
}

func TestCreateJSONLines(t *testing.T) {
	type item struct {
		Name string `json:"name"`
	}
	out, err := CreateJSONLines([]item{{"a"}, {"b"}})
	require.NoError(t, err)
	assert.Equal(t, "{\"name\":\"a\"}\n{\"name\":\"b\"}\n", string(out))

	out, err = CreateJSONLines([]item{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestGetValueForCell(t *testing.T) {
	assert.Equal(t, 12, getValueForCell("12"))
	assert.Equal(t, 0.25, getValueForCell("0.25"))
	assert.Equal(t, "inf", getValueForCell("inf"))
	assert.Equal(t, "NaN", getValueForCell("NaN"))
	assert.Equal(t, "main", getValueForCell("main"))
}
