// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableValues(t *testing.T) {
	def := TableDefinition{Name: "Summary", HasRows: true}
	tv := NewTableValues(def, []Field{
		{Name: "metric", Values: []string{"retiring", "backend_bound"}},
		{Name: "mean", Values: []string{"0.5", "0.25"}},
	})
	require.Len(t, tv.Fields, 2)

	idx, err := GetFieldIndex("mean", tv)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = GetFieldIndex("max", tv)
	assert.Error(t, err)
}

func TestNewTableValuesInvalid(t *testing.T) {
	tests := []struct {
		name   string
		def    TableDefinition
		fields []Field
	}{
		{"mismatched lengths", TableDefinition{Name: "t"}, []Field{{Name: "a", Values: []string{"1"}}, {Name: "b"}}},
		{"empty field name", TableDefinition{Name: "t"}, []Field{{Name: "", Values: []string{"1"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tv := NewTableValues(tt.def, tt.fields)
			assert.Empty(t, tv.Fields)
		})
	}
}
