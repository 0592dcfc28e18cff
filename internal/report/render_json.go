package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CreateJSONLines encodes each item as one JSON object per line
func CreateJSONLines[T any](items []T) (out []byte, err error) {
	var buf bytes.Buffer
	for i, item := range items {
		var line []byte
		if line, err = json.Marshal(item); err != nil {
			err = fmt.Errorf("failed to encode item %d: %w", i, err)
			return
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	out = buf.Bytes()
	return
}
