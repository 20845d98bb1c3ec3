// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package layout

import (
	"encoding/binary"

	"github.com/opensplat/splatview/internal/core"
)

// ExtractColumns walks elements in file order, starting at offset in data,
// and returns a column of widened scalars for every wanted element that has
// exactly one non-list property. Every other element, wanted or not, is
// skipped via Extent. Elements must be visited in order because each start
// offset depends on all prior extents; the returned offset is the position
// just past the last element.
//
// A wanted element shaped differently (multiple properties, or a list) is
// skipped rather than failing: the caller decides whether the missing column
// matters.
func ExtractColumns(elements []Element, data []byte, offset int, order binary.ByteOrder, want map[string]bool, opts Options) (map[string][]float64, int, core.Error) {
	fields := make(map[string][]float64)
	for i := range elements {
		e := &elements[i]
		if want[e.Name] && len(e.Properties) == 1 && !e.Properties[0].IsList {
			col, end, err := extractColumn(e, data, offset, order)
			if err != core.NoError {
				return nil, 0, err
			}
			fields[e.Name] = col
			offset = end
			continue
		}
		end, err := Extent(e, data, offset, order, opts)
		if err != core.NoError {
			return nil, 0, err
		}
		offset = end
	}
	return fields, offset, core.NoError
}

// extractColumn reads a single-property element with a tight fixed-stride
// loop. No scanner involvement.
func extractColumn(e *Element, data []byte, offset int, order binary.ByteOrder) ([]float64, int, core.Error) {
	t := e.Properties[0].Type
	w := t.Width()
	if w == 0 {
		return nil, 0, core.ErrBadFieldType
	}
	if e.Count == 0 {
		return []float64{}, offset, core.NoError
	}
	end := offset + e.Count*w
	if end > len(data) {
		return nil, 0, core.ErrDecode
	}
	col := make([]float64, e.Count)
	for i := 0; i < e.Count; i++ {
		col[i] = ReadScalar(data[offset+i*w:], t, order)
	}
	return col, end, core.NoError
}
