// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package layout

import (
	"encoding/binary"

	"github.com/opensplat/splatview/internal/core"
)

// Options control how extents are computed.
type Options struct {
	// ExactScan disables the constant-stride probe for list elements and
	// walks every item instead. Always correct, O(count).
	ExactScan bool
}

// Extent returns the offset just past the bytes consumed by e when its data
// starts at offset in data. No field values are materialized.
//
// List-free elements are computed in closed form, with no per-item loop. For
// list elements the default strategy probes the first two items and, if
// their strides and per-list lengths match, extrapolates the first item's
// stride across the whole element (see probeExtent for the caveat);
// otherwise every item is walked.
func Extent(e *Element, data []byte, offset int, order binary.ByteOrder, opts Options) (int, core.Error) {
	if err := e.validate(); err != core.NoError {
		return 0, err
	}
	if e.Count == 0 {
		// Nothing to consume, and we must not touch data at all.
		return offset, core.NoError
	}
	if !e.HasList() {
		end := offset + e.Count*e.FixedStride()
		if end > len(data) {
			return 0, core.ErrDecode
		}
		return end, core.NoError
	}
	if opts.ExactScan || e.Count < 2 {
		return exactExtent(e, data, offset, order)
	}
	return probeExtent(e, data, offset, order)
}

// exactExtent walks every item, summing individual strides.
func exactExtent(e *Element, data []byte, offset int, order binary.ByteOrder) (int, core.Error) {
	for i := 0; i < e.Count; i++ {
		end, _, err := itemExtent(e, data, offset, order)
		if err != core.NoError {
			return 0, err
		}
		offset = end
	}
	return offset, core.NoError
}

// probeExtent is the constant-stride fast path. It measures the first two
// items; if their strides and their per-property list lengths agree, it
// assumes every remaining item matches and multiplies out. The assumption is
// only checked against those two items: a file whose list lengths vary after
// the second item will be silently mis-skipped. Callers that cannot accept
// that set Options.ExactScan.
func probeExtent(e *Element, data []byte, offset int, order binary.ByteOrder) (int, core.Error) {
	end0, lens0, err := itemExtent(e, data, offset, order)
	if err != core.NoError {
		return 0, err
	}
	end1, lens1, err := itemExtent(e, data, end0, order)
	if err != core.NoError {
		return 0, err
	}
	stride0, stride1 := end0-offset, end1-end0
	if stride0 != stride1 || !equalLens(lens0, lens1) {
		return exactExtent(e, data, offset, order)
	}
	end := offset + stride0*e.Count
	if end > len(data) {
		return 0, core.ErrDecode
	}
	return end, core.NoError
}

// itemExtent advances past a single item, returning the end offset and the
// length of each list property in the order encountered.
func itemExtent(e *Element, data []byte, offset int, order binary.ByteOrder) (int, []int, core.Error) {
	var lens []int
	for _, p := range e.Properties {
		if !p.IsList {
			offset += p.Type.Width()
			continue
		}
		cw := p.CountType.Width()
		if offset+cw > len(data) {
			return 0, nil, core.ErrDecode
		}
		n := readCount(data[offset:], p.CountType, order)
		if n < 0 {
			return 0, nil, core.ErrDecode
		}
		offset += cw + n*p.Type.Width()
		lens = append(lens, n)
	}
	if offset > len(data) {
		return 0, nil, core.ErrDecode
	}
	return offset, lens, core.NoError
}

func equalLens(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
