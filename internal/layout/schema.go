// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package layout

import "github.com/opensplat/splatview/internal/core"

// Property is one field of an element record. For a list property the
// record holds a CountType-typed length followed by that many Type-typed
// values; otherwise it holds exactly one Type-typed value.
type Property struct {
	Name      string
	Type      FieldType
	IsList    bool
	CountType FieldType // meaningful only when IsList
}

// Element is a named sequence of Count records sharing one ordered property
// layout. Property order is significant: it determines byte offsets.
type Element struct {
	Name       string
	Count      int
	Properties []Property
}

// HasList reports whether any property is list-typed, i.e. whether record
// strides can vary per item.
func (e *Element) HasList() bool {
	for _, p := range e.Properties {
		if p.IsList {
			return true
		}
	}
	return false
}

// validate checks that every value type, and every list count type, has a
// known width. Offset computation cannot proceed otherwise.
func (e *Element) validate() core.Error {
	for _, p := range e.Properties {
		if p.Type.Width() == 0 {
			return core.ErrBadFieldType
		}
		if p.IsList && p.CountType.Width() == 0 {
			return core.ErrBadFieldType
		}
	}
	return core.NoError
}

// FixedStride returns the per-item stride of a list-free element: the sum of
// the fixed type widths. Callers must not use it when HasList is true.
func (e *Element) FixedStride() int {
	stride := 0
	for _, p := range e.Properties {
		stride += p.Type.Width()
	}
	return stride
}
