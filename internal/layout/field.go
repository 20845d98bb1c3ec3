// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT
//
// Package layout computes byte extents of header-described record sequences
// and extracts selected scalar columns from them. It never interprets the
// semantics of a field; formats do that.

package layout

import (
	"encoding/binary"
	"math"
)

// FieldType is a fixed-width scalar type appearing in an element record.
// The zero value is invalid so that unparsed types fail loudly at scan time.
type FieldType int

const (
	// TypeInvalid is an unrecognized type. Its width is zero, which makes
	// every offset computation over it a hard error.
	TypeInvalid = FieldType(iota)
	TypeInt8
	TypeUint8
	TypeInt16
	TypeUint16
	TypeInt32
	TypeUint32
	TypeFloat32
	TypeFloat64
)

var fieldWidths = [...]int{
	TypeInvalid: 0,
	TypeInt8:    1,
	TypeUint8:   1,
	TypeInt16:   2,
	TypeUint16:  2,
	TypeInt32:   4,
	TypeUint32:  4,
	TypeFloat32: 4,
	TypeFloat64: 8,
}

var fieldNames = [...]string{
	TypeInvalid: "invalid",
	TypeInt8:    "int8",
	TypeUint8:   "uint8",
	TypeInt16:   "int16",
	TypeUint16:  "uint16",
	TypeInt32:   "int32",
	TypeUint32:  "uint32",
	TypeFloat32: "float32",
	TypeFloat64: "float64",
}

// Width returns the byte width of the type, or 0 for an invalid type.
func (t FieldType) Width() int {
	if t < 0 || int(t) >= len(fieldWidths) {
		return 0
	}
	return fieldWidths[t]
}

func (t FieldType) String() string {
	if t < 0 || int(t) >= len(fieldNames) {
		return "invalid"
	}
	return fieldNames[t]
}

// ReadScalar decodes one scalar of type t at the start of b and widens it to
// float64. b must hold at least t.Width() bytes; callers bounds-check.
func ReadScalar(b []byte, t FieldType, order binary.ByteOrder) float64 {
	switch t {
	case TypeInt8:
		return float64(int8(b[0]))
	case TypeUint8:
		return float64(b[0])
	case TypeInt16:
		return float64(int16(order.Uint16(b)))
	case TypeUint16:
		return float64(order.Uint16(b))
	case TypeInt32:
		return float64(int32(order.Uint32(b)))
	case TypeUint32:
		return float64(order.Uint32(b))
	case TypeFloat32:
		return float64(math.Float32frombits(order.Uint32(b)))
	case TypeFloat64:
		return math.Float64frombits(order.Uint64(b))
	}
	return 0
}

// readCount decodes a list-count field as a non-negative int. Negative
// counts (possible with signed count types on corrupt data) come back as -1
// so the scanner can reject them.
func readCount(b []byte, t FieldType, order binary.ByteOrder) int {
	n := int64(ReadScalar(b, t, order))
	if n < 0 {
		return -1
	}
	return int(n)
}
