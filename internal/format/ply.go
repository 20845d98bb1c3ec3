// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT
//
// Binary PLY. The ASCII header is self-describing: it lists elements, their
// counts, and their typed (possibly list-typed) properties, which we parse
// straight into layout schemas. Splat PLYs follow the 3DGS convention for
// the vertex element (f_dc_* colors, log scales, wxyz rotations).

package format

import (
	"bytes"
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	log "github.com/golang/glog"

	"github.com/opensplat/splatview/internal/core"
	"github.com/opensplat/splatview/internal/layout"
	"github.com/opensplat/splatview/internal/scene"
)

// A sane bound on header size so corrupt files can't make us scan the whole
// buffer line by line.
const plyHeaderLimit = 128 * 1024

// Zeroth-order spherical harmonics basis factor, used to turn f_dc_*
// coefficients into base colors.
const shC0 = 0.28209479177387814

var plyTypeNames = map[string]layout.FieldType{
	"char":    layout.TypeInt8,
	"int8":    layout.TypeInt8,
	"uchar":   layout.TypeUint8,
	"uint8":   layout.TypeUint8,
	"short":   layout.TypeInt16,
	"int16":   layout.TypeInt16,
	"ushort":  layout.TypeUint16,
	"uint16":  layout.TypeUint16,
	"int":     layout.TypeInt32,
	"int32":   layout.TypeInt32,
	"uint":    layout.TypeUint32,
	"uint32":  layout.TypeUint32,
	"float":   layout.TypeFloat32,
	"float32": layout.TypeFloat32,
	"double":  layout.TypeFloat64,
	"float64": layout.TypeFloat64,
}

type plyHeader struct {
	order     binary.ByteOrder
	elements  []layout.Element
	comments  []string
	dataStart int
}

func plyDescriptor(cfg Config) *Descriptor {
	opts := layout.Options{ExactScan: cfg.ExactScan}
	return &Descriptor{
		Extensions: []string{"ply"},
		Label:      "ply",
		ColorSpace: core.ColorSpaceLinear,
		DecodeMetadata: func(data []byte) (*core.CameraMetadata, core.Error) {
			return plyDecodeMetadata(data, opts)
		},
		DecodeResource: func(data []byte) (scene.Resource, core.Error) {
			return plyDecodeResource(data, opts)
		},
	}
}

func plyDecodeMetadata(data []byte, opts layout.Options) (*core.CameraMetadata, core.Error) {
	hdr, err := parsePlyHeader(data)
	if err != core.NoError {
		return nil, core.ErrMetadataParse
	}
	fields, _, err := layout.ExtractColumns(hdr.elements, data, hdr.dataStart, hdr.order, cameraElements, opts)
	if err != core.NoError {
		return nil, core.ErrMetadataParse
	}
	// assembleCamera returning nil is "no camera metadata", not a fault.
	return assembleCamera(fields, hdr.comments, core.ColorSpaceLinear), core.NoError
}

// parsePlyHeader reads the ASCII header into element schemas. Only binary
// PLY is supported; this is a viewer for splats, not meshes, and every splat
// producer writes binary.
func parsePlyHeader(data []byte) (*plyHeader, core.Error) {
	limit := len(data)
	if limit > plyHeaderLimit {
		limit = plyHeaderLimit
	}
	hdr := &plyHeader{}
	pos := 0
	sawFormat := false
	for {
		nl := bytes.IndexByte(data[pos:limit], '\n')
		if nl < 0 {
			log.Errorf("ply: header not terminated within %d bytes", limit)
			return nil, core.ErrDecode
		}
		line := strings.TrimRight(string(data[pos:pos+nl]), "\r")
		pos += nl + 1

		if pos-nl-1 == 0 {
			if line != "ply" {
				return nil, core.ErrDecode
			}
			continue
		}

		tok := strings.Fields(line)
		if len(tok) == 0 {
			continue
		}
		switch tok[0] {
		case "format":
			if len(tok) < 2 {
				return nil, core.ErrDecode
			}
			switch tok[1] {
			case "binary_little_endian":
				hdr.order = binary.LittleEndian
			case "binary_big_endian":
				hdr.order = binary.BigEndian
			default:
				log.Errorf("ply: unsupported format %q", tok[1])
				return nil, core.ErrDecode
			}
			sawFormat = true
		case "comment":
			hdr.comments = append(hdr.comments, strings.TrimPrefix(strings.TrimPrefix(line, "comment"), " "))
		case "obj_info":
			// Ignored, like most readers do.
		case "element":
			if len(tok) != 3 {
				return nil, core.ErrDecode
			}
			count, err := strconv.Atoi(tok[2])
			if err != nil || count < 0 {
				return nil, core.ErrDecode
			}
			hdr.elements = append(hdr.elements, layout.Element{Name: tok[1], Count: count})
		case "property":
			if len(hdr.elements) == 0 {
				return nil, core.ErrDecode
			}
			el := &hdr.elements[len(hdr.elements)-1]
			var p layout.Property
			if len(tok) == 5 && tok[1] == "list" {
				p = layout.Property{
					Name:      tok[4],
					Type:      plyTypeNames[tok[3]],
					IsList:    true,
					CountType: plyTypeNames[tok[2]],
				}
			} else if len(tok) == 3 {
				p = layout.Property{Name: tok[2], Type: plyTypeNames[tok[1]]}
			} else {
				return nil, core.ErrDecode
			}
			// Unknown type names map to TypeInvalid here and become
			// ErrBadFieldType the moment the scanner needs a width.
			el.Properties = append(el.Properties, p)
		case "end_header":
			if !sawFormat {
				return nil, core.ErrDecode
			}
			hdr.dataStart = pos
			return hdr, core.NoError
		default:
			return nil, core.ErrDecode
		}
	}
}

// plyProp locates a property inside a list-free element: its byte offset
// within the stride and its type.
type plyProp struct {
	off int
	typ layout.FieldType
	ok  bool
}

func findPlyProp(e *layout.Element, name string) plyProp {
	off := 0
	for _, p := range e.Properties {
		if p.Name == name {
			return plyProp{off: off, typ: p.Type, ok: true}
		}
		off += p.Type.Width()
	}
	return plyProp{}
}

func plyDecodeResource(data []byte, opts layout.Options) (scene.Resource, core.Error) {
	hdr, err := parsePlyHeader(data)
	if err != core.NoError {
		return nil, err
	}

	// Walk to the vertex element: its start offset depends on every prior
	// element's extent.
	offset := hdr.dataStart
	var vertex *layout.Element
	for i := range hdr.elements {
		e := &hdr.elements[i]
		if e.Name == "vertex" {
			vertex = e
			break
		}
		offset, err = layout.Extent(e, data, offset, hdr.order, opts)
		if err != core.NoError {
			return nil, err
		}
	}
	if vertex == nil {
		log.Errorf("ply: no vertex element")
		return nil, core.ErrDecode
	}
	if vertex.HasList() {
		log.Errorf("ply: list-typed vertex properties not supported")
		return nil, core.ErrDecode
	}
	stride := vertex.FixedStride()
	if stride == 0 {
		return nil, core.ErrBadFieldType
	}
	if offset+vertex.Count*stride > len(data) {
		return nil, core.ErrDecode
	}

	x, y, z := findPlyProp(vertex, "x"), findPlyProp(vertex, "y"), findPlyProp(vertex, "z")
	if !x.ok || !y.ok || !z.ok {
		log.Errorf("ply: vertex element missing x/y/z")
		return nil, core.ErrDecode
	}
	dc0, dc1, dc2 := findPlyProp(vertex, "f_dc_0"), findPlyProp(vertex, "f_dc_1"), findPlyProp(vertex, "f_dc_2")
	r8, g8, b8 := findPlyProp(vertex, "red"), findPlyProp(vertex, "green"), findPlyProp(vertex, "blue")
	opacity := findPlyProp(vertex, "opacity")
	s0, s1, s2 := findPlyProp(vertex, "scale_0"), findPlyProp(vertex, "scale_1"), findPlyProp(vertex, "scale_2")
	r0, r1, r2, r3 := findPlyProp(vertex, "rot_0"), findPlyProp(vertex, "rot_1"), findPlyProp(vertex, "rot_2"), findPlyProp(vertex, "rot_3")

	n := vertex.Count
	cloud := &scene.SplatCloud{
		Positions: make([]float32, 3*n),
		Colors:    make([]float32, 4*n),
		Scales:    make([]float32, 3*n),
		Rotations: make([]float32, 4*n),
	}
	read := func(base int, p plyProp) float64 {
		return layout.ReadScalar(data[base+p.off:], p.typ, hdr.order)
	}
	for i := 0; i < n; i++ {
		base := offset + i*stride

		cloud.Positions[3*i+0] = float32(read(base, x))
		cloud.Positions[3*i+1] = float32(read(base, y))
		cloud.Positions[3*i+2] = float32(read(base, z))

		var cr, cg, cb float64 = 1, 1, 1
		if dc0.ok && dc1.ok && dc2.ok {
			cr = clamp01(0.5 + shC0*read(base, dc0))
			cg = clamp01(0.5 + shC0*read(base, dc1))
			cb = clamp01(0.5 + shC0*read(base, dc2))
		} else if r8.ok && g8.ok && b8.ok {
			cr = byteOrUnit(read(base, r8), r8.typ)
			cg = byteOrUnit(read(base, g8), g8.typ)
			cb = byteOrUnit(read(base, b8), b8.typ)
		}
		alpha := 1.0
		if opacity.ok {
			if opacity.typ == layout.TypeUint8 {
				alpha = read(base, opacity) / 255
			} else {
				alpha = sigmoid(read(base, opacity))
			}
		}
		cloud.Colors[4*i+0] = float32(cr)
		cloud.Colors[4*i+1] = float32(cg)
		cloud.Colors[4*i+2] = float32(cb)
		cloud.Colors[4*i+3] = float32(alpha)

		if s0.ok && s1.ok && s2.ok {
			cloud.Scales[3*i+0] = float32(math.Exp(read(base, s0)))
			cloud.Scales[3*i+1] = float32(math.Exp(read(base, s1)))
			cloud.Scales[3*i+2] = float32(math.Exp(read(base, s2)))
		} else {
			cloud.Scales[3*i+0] = 1
			cloud.Scales[3*i+1] = 1
			cloud.Scales[3*i+2] = 1
		}

		if r0.ok && r1.ok && r2.ok && r3.ok {
			// Stored wxyz; we keep xyzw.
			qw, qx, qy, qz := read(base, r0), read(base, r1), read(base, r2), read(base, r3)
			norm := math.Sqrt(qw*qw + qx*qx + qy*qy + qz*qz)
			if norm == 0 {
				norm = 1
				qw = 1
			}
			cloud.Rotations[4*i+0] = float32(qx / norm)
			cloud.Rotations[4*i+1] = float32(qy / norm)
			cloud.Rotations[4*i+2] = float32(qz / norm)
			cloud.Rotations[4*i+3] = float32(qw / norm)
		} else {
			cloud.Rotations[4*i+3] = 1
		}
	}
	return cloud, core.NoError
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func byteOrUnit(v float64, t layout.FieldType) float64 {
	if t == layout.TypeUint8 {
		return v / 255
	}
	return clamp01(v)
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}
