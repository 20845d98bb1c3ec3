// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT
//
// The .spz container: a gzip stream wrapping a packed gaussian layout.
// Positions are 24-bit fixed point, everything else is byte-quantized, and
// rotations use the smallest-three encoding (xyz stored, w reconstructed).

package format

import (
	"bytes"
	"encoding/binary"
	"io/ioutil"
	"math"

	"github.com/klauspost/compress/gzip"

	log "github.com/golang/glog"

	"github.com/opensplat/splatview/internal/core"
	"github.com/opensplat/splatview/internal/scene"
)

const (
	spzMagic      = 0x5053474e // "NGSP" little endian
	spzHeaderSize = 16
	spzMaxPoints  = 10000000
)

func spzDescriptor() *Descriptor {
	return &Descriptor{
		Extensions: []string{"spz"},
		Label:      "spz",
		ColorSpace: core.ColorSpaceLinear,
		DecodeMetadata: func(data []byte) (*core.CameraMetadata, core.Error) {
			return nil, core.NoError
		},
		DecodeResource: spzDecodeResource,
	}
}

func spzDecodeResource(data []byte) (scene.Resource, core.Error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		log.Errorf("spz: not a gzip stream: %v", err)
		return nil, core.ErrDecode
	}
	raw, err := ioutil.ReadAll(zr)
	zr.Close()
	if err != nil {
		log.Errorf("spz: corrupt gzip stream: %v", err)
		return nil, core.ErrDecode
	}
	if len(raw) < spzHeaderSize {
		return nil, core.ErrDecode
	}
	if binary.LittleEndian.Uint32(raw) != spzMagic {
		log.Errorf("spz: bad magic %08x", binary.LittleEndian.Uint32(raw))
		return nil, core.ErrDecode
	}
	version := binary.LittleEndian.Uint32(raw[4:])
	if version != 1 && version != 2 {
		log.Errorf("spz: unsupported version %d", version)
		return nil, core.ErrDecode
	}
	n := int(binary.LittleEndian.Uint32(raw[8:]))
	if n < 0 || n > spzMaxPoints {
		return nil, core.ErrDecode
	}
	shDegree := int(raw[12])
	fractionalBits := uint(raw[13])

	// Section sizes, in payload order.
	posBytes := 9 * n    // 3 x 24-bit fixed point
	alphaBytes := n      // 1 byte
	colorBytes := 3 * n  // rgb bytes
	scaleBytes := 3 * n  // log-quantized bytes
	rotBytes := 3 * n    // smallest-three bytes
	shBytes := shCoeffs(shDegree) * 3 * n

	need := spzHeaderSize + posBytes + alphaBytes + colorBytes + scaleBytes + rotBytes + shBytes
	if len(raw) < need {
		log.Errorf("spz: truncated payload: have %d want %d", len(raw), need)
		return nil, core.ErrDecode
	}

	pos := raw[spzHeaderSize:]
	alphas := pos[posBytes:]
	colors := alphas[alphaBytes:]
	scales := colors[colorBytes:]
	rots := scales[scaleBytes:]

	scale := 1.0 / float64(int64(1)<<fractionalBits)
	cloud := &scene.SplatCloud{
		Positions: make([]float32, 3*n),
		Colors:    make([]float32, 4*n),
		Scales:    make([]float32, 3*n),
		Rotations: make([]float32, 4*n),
	}
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			cloud.Positions[3*i+j] = float32(float64(fixed24(pos[3*(3*i+j):])) * scale)
			cloud.Colors[4*i+j] = float32(colors[3*i+j]) / 255
			cloud.Scales[3*i+j] = float32(math.Exp(float64(scales[3*i+j])/16 - 10))
		}
		cloud.Colors[4*i+3] = float32(alphas[i]) / 255

		qx := float64(rots[3*i+0])/127.5 - 1
		qy := float64(rots[3*i+1])/127.5 - 1
		qz := float64(rots[3*i+2])/127.5 - 1
		qw := math.Sqrt(math.Max(0, 1-qx*qx-qy*qy-qz*qz))
		cloud.Rotations[4*i+0] = float32(qx)
		cloud.Rotations[4*i+1] = float32(qy)
		cloud.Rotations[4*i+2] = float32(qz)
		cloud.Rotations[4*i+3] = float32(qw)
	}
	return cloud, core.NoError
}

// fixed24 reads a little-endian 24-bit signed integer.
func fixed24(b []byte) int32 {
	v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if v&0x800000 != 0 {
		v -= 0x1000000
	}
	return v
}

// shCoeffs returns the number of spherical-harmonics coefficients per
// channel beyond the base color for a given degree.
func shCoeffs(degree int) int {
	switch degree {
	case 1:
		return 3
	case 2:
		return 8
	case 3:
		return 15
	}
	return 0
}
