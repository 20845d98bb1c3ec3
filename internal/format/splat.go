// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT
//
// The .splat container: no header, just fixed 32-byte little-endian
// records. Position and scale as float32 triples, color as rgba bytes,
// rotation as a quantized wxyz quaternion.

package format

import (
	"encoding/binary"
	"math"

	log "github.com/golang/glog"

	"github.com/opensplat/splatview/internal/core"
	"github.com/opensplat/splatview/internal/scene"
)

const splatRecordSize = 32

func splatDescriptor() *Descriptor {
	return &Descriptor{
		Extensions: []string{"splat"},
		Label:      "splat",
		ColorSpace: core.ColorSpaceOther,
		DecodeMetadata: func(data []byte) (*core.CameraMetadata, core.Error) {
			// The container has no metadata section.
			return nil, core.NoError
		},
		DecodeResource: splatDecodeResource,
	}
}

func splatDecodeResource(data []byte) (scene.Resource, core.Error) {
	if len(data)%splatRecordSize != 0 {
		log.Errorf("splat: %d bytes is not a whole number of records", len(data))
		return nil, core.ErrDecode
	}
	n := len(data) / splatRecordSize
	cloud := &scene.SplatCloud{
		Positions: make([]float32, 3*n),
		Colors:    make([]float32, 4*n),
		Scales:    make([]float32, 3*n),
		Rotations: make([]float32, 4*n),
	}
	for i := 0; i < n; i++ {
		rec := data[i*splatRecordSize:]
		for j := 0; j < 3; j++ {
			cloud.Positions[3*i+j] = math.Float32frombits(binary.LittleEndian.Uint32(rec[4*j:]))
			cloud.Scales[3*i+j] = math.Float32frombits(binary.LittleEndian.Uint32(rec[12+4*j:]))
		}
		for j := 0; j < 4; j++ {
			cloud.Colors[4*i+j] = float32(rec[24+j]) / 255
		}
		// Quantized wxyz, center 128; store xyzw normalized.
		qw := float64(rec[28]) - 128
		qx := float64(rec[29]) - 128
		qy := float64(rec[30]) - 128
		qz := float64(rec[31]) - 128
		norm := math.Sqrt(qw*qw + qx*qx + qy*qy + qz*qz)
		if norm == 0 {
			norm, qw = 1, 1
		}
		cloud.Rotations[4*i+0] = float32(qx / norm)
		cloud.Rotations[4*i+1] = float32(qy / norm)
		cloud.Rotations[4*i+2] = float32(qz / norm)
		cloud.Rotations[4*i+3] = float32(qw / norm)
	}
	return cloud, core.NoError
}
