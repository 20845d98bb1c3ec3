// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package format

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/opensplat/splatview/internal/core"
	"github.com/opensplat/splatview/internal/scene"
)

func splatRecord(buf *bytes.Buffer, pos, scale [3]float32, rgba, rot [4]byte) {
	binary.Write(buf, binary.LittleEndian, pos)
	binary.Write(buf, binary.LittleEndian, scale)
	buf.Write(rgba[:])
	buf.Write(rot[:])
}

func TestSplatDecode(t *testing.T) {
	var buf bytes.Buffer
	splatRecord(&buf, [3]float32{1, 2, 3}, [3]float32{4, 5, 6},
		[4]byte{255, 0, 51, 128}, [4]byte{228, 128, 128, 128})
	splatRecord(&buf, [3]float32{-1, -2, -3}, [3]float32{1, 1, 1},
		[4]byte{0, 0, 0, 255}, [4]byte{128, 228, 128, 128})

	res, err := splatDecodeResource(buf.Bytes())
	if err != core.NoError {
		t.Fatalf("unexpected error: %s", err)
	}
	cloud := res.(*scene.SplatCloud)
	if cloud.Count() != 2 {
		t.Fatalf("count = %d, want 2", cloud.Count())
	}
	approx(t, "pos[0].y", cloud.Positions[1], 2)
	approx(t, "scale[0].z", cloud.Scales[2], 6)
	approx(t, "color[0].r", cloud.Colors[0], 1)
	approx(t, "color[0].b", cloud.Colors[2], 51.0/255)
	approx(t, "alpha[0]", cloud.Colors[3], 128.0/255)

	// Record 0 rotation is (w=100, x=0, y=0, z=0) quantized: identity xyzw.
	approx(t, "rot[0].x", cloud.Rotations[0], 0)
	approx(t, "rot[0].w", cloud.Rotations[3], 1)
	// Record 1 is (w=0, x=100, y=0, z=0): the x axis.
	approx(t, "rot[1].x", cloud.Rotations[4], 1)
	approx(t, "rot[1].w", cloud.Rotations[7], 0)
}

func TestSplatBadLength(t *testing.T) {
	if _, err := splatDecodeResource(make([]byte, 33)); err != core.ErrDecode {
		t.Errorf("expected ErrDecode, got %s", err)
	}
}

func TestSplatEmpty(t *testing.T) {
	res, err := splatDecodeResource(nil)
	if err != core.NoError {
		t.Fatalf("unexpected error: %s", err)
	}
	if res.(*scene.SplatCloud).Count() != 0 {
		t.Error("expected an empty cloud")
	}
}
