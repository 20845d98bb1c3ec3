// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package format

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/opensplat/splatview/internal/core"
	"github.com/opensplat/splatview/internal/scene"
)

func put24(buf *bytes.Buffer, v int32) {
	buf.WriteByte(byte(v))
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v >> 16))
}

// buildSpz assembles and gzips a version-2 payload with fractionalBits=12.
func buildSpz(t *testing.T, n int, shDegree int, body func(*bytes.Buffer)) []byte {
	t.Helper()
	var raw bytes.Buffer
	binary.Write(&raw, binary.LittleEndian, uint32(spzMagic))
	binary.Write(&raw, binary.LittleEndian, uint32(2))
	binary.Write(&raw, binary.LittleEndian, uint32(n))
	raw.WriteByte(byte(shDegree))
	raw.WriteByte(12) // fractional bits
	raw.Write([]byte{0, 0})
	body(&raw)

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	if _, err := zw.Write(raw.Bytes()); err != nil {
		t.Fatalf("gzip: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return gz.Bytes()
}

func TestSpzDecode(t *testing.T) {
	data := buildSpz(t, 2, 0, func(raw *bytes.Buffer) {
		// Positions: (1, -1, 0.5) and (0, 0, 0), 12 fractional bits.
		put24(raw, 4096)
		put24(raw, -4096)
		put24(raw, 2048)
		put24(raw, 0)
		put24(raw, 0)
		put24(raw, 0)
		raw.Write([]byte{255, 0})                      // alphas
		raw.Write([]byte{255, 0, 51, 0, 255, 0})       // colors
		raw.Write([]byte{160, 160, 160, 160, 160, 160}) // scales: exp(0) = 1
		raw.Write([]byte{128, 128, 128, 128, 128, 128}) // rotations near identity
	})

	res, err := spzDecodeResource(data)
	if err != core.NoError {
		t.Fatalf("unexpected error: %s", err)
	}
	cloud := res.(*scene.SplatCloud)
	if cloud.Count() != 2 {
		t.Fatalf("count = %d, want 2", cloud.Count())
	}
	approx(t, "pos[0].x", cloud.Positions[0], 1)
	approx(t, "pos[0].y", cloud.Positions[1], -1)
	approx(t, "pos[0].z", cloud.Positions[2], 0.5)
	approx(t, "alpha[0]", cloud.Colors[3], 1)
	approx(t, "alpha[1]", cloud.Colors[7], 0)
	approx(t, "color[0].b", cloud.Colors[2], 51.0/255)
	approx(t, "scale[1].x", cloud.Scales[3], 1)
	if w := cloud.Rotations[3]; w < 0.999 {
		t.Errorf("rot[0].w = %v, want ~1", w)
	}
}

// Degree-1 harmonics add 3 coefficients per channel that the decoder skips.
func TestSpzSkipsHarmonics(t *testing.T) {
	data := buildSpz(t, 1, 1, func(raw *bytes.Buffer) {
		put24(raw, 4096)
		put24(raw, 0)
		put24(raw, 0)
		raw.WriteByte(255)
		raw.Write([]byte{1, 2, 3})
		raw.Write([]byte{160, 160, 160})
		raw.Write([]byte{128, 128, 128})
		raw.Write(make([]byte, 9)) // 3 coeffs x 3 channels
	})
	res, err := spzDecodeResource(data)
	if err != core.NoError {
		t.Fatalf("unexpected error: %s", err)
	}
	approx(t, "pos.x", res.(*scene.SplatCloud).Positions[0], 1)
}

func TestSpzErrors(t *testing.T) {
	if _, err := spzDecodeResource([]byte("not gzip at all")); err != core.ErrDecode {
		t.Errorf("not gzip: expected ErrDecode, got %s", err)
	}

	// Valid gzip, wrong magic.
	var raw bytes.Buffer
	binary.Write(&raw, binary.LittleEndian, uint32(0xdeadbeef))
	raw.Write(make([]byte, 12))
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	zw.Write(raw.Bytes())
	zw.Close()
	if _, err := spzDecodeResource(gz.Bytes()); err != core.ErrDecode {
		t.Errorf("bad magic: expected ErrDecode, got %s", err)
	}

	// Header claims more points than the payload carries.
	truncated := buildSpz(t, 100, 0, func(raw *bytes.Buffer) {
		raw.Write(make([]byte, 16))
	})
	if _, err := spzDecodeResource(truncated); err != core.ErrDecode {
		t.Errorf("truncated: expected ErrDecode, got %s", err)
	}
}
