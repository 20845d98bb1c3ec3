// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT
//
// Shared vocabulary for the decode-and-cache core. Everything here is a
// plain value type; behavior lives in the packages that own it.

package core

// AssetID uniquely identifies an asset for the asset's lifetime. The
// composing application picks the scheme (file path, manifest id, ...); the
// core only compares them.
type AssetID string

// SourceID names a remote source registered with the composing application.
type SourceID string

// AssetRef describes where an asset's bytes come from. Exactly one of Data
// (local, already in memory) or the (Source, Handle) pair should be set.
type AssetRef struct {
	ID   AssetID
	Name string

	// Local byte source. Takes precedence when non-nil.
	Data []byte

	// Remote source pair.
	Source SourceID
	Handle string
}

// Local reports whether the ref carries its bytes directly.
func (r AssetRef) Local() bool {
	return r.Data != nil
}

// ColorSpace tags how a format stores color values.
type ColorSpace int

const (
	// ColorSpaceLinear means colors are stored linearly.
	ColorSpaceLinear = ColorSpace(iota)
	// ColorSpaceOther means anything else (typically sRGB-encoded).
	ColorSpaceOther
)

func (c ColorSpace) String() string {
	if c == ColorSpaceLinear {
		return "linear"
	}
	return "other"
}

// CameraIntrinsics are the pinhole parameters recovered from an asset's
// embedded metadata.
type CameraIntrinsics struct {
	Fx, Fy      float64
	Cx, Cy      float64
	ImageWidth  int
	ImageHeight int
}

// CameraMetadata reproduces the original capture viewpoint. Extrinsics, when
// present, is a row-major 4x4 transform.
type CameraMetadata struct {
	Intrinsics CameraIntrinsics
	Extrinsics *[16]float64
	ColorSpace ColorSpace
	Comments   []string
}

// StoredSettings are the per-file preferences kept by the persistent
// settings store. Nil fields mean "not set".
type StoredSettings struct {
	Animation     *bool    `json:"animation,omitempty"`
	FocusDistance *float64 `json:"focusDistance,omitempty"`
	Preview       *bool    `json:"preview,omitempty"`
}

// AssetManifest is the best-effort metadata a remote source may publish
// alongside an asset. Any field may be absent.
type AssetManifest struct {
	Camera        *CameraMetadata
	Animation     *bool
	FocusDistance *float64
}
