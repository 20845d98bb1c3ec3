// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package scene

// SplatCloud is a decoded splat asset: parallel per-point arrays rendered
// with view-dependent blending. All slices have the same point count (times
// their component width).
type SplatCloud struct {
	// Positions holds xyz triples.
	Positions []float32
	// Colors holds rgba quads in [0,1].
	Colors []float32
	// Scales holds per-axis extents, already linearized (exp applied where
	// the source format stores logs).
	Scales []float32
	// Rotations holds normalized xyzw quaternions.
	Rotations []float32

	visible  bool
	released bool
}

// Count returns the number of points.
func (s *SplatCloud) Count() int {
	return len(s.Positions) / 3
}

// SetVisible implements Resource.
func (s *SplatCloud) SetVisible(visible bool) {
	s.visible = visible
}

// Visible reports the current visibility flag.
func (s *SplatCloud) Visible() bool {
	return s.visible
}

// Release frees the point buffers. Releasing twice indicates an ownership
// bug somewhere, so it panics rather than hiding it.
func (s *SplatCloud) Release() {
	if s.released {
		panic("scene: SplatCloud released twice")
	}
	s.released = true
	s.Positions = nil
	s.Colors = nil
	s.Scales = nil
	s.Rotations = nil
}
