// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package format

import "github.com/opensplat/splatview/internal/core"

// Camera elements we ask the extractor for. Each is a single-property
// element in files that embed capture metadata; extrinsic is a 16-row
// column holding a row-major 4x4 transform.
var cameraElements = map[string]bool{
	"fx":           true,
	"fy":           true,
	"cx":           true,
	"cy":           true,
	"image_width":  true,
	"image_height": true,
	"extrinsic":    true,
}

// assembleCamera turns raw extracted columns into camera metadata. Focal
// lengths and image dimensions are mandatory; without them it returns nil,
// which callers treat as "no camera metadata", not an error. The principal
// point defaults to the image center.
func assembleCamera(fields map[string][]float64, comments []string, cs core.ColorSpace) *core.CameraMetadata {
	fx, ok1 := first(fields, "fx")
	fy, ok2 := first(fields, "fy")
	w, ok3 := first(fields, "image_width")
	h, ok4 := first(fields, "image_height")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil
	}
	cam := &core.CameraMetadata{
		Intrinsics: core.CameraIntrinsics{
			Fx:          fx,
			Fy:          fy,
			ImageWidth:  int(w),
			ImageHeight: int(h),
		},
		ColorSpace: cs,
		Comments:   comments,
	}
	if cx, ok := first(fields, "cx"); ok {
		cam.Intrinsics.Cx = cx
	} else {
		cam.Intrinsics.Cx = w / 2
	}
	if cy, ok := first(fields, "cy"); ok {
		cam.Intrinsics.Cy = cy
	} else {
		cam.Intrinsics.Cy = h / 2
	}
	if ext := fields["extrinsic"]; len(ext) == 16 {
		var m [16]float64
		copy(m[:], ext)
		cam.Extrinsics = &m
	}
	return cam
}

func first(fields map[string][]float64, name string) (float64, bool) {
	col := fields[name]
	if len(col) == 0 {
		return 0, false
	}
	return col[0], true
}
