// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT
//
// Package format maps file extensions to decoders and implements the
// decoders for the containers the viewer understands.

package format

import (
	"path"
	"strings"

	"github.com/opensplat/splatview/internal/core"
	"github.com/opensplat/splatview/internal/scene"
)

// Descriptor describes one container format. Descriptors are immutable
// after registration.
type Descriptor struct {
	// Extensions claimed by the format, lower case, without the dot.
	Extensions []string

	// Label is the human-readable format name, also used as the cache
	// entry's format tag.
	Label string

	// ColorSpace tags how the format stores colors.
	ColorSpace core.ColorSpace

	// DecodeMetadata extracts embedded camera metadata. It may return
	// (nil, NoError) when the format carries none. Failures must be
	// recoverable (ErrMetadataParse): they degrade to "no metadata", never
	// abort the asset.
	DecodeMetadata func(data []byte) (*core.CameraMetadata, core.Error)

	// DecodeResource produces the renderable resource. Failures are fatal
	// for the asset.
	DecodeResource func(data []byte) (scene.Resource, core.Error)
}

// Registry resolves filenames to format descriptors. Registration order is
// significant: the first descriptor claiming an extension wins.
type Registry struct {
	descriptors []*Descriptor
}

// NewRegistry creates a registry holding the given descriptors, in order.
func NewRegistry(descs ...*Descriptor) *Registry {
	return &Registry{descriptors: descs}
}

// Config carries decode options shared by the built-in formats.
type Config struct {
	// ExactScan forces the layout scanner's always-exact strategy when
	// skipping list-typed elements.
	ExactScan bool
}

// DefaultRegistry returns a registry with every built-in format: ply,
// splat, spz.
func DefaultRegistry(cfg Config) *Registry {
	return NewRegistry(
		plyDescriptor(cfg),
		splatDescriptor(),
		spzDescriptor(),
	)
}

// Register appends a descriptor. Later registrations lose ties on
// extensions already claimed.
func (r *Registry) Register(d *Descriptor) {
	r.descriptors = append(r.descriptors, d)
}

// Resolve matches filename's extension, case-insensitively, against each
// descriptor's extension set. Returns nil when the name has no extension or
// nothing claims it.
func (r *Registry) Resolve(filename string) *Descriptor {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" {
		return nil
	}
	for _, d := range r.descriptors {
		for _, e := range d.Extensions {
			if e == ext {
				return d
			}
		}
	}
	return nil
}

// SupportedExtensions returns every claimed extension in registration
// order, for UI-facing allow-lists.
func (r *Registry) SupportedExtensions() []string {
	var out []string
	seen := make(map[string]bool)
	for _, d := range r.descriptors {
		for _, e := range d.Extensions {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	return out
}
