// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT
//
// Package scene holds the render-graph collaborator contract consumed by
// the decode cache, plus the concrete resource type decoders produce.

package scene

// Resource is a renderable unit whose underlying buffers can be freed. A
// resource is released exactly once, by whoever owns it (the decode cache,
// for everything it caches).
type Resource interface {
	// SetVisible shows or hides the resource in the graph it is attached to.
	SetVisible(visible bool)

	// Release frees the underlying buffers. Releasing twice is a bug.
	Release()
}

// Graph receives decoded resources. Attach is called once per successful
// decode, with the resource hidden; Detach is called before the resource is
// released.
type Graph interface {
	Attach(r Resource)
	Detach(r Resource)
}
