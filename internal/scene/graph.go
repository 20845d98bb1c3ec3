// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package scene

import (
	"sync"

	log "github.com/golang/glog"
)

// MemGraph is an in-memory Graph used by the CLI and by tests. It only
// tracks which resources are attached.
type MemGraph struct {
	lock     sync.Mutex
	attached map[Resource]bool
}

// NewMemGraph creates an empty graph.
func NewMemGraph() *MemGraph {
	return &MemGraph{attached: make(map[Resource]bool)}
}

// Attach implements Graph.
func (g *MemGraph) Attach(r Resource) {
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.attached[r] {
		log.Errorf("graph: resource attached twice")
		return
	}
	g.attached[r] = true
}

// Detach implements Graph.
func (g *MemGraph) Detach(r Resource) {
	g.lock.Lock()
	defer g.lock.Unlock()
	if !g.attached[r] {
		log.Errorf("graph: detach of unattached resource")
		return
	}
	delete(g.attached, r)
}

// Attached returns how many resources are currently attached.
func (g *MemGraph) Attached() int {
	g.lock.Lock()
	defer g.lock.Unlock()
	return len(g.attached)
}
