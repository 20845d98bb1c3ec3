// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT
//
// Package cache decodes splat assets into renderable resources exactly once
// per asset id, coalesces concurrent requests, and owns the lifetime and
// visibility of every decoded resource.

package cache

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	log "github.com/golang/glog"

	"github.com/opensplat/splatview/internal/core"
	"github.com/opensplat/splatview/internal/format"
	"github.com/opensplat/splatview/internal/scene"
	"github.com/opensplat/splatview/internal/server"
)

var (
	opm = server.NewOpMetric("splatview_cache_ops", "op")

	metricCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "splatview",
		Name:      "cache_coalesced",
		Help:      "ensure calls that joined an in-flight decode",
	})
	metricEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "splatview",
		Name:      "cache_evictions",
		Help:      "entries disposed by retain or reset",
	})
	metricEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "splatview",
		Name:      "cache_entries",
		Help:      "decoded entries currently resident",
	})
)

// SettingsStore is the slice of the persistent settings store the cache
// consumes. Read-only from here.
type SettingsStore interface {
	Load(name string) (*core.StoredSettings, core.Error)
}

// Source is the remote-source adapter the cache consumes for assets that do
// not carry their bytes locally.
type Source interface {
	LoadAssetFile(ctx context.Context, ref core.AssetRef) ([]byte, core.Error)
	LoadAssetMetadata(ctx context.Context, ref core.AssetRef) (*core.AssetManifest, core.Error)
}

// Entry is one decoded asset. The cache owns it: all fields are read and
// written under the cache lock, and the resource is disposed exactly once,
// by the cache.
type Entry struct {
	ID          core.AssetID
	Ref         core.AssetRef
	Resource    scene.Resource
	Camera      *core.CameraMetadata
	FormatLabel string

	// Settings as merged at decode time; FocusOverride tracks the
	// effective focus distance and is patchable without a redecode.
	Settings      core.StoredSettings
	FocusOverride *float64

	Visible bool
}

// Config wires the cache's collaborators. Registry and Graph are required;
// Source and Settings are optional (nil disables that lookup).
type Config struct {
	Registry *format.Registry
	Graph    scene.Graph
	Source   Source
	Settings SettingsStore
}

// pendingDecode is the shared handle for one physical decode. Waiters block
// on done; entry/err are valid after done is closed. abandoned is set under
// the cache lock when Retain or Reset excludes the id mid-flight.
type pendingDecode struct {
	done      chan struct{}
	entry     *Entry
	err       core.Error
	abandoned bool
}

// Cache is the asset decode cache. One mutex guards both maps; decode work
// itself runs outside the lock, so cache operations for other ids proceed
// while a decode is in flight.
type Cache struct {
	cfg Config

	lock    sync.Mutex
	entries map[core.AssetID]*Entry
	pending map[core.AssetID]*pendingDecode
}

// New creates an empty cache.
func New(cfg Config) *Cache {
	return &Cache{
		cfg:     cfg,
		entries: make(map[core.AssetID]*Entry),
		pending: make(map[core.AssetID]*pendingDecode),
	}
}

// Ensure returns the cached entry for ref's id, joining an in-flight decode
// if one exists, and otherwise decoding from scratch. At most one physical
// decode runs per id; every concurrent caller observes the same outcome.
// Failures are never cached: a later Ensure after a fatal fault retries
// from scratch.
func (c *Cache) Ensure(ctx context.Context, ref core.AssetRef) (*Entry, core.Error) {
	op := opm.Start("ensure")
	defer op.End()

	c.lock.Lock()
	if e, ok := c.entries[ref.ID]; ok {
		c.lock.Unlock()
		return e, core.NoError
	}
	if p, ok := c.pending[ref.ID]; ok {
		c.lock.Unlock()
		metricCoalesced.Inc()
		return c.wait(ctx, p, op)
	}
	p := &pendingDecode{done: make(chan struct{})}
	c.pending[ref.ID] = p
	c.lock.Unlock()

	entry, err := c.createEntry(ctx, ref)

	c.lock.Lock()
	delete(c.pending, ref.ID)
	if err == core.NoError && p.abandoned {
		// Excluded by Retain/Reset while decoding: never commit.
		c.disposeLocked(entry.Resource)
		entry, err = nil, core.ErrAborted
	}
	if err == core.NoError {
		c.entries[ref.ID] = entry
		metricEntries.Set(float64(len(c.entries)))
		p.entry = entry
	} else {
		p.err = err
	}
	c.lock.Unlock()
	close(p.done)

	if err != core.NoError {
		op.Failed()
		return nil, err
	}
	return entry, core.NoError
}

// wait blocks a coalesced caller on a shared decode. Cancelling the
// caller's context abandons only the wait; the decode runs to completion.
func (c *Cache) wait(ctx context.Context, p *pendingDecode, op *server.Op) (*Entry, core.Error) {
	select {
	case <-p.done:
		if p.err != core.NoError {
			op.Failed()
			return nil, p.err
		}
		return p.entry, core.NoError
	case <-ctx.Done():
		op.Failed()
		return nil, core.ErrCanceled
	}
}

// Activate ensures ref's entry, then makes it the single visible entry:
// every other cached entry is hidden. When Activate calls for different ids
// interleave, the last one to complete wins.
func (c *Cache) Activate(ctx context.Context, ref core.AssetRef) (*Entry, core.Error) {
	op := opm.Start("activate")
	defer op.End()

	e, err := c.Ensure(ctx, ref)
	if err != core.NoError {
		op.Failed()
		return nil, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	if c.entries[ref.ID] != e {
		// Evicted between commit and visibility toggle.
		op.Failed()
		return nil, core.ErrAborted
	}
	for _, other := range c.entries {
		if other != e && other.Visible {
			other.Visible = false
			other.Resource.SetVisible(false)
		}
	}
	e.Visible = true
	e.Resource.SetVisible(true)
	return e, core.NoError
}

// IsCached reports whether an entry exists for id. In-flight decodes do not
// count.
func (c *Cache) IsCached(id core.AssetID) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	_, ok := c.entries[id]
	return ok
}

// Retain evicts and disposes every entry whose id is not in keep. In-flight
// decodes for excluded ids are marked abandoned and will not be committed.
// Calling Retain with the current key set is a no-op.
func (c *Cache) Retain(keep map[core.AssetID]bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for id, e := range c.entries {
		if !keep[id] {
			c.disposeLocked(e.Resource)
			delete(c.entries, id)
		}
	}
	for id, p := range c.pending {
		if !keep[id] {
			p.abandoned = true
		}
	}
	metricEntries.Set(float64(len(c.entries)))
}

// Reset disposes every cached entry and abandons every in-flight decode.
func (c *Cache) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, e := range c.entries {
		c.disposeLocked(e.Resource)
	}
	c.entries = make(map[core.AssetID]*Entry)
	for _, p := range c.pending {
		p.abandoned = true
	}
	metricEntries.Set(0)
}

// PatchFocusDistance updates the focus distance of a cached entry in place;
// no redecode. A nil value clears it. No-op if the id is not cached.
func (c *Cache) PatchFocusDistance(id core.AssetID, value *float64) {
	c.lock.Lock()
	defer c.lock.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return
	}
	if value == nil {
		e.Settings.FocusDistance = nil
		e.FocusOverride = nil
		return
	}
	v := *value
	e.Settings.FocusDistance = &v
	e.FocusOverride = &v
}

// disposeLocked detaches and releases a resource. Call with the lock held.
func (c *Cache) disposeLocked(r scene.Resource) {
	c.cfg.Graph.Detach(r)
	r.Release()
	metricEvictions.Inc()
}

// createEntry is the decode pipeline. It runs without the cache lock; every
// I/O step may block. Recoverable faults (metadata, manifest, settings)
// degrade to absent fields; only missing bytes, an unknown format, or a
// failed resource decode reject the asset.
func (c *Cache) createEntry(ctx context.Context, ref core.AssetRef) (*Entry, core.Error) {
	op := opm.Start("decode")
	defer op.End()

	data, err := c.resolveBytes(ctx, ref)
	if err != core.NoError {
		op.Failed()
		return nil, err
	}

	desc := c.cfg.Registry.Resolve(ref.Name)
	if desc == nil {
		log.Errorf("cache: no format for %q", ref.Name)
		op.Failed()
		return nil, core.ErrUnsupportedFormat
	}

	camera, cerr := desc.DecodeMetadata(data)
	if cerr != core.NoError {
		log.Errorf("cache: metadata decode for %q failed: %s", ref.Name, cerr)
		camera = nil
	}

	var manifest *core.AssetManifest
	if c.cfg.Source != nil && !ref.Local() {
		var merr core.Error
		manifest, merr = c.cfg.Source.LoadAssetMetadata(ctx, ref)
		if merr != core.NoError {
			log.Errorf("cache: manifest fetch for %q failed: %s", ref.Name, merr)
			manifest = nil
		}
	}

	var stored *core.StoredSettings
	if c.cfg.Settings != nil {
		var serr core.Error
		stored, serr = c.cfg.Settings.Load(ref.Name)
		if serr != core.NoError {
			log.Errorf("cache: settings load for %q failed: %s", ref.Name, serr)
			stored = nil
		}
	}

	// Merge precedence: local decode beats manifest for the camera; stored
	// settings beat the manifest for animation and focus distance.
	settings := core.StoredSettings{}
	if stored != nil {
		settings = *stored
	}
	if manifest != nil {
		if camera == nil {
			camera = manifest.Camera
		}
		if settings.Animation == nil {
			settings.Animation = manifest.Animation
		}
		if settings.FocusDistance == nil {
			settings.FocusDistance = manifest.FocusDistance
		}
	}

	resource, rerr := desc.DecodeResource(data)
	if rerr != core.NoError {
		log.Errorf("cache: resource decode for %q failed: %s", ref.Name, rerr)
		op.Failed()
		return nil, rerr
	}

	// Attach hidden; Activate is the only thing that shows entries.
	c.cfg.Graph.Attach(resource)
	resource.SetVisible(false)

	return &Entry{
		ID:            ref.ID,
		Ref:           ref,
		Resource:      resource,
		Camera:        camera,
		FormatLabel:   desc.Label,
		Settings:      settings,
		FocusOverride: settings.FocusDistance,
	}, core.NoError
}

// resolveBytes picks the local byte source when present, otherwise fetches
// through the remote source adapter.
func (c *Cache) resolveBytes(ctx context.Context, ref core.AssetRef) ([]byte, core.Error) {
	if ref.Local() {
		return ref.Data, core.NoError
	}
	if c.cfg.Source == nil || ref.Handle == "" {
		log.Errorf("cache: no byte source for %q", ref.Name)
		return nil, core.ErrMissingFile
	}
	data, err := c.cfg.Source.LoadAssetFile(ctx, ref)
	if err != core.NoError {
		log.Errorf("cache: remote fetch for %q failed: %s", ref.Name, err)
		return nil, core.ErrMissingFile
	}
	return data, core.NoError
}
