// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opensplat/splatview/internal/core"
	"github.com/opensplat/splatview/internal/format"
	"github.com/opensplat/splatview/internal/scene"
)

type fakeResource struct {
	lock     sync.Mutex
	visible  bool
	released int
}

func (r *fakeResource) SetVisible(v bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.visible = v
}

func (r *fakeResource) Release() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.released++
}

func (r *fakeResource) releaseCount() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.released
}

type fakeGraph struct {
	lock     sync.Mutex
	attached map[scene.Resource]bool
	detaches int
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{attached: make(map[scene.Resource]bool)}
}

func (g *fakeGraph) Attach(r scene.Resource) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.attached[r] = true
}

func (g *fakeGraph) Detach(r scene.Resource) {
	g.lock.Lock()
	defer g.lock.Unlock()
	delete(g.attached, r)
	g.detaches++
}

func (g *fakeGraph) count() int {
	g.lock.Lock()
	defer g.lock.Unlock()
	return len(g.attached)
}

type fakeSource struct {
	lock      sync.Mutex
	files     map[string][]byte
	manifests map[string]*core.AssetManifest
	fileCalls int
}

func (s *fakeSource) LoadAssetFile(ctx context.Context, ref core.AssetRef) ([]byte, core.Error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.fileCalls++
	data, ok := s.files[ref.Handle]
	if !ok {
		return nil, core.ErrMissingFile
	}
	return data, core.NoError
}

func (s *fakeSource) LoadAssetMetadata(ctx context.Context, ref core.AssetRef) (*core.AssetManifest, core.Error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.manifests[ref.Handle], core.NoError
}

type fakeSettings struct {
	stored map[string]*core.StoredSettings
}

func (s *fakeSettings) Load(name string) (*core.StoredSettings, core.Error) {
	return s.stored[name], core.NoError
}

// testEnv is a cache wired to an instrumented decoder. gate, when set,
// blocks every decode until released; started signals each decode entry.
type testEnv struct {
	cache   *Cache
	graph   *fakeGraph
	source  *fakeSource
	decodes int32
	failErr core.Error
	camera  *core.CameraMetadata
	gate    chan struct{}
	started chan struct{}
}

func newTestEnv(settings SettingsStore) *testEnv {
	env := &testEnv{
		graph:  newFakeGraph(),
		source: &fakeSource{files: make(map[string][]byte), manifests: make(map[string]*core.AssetManifest)},
	}
	desc := &format.Descriptor{
		Extensions: []string{"fake"},
		Label:      "fake",
		DecodeMetadata: func(data []byte) (*core.CameraMetadata, core.Error) {
			return env.camera, core.NoError
		},
		DecodeResource: func(data []byte) (scene.Resource, core.Error) {
			atomic.AddInt32(&env.decodes, 1)
			if env.started != nil {
				env.started <- struct{}{}
			}
			if env.gate != nil {
				<-env.gate
			}
			if env.failErr != core.NoError {
				return nil, env.failErr
			}
			return &fakeResource{}, core.NoError
		},
	}
	env.cache = New(Config{
		Registry: format.NewRegistry(desc),
		Graph:    env.graph,
		Source:   env.source,
		Settings: settings,
	})
	return env
}

func localRef(id string) core.AssetRef {
	return core.AssetRef{ID: core.AssetID(id), Name: id + ".fake", Data: []byte{1}}
}

func TestEnsureCachesOnce(t *testing.T) {
	env := newTestEnv(nil)
	ref := localRef("a")
	e1, err := env.cache.Ensure(context.Background(), ref)
	if err != core.NoError {
		t.Fatalf("first ensure: %s", err)
	}
	e2, err := env.cache.Ensure(context.Background(), ref)
	if err != core.NoError {
		t.Fatalf("second ensure: %s", err)
	}
	if e1 != e2 {
		t.Error("expected the same entry")
	}
	if n := atomic.LoadInt32(&env.decodes); n != 1 {
		t.Errorf("decodes = %d, want 1", n)
	}
	if !env.cache.IsCached(ref.ID) {
		t.Error("expected the id to be cached")
	}
	if env.graph.count() != 1 {
		t.Errorf("attached = %d, want 1", env.graph.count())
	}
}

func TestConcurrentEnsureCoalesces(t *testing.T) {
	env := newTestEnv(nil)
	env.gate = make(chan struct{})
	env.started = make(chan struct{}, 2)
	ref := localRef("a")

	type result struct {
		e   *Entry
		err core.Error
	}
	results := make(chan result, 2)
	run := func() {
		e, err := env.cache.Ensure(context.Background(), ref)
		results <- result{e, err}
	}
	go run()
	<-env.started // first caller owns the decode
	go run()
	time.Sleep(20 * time.Millisecond) // second caller reaches the wait
	close(env.gate)

	r1, r2 := <-results, <-results
	if r1.err != core.NoError || r2.err != core.NoError {
		t.Fatalf("errors: %s, %s", r1.err, r2.err)
	}
	if r1.e != r2.e {
		t.Error("coalesced callers saw different entries")
	}
	if n := atomic.LoadInt32(&env.decodes); n != 1 {
		t.Errorf("decodes = %d, want 1", n)
	}
}

// A failed decode is never cached: the next Ensure retries from scratch.
func TestNoNegativeCaching(t *testing.T) {
	env := newTestEnv(nil)
	env.failErr = core.ErrDecode
	ref := localRef("a")
	if _, err := env.cache.Ensure(context.Background(), ref); err != core.ErrDecode {
		t.Fatalf("expected ErrDecode, got %s", err)
	}
	if env.cache.IsCached(ref.ID) {
		t.Error("failure must not be cached")
	}

	env.failErr = core.NoError
	if _, err := env.cache.Ensure(context.Background(), ref); err != core.NoError {
		t.Fatalf("retry: %s", err)
	}
	if n := atomic.LoadInt32(&env.decodes); n != 2 {
		t.Errorf("decodes = %d, want 2", n)
	}
}

func TestActivateSingleVisible(t *testing.T) {
	env := newTestEnv(nil)
	ctx := context.Background()
	a, b, c := localRef("a"), localRef("b"), localRef("c")

	for _, ref := range []core.AssetRef{a, b, c} {
		if _, err := env.cache.Activate(ctx, ref); err != core.NoError {
			t.Fatalf("activate %s: %s", ref.ID, err)
		}
	}
	eb, err := env.cache.Activate(ctx, b)
	if err != core.NoError {
		t.Fatalf("reactivate b: %s", err)
	}

	env.cache.lock.Lock()
	visible := 0
	for _, e := range env.cache.entries {
		if e.Visible {
			visible++
			if e != eb {
				t.Errorf("entry %s visible, want only b", e.ID)
			}
			if !e.Resource.(*fakeResource).visible {
				t.Error("entry flagged visible but resource hidden")
			}
		}
	}
	env.cache.lock.Unlock()
	if visible != 1 {
		t.Errorf("visible entries = %d, want 1", visible)
	}
}

func TestRetainKeepAllIsNoOp(t *testing.T) {
	env := newTestEnv(nil)
	ctx := context.Background()
	ea, _ := env.cache.Ensure(ctx, localRef("a"))
	eb, _ := env.cache.Ensure(ctx, localRef("b"))

	env.cache.Retain(map[core.AssetID]bool{"a": true, "b": true})
	if ea.Resource.(*fakeResource).releaseCount() != 0 || eb.Resource.(*fakeResource).releaseCount() != 0 {
		t.Error("retain with the full key set must not dispose anything")
	}
	if env.graph.count() != 2 {
		t.Errorf("attached = %d, want 2", env.graph.count())
	}
}

func TestRetainEvictsAndDisposesOnce(t *testing.T) {
	env := newTestEnv(nil)
	ctx := context.Background()
	env.cache.Ensure(ctx, localRef("a"))
	eb, _ := env.cache.Ensure(ctx, localRef("b"))

	env.cache.Retain(map[core.AssetID]bool{"a": true})
	if env.cache.IsCached("b") {
		t.Error("b should be evicted")
	}
	if !env.cache.IsCached("a") {
		t.Error("a should survive")
	}
	if n := eb.Resource.(*fakeResource).releaseCount(); n != 1 {
		t.Errorf("b released %d times, want 1", n)
	}
	// Idempotent for already-evicted ids.
	env.cache.Retain(map[core.AssetID]bool{"a": true})
	if n := eb.Resource.(*fakeResource).releaseCount(); n != 1 {
		t.Errorf("b released %d times after second retain, want 1", n)
	}
	if env.graph.count() != 1 {
		t.Errorf("attached = %d, want 1", env.graph.count())
	}
}

func TestResetDisposesEverything(t *testing.T) {
	env := newTestEnv(nil)
	ctx := context.Background()
	ea, _ := env.cache.Ensure(ctx, localRef("a"))
	eb, _ := env.cache.Ensure(ctx, localRef("b"))

	env.cache.Reset()
	if env.cache.IsCached("a") || env.cache.IsCached("b") {
		t.Error("reset must evict everything")
	}
	if ea.Resource.(*fakeResource).releaseCount() != 1 || eb.Resource.(*fakeResource).releaseCount() != 1 {
		t.Error("reset must dispose each entry exactly once")
	}
	if env.graph.count() != 0 {
		t.Errorf("attached = %d, want 0", env.graph.count())
	}

	// The cache is usable again.
	if _, err := env.cache.Ensure(ctx, localRef("a")); err != core.NoError {
		t.Fatalf("ensure after reset: %s", err)
	}
}

// An in-flight decode excluded by Retain must never be committed: the owner
// gets ErrAborted, the resource is disposed, and nothing leaks.
func TestAbandonedInFlightDecode(t *testing.T) {
	env := newTestEnv(nil)
	env.gate = make(chan struct{})
	env.started = make(chan struct{}, 1)
	ref := localRef("a")

	errs := make(chan core.Error, 1)
	go func() {
		_, err := env.cache.Ensure(context.Background(), ref)
		errs <- err
	}()
	<-env.started
	env.cache.Retain(map[core.AssetID]bool{})
	close(env.gate)

	if err := <-errs; err != core.ErrAborted {
		t.Fatalf("expected ErrAborted, got %s", err)
	}
	if env.cache.IsCached(ref.ID) {
		t.Error("abandoned decode must not be cached")
	}
	if env.graph.count() != 0 {
		t.Errorf("attached = %d, want 0", env.graph.count())
	}

	// A later Ensure decodes again and succeeds.
	env.gate, env.started = nil, nil
	if _, err := env.cache.Ensure(context.Background(), ref); err != core.NoError {
		t.Fatalf("ensure after abandon: %s", err)
	}
	if n := atomic.LoadInt32(&env.decodes); n != 2 {
		t.Errorf("decodes = %d, want 2", n)
	}
}

// Cancelling a coalesced waiter abandons only the wait; the decode itself
// finishes and is committed for the owner.
func TestWaiterCancel(t *testing.T) {
	env := newTestEnv(nil)
	env.gate = make(chan struct{})
	env.started = make(chan struct{}, 1)
	ref := localRef("a")

	errs := make(chan core.Error, 1)
	go func() {
		_, err := env.cache.Ensure(context.Background(), ref)
		errs <- err
	}()
	<-env.started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := env.cache.Ensure(ctx, ref); err != core.ErrCanceled {
		t.Fatalf("expected ErrCanceled, got %s", err)
	}

	close(env.gate)
	if err := <-errs; err != core.NoError {
		t.Fatalf("owner: %s", err)
	}
	if !env.cache.IsCached(ref.ID) {
		t.Error("owner's decode should be committed")
	}
}

func TestPatchFocusDistanceNoRedecode(t *testing.T) {
	env := newTestEnv(nil)
	ref := localRef("a")
	e, _ := env.cache.Ensure(context.Background(), ref)

	v := 2.5
	env.cache.PatchFocusDistance(ref.ID, &v)
	if e.FocusOverride == nil || *e.FocusOverride != 2.5 {
		t.Errorf("focus = %v, want 2.5", e.FocusOverride)
	}
	// The cache copies the value.
	v = 99
	if *e.FocusOverride != 2.5 {
		t.Error("patch must copy the value")
	}

	env.cache.PatchFocusDistance(ref.ID, nil)
	if e.FocusOverride != nil || e.Settings.FocusDistance != nil {
		t.Error("nil patch must clear the focus distance")
	}

	env.cache.PatchFocusDistance("missing", &v) // no-op
	if n := atomic.LoadInt32(&env.decodes); n != 1 {
		t.Errorf("decodes = %d, want 1", n)
	}
}

func TestMissingBytes(t *testing.T) {
	env := newTestEnv(nil)
	// Remote ref with no data and no handle known to the source.
	ref := core.AssetRef{ID: "a", Name: "a.fake", Source: "remote", Handle: "nope"}
	if _, err := env.cache.Ensure(context.Background(), ref); err != core.ErrMissingFile {
		t.Errorf("expected ErrMissingFile, got %s", err)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	env := newTestEnv(nil)
	ref := core.AssetRef{ID: "a", Name: "a.unknown", Data: []byte{1}}
	if _, err := env.cache.Ensure(context.Background(), ref); err != core.ErrUnsupportedFormat {
		t.Errorf("expected ErrUnsupportedFormat, got %s", err)
	}
}

// Metadata merge: a locally decoded camera beats the manifest camera, and
// stored settings beat manifest animation/focus; the manifest fills gaps.
func TestMetadataMergePrecedence(t *testing.T) {
	manifestFocus, manifestAnim := 7.0, true
	storedFocus := 3.0

	settings := &fakeSettings{stored: map[string]*core.StoredSettings{
		"stored.fake": {FocusDistance: &storedFocus},
	}}
	env := newTestEnv(settings)

	localCam := &core.CameraMetadata{Intrinsics: core.CameraIntrinsics{Fx: 111}}
	manifestCam := &core.CameraMetadata{Intrinsics: core.CameraIntrinsics{Fx: 222}}
	manifest := &core.AssetManifest{
		Camera:        manifestCam,
		Animation:     &manifestAnim,
		FocusDistance: &manifestFocus,
	}
	env.source.files["h"] = []byte{1}
	env.source.manifests["h"] = manifest

	// Remote asset, local decode yields a camera: local wins, manifest
	// fills animation, stored settings win focus.
	env.camera = localCam
	ref := core.AssetRef{ID: "s", Name: "stored.fake", Source: "remote", Handle: "h"}
	e, err := env.cache.Ensure(context.Background(), ref)
	if err != core.NoError {
		t.Fatalf("ensure: %s", err)
	}
	if e.Camera == nil || e.Camera.Intrinsics.Fx != 111 {
		t.Errorf("camera = %+v, want the locally decoded one", e.Camera)
	}
	if e.Settings.Animation == nil || !*e.Settings.Animation {
		t.Error("animation should come from the manifest")
	}
	if e.FocusOverride == nil || *e.FocusOverride != 3.0 {
		t.Errorf("focus = %v, want the stored 3.0", e.FocusOverride)
	}

	// No local camera: the manifest camera is used.
	env.camera = nil
	ref2 := core.AssetRef{ID: "t", Name: "other.fake", Source: "remote", Handle: "h"}
	e2, err := env.cache.Ensure(context.Background(), ref2)
	if err != core.NoError {
		t.Fatalf("ensure: %s", err)
	}
	if e2.Camera == nil || e2.Camera.Intrinsics.Fx != 222 {
		t.Errorf("camera = %+v, want the manifest one", e2.Camera)
	}
	if e2.FocusOverride == nil || *e2.FocusOverride != 7.0 {
		t.Errorf("focus = %v, want the manifest 7.0", e2.FocusOverride)
	}
}

// Local assets never consult the remote manifest.
func TestLocalAssetSkipsManifest(t *testing.T) {
	env := newTestEnv(nil)
	manifestFocus := 7.0
	env.source.manifests["h"] = &core.AssetManifest{FocusDistance: &manifestFocus}

	ref := core.AssetRef{ID: "a", Name: "a.fake", Data: []byte{1}, Handle: "h"}
	e, err := env.cache.Ensure(context.Background(), ref)
	if err != core.NoError {
		t.Fatalf("ensure: %s", err)
	}
	if e.FocusOverride != nil {
		t.Errorf("focus = %v, want nil", e.FocusOverride)
	}
	if env.source.fileCalls != 0 {
		t.Errorf("source fetches = %d, want 0", env.source.fileCalls)
	}
}

func TestSnapshotSorted(t *testing.T) {
	env := newTestEnv(nil)
	ctx := context.Background()
	env.cache.Ensure(ctx, localRef("b"))
	env.cache.Ensure(ctx, localRef("a"))
	v := 1.5
	env.cache.PatchFocusDistance("a", &v)

	infos := env.cache.Snapshot()
	if len(infos) != 2 || infos[0].ID != "a" || infos[1].ID != "b" {
		t.Fatalf("snapshot = %+v", infos)
	}
	if infos[0].Focus != "1.5" {
		t.Errorf("focus = %q, want 1.5", infos[0].Focus)
	}
	if infos[1].Focus != "-" {
		t.Errorf("focus = %q, want -", infos[1].Focus)
	}
	if infos[0].Format != "fake" {
		t.Errorf("format = %q, want fake", infos[0].Format)
	}
}
