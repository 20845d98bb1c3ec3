// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package remote

import (
	"context"
	"sync"

	"github.com/opensplat/splatview/internal/core"
)

// MemSource is an in-memory Source for tests and local compositions. It
// counts calls so tests can assert on fetch behavior.
type MemSource struct {
	lock  sync.Mutex
	files map[string][]byte
	metas map[string]*core.AssetManifest

	// FileCalls and MetaCalls count LoadAssetFile/LoadAssetMetadata
	// invocations per handle.
	FileCalls map[string]int
	MetaCalls map[string]int
}

// NewMemSource creates an empty MemSource.
func NewMemSource() *MemSource {
	return &MemSource{
		files:     make(map[string][]byte),
		metas:     make(map[string]*core.AssetManifest),
		FileCalls: make(map[string]int),
		MetaCalls: make(map[string]int),
	}
}

// AddFile registers asset bytes under a handle.
func (s *MemSource) AddFile(handle string, data []byte) {
	s.lock.Lock()
	s.files[handle] = data
	s.lock.Unlock()
}

// AddManifest registers a manifest under a handle.
func (s *MemSource) AddManifest(handle string, m *core.AssetManifest) {
	s.lock.Lock()
	s.metas[handle] = m
	s.lock.Unlock()
}

// LoadAssetFile implements Source.
func (s *MemSource) LoadAssetFile(ctx context.Context, ref core.AssetRef) ([]byte, core.Error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.FileCalls[ref.Handle]++
	if data, ok := s.files[ref.Handle]; ok {
		return data, core.NoError
	}
	return nil, core.ErrMissingFile
}

// LoadAssetMetadata implements Source.
func (s *MemSource) LoadAssetMetadata(ctx context.Context, ref core.AssetRef) (*core.AssetManifest, core.Error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.MetaCalls[ref.Handle]++
	return s.metas[ref.Handle], core.NoError
}

var _ Source = (*MemSource)(nil)
