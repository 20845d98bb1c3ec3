// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package remote

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"

	log "github.com/golang/glog"

	"github.com/opensplat/splatview/internal/core"
	"github.com/opensplat/splatview/pkg/retry"
)

// HTTPSourceConfig configures an HTTPSource. Zero values get defaults.
type HTTPSourceConfig struct {
	// BaseURL is prepended to asset handles, e.g. "https://host/assets".
	BaseURL string

	// MaxCachedFiles bounds the LRU of fetched byte buffers. Default 8.
	MaxCachedFiles int

	// PerTryTimeout bounds each fetch attempt. Default 30s.
	PerTryTimeout time.Duration

	// MaxAttempts bounds fetch retries. Default 3.
	MaxAttempts int
}

// HTTPSource fetches asset files and manifests over HTTP. Fetched file
// buffers are kept in a small LRU keyed by (source, handle) so that
// re-decoding an evicted asset does not refetch it.
type HTTPSource struct {
	cfg     HTTPSourceConfig
	client  *http.Client
	retrier retry.Retrier

	lock  sync.Mutex
	cache *lru.Cache
}

// NewHTTPSource creates an HTTPSource.
func NewHTTPSource(cfg HTTPSourceConfig) *HTTPSource {
	if cfg.MaxCachedFiles <= 0 {
		cfg.MaxCachedFiles = 8
	}
	if cfg.PerTryTimeout <= 0 {
		cfg.PerTryTimeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &HTTPSource{
		cfg:    cfg,
		client: &http.Client{},
		retrier: retry.Retrier{
			MinSleep:    100 * time.Millisecond,
			MaxSleep:    5 * time.Second,
			MaxAttempts: cfg.MaxAttempts,
		},
		cache: lru.New(cfg.MaxCachedFiles),
	}
}

// LoadAssetFile implements Source.
func (s *HTTPSource) LoadAssetFile(ctx context.Context, ref core.AssetRef) ([]byte, core.Error) {
	key := string(ref.Source) + "/" + ref.Handle

	s.lock.Lock()
	if v, ok := s.cache.Get(key); ok {
		s.lock.Unlock()
		return v.([]byte), core.NoError
	}
	s.lock.Unlock()

	data, err := s.fetch(ctx, s.url(ref.Handle))
	if err != core.NoError {
		return nil, core.ErrMissingFile
	}

	s.lock.Lock()
	s.cache.Add(key, data)
	s.lock.Unlock()
	return data, core.NoError
}

// LoadAssetMetadata implements Source. The manifest lives next to the asset
// under handle+".json"; a 404 means "no manifest" and is not a fault.
func (s *HTTPSource) LoadAssetMetadata(ctx context.Context, ref core.AssetRef) (*core.AssetManifest, core.Error) {
	data, err := s.fetch(ctx, s.url(ref.Handle)+".json")
	if err == core.ErrMissingFile {
		return nil, core.NoError
	}
	if err != core.NoError {
		return nil, core.ErrMetadataParse
	}
	return parseManifest(data)
}

func (s *HTTPSource) url(handle string) string {
	return s.cfg.BaseURL + "/" + handle
}

// fetch GETs a URL with bounded retries. 404 is terminal (ErrMissingFile);
// other failures are retried.
func (s *HTTPSource) fetch(ctx context.Context, url string) ([]byte, core.Error) {
	var data []byte
	var terminal core.Error
	ok, cancelled := s.retrier.DoTimed(ctx, s.cfg.PerTryTimeout, func(tryCtx context.Context, attempt int) bool {
		if attempt > 0 {
			log.V(1).Infof("remote: retrying %s (attempt %d)", url, attempt)
		}
		req, err := http.NewRequest("GET", url, nil)
		if err != nil {
			terminal = core.ErrMissingFile
			return true
		}
		resp, err := s.client.Do(req.WithContext(tryCtx))
		if err != nil {
			log.Errorf("remote: GET %s: %v", url, err)
			return false
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			terminal = core.ErrMissingFile
			return true
		}
		if resp.StatusCode != http.StatusOK {
			log.Errorf("remote: GET %s: %s", url, resp.Status)
			return false
		}
		body, err := ioutil.ReadAll(resp.Body)
		if err != nil {
			log.Errorf("remote: reading %s: %v", url, err)
			return false
		}
		data = body
		return true
	})
	if terminal != core.NoError {
		return nil, terminal
	}
	if cancelled {
		return nil, core.ErrCanceled
	}
	if !ok {
		return nil, core.ErrMissingFile
	}
	return data, core.NoError
}

// manifestWire is the published JSON shape.
type manifestWire struct {
	Camera *struct {
		Fx          float64    `json:"fx"`
		Fy          float64    `json:"fy"`
		Cx          float64    `json:"cx"`
		Cy          float64    `json:"cy"`
		ImageWidth  int        `json:"imageWidth"`
		ImageHeight int        `json:"imageHeight"`
		Extrinsics  *[]float64 `json:"extrinsics,omitempty"`
	} `json:"camera,omitempty"`
	Animation     *bool    `json:"animation,omitempty"`
	FocusDistance *float64 `json:"focusDistance,omitempty"`
}

func parseManifest(data []byte) (*core.AssetManifest, core.Error) {
	var wire manifestWire
	if err := json.Unmarshal(data, &wire); err != nil {
		log.Errorf("remote: malformed manifest: %v", err)
		return nil, core.ErrMetadataParse
	}
	m := &core.AssetManifest{
		Animation:     wire.Animation,
		FocusDistance: wire.FocusDistance,
	}
	if wire.Camera != nil {
		cam := &core.CameraMetadata{
			Intrinsics: core.CameraIntrinsics{
				Fx:          wire.Camera.Fx,
				Fy:          wire.Camera.Fy,
				Cx:          wire.Camera.Cx,
				Cy:          wire.Camera.Cy,
				ImageWidth:  wire.Camera.ImageWidth,
				ImageHeight: wire.Camera.ImageHeight,
			},
		}
		if wire.Camera.Extrinsics != nil && len(*wire.Camera.Extrinsics) == 16 {
			var ext [16]float64
			copy(ext[:], *wire.Camera.Extrinsics)
			cam.Extrinsics = &ext
		}
		if cam.Intrinsics.Fx == 0 || cam.Intrinsics.Fy == 0 {
			// A manifest with a camera block but no focal lengths is not
			// usable as a viewpoint.
			return nil, core.ErrMetadataParse
		}
		m.Camera = cam
	}
	return m, core.NoError
}

var _ Source = (*HTTPSource)(nil)
