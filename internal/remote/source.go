// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT
//
// Package remote fetches asset bytes and manifest metadata from remote
// sources. The decode cache consumes the Source interface; this package
// provides the HTTP implementation and an in-memory one for tests and the
// CLI.

package remote

import (
	"context"

	"github.com/opensplat/splatview/internal/core"
)

// Source resolves remote asset handles. LoadAssetFile is mandatory for a
// remote asset; LoadAssetMetadata is best-effort and may legitimately
// return (nil, NoError) when the source publishes no manifest.
type Source interface {
	LoadAssetFile(ctx context.Context, ref core.AssetRef) ([]byte, core.Error)
	LoadAssetMetadata(ctx context.Context, ref core.AssetRef) (*core.AssetManifest, core.Error)
}
