// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT
//
// Package settings is the persistent per-file settings store: animation,
// focus distance and preview preferences keyed by asset name, plus captured
// preview thumbnails. Backed by a single bolt file.

package settings

import (
	"encoding/json"

	"github.com/boltdb/bolt"
	"github.com/golang/snappy"

	log "github.com/golang/glog"

	"github.com/opensplat/splatview/internal/core"
)

var (
	settingsBucket = []byte("settings")
	previewsBucket = []byte("previews")
)

// Store is a bolt-backed settings store. Safe for concurrent use; bolt
// serializes writers internally.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the store at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(settingsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(previewsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the stored settings for an asset name, or (nil, NoError)
// when nothing was stored.
func (s *Store) Load(name string) (*core.StoredSettings, core.Error) {
	var out *core.StoredSettings
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(settingsBucket).Get([]byte(name))
		if raw == nil {
			return nil
		}
		var st core.StoredSettings
		if err := json.Unmarshal(raw, &st); err != nil {
			return err
		}
		out = &st
		return nil
	})
	if err != nil {
		log.Errorf("settings: loading %q: %v", name, err)
		return nil, core.ErrStoreIO
	}
	return out, core.NoError
}

// Save stores the settings for an asset name, replacing any previous value.
func (s *Store) Save(name string, st core.StoredSettings) core.Error {
	raw, err := json.Marshal(&st)
	if err != nil {
		log.Errorf("settings: encoding %q: %v", name, err)
		return core.ErrStoreIO
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(settingsBucket).Put([]byte(name), raw)
	})
	if err != nil {
		log.Errorf("settings: saving %q: %v", name, err)
		return core.ErrStoreIO
	}
	return core.NoError
}

// SavePreview stores a captured preview image, snappy-compressed. Previews
// are already encoded pixels so snappy's cheap framing is enough here.
func (s *Store) SavePreview(name string, img []byte) core.Error {
	compressed := snappy.Encode(nil, img)
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(previewsBucket).Put([]byte(name), compressed)
	})
	if err != nil {
		log.Errorf("settings: saving preview %q: %v", name, err)
		return core.ErrStoreIO
	}
	return core.NoError
}

// LoadPreview returns the stored preview for an asset name, or (nil,
// NoError) when none was captured.
func (s *Store) LoadPreview(name string) ([]byte, core.Error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(previewsBucket).Get([]byte(name))
		if raw == nil {
			return nil
		}
		img, err := snappy.Decode(nil, raw)
		if err != nil {
			return err
		}
		out = img
		return nil
	})
	if err != nil {
		log.Errorf("settings: loading preview %q: %v", name, err)
		return nil, core.ErrStoreIO
	}
	return out, core.NoError
}
