// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT
//
// Package library tracks which assets the viewer has opened, for the
// recent-files list. Backed by sqlite.

package library

import (
	"database/sql"
	"time"

	// Import sqlite3 driver so that we can create a db backed by sqlite.
	_ "github.com/mattn/go-sqlite3"

	"github.com/opensplat/splatview/internal/core"
)

// Asset is one row of the library.
type Asset struct {
	ID         core.AssetID
	Name       string
	Path       string
	Format     string
	LastOpened time.Time
}

// DB is a persistent library backed by sqlite at a given path.
type DB struct {
	db *sql.DB

	// Prepared statements for operating on the 'assets' table.
	touchStmt, recentStmt, forgetStmt *sql.Stmt
}

// Open creates a DB backed by the file located at 'path'.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// A non-integer primary key can be null in early sqlite unless marked
	// NOT NULL explicitly (see sqlite lang_createtable.html#rowid).
	createStmt := "CREATE TABLE IF NOT EXISTS assets (id TEXT NOT NULL PRIMARY KEY, name TEXT NOT NULL, path TEXT NOT NULL, format TEXT NOT NULL, last_opened INTEGER NOT NULL)"
	if _, err := db.Exec(createStmt); err != nil {
		db.Close()
		return nil, err
	}

	touchStmt, err := db.Prepare("INSERT OR REPLACE INTO assets (id, name, path, format, last_opened) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		db.Close()
		return nil, err
	}
	recentStmt, err := db.Prepare("SELECT id, name, path, format, last_opened FROM assets ORDER BY last_opened DESC LIMIT ?")
	if err != nil {
		db.Close()
		return nil, err
	}
	forgetStmt, err := db.Prepare("DELETE FROM assets WHERE id=?")
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db: db, touchStmt: touchStmt, recentStmt: recentStmt, forgetStmt: forgetStmt}, nil
}

// Close closes the database.
func (l *DB) Close() error {
	return l.db.Close()
}

// Touch records that an asset was opened now, inserting or refreshing its
// row.
func (l *DB) Touch(id core.AssetID, name, path, format string) error {
	_, err := l.touchStmt.Exec(string(id), name, path, format, time.Now().Unix())
	return err
}

// Recent returns up to limit assets, most recently opened first.
func (l *DB) Recent(limit int) ([]Asset, error) {
	rows, err := l.recentStmt.Query(limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Asset
	for rows.Next() {
		var a Asset
		var id string
		var opened int64
		if err := rows.Scan(&id, &a.Name, &a.Path, &a.Format, &opened); err != nil {
			return nil, err
		}
		a.ID = core.AssetID(id)
		a.LastOpened = time.Unix(opened, 0)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Forget removes an asset from the library.
func (l *DB) Forget(id core.AssetID) error {
	_, err := l.forgetStmt.Exec(string(id))
	return err
}
