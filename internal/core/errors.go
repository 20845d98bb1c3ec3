// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package core

// Error is our own defined error type so that fault kinds can be compared
// and classified without string matching.
type Error int

const (
	// NoError means no error.
	NoError = Error(iota)

	//------ Fatal faults: the asset's decode is rejected ------//

	// ErrDecode is returned when resource data is malformed: bad magic,
	// truncated payload, unexpected record layout.
	ErrDecode

	// ErrBadFieldType is returned when a header describes a field whose type
	// we cannot size, which makes offset computation impossible.
	ErrBadFieldType

	// ErrMissingFile is returned when no byte source can be resolved for an
	// asset, neither local nor remote.
	ErrMissingFile

	// ErrUnsupportedFormat is returned when a filename has no extension or
	// an extension no registered format claims.
	ErrUnsupportedFormat

	// ErrAborted is returned to waiters when an in-flight decode was
	// excluded by Retain or Reset before its result could be committed.
	ErrAborted

	// ErrCanceled is returned when a waiter's context is canceled while
	// waiting on a shared decode. The decode itself keeps running.
	ErrCanceled

	//------ Recoverable faults: logged, degraded to absent ------//

	// ErrMetadataParse is returned when camera metadata or a remote
	// manifest cannot be decoded. Never rejects an asset.
	ErrMetadataParse

	// ErrStoreIO is returned when the persistent settings store or the
	// asset library cannot be read or written.
	ErrStoreIO
)

var description = map[Error]string{
	NoError:              "no error",
	ErrDecode:            "malformed resource data",
	ErrBadFieldType:      "unsupported field type in layout",
	ErrMissingFile:       "no byte source for asset",
	ErrUnsupportedFormat: "unrecognized file format",
	ErrAborted:           "decode abandoned before commit",
	ErrCanceled:          "canceled while waiting for decode",
	ErrMetadataParse:     "malformed metadata",
	ErrStoreIO:           "settings store I/O error",
}

// Fatal reports whether the error rejects the asset's decode entirely, as
// opposed to degrading an optional field to absent.
func (e Error) Fatal() bool {
	switch e {
	case NoError, ErrMetadataParse, ErrStoreIO:
		return false
	}
	return true
}

// goError exists to convert an Error to a Go error without losing the code.
type goError Error

func (g goError) Error() string {
	return Error(g).String()
}

func (e Error) String() string {
	if s, ok := description[e]; ok {
		return s
	}
	return "NO DESCRIPTION FOR ERROR FIX THIS"
}

// Error converts to a Go error. NoError maps to nil so that callers can
// return the result directly.
func (e Error) Error() error {
	if e == NoError {
		return nil
	}
	return goError(e)
}

// Is lets errors produced by Error() be matched back to their code.
func (e Error) Is(g error) bool {
	b, ok := g.(goError)
	return ok && (Error)(b) == e
}
