// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package core

import "testing"

func TestErrorConversion(t *testing.T) {
	if NoError.Error() != nil {
		t.Error("NoError must convert to nil")
	}
	err := ErrDecode.Error()
	if err == nil {
		t.Fatal("ErrDecode must convert to a non-nil error")
	}
	if err.Error() != ErrDecode.String() {
		t.Errorf("message %q != %q", err.Error(), ErrDecode.String())
	}
	if !ErrDecode.Is(err) {
		t.Error("ErrDecode.Is must match its own conversion")
	}
	if ErrAborted.Is(err) {
		t.Error("ErrAborted.Is must not match ErrDecode")
	}
}

func TestErrorDescriptions(t *testing.T) {
	for e := NoError; e <= ErrStoreIO; e++ {
		if e.String() == "NO DESCRIPTION FOR ERROR FIX THIS" {
			t.Errorf("error %d has no description", int(e))
		}
	}
}

func TestFatalClassification(t *testing.T) {
	for _, e := range []Error{ErrDecode, ErrBadFieldType, ErrMissingFile, ErrUnsupportedFormat, ErrAborted, ErrCanceled} {
		if !e.Fatal() {
			t.Errorf("%s should be fatal", e)
		}
	}
	for _, e := range []Error{NoError, ErrMetadataParse, ErrStoreIO} {
		if e.Fatal() {
			t.Errorf("%s should not be fatal", e)
		}
	}
}
