// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package server

import "testing"

// One OpMetric for the whole file: promauto registers globally, so each
// metric name may only be created once per process.
var testOpm = NewOpMetric("optest", "op")

func TestOpMetricCounts(t *testing.T) {
	op := testOpm.Start("read")
	op.End()
	if n := testOpm.Count("all", "read"); n != 1 {
		t.Errorf("all = %d, want 1", n)
	}
	if n := testOpm.Count("failed", "read"); n != 0 {
		t.Errorf("failed = %d, want 0", n)
	}

	op = testOpm.Start("read")
	op.Failed()
	op.End()
	if n := testOpm.Count("all", "read"); n != 2 {
		t.Errorf("all = %d, want 2", n)
	}
	if n := testOpm.Count("failed", "read"); n != 1 {
		t.Errorf("failed = %d, want 1", n)
	}
}

func TestOpMetricSeparateLabels(t *testing.T) {
	testOpm.Start("write").End()
	if n := testOpm.Count("all", "write"); n != 1 {
		t.Errorf("all/write = %d, want 1", n)
	}
}
