// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package retry

import (
	"context"
	"testing"
	"time"
)

func TestDoSucceedsAfterRetries(t *testing.T) {
	r := Retrier{MinSleep: time.Millisecond, MaxSleep: 2 * time.Millisecond}
	var attempts []int
	success, cancelled := r.Do(context.Background(), func(attempt int) bool {
		attempts = append(attempts, attempt)
		return attempt == 2
	})
	if !success || cancelled {
		t.Fatalf("got (%v, %v), want (true, false)", success, cancelled)
	}
	if len(attempts) != 3 || attempts[0] != 0 || attempts[2] != 2 {
		t.Errorf("attempts = %v", attempts)
	}
}

func TestDoMaxAttempts(t *testing.T) {
	r := Retrier{MinSleep: time.Millisecond, MaxSleep: 2 * time.Millisecond, MaxAttempts: 2}
	calls := 0
	success, cancelled := r.Do(context.Background(), func(attempt int) bool {
		calls++
		return false
	})
	if success || cancelled {
		t.Fatalf("got (%v, %v), want (false, false)", success, cancelled)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestDoCancelled(t *testing.T) {
	r := Retrier{MinSleep: time.Hour, MaxSleep: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	success, cancelled := r.Do(ctx, func(attempt int) bool { return false })
	if success || !cancelled {
		t.Errorf("got (%v, %v), want (false, true)", success, cancelled)
	}
}

func TestDoMaxElapsed(t *testing.T) {
	r := Retrier{MinSleep: 5 * time.Millisecond, MaxSleep: 5 * time.Millisecond, MaxElapsed: 20 * time.Millisecond}
	success, cancelled := r.Do(context.Background(), func(attempt int) bool { return false })
	if success || cancelled {
		t.Errorf("got (%v, %v), want (false, false)", success, cancelled)
	}
}

// Each DoTimed attempt gets its own deadline; a stuck attempt ends when it
// expires and the loop moves on.
func TestDoTimedPerAttemptTimeout(t *testing.T) {
	r := Retrier{MinSleep: time.Millisecond, MaxSleep: 2 * time.Millisecond, MaxAttempts: 3}
	success, cancelled := r.DoTimed(context.Background(), 10*time.Millisecond, func(ctx context.Context, attempt int) bool {
		if attempt == 0 {
			<-ctx.Done()
			return false
		}
		if _, ok := ctx.Deadline(); !ok {
			t.Error("attempt context has no deadline")
		}
		return true
	})
	if !success || cancelled {
		t.Errorf("got (%v, %v), want (true, false)", success, cancelled)
	}
}
