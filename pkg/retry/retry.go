// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package retry

import (
	"context"
	"math/rand"
	"time"
)

// Task to execute with retries in the Do method. On every execution, it
// receives the attempt number. It should return true if it completed
// successfully and false if it should be retried.
type Task func(attempt int) (done bool)

// Retrier retries a Task with randomized exponential backoff.
type Retrier struct {
	// MinSleep is the shortest and initial sleep time to be used during
	// the retry loop.
	MinSleep time.Duration

	// MaxSleep is the longest sleep time to be used during the retry loop.
	MaxSleep time.Duration

	// MaxElapsed, if greater than zero, bounds the total time spent in the
	// retry loop.
	MaxElapsed time.Duration

	// MaxAttempts, if greater than zero, limits the number of attempts.
	MaxAttempts int
}

// Do executes the given Task, retrying while it returns false.
// If the task returns true, Do returns (true, false).
// If it hits the attempt or time bound, it returns (false, false).
// If the context is cancelled, it returns (false, true).
func (r *Retrier) Do(ctx context.Context, task Task) (success, cancelled bool) {
	if r.MaxSleep < r.MinSleep {
		r.MaxSleep = r.MinSleep
	}
	backoff := r.MinSleep
	start := time.Now()
	for i := 0; ; i++ {
		if r.MaxAttempts > 0 && i >= r.MaxAttempts ||
			r.MaxElapsed > 0 && time.Since(start)+backoff > r.MaxElapsed {
			return false, false
		}
		if task(i) {
			return true, false
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return false, true
		}
		backoff = time.Duration(float64(backoff) * (1.75 + 0.5*rand.Float64()))
		if backoff > r.MaxSleep {
			backoff = r.MaxSleep + time.Duration(float64(r.MinSleep)*rand.Float64())
		}
	}
}

// DoTimed is Do with a per-attempt timeout. Each attempt gets a child
// context that is cancelled when perTry elapses, so one stuck attempt
// cannot stall the loop past its bounds.
func (r *Retrier) DoTimed(ctx context.Context, perTry time.Duration, task func(ctx context.Context, attempt int) bool) (success, cancelled bool) {
	return r.Do(ctx, func(attempt int) bool {
		tryCtx := ctx
		if perTry > 0 {
			var cancel context.CancelFunc
			tryCtx, cancel = context.WithTimeout(ctx, perTry)
			defer cancel()
		}
		return task(tryCtx, attempt)
	})
}
