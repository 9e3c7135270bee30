// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

package apiclient

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrRefreshBudgetExhausted is returned once the coordinator has failed its
// allotted consecutive refresh attempts. Further refreshes are refused until
// [Coordinator.Reset].
var ErrRefreshBudgetExhausted = errors.New("apiclient: refresh attempt budget exhausted")

// Coordinator serializes token refreshes for a client.
//
// However many requests fail with 401 concurrently, exactly one refresh call
// goes over the wire; every waiter shares its outcome. The consecutive
// attempt counter resets to zero only on a successful refresh, so unrelated
// failing requests cannot drive unbounded refresh loops.
//
// The coordinator is an owned value with explicit lifecycle: construct it at
// client start, Reset it on forced logout or re-login.
type Coordinator struct {
	group       singleflight.Group
	refresh     func(context.Context) error
	onAuthReset func()

	mu          sync.Mutex
	attempts    int
	maxAttempts int
}

// NewCoordinator builds a coordinator around the actual refresh call.
// onAuthReset fires exactly once per failed refresh or exhausted budget, for
// clearing local auth state; nil is allowed.
func NewCoordinator(maxAttempts int, refresh func(context.Context) error, onAuthReset func()) *Coordinator {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Coordinator{
		refresh:     refresh,
		onAuthReset: onAuthReset,
		maxAttempts: maxAttempts,
	}
}

// Refresh performs or joins the in-flight token refresh. Concurrent callers
// block until the shared call resolves and all receive its error.
func (coordinator *Coordinator) Refresh(ctx context.Context) error {
	result := coordinator.group.DoChan("refresh", func() (any, error) {
		return nil, coordinator.doRefresh(ctx)
	})

	select {
	case <-ctx.Done():
		// The shared refresh keeps running for the other waiters; only this
		// caller gives up.
		return ctx.Err()
	case r := <-result:
		return r.Err
	}
}

func (coordinator *Coordinator) doRefresh(ctx context.Context) error {
	coordinator.mu.Lock()
	if coordinator.attempts >= coordinator.maxAttempts {
		coordinator.mu.Unlock()
		coordinator.forceReset()
		return ErrRefreshBudgetExhausted
	}
	coordinator.attempts++
	coordinator.mu.Unlock()

	if err := coordinator.refresh(ctx); err != nil {
		coordinator.forceReset()
		return err
	}

	coordinator.mu.Lock()
	coordinator.attempts = 0
	coordinator.mu.Unlock()

	return nil
}

func (coordinator *Coordinator) forceReset() {
	if coordinator.onAuthReset != nil {
		coordinator.onAuthReset()
	}
}

// Reset zeroes the attempt counter. Call it after a fresh login or any other
// event that re-establishes valid credentials.
func (coordinator *Coordinator) Reset() {
	coordinator.mu.Lock()
	coordinator.attempts = 0
	coordinator.mu.Unlock()
}
