// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package driver_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira/internal/pipeline/driver"
	"github.com/taibuivan/yomira/internal/pipeline/model"
	"github.com/taibuivan/yomira/internal/pipeline/retry"
)

type countingRunner struct {
	calls atomic.Int32
	err   error
}

func (r *countingRunner) RunOnce(context.Context) error {
	r.calls.Add(1)
	return r.err
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

/*
TestDriver_RunsEntitiesInRegistrationOrder verifies that one cycle
visits every registered entity exactly once, in the order Register was
called — film, genre, person per spec §4.8.
*/
func TestDriver_RunsEntitiesInRegistrationOrder(t *testing.T) {
	var order []model.Entity
	mkRunner := func(entity model.Entity) driver.Runner {
		return runnerFunc(func(context.Context) error {
			order = append(order, entity)
			return nil
		})
	}

	d := driver.New(silentLogger(), time.Millisecond, retry.Default(), retry.Default())
	d.Register(model.EntityFilm, mkRunner(model.EntityFilm))
	d.Register(model.EntityGenre, mkRunner(model.EntityGenre))
	d.Register(model.EntityPerson, mkRunner(model.EntityPerson))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_ = d.RunForever(ctx)

	require.NotEmpty(t, order)
	assert.Equal(t, model.EntityFilm, order[0])
	assert.Equal(t, model.EntityGenre, order[1])
	assert.Equal(t, model.EntityPerson, order[2])
}

/*
TestDriver_StopsOnNonRetryableError verifies that a fatal (non-
connection-class) error from one entity's pass propagates out of
RunForever immediately, without retrying, per spec §9's "validation
error aborts the axis pass".
*/
func TestDriver_StopsOnNonRetryableError(t *testing.T) {
	boom := errors.New("bad row")
	failing := &countingRunner{err: boom}

	outer := retry.Policy{StartSleep: time.Millisecond, Factor: 2, BorderSleep: time.Millisecond, Retryable: retry.IsSourceConnErr}
	inner := retry.Policy{StartSleep: time.Millisecond, Factor: 2, BorderSleep: time.Millisecond, Retryable: retry.IsSinkConnErr}

	d := driver.New(silentLogger(), time.Second, outer, inner)
	d.Register(model.EntityFilm, failing)

	err := d.RunForever(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), failing.calls.Load(), "a non-retryable error must not be retried")
}

/*
TestDriver_RespectsContextCancellation verifies that RunForever returns
promptly once ctx is cancelled between cycles, rather than sleeping out
the full ETL_TIMEOUT.
*/
func TestDriver_RespectsContextCancellation(t *testing.T) {
	ok := &countingRunner{}
	d := driver.New(silentLogger(), time.Hour, retry.Default(), retry.Default())
	d.Register(model.EntityFilm, ok)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.RunForever(ctx) }()

	// Allow the first cycle to complete, then cancel instead of waiting
	// out the hour-long sleep between cycles.
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("RunForever did not return after context cancellation")
	}
}

type runnerFunc func(context.Context) error

func (f runnerFunc) RunOnce(ctx context.Context) error { return f(ctx) }

type fakeLease struct {
	acquireErr error
	acquired   bool
}

func (l *fakeLease) Acquire(context.Context) (bool, error) {
	if l.acquireErr != nil {
		return false, l.acquireErr
	}
	return l.acquired, nil
}

func (l *fakeLease) Release(context.Context) error { return nil }

/*
TestDriver_SkipsPassWhenLeaseAcquireErrors verifies that a lease whose
Acquire call fails (e.g. Redis unreachable) causes the pass to be
skipped, not run unguarded — per SPEC_FULL.md §7's lease-failure row
and [leaseredis.Lease]'s own doc comment, a lease error is additive
resilience and must never fall through to running the entity anyway.
*/
func TestDriver_SkipsPassWhenLeaseAcquireErrors(t *testing.T) {
	ok := &countingRunner{}
	failingLease := &fakeLease{acquireErr: errors.New("redis unreachable")}

	d := driver.New(silentLogger(), time.Millisecond, retry.Default(), retry.Default(),
		driver.WithLeaseFunc(func(model.Entity) driver.Lease { return failingLease }))
	d.Register(model.EntityFilm, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_ = d.RunForever(ctx)

	assert.Equal(t, int32(0), ok.calls.Load(), "pass must be skipped, not run unguarded, on lease acquire error")
}

/*
TestDriver_SkipsPassWhenLeaseHeldElsewhere verifies the companion
branch: a lease that is simply held by another holder (no error) also
skips the pass without running it.
*/
func TestDriver_SkipsPassWhenLeaseHeldElsewhere(t *testing.T) {
	ok := &countingRunner{}
	heldLease := &fakeLease{acquired: false}

	d := driver.New(silentLogger(), time.Millisecond, retry.Default(), retry.Default(),
		driver.WithLeaseFunc(func(model.Entity) driver.Lease { return heldLease }))
	d.Register(model.EntityFilm, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_ = d.RunForever(ctx)

	assert.Equal(t, int32(0), ok.calls.Load(), "pass must be skipped while lease is held elsewhere")
}

/*
TestDriver_RunsPassWhenLeaseAcquired verifies the positive case: a
successfully acquired lease allows the pass to run and is released
afterward.
*/
func TestDriver_RunsPassWhenLeaseAcquired(t *testing.T) {
	ok := &countingRunner{}
	wonLease := &fakeLease{acquired: true}

	d := driver.New(silentLogger(), time.Hour, retry.Default(), retry.Default(),
		driver.WithLeaseFunc(func(model.Entity) driver.Lease { return wonLease }))
	d.Register(model.EntityFilm, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_ = d.RunForever(ctx)

	assert.GreaterOrEqual(t, ok.calls.Load(), int32(1), "pass must run once the lease is acquired")
}
