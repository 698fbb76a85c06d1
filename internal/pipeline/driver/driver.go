// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package driver implements the outermost pipeline loop (spec §4.8): it
runs the film, genre, and person coordinators in that fixed order,
sleeps ETL_TIMEOUT between passes, and repeats forever. Each
coordinator's pass is wrapped in two stacked [retry.Policy] values — an
outer one retrying source-connection failures, an inner one retrying
sink-connection failures — so "Connection errors to source or sink
restart the entire etl() invocation via stacked backoff" holds per
entity rather than for the whole three-entity cycle.

Grounded on the original `load_data.py`'s top-level `while True` driver
loop, generalized from three copy-pasted entity blocks into one loop
over a slice of named runners.
*/
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/yomira/internal/pipeline/model"
	"github.com/taibuivan/yomira/internal/pipeline/retry"
	"github.com/taibuivan/yomira/internal/platform/leaseredis"
)

// Runner executes one pass of one entity's full axis loop. Every
// instantiation of [github.com/taibuivan/yomira/internal/pipeline/coordinator.Coordinator]
// satisfies this.
type Runner interface {
	RunOnce(ctx context.Context) error
}

// entityRunner pairs one entity's Runner with its lease key.
type entityRunner struct {
	entity model.Entity
	run    Runner
}

// Lease is the subset of [leaseredis.Lease] the Driver depends on,
// narrowed to an interface so tests can inject a fake lease without a
// real Redis client.
type Lease interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Driver owns the fixed (film, genre, person) entity loop.
type Driver struct {
	log      *slog.Logger
	entities []entityRunner

	timeout time.Duration

	outer retry.Policy
	inner retry.Policy

	lease    func(entity model.Entity) Lease
	leaseTTL time.Duration
}

// Option configures a Driver.
type Option func(*Driver)

// WithLease enables the distributed lease for every entity pass,
// acquiring a per-entity lease via newLease before running it. A nil
// newLease (the default) disables leasing entirely.
func WithLease(newLease func(entity model.Entity) *leaseredis.Lease) Option {
	return func(d *Driver) {
		if newLease == nil {
			return
		}
		d.lease = func(entity model.Entity) Lease { return newLease(entity) }
	}
}

// WithLeaseFunc is the general form of [WithLease], accepting any
// [Lease] implementation — used by tests to inject a fake lease
// without a real Redis client.
func WithLeaseFunc(newLease func(entity model.Entity) Lease) Option {
	return func(d *Driver) { d.lease = newLease }
}

// New constructs a Driver with no entity runners; [Driver.Register]
// adds them, and passes run in registration order (spec §4.8: film,
// genre, person).
func New(log *slog.Logger, timeout time.Duration, outer, inner retry.Policy, opts ...Option) *Driver {
	d := &Driver{log: log, timeout: timeout, outer: outer, inner: inner}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register appends one entity's runner to the fixed pass order.
func (d *Driver) Register(entity model.Entity, run Runner) {
	d.entities = append(d.entities, entityRunner{entity: entity, run: run})
}

// ErrUnknownEntity is returned by [Driver.RunEntityNow] for an entity
// that was never registered.
var ErrUnknownEntity = errors.New("driver: unknown entity")

// RunEntityNow runs one entity's pass immediately, outside the normal
// ETL_TIMEOUT cadence, through the same lease guard and stacked backoff
// as a scheduled pass. It is the mechanism behind the control API's
// manual resync endpoint.
func (d *Driver) RunEntityNow(ctx context.Context, entity model.Entity) error {
	for _, er := range d.entities {
		if er.entity == entity {
			return d.runEntity(ctx, er)
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
}

// RunForever loops over every registered entity in registration order,
// sleeping d.timeout between full cycles, until ctx is cancelled.
func (d *Driver) RunForever(ctx context.Context) error {
	for {
		for _, er := range d.entities {
			if err := d.runEntity(ctx, er); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.timeout):
		}
	}
}

func (d *Driver) runEntity(ctx context.Context, er entityRunner) error {
	if d.lease != nil {
		lease := d.lease(er.entity)
		acquired, err := lease.Acquire(ctx)
		if err != nil {
			// Lease failures are additive resilience, never escalated to
			// the outer backoff: skip this entity for this pass and
			// retry next cycle.
			d.log.Info("lease acquisition failed, skipping pass",
				slog.String("entity", string(er.entity)), slog.Any("error", err))
			return nil
		} else if !acquired {
			d.log.Info("skipping pass, lease held elsewhere", slog.String("entity", string(er.entity)))
			return nil
		} else {
			defer func() {
				if relErr := lease.Release(ctx); relErr != nil {
					d.log.Warn("lease release failed", slog.String("entity", string(er.entity)), slog.Any("error", relErr))
				}
			}()
		}
	}

	err := d.outer.Do(ctx, func() error {
		return d.inner.Do(ctx, er.run.RunOnce)
	})
	if err != nil {
		d.log.Error("pass failed", slog.String("entity", string(er.entity)), slog.Any("error", err))
		return err
	}
	d.log.Info("pass complete", slog.String("entity", string(er.entity)))
	return nil
}
