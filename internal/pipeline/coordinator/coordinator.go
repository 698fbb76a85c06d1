// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package coordinator drives, for one entity type, the fixed (axis,
extract, join, transform, write, checkpoint) loop that synchronizes
one entity's changes into its sink index. It is generalized into one
generic [Coordinator] instantiated once per entity, so the state
machine is written exactly once instead of three times.

Grounded on the original `load_data.py` driver loop (one `while True`
pass per entity over ordered axes), generalized from Python's dynamic
dispatch into a Go generic parameterized over the entity's raw row type.
*/
package coordinator

import (
	"context"
	"fmt"

	"github.com/taibuivan/yomira/internal/pipeline/checkpoint"
	"github.com/taibuivan/yomira/internal/pipeline/extract"
	"github.com/taibuivan/yomira/internal/pipeline/model"
	"github.com/taibuivan/yomira/internal/pipeline/sink"
)

// RowIter is the narrow shape every Joiner iterator (FilmIter, GenreIter,
// PersonIter, ...) satisfies structurally — no adapter type is needed to
// plug one into a [Coordinator].
type RowIter[T any] interface {
	Next(ctx context.Context) (T, bool, error)
	Close(ctx context.Context) error
}

// Fetcher opens a [RowIter] over the denormalized rows for ids. It is
// typically a closure calling the Fetch method of a
// *join.FilmJoiner/GenreJoiner/PersonJoiner.
type Fetcher[T any] func(ctx context.Context, ids []string) (RowIter[T], error)

// Transformer converts one raw row into a sink document, returning the
// document's id and JSON-marshalable body.
type Transformer[T any] func(raw T) (id string, body any, err error)

// Coordinator drives one entity's full (axis, extract, join, transform,
// write, checkpoint) loop.
type Coordinator[T any] struct {
	entity     model.Entity
	axes       []extract.Axis
	store      *checkpoint.Store
	fetch      Fetcher[T]
	transform  Transformer[T]
	writer     *sink.Writer
	onRowError func(entity model.Entity, axisKey string, err error)
}

// New constructs a Coordinator for one entity. onRowError, if non-nil,
// is invoked for observability when a single row fails transformation,
// immediately before that error aborts the current axis pass.
func New[T any](
	entity model.Entity,
	axes []extract.Axis,
	store *checkpoint.Store,
	fetch Fetcher[T],
	transform Transformer[T],
	writer *sink.Writer,
	onRowError func(entity model.Entity, axisKey string, err error),
) *Coordinator[T] {
	return &Coordinator[T]{
		entity:     entity,
		axes:       axes,
		store:      store,
		fetch:      fetch,
		transform:  transform,
		writer:     writer,
		onRowError: onRowError,
	}
}

// RunOnce executes exactly one pass over every axis, in fixed order:
//
//	Idle -> Scanning -> Buffering -> Flushing -> Checkpointing -> ... -> Idle
//
// A watermark only advances after its batch's documents are durably
// flushed (Checkpointing never precedes Flushing): the writer is flushed
// after every bunch, and once more at the very end of the pass.
func (c *Coordinator[T]) RunOnce(ctx context.Context) error {
	for _, axis := range c.axes {
		if err := c.runAxis(ctx, axis); err != nil {
			return fmt.Errorf("coordinator: entity %s axis %s: %w", c.entity, axis.Key(), err)
		}
	}
	if err := c.writer.Flush(ctx); err != nil {
		return fmt.Errorf("coordinator: entity %s: final flush: %w", c.entity, err)
	}
	return nil
}

func (c *Coordinator[T]) runAxis(ctx context.Context, axis extract.Axis) error {
	since, err := c.store.GetWatermark(axis.Key())
	if err != nil {
		return fmt.Errorf("read watermark: %w", err)
	}

	bunches, err := axis.IDsSince(ctx, since)
	if err != nil {
		return fmt.Errorf("open axis stream: %w", err)
	}
	defer bunches.Close(ctx)

	for {
		bunch, ok, err := bunches.Next(ctx)
		if err != nil {
			return fmt.Errorf("read bunch: %w", err)
		}
		if !ok {
			break
		}

		if err := c.processBunch(ctx, axis.Key(), bunch.IDs); err != nil {
			return fmt.Errorf("process bunch: %w", err)
		}

		// Flushing: drain whatever processBunch left buffered, so every
		// document of this bunch has reached the sink before checkpointing.
		if err := c.writer.Flush(ctx); err != nil {
			return fmt.Errorf("flush bunch: %w", err)
		}

		// Checkpointing: the watermark only advances once this bunch's
		// documents are durably flushed.
		if err := c.store.SetWatermark(axis.Key(), bunch.Since); err != nil {
			return fmt.Errorf("advance watermark: %w", err)
		}
	}
	return nil
}

func (c *Coordinator[T]) processBunch(ctx context.Context, axisKey string, ids []string) error {
	rows, err := c.fetch(ctx, ids)
	if err != nil {
		return fmt.Errorf("fetch rows: %w", err)
	}
	defer rows.Close(ctx)

	for {
		raw, ok, err := rows.Next(ctx)
		if err != nil {
			return fmt.Errorf("read row: %w", err)
		}
		if !ok {
			break
		}

		id, body, err := c.transform(raw)
		if err != nil {
			// A validation error on one row is fatal: it aborts the
			// axis pass without advancing the watermark, after being
			// logged for operator visibility.
			if c.onRowError != nil {
				c.onRowError(c.entity, axisKey, err)
			}
			return fmt.Errorf("transform row: %w", err)
		}

		if err := c.writer.Save(ctx, sink.Document{ID: id, Body: body}); err != nil {
			return fmt.Errorf("save document: %w", err)
		}
	}
	return nil
}
