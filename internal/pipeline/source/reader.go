// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package source streams rows from the relational source using server-side
cursors, so a query over millions of rows never materializes its whole
result set in process memory.

It is grounded on the teacher's [github.com/jackc/pgx/v5/pgxpool] wiring
(internal/platform/postgres), generalized from a request-scoped pool
client into a long-lived streaming cursor client: a DECLARE/FETCH loop
inside an explicit, never-committed transaction gives the same
"autocommit, fetch-many" discipline the spec calls for without pgx's
simple connection-per-query model holding the whole rowset at once.
*/
package source

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultFetchSize is the number of rows fetched from the cursor per
// round-trip (spec §4.3 default).
const DefaultFetchSize = 100

// Row is one row of a query result, keyed by column name — mirroring
// the teacher's use of pgx.Rows scanning, but dictionary-shaped to match
// the spec's "dictionary-shaped rows" contract, since callers project
// different columns per axis/join query.
type Row map[string]any

// Reader is a lazy, finite, non-restartable, pull-based sequence of
// [Row] values produced by one parameterized query, executed over a
// server-side cursor.
type Reader struct {
	pool      *pgxpool.Pool
	fetchSize int

	tx        pgx.Tx
	pending   []Row
	cursorSQL string
	closed    bool
}

// Option configures a Reader.
type Option func(*Reader)

// WithFetchSize overrides [DefaultFetchSize].
func WithFetchSize(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.fetchSize = n
		}
	}
}

// Open begins streaming sql (with args) over a server-side cursor. The
// returned Reader must be closed by the caller on every exit path.
func Open(ctx context.Context, pool *pgxpool.Pool, sql string, args []any, opts ...Option) (*Reader, error) {
	r := &Reader{pool: pool, fetchSize: DefaultFetchSize}
	for _, opt := range opts {
		opt(r)
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("source: begin cursor transaction: %w", err)
	}
	r.tx = tx

	const cursorName = "pipeline_cursor"
	if _, err := tx.Exec(ctx, fmt.Sprintf("DECLARE %s CURSOR FOR %s", cursorName, sql), args...); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("source: declare cursor: %w", err)
	}
	r.cursorSQL = fmt.Sprintf("FETCH FORWARD %d FROM %s", r.fetchSize, cursorName)

	return r, nil
}

// Next returns the next row, or ok=false once the query is exhausted.
func (r *Reader) Next(ctx context.Context) (Row, bool, error) {
	if len(r.pending) == 0 {
		if err := r.fetchBatch(ctx); err != nil {
			return nil, false, err
		}
		if len(r.pending) == 0 {
			return nil, false, nil
		}
	}
	row := r.pending[0]
	r.pending = r.pending[1:]
	return row, true, nil
}

func (r *Reader) fetchBatch(ctx context.Context) error {
	rows, err := r.tx.Query(ctx, r.cursorSQL)
	if err != nil {
		return fmt.Errorf("source: fetch cursor batch: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	batch := make([]Row, 0, r.fetchSize)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return fmt.Errorf("source: scan cursor row: %w", err)
		}
		row := make(Row, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = values[i]
		}
		batch = append(batch, row)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("source: iterate cursor batch: %w", err)
	}

	r.pending = batch
	return nil
}

// Close releases the cursor, the transaction and the underlying
// connection. It is safe to call multiple times.
func (r *Reader) Close(ctx context.Context) error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.tx == nil {
		return nil
	}
	return r.tx.Rollback(ctx)
}
