// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package coordinator_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira/internal/pipeline/checkpoint"
	"github.com/taibuivan/yomira/internal/pipeline/coordinator"
	"github.com/taibuivan/yomira/internal/pipeline/extract"
	"github.com/taibuivan/yomira/internal/pipeline/model"
	"github.com/taibuivan/yomira/internal/pipeline/sink"
)

// fakeRow is the raw row type used by these tests, standing in for
// model.FilmWork/Genre/Person without requiring a real join query.
type fakeRow struct {
	id       string
	modified time.Time
}

// fakeAxis is an in-memory [extract.Axis] that replays a fixed set of
// bunches regardless of the since argument — sufficient to drive
// [coordinator.Coordinator] without a database.
type fakeAxis struct {
	key     string
	bunches []extract.Bunch
}

func (a *fakeAxis) Key() string { return a.key }

func (a *fakeAxis) IDsSince(_ context.Context, _ time.Time) (extract.BunchIterator, error) {
	return &fakeBunchIter{remaining: append([]extract.Bunch(nil), a.bunches...)}, nil
}

type fakeBunchIter struct{ remaining []extract.Bunch }

func (it *fakeBunchIter) Next(_ context.Context) (extract.Bunch, bool, error) {
	if len(it.remaining) == 0 {
		return extract.Bunch{}, false, nil
	}
	b := it.remaining[0]
	it.remaining = it.remaining[1:]
	return b, true, nil
}

func (it *fakeBunchIter) Close(_ context.Context) error { return nil }

// fakeRowIter streams a fixed slice of fakeRow values, implementing
// [coordinator.RowIter].
type fakeRowIter struct{ rows []fakeRow }

func (it *fakeRowIter) Next(_ context.Context) (fakeRow, bool, error) {
	if len(it.rows) == 0 {
		return fakeRow{}, false, nil
	}
	r := it.rows[0]
	it.rows = it.rows[1:]
	return r, true, nil
}

func (it *fakeRowIter) Close(_ context.Context) error { return nil }

func newStore(t *testing.T) *checkpoint.Store {
	t.Helper()
	return checkpoint.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
}

/*
TestCoordinator_HappyPath verifies a full pass: ids flow from the axis,
through the fetcher and transformer, into the sink, and the watermark
advances to the bunch's since value only after the corresponding rows
are flushed.
*/
func TestCoordinator_HappyPath(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	client := sink.NewFakeClient()
	writer := sink.NewWriter(client, "movies", 100)

	since := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	axis := &fakeAxis{
		key: "movie_film_work_since",
		bunches: []extract.Bunch{
			{IDs: []string{"f1", "f2"}, Since: since},
		},
	}

	fetch := coordinator.Fetcher[fakeRow](func(_ context.Context, ids []string) (coordinator.RowIter[fakeRow], error) {
		rows := make([]fakeRow, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, fakeRow{id: id, modified: since})
		}
		return &fakeRowIter{rows: rows}, nil
	})

	transform := coordinator.Transformer[fakeRow](func(raw fakeRow) (string, any, error) {
		return raw.id, map[string]any{"modified": raw.modified.Format(time.RFC3339)}, nil
	})

	c := coordinator.New[fakeRow](model.EntityFilm, []extract.Axis{axis}, store, fetch, transform, writer, nil)
	require.NoError(t, c.RunOnce(ctx))

	assert.Equal(t, 2, client.Count("movies"))
	got, err := store.GetWatermark("movie_film_work_since")
	require.NoError(t, err)
	assert.True(t, got.Equal(since))
}

/*
TestCoordinator_WatermarkUnaffectedByRowError verifies that a
transform failure on one row aborts the axis pass (spec §9: fatal in
the current design) and leaves the watermark untouched, so the next
pass re-reads the same bunch rather than skipping it.
*/
func TestCoordinator_WatermarkUnaffectedByRowError(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	client := sink.NewFakeClient()
	writer := sink.NewWriter(client, "movies", 100)

	since := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	axis := &fakeAxis{
		key:     "movie_film_work_since",
		bunches: []extract.Bunch{{IDs: []string{"bad"}, Since: since}},
	}

	fetch := coordinator.Fetcher[fakeRow](func(_ context.Context, ids []string) (coordinator.RowIter[fakeRow], error) {
		return &fakeRowIter{rows: []fakeRow{{id: ids[0]}}}, nil
	})

	boom := errors.New("missing required field")
	var reported error
	transform := coordinator.Transformer[fakeRow](func(raw fakeRow) (string, any, error) {
		return "", nil, boom
	})

	c := coordinator.New[fakeRow](model.EntityFilm, []extract.Axis{axis}, store, fetch, transform, writer,
		func(_ model.Entity, _ string, err error) { reported = err })

	err := c.RunOnce(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, reported, boom)

	got, err := store.GetWatermark("movie_film_work_since")
	require.NoError(t, err)
	assert.True(t, got.Equal(model.Epoch), "watermark must not advance past a failed bunch")
}

/*
TestCoordinator_MultipleBunchesCheckpointIndependently verifies that
each bunch's watermark write happens right after that bunch is durable,
not only once at the very end of the axis.
*/
func TestCoordinator_MultipleBunchesCheckpointIndependently(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	client := sink.NewFakeClient()
	writer := sink.NewWriter(client, "movies", 1) // flush every document

	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	second := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	axis := &fakeAxis{
		key: "movie_film_work_since",
		bunches: []extract.Bunch{
			{IDs: []string{"f1"}, Since: first},
			{IDs: []string{"f2"}, Since: second},
		},
	}

	fetch := coordinator.Fetcher[fakeRow](func(_ context.Context, ids []string) (coordinator.RowIter[fakeRow], error) {
		return &fakeRowIter{rows: []fakeRow{{id: ids[0]}}}, nil
	})
	transform := coordinator.Transformer[fakeRow](func(raw fakeRow) (string, any, error) {
		return raw.id, map[string]any{}, nil
	})

	c := coordinator.New[fakeRow](model.EntityFilm, []extract.Axis{axis}, store, fetch, transform, writer, nil)
	require.NoError(t, c.RunOnce(ctx))

	got, err := store.GetWatermark("movie_film_work_since")
	require.NoError(t, err)
	assert.True(t, got.Equal(second))
	assert.Equal(t, 2, client.Count("movies"))
}
