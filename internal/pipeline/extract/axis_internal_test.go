// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira/internal/pipeline/source"
)

func row(id string, modified time.Time) source.Row {
	return source.Row{"id": id, "modified": modified}
}

/*
TestBunchify_GroupsIntoFixedSizeSlices verifies property 4's grouping
half: bunchify with size N partitions a flat row slice into
ceil(len/N) chunks of at most N rows each.
*/
func TestBunchify_GroupsIntoFixedSizeSlices(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []source.Row{
		row("a", base),
		row("b", base),
		row("c", base),
		row("d", base),
		row("e", base),
	}

	got := bunchify(rows, 2)
	require.Len(t, got, 3)
	assert.Len(t, got[0], 2)
	assert.Len(t, got[1], 2)
	assert.Len(t, got[2], 1)
}

/*
TestBunchify_ConcatenationIsSizeInvariant is property 4 / scenario S3:
concatenating bunchify's output at bunch-size 1 equals its output at
any other bunch-size, modulo grouping — i.e. the flattened row order is
identical regardless of bunch size.
*/
func TestBunchify_ConcatenationIsSizeInvariant(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var rows []source.Row
	for i := 0; i < 7; i++ {
		rows = append(rows, row(string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute)))
	}

	onesies := bunchify(rows, 1)
	var flatOnes []source.Row
	for _, b := range onesies {
		flatOnes = append(flatOnes, b...)
	}

	twosies := bunchify(rows, 2)
	var flatTwos []source.Row
	for _, b := range twosies {
		flatTwos = append(flatTwos, b...)
	}

	assert.Equal(t, flatOnes, flatTwos)
	assert.Equal(t, rows, flatOnes)
}

/*
TestSplitBunch_ExtractsIDsAndEarliestModified verifies that splitBunch
pulls every row's id into the Bunch's IDs slice (preserving row order)
and uses the first row's modified value as Since — correct only because
upstream SQL already orders by (modified, id).
*/
func TestSplitBunch_ExtractsIDsAndEarliestModified(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	second := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	rows := []source.Row{row("id-1", first), row("id-2", second)}

	bunch, err := splitBunch(rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"id-1", "id-2"}, bunch.IDs)
	assert.True(t, bunch.Since.Equal(first))
}

/*
TestSplitBunch_MissingIDColumnErrors verifies that a malformed row
(neither "id" nor "film_work_id" present) surfaces an error rather than
silently producing an empty id.
*/
func TestSplitBunch_MissingIDColumnErrors(t *testing.T) {
	rows := []source.Row{{"modified": time.Now()}}
	_, err := splitBunch(rows)
	assert.Error(t, err)
}

/*
TestSplitBunch_FilmWorkIDColumnFallback verifies that aggregate axis
queries (which alias the joined id column as film_work_id) are still
recognized.
*/
func TestSplitBunch_FilmWorkIDColumnFallback(t *testing.T) {
	since := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := []source.Row{{"film_work_id": "fw-1", "min_modified": since}}

	bunch, err := splitBunch(rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"fw-1"}, bunch.IDs)
	assert.True(t, bunch.Since.Equal(since))
}

/*
TestBunchify_DefaultSizeAppliedWhenNonPositive verifies that a
non-positive bunch size falls back to DefaultBunchSize rather than
producing degenerate (empty or infinite) groupings.
*/
func TestBunchify_DefaultSizeAppliedWhenNonPositive(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []source.Row{row("a", base), row("b", base)}

	got := bunchify(rows, 0)
	require.Len(t, got, 1)
	assert.Len(t, got[0], 2)
}
