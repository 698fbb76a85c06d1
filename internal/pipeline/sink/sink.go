// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package sink implements the Sink Writer (spec §4.7): it buffers
transformed documents and bulk-upserts them into a search index once a
batch threshold is reached, never writing a single document at a time
in production.

Grounded on the original `elastic_search_saver.py`'s bulk action
construction (the Python `elasticsearch` client's `bulk()` helper),
generalized behind a [BulkClient] interface so production code depends
on [github.com/elastic/go-elasticsearch/v8] — the official Go client
for the same Elasticsearch server the original targets; no repo in the
retrieval pack imports it directly, so it is named here rather than
pack-grounded — while tests exercise an in-memory [FakeClient] (spec
§9: `doc_as_upsert=true` / per-document `update` actions are test-only;
bulk `index` is production).
*/
package sink

import (
	"context"
	"fmt"
)

// Document is one record ready to be written to a sink index.
type Document struct {
	// ID is the document id (the primary key in the source entity).
	ID string
	// Body is the JSON-marshalable document payload.
	Body any
}

// BulkClient performs a bulk write of documents into one named index.
type BulkClient interface {
	// BulkIndex writes docs to index using the production `index` bulk
	// action (full replace, no partial merge).
	BulkIndex(ctx context.Context, index string, docs []Document) error
}

// DefaultBatchSize is the number of buffered documents that triggers an
// automatic flush (spec §4.7 default).
const DefaultBatchSize = 100

// Writer buffers documents for one index and flushes them to a
// [BulkClient] once [DefaultBatchSize] (or a caller-supplied size) is
// reached, or on an explicit [Writer.Flush] call.
type Writer struct {
	client    BulkClient
	index     string
	batchSize int
	buf       []Document
}

// NewWriter constructs a Writer for index, flushing through client once
// batchSize documents have been buffered. A non-positive batchSize uses
// [DefaultBatchSize].
func NewWriter(client BulkClient, index string, batchSize int) *Writer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Writer{client: client, index: index, batchSize: batchSize}
}

// Save buffers doc and, once the batch threshold is reached, flushes it.
func (w *Writer) Save(ctx context.Context, doc Document) error {
	w.buf = append(w.buf, doc)
	if w.IsBatchReady() {
		return w.Flush(ctx)
	}
	return nil
}

// IsBatchReady reports whether the buffer holds enough documents to
// trigger an automatic flush.
func (w *Writer) IsBatchReady() bool {
	return len(w.buf) >= w.batchSize
}

// Pending returns the number of buffered, not-yet-flushed documents.
func (w *Writer) Pending() int {
	return len(w.buf)
}

// Flush writes every buffered document and clears the buffer. It is a
// no-op when the buffer is empty, so a pipeline pass that produced no
// changes never issues an empty bulk request.
func (w *Writer) Flush(ctx context.Context) error {
	if len(w.buf) == 0 {
		return nil
	}
	if err := w.client.BulkIndex(ctx, w.index, w.buf); err != nil {
		return fmt.Errorf("sink: bulk index into %s: %w", w.index, err)
	}
	w.buf = w.buf[:0]
	return nil
}
