// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sink

import (
	"context"
	"sync"
)

// FakeClient is an in-memory [BulkClient] for tests. Unlike
// [ElasticClient], it applies each document with `doc_as_upsert=true`
// semantics — a per-document merge into whatever is already stored
// under that id — so tests can assert on partial-update behavior that
// production never exercises (spec §9).
type FakeClient struct {
	mu      sync.Mutex
	indexes map[string]map[string]any
	fail    error
}

// NewFakeClient constructs an empty FakeClient.
func NewFakeClient() *FakeClient {
	return &FakeClient{indexes: make(map[string]map[string]any)}
}

// FailNext makes the next BulkIndex call return err, then clears the
// failure so later calls succeed. Used to exercise retry/backoff paths.
func (c *FakeClient) FailNext(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = err
}

// BulkIndex upserts docs into index, merging each document's fields
// into any existing stored document with the same id.
func (c *FakeClient) BulkIndex(_ context.Context, index string, docs []Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fail != nil {
		err := c.fail
		c.fail = nil
		return err
	}

	idx, ok := c.indexes[index]
	if !ok {
		idx = make(map[string]any)
		c.indexes[index] = idx
	}
	for _, doc := range docs {
		idx[doc.ID] = mergeDoc(idx[doc.ID], doc.Body)
	}
	return nil
}

// mergeDoc applies doc_as_upsert=true semantics: fields present in
// next overwrite fields in existing, but fields only present in
// existing survive. Falls back to a full replace when either side
// isn't a plain map[string]any — which includes the model.*Document
// structs the pipeline's coordinators write.
func mergeDoc(existing, next any) any {
	existingFields, existingOK := existing.(map[string]any)
	nextFields, nextOK := next.(map[string]any)
	if !existingOK || !nextOK {
		return next
	}

	merged := make(map[string]any, len(existingFields)+len(nextFields))
	for k, v := range existingFields {
		merged[k] = v
	}
	for k, v := range nextFields {
		merged[k] = v
	}
	return merged
}

// Get returns the stored document for id in index, and whether it exists.
func (c *FakeClient) Get(index, id string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.indexes[index]
	if !ok {
		return nil, false
	}
	doc, ok := idx[id]
	return doc, ok
}

// Count returns the number of distinct documents stored in index.
func (c *FakeClient) Count(index string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.indexes[index])
}
