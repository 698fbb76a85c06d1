// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/taibuivan/yomira/internal/pipeline/retry"
)

// ElasticClient is the production [BulkClient], backed by
// [github.com/elastic/go-elasticsearch/v8]'s bulk API. Every document is
// written with an `index` action (full replace), never `update` — the
// per-document `doc_as_upsert` path exists only in [FakeClient], for
// tests that need to assert on individual document merges.
type ElasticClient struct {
	es *elasticsearch.Client
}

// NewElasticClient wraps an already-configured [elasticsearch.Client].
func NewElasticClient(es *elasticsearch.Client) *ElasticClient {
	return &ElasticClient{es: es}
}

type bulkAction struct {
	Index *bulkActionMeta `json:"index"`
}

type bulkActionMeta struct {
	ID string `json:"_id"`
}

// BulkIndex writes docs to index using the Elasticsearch `_bulk` API's
// NDJSON wire format: one action line followed by one source line per
// document.
func (c *ElasticClient) BulkIndex(ctx context.Context, index string, docs []Document) error {
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, doc := range docs {
		if err := enc.Encode(bulkAction{Index: &bulkActionMeta{ID: doc.ID}}); err != nil {
			return fmt.Errorf("sink: encode bulk action for %s: %w", doc.ID, err)
		}
		if err := enc.Encode(doc.Body); err != nil {
			return fmt.Errorf("sink: encode bulk source for %s: %w", doc.ID, err)
		}
	}

	req := esapi.BulkRequest{Index: index, Body: &body}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("sink: bulk request to %s: %w: %w", index, retry.ErrSinkUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		payload, _ := io.ReadAll(res.Body)
		return fmt.Errorf("sink: bulk request to %s returned %s: %s", index, res.Status(), payload)
	}
	return decodeBulkErrors(res.Body)
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  any `json:"error,omitempty"`
	} `json:"items"`
}

// decodeBulkErrors inspects a 2xx bulk response for per-item failures.
// Elasticsearch returns HTTP 200 even when individual actions in the
// batch failed; callers that need at-least-once delivery cannot treat a
// 200 status alone as success.
func decodeBulkErrors(body io.Reader) error {
	var resp bulkResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return fmt.Errorf("sink: decode bulk response: %w", err)
	}
	if !resp.Errors {
		return nil
	}

	failed := 0
	for _, item := range resp.Items {
		for _, result := range item {
			if result.Status >= 300 {
				failed++
			}
		}
	}
	return fmt.Errorf("sink: bulk request reported %d failed item(s)", failed)
}
