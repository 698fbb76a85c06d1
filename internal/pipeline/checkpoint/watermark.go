// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package checkpoint

import (
	"fmt"
	"time"

	"github.com/taibuivan/yomira/internal/pipeline/model"
)

// GetWatermark returns the watermark stored under key, or [model.Epoch]
// if the key is absent. Values are stored and read as RFC3339 text, per
// spec's "textual ISO-8601 timestamp" representation.
func (s *Store) GetWatermark(key string) (time.Time, error) {
	var text string
	found, err := s.Get(key, &text)
	if err != nil {
		return time.Time{}, err
	}
	if !found {
		return model.Epoch, nil
	}
	t, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("checkpoint: parse watermark %q: %w", key, err)
	}
	return t, nil
}

// SetWatermark durably advances the watermark stored under key to value.
//
// Callers (the Coordinator) are responsible for the monotonicity
// invariant — SetWatermark itself does not compare against the prior
// value, matching the spec's description of `store.set` as an
// unconditional merge-and-rewrite.
func (s *Store) SetWatermark(key string, value time.Time) error {
	return s.Set(key, value.UTC().Format(time.RFC3339Nano))
}
