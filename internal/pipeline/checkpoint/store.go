// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package checkpoint implements the pipeline's durable watermark store: a
mapping from watermark key to scalar value, persisted as a single JSON
object in a file.

A missing or corrupt file is treated as empty — the store self-heals on
the first successful [Store.Set]. Writes are atomic (write to a temp
file in the same directory, then rename over the target) so a crash
mid-write never leaves a torn file behind.
*/
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is a durable, string-keyed mapping of scalar watermark values.
//
// Store is safe for concurrent use: the pipeline Coordinator serializes
// its own writes, and the lock here serializes those against the control
// API's concurrent [Store.Snapshot] reads.
type Store struct {
	mu       sync.Mutex
	path     string
	inMemory map[string]json.RawMessage
}

// NewFileStore opens (without reading) a JSON-file-backed checkpoint
// store at path. The file is read lazily on first Get or Set.
func NewFileStore(path string) *Store {
	return &Store{path: path}
}

// Get decodes the value stored for key into out (skipped when out is
// nil) and reports whether the key was present. It
// always re-reads the durable record first, so it observes writes made
// by other processes since the last call.
func (s *Store) Get(key string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reload(); err != nil {
		return false, err
	}
	raw, ok := s.inMemory[key]
	if !ok {
		return false, nil
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return false, fmt.Errorf("checkpoint: decode key %q: %w", key, err)
		}
	}
	return true, nil
}

// Set merges (key, value) into the record and rewrites the durable file
// atomically. On success, a Get from a fresh Store observes value.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reload(); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("checkpoint: encode key %q: %w", key, err)
	}
	if s.inMemory == nil {
		s.inMemory = make(map[string]json.RawMessage)
	}
	s.inMemory[key] = raw

	return s.persist()
}

// reload re-reads the durable file into memory. A missing file or
// unparseable content is treated as an empty record, never an error.
func (s *Store) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.inMemory = map[string]json.RawMessage{}
			return nil
		}
		return fmt.Errorf("checkpoint: read %s: %w", s.path, err)
	}

	record := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &record); err != nil {
		s.inMemory = map[string]json.RawMessage{}
		return nil
	}
	s.inMemory = record
	return nil
}

// persist writes s.inMemory to s.path via write-then-rename.
func (s *Store) persist() error {
	data, err := json.Marshal(s.inMemory)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal record: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: rename temp file: %w", err)
	}
	return nil
}

// Snapshot returns a copy of every currently-known watermark, decoded as
// raw JSON values. It is used by the control API's read-only status
// endpoint, which must never contend with the Coordinator's writes.
func (s *Store) Snapshot() (map[string]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reload(); err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(s.inMemory))
	for k, v := range s.inMemory {
		out[k] = v
	}
	return out, nil
}
