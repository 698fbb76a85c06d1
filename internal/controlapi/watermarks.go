// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package controlapi

import (
	"encoding/json"
	"net/http"

	"github.com/taibuivan/yomira/internal/platform/apperr"
	"github.com/taibuivan/yomira/internal/platform/respond"
)

// watermarkReader is the narrow slice of [*checkpoint.Store] this
// handler depends on.
type watermarkReader interface {
	Snapshot() (map[string]json.RawMessage, error)
}

type watermarkHandler struct {
	store watermarkReader
}

// get handles GET /v1/watermarks: a read-only view of every checkpoint
// currently on disk. It always reads through [checkpoint.Store.Snapshot],
// never the state file directly, so this handler can never race the
// Coordinator's writer (spec §6).
func (h *watermarkHandler) get(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.store.Snapshot()
	if err != nil {
		respond.Error(w, r, apperr.Internal(err))
		return
	}
	respond.OK(w, snapshot)
}
