// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package controlapi implements the pipeline's process identity: a small
chi-routed HTTP surface exposing liveness and readiness probes, a
read-only watermark snapshot, and an authenticated manual-resync
trigger.

It runs alongside the driver loop in the same process, built on the
same RequestID/StructuredLogger/PanicRecovery middleware chain used by
the platform's other HTTP surfaces.
*/
package controlapi

import (
	"log/slog"
	"net/http"

	"github.com/taibuivan/yomira/internal/platform/constants"
	"github.com/taibuivan/yomira/internal/platform/respond"
)

// Dependencies holds the injectable checkers used by the readiness probe.
type Dependencies struct {
	// CheckDatabase performs a shallow ping of the PostgreSQL pool.
	CheckDatabase func() error

	// CheckCache performs a shallow ping of the Redis client. Nil when
	// the distributed lease is disabled.
	CheckCache func() error
}

type healthHandler struct {
	deps Dependencies
	log  *slog.Logger
}

func (h *healthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	respond.OK(w, map[string]string{
		constants.FieldStatus: "ok",
		constants.FieldApp:    constants.AppName,
	})
}

func (h *healthHandler) readiness(w http.ResponseWriter, _ *http.Request) {
	type checkResult struct {
		Name  string `json:"name"`
		IsOK  bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}

	results := make([]checkResult, 0, 2)
	ready := true

	if h.deps.CheckDatabase != nil {
		r := checkResult{Name: "postgres", IsOK: true}
		if err := h.deps.CheckDatabase(); err != nil {
			r.IsOK, r.Error, ready = false, err.Error(), false
			h.log.Error("readiness_check_failed", slog.String("dependency", "postgres"), slog.Any("error", err))
		}
		results = append(results, r)
	}

	if h.deps.CheckCache != nil {
		r := checkResult{Name: "redis", IsOK: true}
		if err := h.deps.CheckCache(); err != nil {
			r.IsOK, r.Error, ready = false, err.Error(), false
			h.log.Error("readiness_check_failed", slog.String("dependency", "redis"), slog.Any("error", err))
		}
		results = append(results, r)
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "degraded", http.StatusServiceUnavailable
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(code)
	}
	respond.OK(w, map[string]any{
		constants.FieldStatus: status,
		constants.FieldChecks: results,
	})
}
