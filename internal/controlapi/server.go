// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package controlapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/yomira/internal/platform/constants"
	"github.com/taibuivan/yomira/internal/platform/middleware"
	"github.com/taibuivan/yomira/internal/platform/sec"
)

// Server wraps the chi router and the [http.Server] for the control API.
type Server struct {
	httpServer *http.Server
	log        *slog.Logger
}

// New constructs the control API's router and registers its routes.
// verifier is nil when [config.Config.ControlAPIEnabled] is false, in
// which case the resync endpoint is left unmounted — health probes are
// always available.
func New(ctx context.Context, port string, log *slog.Logger, deps Dependencies, store watermarkReader, drv resyncTrigger, verifier *sec.ControlTokenService) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.PanicRecovery(log))

	health := &healthHandler{deps: deps, log: log}
	r.Get("/healthz", health.liveness)
	r.Get("/readyz", health.readiness)

	r.Route("/v1", func(api chi.Router) {
		wm := &watermarkHandler{store: store}
		api.Get("/watermarks", wm.get)

		if verifier != nil {
			resync := &resyncHandler{driver: drv}
			api.Group(func(auth chi.Router) {
				// Resync is the only mutating, potentially expensive
				// route on this surface (it runs a full pipeline pass
				// inline) — rate-limited in addition to authenticated.
				auth.Use(middleware.RateLimit(ctx))
				auth.Use(requireControlToken(verifier))
				auth.Post("/resync/{entity}", resync.trigger)
			})
		}
	})

	return &Server{
		log: log,
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// ListenAndServe starts the HTTP server. It blocks until the server is
// closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("control API starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
