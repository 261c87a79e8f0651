package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	if s.metrics != nil {
		r.Handle(s.metricsPath, s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/system", s.handleSystem)

		r.Route("/device", func(r chi.Router) {
			r.Get("/", s.handleGetDevice)
			r.Post("/open", s.handleOpenDevice)
			r.Post("/close", s.handleCloseDevice)
		})

		r.Route("/sources", func(r chi.Router) {
			r.Get("/", s.handleListSources)
			r.Get("/{kind}", s.handleGetSource)
			r.Post("/{kind}", s.handleInitSource)
		})

		r.Put("/textures", s.handleSetTextures)
		r.Get("/scene", s.handleGetScene)

		r.Get("/events", s.handleListEvents)
		r.Get("/sessions", s.handleListSessions)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
	}
	if f, ok := s.ctrl.Last(); ok {
		resp["sensor_open"] = f.Snapshot.Open
		resp["last_tick"] = f.Time.UTC()
	}
	writeJSON(w, http.StatusOK, resp)
}
