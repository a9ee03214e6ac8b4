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

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/monitors", s.handleListMonitors)
		r.Get("/devices", s.handleListDevices)

		r.Route("/sightings", func(r chi.Router) {
			r.Get("/recent", s.handleRecentSightings)
			r.Get("/top", s.handleTopDevices)
		})

		r.Get("/reports/hourly", s.handleHourlyReport)
	})

	return r
}
