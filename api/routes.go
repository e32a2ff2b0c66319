package api

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes registers the public project routes. Static segments under
// /projects are matched ahead of the {level} parameter by chi.
func setupRoutes(r chi.Router, handlers *routeHandlers) {
	r.Group(func(r chi.Router) {
		r.Use(ColoredHTTPLoggingMiddleware)

		r.Get("/health", handlers.healthHandler.getHealth())

		r.Get("/projects/stats", handlers.projectHandler.getProjectStats())
		r.Get("/projects/all", handlers.projectHandler.getAllProjects())
		r.Get("/projects/{level}", handlers.projectHandler.getProjects())
		r.Delete("/projects/{level}", handlers.projectHandler.deleteProjects())
		r.Post("/projects/generate/{level}", handlers.projectHandler.generateProjects())
	})
}
