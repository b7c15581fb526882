/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  X-Request-ID echo or a fresh UUID, request-scoped logger
  2. Logging:    One structured line per request with status and duration
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for a browser front end

ROUTE GROUPS:
  /health                          Liveness
  /api/employees/*                 Balance, history, leave requests
  /api/tools/*                     Named function calls returning text

SECURITY NOTE:
  No authentication middleware. Put the service behind a gateway that
  authenticates callers.

SEE ALSO:
  - handlers.go: Handler implementations
  - cli/server.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(RequestID(h.logger))
	r.Use(Logging)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/history", h.GetHistory)
			r.Post("/{id}/leave", h.RequestLeave)
		})

		r.Route("/tools", func(r chi.Router) {
			r.Get("/", h.ListTools)
			r.Post("/{name}", h.CallTool)
		})
	})

	return r
}
