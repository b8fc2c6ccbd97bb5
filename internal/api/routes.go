package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/portfolio-api/internal/pkg/httputil"
)

// SetupRoutes configures all routes. hc may be nil, in which case the
// health endpoints are not mounted.
func SetupRoutes(h *Handlers, hc *HealthChecker, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Server-Identity", "portfolio-api")
			next.ServeHTTP(w, req)
		})
	})

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", h.Root)

	if hc != nil {
		r.Get("/health", hc.HandleHealth)
		r.Get("/health/live", hc.HandleLiveness)
		r.Get("/health/ready", hc.HandleReadiness)
	}

	// Projects
	r.Get("/get-recent-projects", h.GetRecentProjects)
	r.Post("/upload-project", h.UploadProject)
	r.Delete("/delete-project/{id}", h.DeleteProject)
	r.Delete("/delete-project/", h.DeleteProject)

	// Contact
	r.Post("/send-message", h.SendMessage)
	r.Get("/test-email", h.TestEmail)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.NotFound(w, "Route not found")
	})

	return r
}
