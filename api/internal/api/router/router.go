package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/irgordon/insight/api/internal/api/handlers"
	auth_middleware "github.com/irgordon/insight/api/internal/api/middleware"
	"github.com/irgordon/insight/api/internal/core/services"
)

const maxJSONBody = 1_048_576

// RouterConfig defines the strict dependencies required to build the API routing tree.
type RouterConfig struct {
	AllowedOrigins    []string
	SettingHandler    *handlers.SettingHandler
	DatabaseHandler   *handlers.DatabaseHandler
	SecretHandler     *handlers.SecretHandler
	AttachmentHandler *handlers.AttachmentHandler
	EncryptionHandler *handlers.EncryptionHandler
	EventStream       *handlers.EventStream
	HealthHandler     *handlers.HealthHandler
	AuthMiddleware    *auth_middleware.AuthMiddleware
	Logger            *slog.Logger
}

// NewRouter constructs the Chi multiplexer, attaches global middleware, and wires all endpoints.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// =========================================================================
	// 1. Global Gateway Middleware Pipeline
	// =========================================================================

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(auth_middleware.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	// 🛡️ In-memory token bucket rate limiting
	r.Use(cfg.AuthMiddleware.RateLimit)

	// Strict CORS Configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})
	r.Get("/health", cfg.HealthHandler.Check)

	// =========================================================================
	// 2. API v1 Routing Tree (Requires a Valid JWT)
	// =========================================================================

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cfg.AuthMiddleware.RequireAuthentication)
		r.Use(auth_middleware.RequireScope(cfg.Logger, services.ScopeRead, services.ScopeWrite))

		// 🛡️ Zero-Trust: read-only tokens can NEVER mutate state, even if a
		// route forgets its own check.
		r.Use(auth_middleware.MutationGuard(cfg.Logger))

		// --- JSON resources ---
		r.Group(func(r chi.Router) {
			// 🛡️ Limit all incoming JSON requests to 1 Megabyte max (OOM Protection)
			r.Use(auth_middleware.MaxBytes(maxJSONBody))
			r.Use(middleware.Timeout(60 * time.Second))

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", cfg.SettingHandler.List)
				r.Get("/{key}", cfg.SettingHandler.Get)
				r.Put("/{key}", cfg.SettingHandler.Put)
				r.Delete("/{key}", cfg.SettingHandler.Delete)
			})

			r.Route("/databases", func(r chi.Router) {
				r.Get("/", cfg.DatabaseHandler.List)
				r.Post("/", cfg.DatabaseHandler.Create)
				r.Get("/{id}", cfg.DatabaseHandler.GetByID)
				r.Put("/{id}/details", cfg.DatabaseHandler.UpdateDetails)
				r.Delete("/{id}", cfg.DatabaseHandler.Delete)
			})

			r.Route("/secrets", func(r chi.Router) {
				r.Get("/", cfg.SecretHandler.List)
				r.Post("/", cfg.SecretHandler.Create)
				r.Get("/{id}", cfg.SecretHandler.GetByID)
				r.Delete("/{id}", cfg.SecretHandler.Delete)

				r.With(auth_middleware.RequireScope(cfg.Logger, services.ScopeRevealSecrets)).
					Get("/{id}/value", cfg.SecretHandler.Value)
			})
		})

		r.Route("/encryption", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(auth_middleware.MaxBytes(maxJSONBody))
				r.Use(middleware.Timeout(60 * time.Second))

				r.Get("/", cfg.EncryptionHandler.Status)
				r.Post("/sweep", cfg.EncryptionHandler.Sweep)
			})

			// Long-lived SSE stream; no request timeout.
			r.Get("/events", cfg.EventStream.Sweeps)
		})

		// --- Streamed attachments (size capped by the handler) ---
		r.Route("/attachments", func(r chi.Router) {
			r.Put("/{name}", cfg.AttachmentHandler.Put)
			r.Get("/{name}", cfg.AttachmentHandler.Get)
			r.Get("/{name}/info", cfg.AttachmentHandler.Stat)
			r.Delete("/{name}", cfg.AttachmentHandler.Delete)
		})
	})

	return r
}
