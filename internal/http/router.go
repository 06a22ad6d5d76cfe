package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/eventpass/server/internal/auth"
	"github.com/eventpass/server/internal/http/handlers"
	"github.com/eventpass/server/internal/middleware"
	"github.com/eventpass/server/internal/repo"
)

// Handlers groups the route handlers. Triggers may be nil.
type Handlers struct {
	Health    *handlers.HealthHandler
	Challenge *handlers.ChallengeHandler
	Session   *handlers.SessionHandler
	Triggers  *handlers.TriggerHandler
}

// Options carries the router's cross-cutting settings.
type Options struct {
	CORSOrigins      []string
	ChallengeLimiter middleware.Limiter
	// TriggerAPIKey must be set for the trigger routes to be mounted.
	TriggerAPIKey string
	Log           *zap.Logger
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(h Handlers, jwtService *auth.JWTService, accounts repo.AccountRepo, opts Options) *chi.Mux {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health.ServeHTTP)

	r.Route("/auth", func(r chi.Router) {
		r.Route("/challenge", func(r chi.Router) {
			if opts.ChallengeLimiter != nil {
				r.Use(middleware.RateLimitMiddleware(opts.ChallengeLimiter, middleware.GetIPKey, log))
			}
			r.Post("/", h.Challenge.HandleIssue)
			r.Options("/", h.Challenge.HandlePreflight)
		})
		r.Post("/session", h.Session.HandleInitiate)
		r.Post("/session/respond", h.Session.HandleRespond)
	})

	if h.Triggers != nil && opts.TriggerAPIKey != "" {
		r.Route("/triggers", func(r chi.Router) {
			r.Use(middleware.TriggerKey(opts.TriggerAPIKey))
			r.Post("/define-auth-challenge", h.Triggers.HandleDefine)
			r.Post("/create-auth-challenge", h.Triggers.HandleCreate)
			r.Post("/verify-auth-challenge", h.Triggers.HandleVerify)
		})
	}

	// Protected routes (require valid JWT)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(jwtService, accounts))
		r.Get("/me", h.Session.HandleMe)
	})

	return r
}
