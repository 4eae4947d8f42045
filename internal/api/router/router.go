package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/health-assistant/internal/assistant"
	httpmiddleware "github.com/wolfman30/health-assistant/internal/http/middleware"
	"github.com/wolfman30/health-assistant/internal/webchat"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	HealthBot          *assistant.Handler
	WebChat            *webchat.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// UserAuthSecret verifies bearer JWTs. Empty reads the subject unverified.
	UserAuthSecret string

	// Checks are run by GET /health. A failing check reports 503.
	Checks map[string]Checker
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.Checks, cfg.Logger))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/api/v1/health-bot", func(api chi.Router) {
		api.Use(httpmiddleware.UserJWT(cfg.UserAuthSecret))
		if cfg.HealthBot != nil {
			api.Group(func(rest chi.Router) {
				rest.Use(middleware.Compress(5))
				rest.Post("/chat", cfg.HealthBot.Chat)
				rest.Delete("/cache", cfg.HealthBot.ClearCache)
			})
		}
		if cfg.WebChat != nil {
			api.Get("/ws", cfg.WebChat.HandleWebSocket)
		}
	})

	return r
}
