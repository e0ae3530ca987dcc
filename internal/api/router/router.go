package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agrilink/agrilink-platform/internal/http/handlers"
	httpmiddleware "github.com/agrilink/agrilink-platform/internal/http/middleware"
	"github.com/agrilink/agrilink-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger         *logging.Logger
	TwilioWebhook  *handlers.TwilioWebhookHandler
	GreenWebhook   *handlers.GreenWebhookHandler
	MetricsHandler http.Handler
	UploadsDir     string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", handlers.Health)

	r.Route("/webhooks/whatsapp", func(r chi.Router) {
		if cfg.TwilioWebhook != nil {
			r.Post("/twilio", cfg.TwilioWebhook.Handle)
		}
		if cfg.GreenWebhook != nil {
			r.Post("/green", cfg.GreenWebhook.Handle)
			r.Get("/green/last", cfg.GreenWebhook.HandleLast)
		}
	})

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.UploadsDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir)))
		r.Get("/uploads/*", fs.ServeHTTP)
	}

	return r
}
