package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/talmzip/awwwe-feedback-form/internal/http/middleware"
	"github.com/talmzip/awwwe-feedback-form/internal/sheet"
	"github.com/talmzip/awwwe-feedback-form/internal/wizard"
	"github.com/talmzip/awwwe-feedback-form/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger        *logging.Logger
	WizardHandler *wizard.Handler
	SheetHandler  *sheet.Handler

	// SheetLimiter throttles the logging endpoint per client IP (optional).
	SheetLimiter *httpmiddleware.RateLimiter

	// AdminAuthSecret enables GET /admin/submissions when set.
	AdminAuthSecret string

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// The logging endpoint answers any origin with its own headers, so the
	// allowlist applies only to the wizard and admin groups.
	if cfg.SheetHandler != nil {
		r.Route("/sheet", func(sheetRoutes chi.Router) {
			if cfg.SheetLimiter != nil {
				sheetRoutes.Use(httpmiddleware.RateLimit(cfg.SheetLimiter))
			}
			sheetRoutes.Post("/submissions", cfg.SheetHandler.Submit)
			sheetRoutes.Options("/submissions", cfg.SheetHandler.Submit)
		})
	}

	r.Group(func(browser chi.Router) {
		if len(cfg.CORSAllowedOrigins) > 0 {
			browser.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
		}

		if cfg.WizardHandler != nil {
			browser.Route("/wizard", cfg.WizardHandler.Routes)
		}

		// Admin routes (protected by JWT)
		if cfg.AdminAuthSecret != "" && cfg.SheetHandler != nil {
			browser.Route("/admin", func(admin chi.Router) {
				admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret, httpmiddleware.ScopeReadSubmissions))
				admin.Get("/submissions", cfg.SheetHandler.ListRows)
			})
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
