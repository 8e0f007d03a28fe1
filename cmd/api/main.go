package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/talmzip/awwwe-feedback-form/internal/api/router"
	appconfig "github.com/talmzip/awwwe-feedback-form/internal/config"
	httpmiddleware "github.com/talmzip/awwwe-feedback-form/internal/http/middleware"
	"github.com/talmzip/awwwe-feedback-form/internal/sheet"
	"github.com/talmzip/awwwe-feedback-form/internal/wizard"
	"github.com/talmzip/awwwe-feedback-form/pkg/logging"
)

func main() {
	// A missing .env is fine outside development.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting awwwe feedback API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"sheet_backend", cfg.SheetBackend,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	go app.sessions.Run(ctx, time.Minute)
	if app.limiter != nil {
		go app.limiter.RunEviction(ctx, 5*time.Minute, 30*time.Minute)
	}

	r := router.New(&router.Config{
		Logger:             logger,
		WizardHandler:      wizard.NewHandler(app.sessions, app.catalog, logger),
		SheetHandler:       sheet.NewHandler(app.sheet, logger),
		SheetLimiter:       app.limiter,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     app.metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// WriteTimeout stays zero: the events websocket is long-lived.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// limiterFor builds the sheet endpoint limiter, or nil when disabled.
func limiterFor(cfg *appconfig.Config) *httpmiddleware.RateLimiter {
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		return nil
	}
	return httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
}
