package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/leathercraft-class-submissions/internal/api"
	"github.com/leathercraft-class-submissions/internal/botfilter"
	"github.com/leathercraft-class-submissions/internal/config"
	"github.com/leathercraft-class-submissions/internal/database"
	"github.com/leathercraft-class-submissions/internal/repository"
	"github.com/leathercraft-class-submissions/internal/service"
	"github.com/leathercraft-class-submissions/internal/shopify"
	"github.com/leathercraft-class-submissions/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log := logger.New("info", "json")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting class submissions API server...")

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.Intake.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	repos := repository.New(db)

	// Bot filter: without a secret the Turnstile step is skipped
	var verifier botfilter.Verifier
	if cfg.Turnstile.SecretKey != "" {
		verifier = botfilter.NewTurnstileVerifier(cfg.Turnstile.SecretKey, cfg.Turnstile.VerifyURL, cfg.Turnstile.Timeout)
	} else {
		log.Warn().Bool("required", cfg.Turnstile.Required).Msg("TURNSTILE_SECRET_KEY not set, skipping verification")
	}
	filter := botfilter.New(verifier, cfg.Turnstile.Required, log)

	shop := shopify.NewClient(cfg.Shopify, log)
	if !cfg.Shopify.Enabled() {
		log.Warn().Msg("Shopify Admin API not configured, moderation changes stay in the database")
	}

	// Initialize services
	services := service.NewServices(repos, shop, filter, cfg, log)

	// Initialize router
	router := api.NewRouter(services, cfg, db, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}
