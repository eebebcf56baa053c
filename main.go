package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cardvault/internal/cardsearch"
	"cardvault/internal/catalog"
	"cardvault/internal/config"
	"cardvault/internal/database"
	"cardvault/internal/email"
	"cardvault/internal/handlers"
	"cardvault/internal/logger"
	"cardvault/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const cleanupInterval = time.Hour

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	logger.Initialize(logger.ParseLevel(cfg.LogLevel), cfg.IsDevelopment())

	if err := catalog.ValidateSources(); err != nil {
		logger.Error("Card source table is inconsistent", "error", err)
		os.Exit(1)
	}

	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewCollector(registry)

	emailService := email.NewService(cfg)
	if emailService.IsEnabled() {
		logger.Info("Email service enabled with Mailgun")
	} else {
		logger.Info("Email service disabled - Mailgun not configured")
	}

	services := handlers.Services{
		Catalog: catalog.NewService(database.NewStore(db), recorder),
		CardSearch: cardsearch.New(cardsearch.NewHTTPClient(cfg.CardAPITimeout), cardsearch.Endpoints{
			Scryfall:   cfg.ScryfallURL,
			PokemonTCG: cfg.PokemonTCGURL,
			YGOProDeck: cfg.YGOProDeckURL,
		}, recorder),
		Email:   emailService,
		Metrics: recorder,
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/metrics", gin.WrapH(metrics.Handler(registry)))
	handlers.SetupRoutes(r, db, cfg, services)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go cleanupLoop(ctx, db)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
		return
	}
	logger.Info("Server stopped")
}

// cleanupLoop drops expired sessions and CSRF tokens every hour.
func cleanupLoop(ctx context.Context, db *sql.DB) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := database.CleanupExpiredSessions(db); err != nil {
				logger.Warn("Failed to clean up sessions", "error", err)
			}
			if err := database.CleanupExpiredCSRFTokens(db); err != nil {
				logger.Warn("Failed to clean up CSRF tokens", "error", err)
			}
		}
	}
}
