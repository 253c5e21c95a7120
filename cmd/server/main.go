// Command server runs the dispute backend HTTP API.
//
// Startup order: environment (.env for local development), configuration,
// logging, tracing, database (with migrations), classification client, then
// the Gin engine with the full middleware stack. Shutdown is graceful: on
// SIGINT/SIGTERM the server drains in-flight requests before the tracer
// provider and database are closed.
package main

// @title        Dispute Backend API
// @version      1.0
// @description  Chargeback dispute lifecycle API: eligibility, intake, classification, evidence, representments.
// @BasePath     /api/v1

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-dispute-backend/internal/ai"
	"github.com/tbourn/go-dispute-backend/internal/config"
	httpapi "github.com/tbourn/go-dispute-backend/internal/http"
	"github.com/tbourn/go-dispute-backend/internal/observability"
	"github.com/tbourn/go-dispute-backend/internal/repo"
	"github.com/tbourn/go-dispute-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	port := ai.NewClient(cfg.AIAPIKey,
		ai.WithBaseURL(cfg.AIBaseURL),
		ai.WithModels(cfg.AIModel, cfg.AIVisionModel),
		ai.WithTimeout(cfg.AITimeout),
	)

	r := gin.New()
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	httpapi.RegisterRoutes(r, db, port, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("dispute backend listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("bye")
}
