// Command server runs the attendance backend: it syncs punch events from
// biometric devices into a local SQLite store and serves the reconciliation
// API over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/psitech/go-attendance-backend/internal/config"
	"github.com/psitech/go-attendance-backend/internal/device/zkteco"
	httpapi "github.com/psitech/go-attendance-backend/internal/http"
	"github.com/psitech/go-attendance-backend/internal/observability"
	"github.com/psitech/go-attendance-backend/internal/repo"
	"github.com/psitech/go-attendance-backend/internal/services"
	"github.com/psitech/go-attendance-backend/internal/sysutil"
)

var version = "dev" // set via -ldflags "-X main.version=..."

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	logger := log.With().Str("service", cfg.OTEL.ServiceName).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migrate failed")
	}

	adapter := zkteco.NewAdapter(cfg.DeviceTimeout)
	syncSvc, err := services.NewSyncService(db, adapter, cfg.Scope, cfg.Sources, cfg.SyncInterval, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("sync service setup failed")
	}
	attSvc := services.NewAttendanceService(db, syncSvc.Scope)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, syncSvc, attSvc, cfg)

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
		logger.Info().Str("addr", srv.Addr).Str("scope", syncSvc.Scope()).
			Int("sources", len(cfg.Sources)).Str("version", version).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	// Finish the in-flight cycle, then drain HTTP.
	syncSvc.Stop()

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
	logger.Info().Msg("bye")
}
