// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/emrekoca/taskwarden/internal/config"
	"github.com/emrekoca/taskwarden/internal/database"
	"github.com/emrekoca/taskwarden/internal/repository"
	"github.com/emrekoca/taskwarden/internal/scheduler"
	"github.com/emrekoca/taskwarden/internal/server"
	"github.com/emrekoca/taskwarden/internal/supervisor"
	"github.com/emrekoca/taskwarden/pkg/wecom"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := newLogger(cfg)

	if err := cfg.ValidateConfig(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	db, err := database.Connect(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	tasks := repository.NewTaskRepository(db)
	users := repository.NewUserRepository(db)
	notifications := repository.NewNotificationRepository(db)
	ledger := repository.NewNotificationLogRepository(db)

	pusher := wecom.NewClient(wecom.Config{
		CorpID:  cfg.WeCom.CorpID,
		AgentID: cfg.WeCom.AgentID,
		Secret:  cfg.WeCom.Secret,
		BaseURL: cfg.WeCom.APIBaseURL,
	}, logger)
	if !pusher.IsConfigured() {
		logger.Warn().Msg("WeCom credentials not configured, push notifications disabled")
	}

	dispatcher := supervisor.NewDispatcher(notifications, ledger, users, pusher, cfg.WeCom.AppBaseURL, logger)
	resolver := supervisor.NewResolver(users)
	engine := supervisor.NewEngine(tasks, users, dispatcher, resolver, logger)

	scanTimes, err := cfg.ScanTimesOfDay()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid scan schedule")
	}

	sched := scheduler.New(scanTimes, func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, cfg.Supervisor.ScanTimeout)
		defer cancel()

		if _, err := engine.Run(ctx, time.Now()); err != nil {
			if errors.Is(err, supervisor.ErrScanInProgress) {
				logger.Warn().Msg("skipping scheduled scan, previous scan still running")
				return
			}
			logger.Error().Err(err).Msg("scheduled scan failed")
		}
	}, logger)
	sched.Start()

	srv := server.New(engine, db, cfg.Supervisor.OperatorToken, cfg.Supervisor.ScanTimeout, logger)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.HTTPPort,
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info().Str("port", cfg.Server.HTTPPort).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	logger.Info().Msg("shutdown complete")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDevelopment() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().Timestamp().Logger().Level(zerolog.DebugLevel)
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
}
