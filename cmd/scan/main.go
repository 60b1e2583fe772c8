// cmd/scan/main.go
//
// One-shot supervisory scan, for cron fallback or operator use:
//
//	go run ./cmd/scan
package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/emrekoca/taskwarden/internal/config"
	"github.com/emrekoca/taskwarden/internal/database"
	"github.com/emrekoca/taskwarden/internal/repository"
	"github.com/emrekoca/taskwarden/internal/supervisor"
	"github.com/emrekoca/taskwarden/pkg/wecom"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
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

	dispatcher := supervisor.NewDispatcher(notifications, ledger, users, pusher, cfg.WeCom.AppBaseURL, logger)
	resolver := supervisor.NewResolver(users)
	engine := supervisor.NewEngine(tasks, users, dispatcher, resolver, logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Supervisor.ScanTimeout)
	defer cancel()

	result, err := engine.Run(ctx, time.Now())
	if err != nil {
		logger.Fatal().Err(err).Msg("scan failed")
	}

	logger.Info().
		Int("due_soon", result.DueSoon).
		Int("overdue", result.Overdue).
		Int("no_update", result.NoUpdate).
		Int("blocked", result.Blocked).
		Int("push_sent", result.PushSent).
		Int("total", result.Total).
		Strs("errors", result.Errors).
		Msg("scan completed")
}
