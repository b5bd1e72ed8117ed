package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/vani-hq/vani/internal/database"
	"github.com/vani-hq/vani/internal/notify"
	"github.com/vani-hq/vani/internal/tasks"
	"github.com/vani-hq/vani/pkg/config"
	"github.com/vani-hq/vani/pkg/queue"
	"github.com/vani-hq/vani/pkg/util"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting vani worker")

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	srv := queue.NewServer(&cfg.Redis, 10)

	dispatcher := notify.NewDispatcher(logger, cfg.Resend, cfg.Twilio, cfg.Notify)
	handler := tasks.NewHandler(db, logger, dispatcher)

	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// The scheduler enqueues a periodic tick that fires due follow-up
	// reminders.
	scheduler := queue.NewScheduler(&cfg.Redis)
	if _, err := scheduler.Register("@every 1m", tasks.NewFollowUpTickTask()); err != nil {
		logger.Error("failed to register follow-up tick", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		scheduler.Shutdown()
		srv.Shutdown()
		cancel()
	}()

	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error("scheduler error", "error", err)
		}
	}()

	logger.Info("worker started, waiting for tasks...")

	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	<-ctx.Done()

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
