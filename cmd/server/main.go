package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/vani-hq/vani/internal/access"
	"github.com/vani-hq/vani/internal/api"
	"github.com/vani-hq/vani/internal/auth"
	"github.com/vani-hq/vani/internal/database"
	"github.com/vani-hq/vani/internal/ingest"
	"github.com/vani-hq/vani/internal/outreach"
	"github.com/vani-hq/vani/internal/pitch"
	"github.com/vani-hq/vani/internal/sheets"
	"github.com/vani-hq/vani/internal/tasks"
	"github.com/vani-hq/vani/pkg/config"
	"github.com/vani-hq/vani/pkg/crypto"
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

	logger.Info("starting vani server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	if err := database.SeedUseCases(db); err != nil {
		logger.Error("failed to seed use cases", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis, notifications disabled", "error", err)
		redisClient = nil
	}

	var asynqClient *asynq.Client
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService)
	accessService := access.NewService(db)

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}
	if cfg.Encryption.Key == "" {
		logger.Warn("ENCRYPTION_KEY not set, using generated key - stored credentials will be unreadable after restart")
	}

	enqueuer := tasks.NewEnqueuer(asynqClient)
	ingestService := ingest.NewService(db, logger, enqueuer)
	sender := outreach.NewSender(db, logger, encryptor, cfg.Resend, cfg.Twilio)
	generator := pitch.NewGenerator(cfg.OpenAI.APIKey, cfg.OpenAI.Model, db, logger)
	exporter := sheets.NewExporter(cfg.Sheets.CredentialsJSON, logger)

	router := api.NewRouter(api.RouterConfig{
		DB:            db,
		Redis:         redisClient,
		Logger:        logger,
		Config:        cfg,
		JWTService:    jwtService,
		AuthService:   authService,
		AccessService: accessService,
		IngestService: ingestService,
		Sender:        sender,
		Generator:     generator,
		Exporter:      exporter,
		Encryptor:     encryptor,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if asynqClient != nil {
		asynqClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
