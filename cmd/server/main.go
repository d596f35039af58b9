package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/mkondo/notes-api/internal/config"
	"github.com/mkondo/notes-api/internal/database"
	"github.com/mkondo/notes-api/internal/handler"
	"github.com/mkondo/notes-api/internal/logging"
	"github.com/mkondo/notes-api/internal/queue"
	"github.com/mkondo/notes-api/internal/repository"
	"github.com/mkondo/notes-api/internal/router"
	queue_publisher "github.com/mkondo/notes-api/internal/service"
	"github.com/mkondo/notes-api/internal/storage"
	"github.com/mkondo/notes-api/internal/token"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel)

	db, err := database.Open(cfg)
	if err != nil {
		logger.Error("database connect failed", "error", err)
		return
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable, rate limiting and response cache disabled")
	}

	users := repository.NewUserRepo(db)
	notes := repository.NewNoteRepo(db)
	atts := repository.NewAttachmentRepo(db)
	refresh := repository.NewTokenRepo(db)

	tokens := token.New(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL, refresh)

	noteHandler := handler.NewNoteHandler(notes, atts)
	uploadHandler := handler.NewUploadHandler(nil)
	publicHandler := handler.NewPublicNoteHandler(notes, atts)

	if cfg.StorageEndpoint != "" {
		blobs, err := storage.New(cfg)
		if err != nil {
			logger.Error("object storage connect failed", "error", err)
			return
		}
		uploadHandler.Blobs = blobs
		noteHandler.FileURL = blobs.ObjectURL
		noteHandler.RemoveBlob = blobs.Remove
		publicHandler.FileURL = blobs.ObjectURL
	} else {
		logger.Warn("object storage not configured, uploads disabled")
	}

	if cfg.BrokerURL != "" {
		noteHandler.Publish = func(ctx context.Context, ev queue.NotePublishedEvent) error {
			return queue_publisher.PublishNotePublished(ctx, ev)
		}
		go queue.StartNotePublishedConsumer()
	} else {
		logger.Warn("message broker not configured, note events disabled")
	}

	e := echo.New()
	e.HideBanner = true

	router.Register(e, router.Deps{
		Logger:    logger,
		Auth:      handler.NewAuthHandler(users, tokens, cfg.BcryptCost),
		Notes:     noteHandler,
		Public:    publicHandler,
		Uploads:   uploadHandler,
		Tokens:    tokens,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
	})

	logger.Info("server starting", "port", cfg.Port, "env", cfg.Env)
	if err := e.Start(":" + cfg.Port); err != nil {
		logger.Error("server stopped", "error", err)
	}
}
