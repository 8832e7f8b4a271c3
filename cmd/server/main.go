package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/romastokriceri/mystorage/internal/config"
	"github.com/romastokriceri/mystorage/internal/database"
	"github.com/romastokriceri/mystorage/internal/handler"
	"github.com/romastokriceri/mystorage/internal/logging"
	"github.com/romastokriceri/mystorage/internal/policy"
	"github.com/romastokriceri/mystorage/internal/queue"
	"github.com/romastokriceri/mystorage/internal/repository"
	"github.com/romastokriceri/mystorage/internal/router"
	"github.com/romastokriceri/mystorage/internal/storage/local"
)

func main() {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Error("database open failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db, cfg.DBName); err != nil {
		logger.Error("database migrate failed", "error", err)
		os.Exit(1)
	}

	media, err := local.New(cfg.UploadDir)
	if err != nil {
		logger.Error("media store init failed", "error", err)
		os.Exit(1)
	}

	users := repository.NewUserRepo(db)
	boxes := repository.NewBoxRepo(db)
	items := repository.NewItemRepo(db)
	shares := repository.NewShareRepo(db)
	tokens := repository.NewTokenRepo(db)
	engine := policy.NewEngine(shares)

	h := router.Handlers{
		Auth:   handler.NewAuthHandler(cfg, users, tokens),
		Boxes:  handler.NewBoxHandler(boxes, items, shares, users, engine),
		Items:  handler.NewItemHandler(items, boxes, engine),
		Upload: handler.NewUploadHandler(media),
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable, response cache disabled")
	}

	// Share notifications are best effort; the consumer reconnects on
	// its own and never takes the server down.
	go queue.StartShareConsumer()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, h, cfg, config.LoadCacheConfig(), rdb, cfg.UploadDir)

	addr := ":" + cfg.Port
	logger.Info("listening", "addr", addr, "env", cfg.Env)
	if err := e.Start(addr); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
