package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"proofchest/internal/api"
	"proofchest/internal/api/handlers"
	"proofchest/internal/backend"
	"proofchest/internal/kv"
	"proofchest/internal/ocr"
	"proofchest/internal/repository"
	"proofchest/internal/service"
	"proofchest/internal/session"
	"proofchest/internal/storage"
	"proofchest/pkg/auth"
	"proofchest/pkg/config"
	"proofchest/pkg/logger"
	"proofchest/pkg/postgres"
	"proofchest/pkg/redis"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// @title Proofchest API
// @version 1.0
// @description Document vault for APC, ACE and receipt images with OCR, plus an admin announcement board.

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting proofchest",
		zap.String("env", cfg.Server.Environment),
		zap.Bool("fallback", cfg.Fallback.Enabled),
	)

	ctx := context.Background()
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration)

	documentsBucket, err := storage.NewDiskBucket(cfg.Storage.UploadDir, storage.DocumentsBucket, cfg.Storage.PublicBaseURL, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open documents bucket", zap.Error(err))
	}
	announcementsBucket, err := storage.NewDiskBucket(cfg.Storage.UploadDir, storage.AnnouncementsBucket, cfg.Storage.PublicBaseURL, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open announcements bucket", zap.Error(err))
	}

	var remote backend.Backend = backend.Unavailable{}
	var announcementStore service.AnnouncementStore = backend.Unavailable{}

	db, rdb, err := connect(ctx, cfg, appLogger)
	switch {
	case err == nil:
		defer db.Close()
		defer rdb.Close()

		userRepo := repository.NewUserRepository(db, appLogger)
		docRepo := repository.NewDocumentRepository(db, appLogger)
		credRepo := repository.NewCredentialRepository(db, appLogger)
		sessions := session.NewService(credRepo, session.NewRedisStore(rdb), jwtManager, logger.Named("session"))

		remote = backend.NewNetworked(userRepo, docRepo, sessions, documentsBucket, appLogger)
		announcementStore = repository.NewAnnouncementRepository(db, appLogger)
	case cfg.Fallback.Enabled:
		appLogger.Warn("Backend unreachable, serving from the local store only", zap.Error(err))
	default:
		appLogger.Fatal("Backend unreachable", zap.Error(err))
	}

	selector := backend.Selector{Remote: remote, FallbackEnabled: cfg.Fallback.Enabled}
	if cfg.Fallback.Enabled {
		store, err := kv.OpenSQLite(cfg.Fallback.StorePath, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to open local store", zap.Error(err))
		}
		defer store.Close()
		selector.Local = backend.NewLocal(store, jwtManager, logger.Named("fallback"))
	}

	ocrLogger := logger.Named("ocr")
	engine, closeEngine, err := newEngine(ctx, cfg, ocrLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize OCR", zap.Error(err))
	}
	defer closeEngine()
	extractor := ocr.NewService(engine, cfg.OCR.Language, ocrLogger)

	authService := service.NewAuthService(selector, jwtManager, cfg.Fallback, appLogger)
	docService := service.NewDocumentService(selector, extractor, documentsBucket, cfg.OCR.Language, appLogger)
	announcementService := service.NewAnnouncementService(announcementStore, announcementsBucket, appLogger)

	expiresIn := int64(jwtManager.GetTokenDuration().Seconds())
	app := api.SetupRouter(cfg, api.Handlers{
		Auth:          handlers.NewAuthHandler(authService, expiresIn, appLogger),
		Documents:     handlers.NewDocumentHandler(docService, appLogger),
		Announcements: handlers.NewAnnouncementHandler(announcementService, appLogger),
	}, authService, jwtManager, appLogger)

	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}

// connect opens Postgres (applying the schema) and Redis. Both are needed for
// the networked backend.
func connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, *goredis.Client, error) {
	db, err := postgres.NewPool(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(ctx, db, logger); err != nil {
		db.Close()
		return nil, nil, err
	}

	rdb, err := redis.NewClient(ctx, &cfg.Redis, logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, rdb, nil
}

func newEngine(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ocr.Engine, func(), error) {
	var engine ocr.Engine
	switch cfg.OCR.Provider {
	case "tesseract":
		engine = ocr.NewTesseractEngine()
	case "gigachat":
		engine = ocr.NewGigaChatVision(&cfg.GigaChat, logger)
	default:
		return nil, nil, fmt.Errorf("unknown OCR provider %q", cfg.OCR.Provider)
	}

	if !cfg.OCR.Refine {
		return engine, func() {}, nil
	}

	client, err := ocr.NewGigaChatClient(ctx, &cfg.GigaChat, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("OCR output refinement enabled", zap.String("model", cfg.GigaChat.Model))
	return ocr.NewRefiner(engine, client, cfg.GigaChat.Model, logger), func() { client.Close() }, nil
}
