package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"proofchest/internal/models"
	"proofchest/internal/repository"
	"proofchest/pkg/auth"
	"proofchest/pkg/config"
	"proofchest/pkg/logger"
	"proofchest/pkg/postgres"

	"go.uber.org/zap"
)

const (
	welcomeTitle       = "Bem-vindo ao Proofchest"
	welcomeDescription = "Envie fotos ou PDFs das suas APC, ACE e recibos. O texto é extraído automaticamente."
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Named("seed")

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	appLogger.Info("Starting database seeding...")

	if err := postgres.Migrate(ctx, db, appLogger); err != nil {
		appLogger.Fatal("Failed to apply schema", zap.Error(err))
	}

	users := repository.NewUserRepository(db, appLogger)
	if err := seedAdmin(ctx, users, cfg.Seed, appLogger); err != nil {
		appLogger.Fatal("Failed to seed admin user", zap.Error(err))
	}

	if cfg.Seed.Welcome {
		announcements := repository.NewAnnouncementRepository(db, appLogger)
		if err := seedWelcome(ctx, announcements, appLogger); err != nil {
			appLogger.Fatal("Failed to seed welcome announcement", zap.Error(err))
		}
	}

	appLogger.Info("Database seeding completed successfully!")
}

// seedAdmin creates the administrator account unless the username is taken.
func seedAdmin(ctx context.Context, users *repository.UserRepository, cfg config.SeedConfig, logger *zap.Logger) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		logger.Info("SEED_ADMIN_PASSWORD not set, skipping admin user")
		return nil
	}

	existing, err := users.GetByUsername(ctx, cfg.AdminUsername)
	switch {
	case err == nil:
		if !existing.IsAdmin {
			logger.Warn("Seed username exists without admin rights", zap.String("username", cfg.AdminUsername))
		} else {
			logger.Info("Admin user already exists", zap.String("username", cfg.AdminUsername))
		}
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	admin, err := users.Create(ctx, cfg.AdminUsername, hash, true)
	if err != nil {
		return err
	}

	logger.Info("Admin user created", zap.String("user_id", admin.ID), zap.String("username", admin.Username))
	return nil
}

// seedWelcome posts the first announcement on an empty board.
func seedWelcome(ctx context.Context, repo *repository.AnnouncementRepository, logger *zap.Logger) error {
	existing, err := repo.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Info("Announcements present, skipping welcome", zap.Int("count", len(existing)))
		return nil
	}

	welcome, err := models.NewAnnouncement(welcomeTitle, welcomeDescription, nil)
	if err != nil {
		return err
	}
	created, err := repo.Create(ctx, welcome)
	if err != nil {
		return err
	}

	logger.Info("Welcome announcement created", zap.String("id", created.ID))
	return nil
}
