package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/project-tracker-api/internal/config"
	"github.com/yukikurage/project-tracker-api/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedAdmin creates the configured superuser when no user owns that email
// yet. An empty admin email disables seeding.
func SeedAdmin(ctx context.Context, db *gorm.DB, cfg config.AdminConfig, log *zap.Logger) error {
	email := strings.TrimSpace(cfg.Email)
	if email == "" {
		return nil
	}
	if cfg.Password == "" {
		return errors.New("admin password is required when admin email is set")
	}

	var existing models.User
	err := db.WithContext(ctx).Unscoped().
		Where("LOWER(email) = LOWER(?)", email).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := models.User{
		Email:        email,
		FullName:     cfg.FullName,
		PasswordHash: string(hash),
		IsActive:     true,
		IsStaff:      true,
		IsSuperuser:  true,
	}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.Named("database").Info("seeded admin user", zap.Uint64("user_id", admin.ID))
	return nil
}
