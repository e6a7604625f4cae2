package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"kosync/backend/config"
	"kosync/backend/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the configured store, migrates the schema and seeds the
// admin account. The default is an embedded sqlite file so the server runs
// self-contained; DB_DRIVER=postgres switches to a shared database.
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
		dialector = postgres.Open(dsn)
	case "sqlite":
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("could not create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.User{}, &models.Document{}); err != nil {
		return nil, err
	}

	if err := seedAdmin(db, cfg.AdminPassword); err != nil {
		return nil, err
	}

	return db, nil
}

// seedAdmin makes sure the reserved admin account exists and resets its
// digest from ADMIN_PASSWORD on every start, so the admin password is
// rotated through the environment rather than the API.
func seedAdmin(db *gorm.DB, password string) error {
	var admin models.User
	err := db.Where("username = ?", "admin").First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		admin = models.User{
			Username:        "admin",
			IsActive:        true,
			IsAdministrator: true,
		}
	} else if err != nil {
		return err
	}

	admin.PasswordHash = HashPassword(password)
	admin.IsAdministrator = true

	return db.Save(&admin).Error
}
