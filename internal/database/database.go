package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store/gormstore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the postgres pool. Driver errors are translated so the
// gateway can recognise unique-key violations.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected", "host", cfg.DBHost, "name", cfg.DBName)
	return db, nil
}

// Migrate runs AutoMigrate for the gateway tables and system_logs.
func Migrate(db *gorm.DB) error {
	if err := gormstore.Migrate(db); err != nil {
		return err
	}
	if err := db.AutoMigrate(&models.SystemLog{}); err != nil {
		return fmt.Errorf("failed to migrate system logs: %w", err)
	}
	return nil
}
