package database

import (
	"fmt"

	"waba-integration/internal/config"
	"waba-integration/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database and runs auto-migration.
func Open(cfg *config.Config, log *logrus.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DBPath)
	case "memory":
		db, err := OpenMemory()
		if err != nil {
			return nil, err
		}
		log.Warn("Using in-memory database; data is lost on exit")
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.DBDriver, err)
	}

	log.WithField("driver", cfg.DBDriver).Info("Connected to database")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info("Database migration completed")
	return db, nil
}

// Migrate creates or updates the schema for every entity the integration owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Message{},
		&models.Contact{},
		&models.Template{},
		&models.WebhookLog{},
		&models.SystemSetting{},
		&models.Document{},
	)
	if err != nil {
		return fmt.Errorf("failed to run auto-migration: %w", err)
	}
	return nil
}

// OpenMemory opens a migrated in-memory sqlite database. The pool is capped at
// one connection so every query sees the same in-memory instance.
func OpenMemory() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access in-memory database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
