package database

import (
	"context"
	"fmt"
	"reflect"

	"waba-integration/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const copyBatchSize = 500

// CopyAll copies every table from src into dst, for moving an sqlite
// deployment onto postgres. Tables are copied in dependency order, each in
// its own transaction; the first failure stops the copy.
func CopyAll(ctx context.Context, src, dst *gorm.DB, log *logrus.Logger) error {
	steps := []struct {
		table string
		rows  interface{}
	}{
		{"contacts", &[]models.Contact{}},
		{"templates", &[]models.Template{}},
		{"documents", &[]models.Document{}},
		{"system_settings", &[]models.SystemSetting{}},
		{"messages", &[]models.Message{}},
		{"webhook_logs", &[]models.WebhookLog{}},
	}

	for _, step := range steps {
		log.WithField("table", step.table).Info("Copying table")

		if err := src.WithContext(ctx).Find(step.rows).Error; err != nil {
			return fmt.Errorf("read %s: %w", step.table, err)
		}
		if reflect.ValueOf(step.rows).Elem().Len() == 0 {
			continue
		}

		err := dst.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.CreateInBatches(step.rows, copyBatchSize).Error
		})
		if err != nil {
			return fmt.Errorf("write %s: %w", step.table, err)
		}
	}

	log.Info("Copy completed")
	return SyncSequences(ctx, dst, log)
}

// SyncSequences moves postgres id sequences past the highest copied id so
// new rows do not collide. Other databases need no adjustment.
func SyncSequences(ctx context.Context, db *gorm.DB, log *logrus.Logger) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}

	for _, table := range []string{"messages", "webhook_logs"} {
		query := "SELECT setval(pg_get_serial_sequence('" + table + "', 'id'), coalesce(max(id), 0) + 1, false) FROM " + table
		if err := db.WithContext(ctx).Exec(query).Error; err != nil {
			return fmt.Errorf("sync sequence for %s: %w", table, err)
		}
		log.WithField("table", table).Info("Synced sequence")
	}
	return nil
}
