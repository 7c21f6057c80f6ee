package cmd

import (
	"context"
	"fmt"

	"waba-integration/internal/app"
	"waba-integration/internal/database"

	"github.com/spf13/cobra"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database maintenance",
}

var dbCopyCmd = &cobra.Command{
	Use:   "copy-from-sqlite <path>",
	Short: "Copy every table of an sqlite database into the configured database",
	Long:  "Moves an sqlite deployment onto the configured database (normally postgres), then syncs id sequences.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDBCopy,
}

var dbSyncSequencesCmd = &cobra.Command{
	Use:   "sync-sequences",
	Short: "Move postgres id sequences past the highest stored id",
	Args:  cobra.NoArgs,
	RunE:  runDBSyncSequences,
}

func init() {
	dbCmd.AddCommand(dbCopyCmd)
	dbCmd.AddCommand(dbSyncSequencesCmd)
}

func runDBCopy(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		src, err := gorm.Open(sqlite.Open(args[0]), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
		if err != nil {
			return fmt.Errorf("failed to open sqlite source %s: %w", args[0], err)
		}
		if sqlDB, err := src.DB(); err == nil {
			defer sqlDB.Close()
		}
		if err := database.Migrate(src); err != nil {
			return err
		}

		return database.CopyAll(ctx, src, a.DB, a.Logger.Logger)
	})
}

func runDBSyncSequences(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		return database.SyncSequences(ctx, a.DB, a.Logger.Logger)
	})
}
