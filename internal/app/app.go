// Package app wires configuration, storage and the provider client into the
// collaborators shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"net/http"

	"waba-integration/internal/config"
	"waba-integration/internal/credentials"
	"waba-integration/internal/database"
	apperrors "waba-integration/internal/errors"
	"waba-integration/internal/messaging"
	"waba-integration/internal/render"
	"waba-integration/internal/storage"

	"gorm.io/gorm"
)

type App struct {
	Config    *config.Config
	Logger    *apperrors.Logger
	DB        *gorm.DB
	Store     *database.Store
	Settings  *database.SettingsStore
	Documents *database.DocumentStore
	Encryptor *credentials.Encryptor
	Deps      messaging.Deps
}

func New(cfg *config.Config) (*App, error) {
	logger := apperrors.NewLogger(cfg.LogLevel)

	encryptor, err := credentials.NewEncryptor(cfg.EncryptionSecret)
	if err != nil {
		return nil, fmt.Errorf("encryption: %w", err)
	}
	if !encryptor.Enabled() {
		logger.Warn("WABA_ENCRYPTION_SECRET not set; access tokens are stored in plain text")
	}

	db, err := database.Open(cfg, logger.Logger)
	if err != nil {
		return nil, err
	}

	files, err := storage.NewLocalStore(cfg.MediaDir)
	if err != nil {
		return nil, err
	}

	store := database.NewStore(db)
	settings := database.NewSettingsStore(db, cfg.Settings)
	documents := database.NewDocumentStore(db)

	return &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Store:     store,
		Settings:  settings,
		Documents: documents,
		Encryptor: encryptor,
		Deps: messaging.Deps{
			Store:      store,
			Settings:   settings,
			Encryptor:  encryptor,
			HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
			Files:      files,
			Renderer:   render.NewTextRenderer(),
			Documents:  documents,
			Authorizer: messaging.AllowAll{},
			Logger:     logger.Logger,
		},
	}, nil
}

func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SetSetting stores an administrative setting, encrypting the access token
// when an encryption secret is configured.
func (a *App) SetSetting(ctx context.Context, key, value string) error {
	if key == database.SettingAccessToken {
		encrypted, err := a.Encryptor.Encrypt(value)
		if err != nil {
			return err
		}
		value = encrypted
	}
	return a.Settings.Set(ctx, key, value)
}
