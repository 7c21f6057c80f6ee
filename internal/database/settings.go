package database

import (
	"context"
	"fmt"
	"strconv"

	"waba-integration/internal/config"
	apperrors "waba-integration/internal/errors"
	"waba-integration/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Setting keys in system_settings; they mirror the environment variable names.
const (
	SettingEnabled            = "WABA_ENABLED"
	SettingAccessToken        = "WHATSAPP_TOKEN"
	SettingAPIBaseURL         = "API_BASE_URL"
	SettingAPIVersion         = "API_VERSION"
	SettingPhoneNumberID      = "PHONE_NUMBER_ID"
	SettingVerifyToken        = "VERIFY_TOKEN"
	SettingAutoDownloadImages = "AUTO_DOWNLOAD_IMAGES"
	SettingAutoDownloadAudio  = "AUTO_DOWNLOAD_AUDIO"
)

// SettingsStore reads the administrative settings: database rows override the
// environment defaults it was built with.
type SettingsStore struct {
	db       *gorm.DB
	defaults config.Settings
}

func NewSettingsStore(db *gorm.DB, defaults config.Settings) *SettingsStore {
	return &SettingsStore{db: db, defaults: defaults}
}

func (s *SettingsStore) Load(ctx context.Context) (*config.Settings, error) {
	var rows []models.SystemSetting
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, apperrors.Database("load settings", err)
	}

	settings := s.defaults
	for _, row := range rows {
		if row.Value == "" {
			continue
		}
		if err := apply(&settings, row.Key, row.Value); err != nil {
			return nil, err
		}
	}
	return &settings, nil
}

// Set upserts a single setting after validating key and value.
func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	var probe config.Settings
	if err := apply(&probe, key, value); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&models.SystemSetting{Key: key, Value: value}).Error
	if err != nil {
		return apperrors.Database("save setting", err)
	}
	return nil
}

func apply(settings *config.Settings, key, value string) error {
	switch key {
	case SettingAccessToken:
		settings.AccessToken = value
	case SettingAPIBaseURL:
		settings.APIBaseURL = value
	case SettingAPIVersion:
		settings.APIVersion = value
	case SettingPhoneNumberID:
		settings.PhoneNumberID = value
	case SettingVerifyToken:
		settings.VerifyToken = value
	case SettingEnabled, SettingAutoDownloadImages, SettingAutoDownloadAudio:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return apperrors.Validation(fmt.Sprintf("setting %s expects a boolean, got %q", key, value))
		}
		switch key {
		case SettingEnabled:
			settings.Enabled = b
		case SettingAutoDownloadImages:
			settings.AutoDownloadImages = b
		default:
			settings.AutoDownloadAudio = b
		}
	default:
		return apperrors.Validation(fmt.Sprintf("unknown setting %q", key))
	}
	return nil
}
