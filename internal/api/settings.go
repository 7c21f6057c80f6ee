package api

import (
	"context"
	"net/http"

	"waba-integration/internal/credentials"
	"waba-integration/internal/database"
	apperrors "waba-integration/internal/errors"

	"github.com/gin-gonic/gin"
)

// SettingWriter persists one administrative setting.
type SettingWriter interface {
	SetSetting(ctx context.Context, key, value string) error
}

type SettingsHandler struct {
	Source credentials.SettingsSource
	Writer SettingWriter
	Logger *apperrors.Logger
}

func NewSettingsHandler(source credentials.SettingsSource, writer SettingWriter, logger *apperrors.Logger) *SettingsHandler {
	return &SettingsHandler{Source: source, Writer: writer, Logger: logger}
}

// GetSettings returns the effective settings. The access token is never
// echoed, only whether it is set.
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	s, err := h.Source.Load(c.Request.Context())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		database.SettingEnabled:            s.Enabled,
		database.SettingAccessToken:        s.AccessToken != "",
		database.SettingAPIBaseURL:         s.APIBaseURL,
		database.SettingAPIVersion:         s.APIVersion,
		database.SettingPhoneNumberID:      s.PhoneNumberID,
		database.SettingVerifyToken:        s.VerifyToken != "",
		database.SettingAutoDownloadImages: s.AutoDownloadImages,
		database.SettingAutoDownloadAudio:  s.AutoDownloadAudio,
	})
}

// UpdateSetting stores one setting. New values apply from the next request;
// no restart is needed.
func (h *SettingsHandler) UpdateSetting(c *gin.Context) {
	var req struct {
		Key   string `json:"key" binding:"required"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Writer.SetSetting(c.Request.Context(), req.Key, req.Value); err != nil {
		writeError(c, h.Logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Setting updated"})
}
