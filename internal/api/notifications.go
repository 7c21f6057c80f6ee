package api

import (
	"net/http"
	"strings"

	"waba-integration/internal/database"
	apperrors "waba-integration/internal/errors"
	"waba-integration/internal/models"
	"waba-integration/internal/notify"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	Notifier  *notify.Notifier
	Store     *database.Store
	Documents *database.DocumentStore
	Logger    *apperrors.Logger
}

func NewNotificationHandler(notifier *notify.Notifier, store *database.Store, documents *database.DocumentStore, logger *apperrors.Logger) *NotificationHandler {
	return &NotificationHandler{Notifier: notifier, Store: store, Documents: documents, Logger: logger}
}

// GetTemplates returns the locally known provider templates
func (h *NotificationHandler) GetTemplates(c *gin.Context) {
	templates, err := h.Store.ListTemplates(c.Request.Context())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

type SaveTemplateRequest struct {
	Name         string `json:"name" binding:"required"`
	LanguageCode string `json:"language_code" binding:"required"`
	Category     string `json:"category"`
	Components   string `json:"components"`
}

// SaveTemplate registers or replaces a provider-approved template
func (h *NotificationHandler) SaveTemplate(c *gin.Context) {
	var req SaveTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tmpl := &models.Template{
		Name:         strings.TrimSpace(req.Name),
		LanguageCode: req.LanguageCode,
		Category:     req.Category,
		Components:   req.Components,
	}
	if err := h.Store.SaveTemplate(c.Request.Context(), tmpl); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

type NotificationRequest struct {
	notify.Notification
	// Doc is a snapshot of the triggering document; it is stored and used
	// for rendering this and later messages about the same document.
	Doc map[string]interface{} `json:"doc"`
}

// SendNotification delivers one notification to all its recipients.
// Recipient failures are part of the report, not an error response.
func (h *NotificationHandler) SendNotification(c *gin.Context) {
	var req NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if req.Doc != nil {
		if err := h.Documents.Save(ctx, req.DocumentType, req.DocumentName, req.Doc); err != nil {
			writeError(c, h.Logger, err)
			return
		}
	}

	report, err := h.Notifier.Notify(ctx, req.Notification)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "Notification processed",
		"sent":    report.Sent,
		"failed":  len(report.Failures),
		"reasons": report.Failures,
	})
}
