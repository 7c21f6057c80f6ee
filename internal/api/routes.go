package api

import (
	"waba-integration/internal/database"
	"waba-integration/internal/messaging"
	"waba-integration/internal/notify"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the message, contact, template, notification and
// settings API under r. printer may be nil; the settings routes are skipped
// when settings is nil.
func RegisterRoutes(r gin.IRouter, deps messaging.Deps, documents *database.DocumentStore, settings SettingWriter, printer notify.PrintRenderer) {
	messages := NewMessageHandler(deps)
	contacts := NewContactHandler(deps.Store, messages.Logger)
	dashboard := NewDashboardHandler(deps.Store, messages.Logger)
	notifications := NewNotificationHandler(notify.NewNotifier(deps, printer), deps.Store, documents, messages.Logger)

	r.POST("/messages", messages.CreateMessage)
	r.GET("/messages", messages.GetMessages)
	r.GET("/messages/:id", messages.GetMessage)
	r.POST("/messages/:id/attachment", messages.AttachFile)
	r.POST("/messages/:id/send", messages.Send)
	r.POST("/messages/:id/upload", messages.Upload)
	r.POST("/messages/:id/download", messages.Download)
	r.POST("/messages/:id/mark-seen", messages.MarkAsSeen)

	r.GET("/contacts", contacts.GetContacts)
	r.GET("/contacts/:waId", contacts.GetContact)

	r.GET("/dashboard/stats", dashboard.GetStats)

	r.GET("/templates", notifications.GetTemplates)
	r.POST("/templates", notifications.SaveTemplate)
	r.POST("/notifications", notifications.SendNotification)

	if settings != nil {
		handler := NewSettingsHandler(deps.Settings, settings, messages.Logger)
		r.GET("/settings", handler.GetSettings)
		r.PUT("/settings", handler.UpdateSetting)
	}
}
