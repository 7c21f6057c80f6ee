package messaging

import (
	"context"

	"waba-integration/internal/models"
	"waba-integration/internal/whatsapp"
)

// MessageStore is the part of the message state store used by outbound
// operations.
type MessageStore interface {
	GetTemplate(ctx context.Context, name string) (*models.Template, error)
	EnsureContact(ctx context.Context, waID, displayName string) (bool, error)
	MarkSent(ctx context.Context, id uint, providerID string) error
	SetStatus(ctx context.Context, id uint, status models.Status) error
	SetMediaReference(ctx context.Context, id uint, mediaID, mimeType string) error
	SetMediaFile(ctx context.Context, msg *models.Message, fileURL, mimeType string) error
}

// Sender is the messages endpoint of the provider.
type Sender interface {
	SendMessage(ctx context.Context, msg whatsapp.GenericMessage) (*whatsapp.SendResponse, []byte, error)
	MarkAsRead(ctx context.Context, providerMessageID string) error
}
