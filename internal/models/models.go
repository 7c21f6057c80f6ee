package models

import (
	"time"
)

type Direction string

const (
	DirectionIncoming Direction = "Incoming"
	DirectionOutgoing Direction = "Outgoing"
)

// Message represents one inbound or outbound WhatsApp message
type Message struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// ProviderID is the provider message id (wamid...), unique once assigned.
	ProviderID  string      `gorm:"type:varchar(255);index:idx_messages_provider_id,unique,where:provider_id <> ''" json:"provider_id"`
	Direction   Direction   `gorm:"type:varchar(20);not null" json:"direction"`
	Status      Status      `gorm:"type:varchar(20);not null" json:"status"`
	MessageType MessageType `gorm:"type:varchar(20);not null" json:"message_type"`
	To          string      `gorm:"column:recipient;type:varchar(50);index" json:"to"`
	From        string      `gorm:"column:sender;type:varchar(50);index" json:"from"`
	MessageBody string      `gorm:"type:text" json:"message_body"`

	MediaID       string `gorm:"type:varchar(255)" json:"media_id"`
	MediaMimeType string `gorm:"type:varchar(100)" json:"media_mime_type"`
	MediaFilename string `gorm:"type:varchar(255)" json:"media_filename"`
	MediaCaption  string `gorm:"type:text" json:"media_caption"`
	MediaHash     string `gorm:"type:varchar(255)" json:"media_hash"`
	MediaFile     string `gorm:"type:text" json:"media_file"`
	MediaImage    string `gorm:"type:text" json:"media_image"` // preview for images
	MediaUploaded bool   `gorm:"default:false" json:"media_uploaded"`

	MessageTemplate string `gorm:"type:varchar(255)" json:"message_template"`

	// Business record that triggered an outgoing message
	DocumentType string `gorm:"type:varchar(140)" json:"document_type"`
	DocumentName string `gorm:"type:varchar(140)" json:"document_name"`
	AttachPrint  bool   `gorm:"default:false" json:"attach_print"`
	PrintFormat  string `gorm:"type:varchar(140)" json:"print_format"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Message) TableName() string {
	return "messages"
}

// Counterpart returns the WhatsApp id on the other side of the conversation.
func (m *Message) Counterpart() string {
	if m.Direction == DirectionIncoming {
		return m.From
	}
	return m.To
}

// SyncImagePreview keeps media_file and media_image consistent: an explicit
// preview wins, otherwise an image's file doubles as its preview.
func (m *Message) SyncImagePreview() {
	if m.MediaImage != "" {
		m.MediaFile = m.MediaImage
	}
	if m.MediaFile != "" && m.MessageType == TypeImage {
		m.MediaImage = m.MediaFile
	}
}

// Contact represents a WhatsApp counterpart
type Contact struct {
	WaID        string    `gorm:"primaryKey;type:varchar(50)" json:"wa_id"` // WhatsApp ID (phone number)
	DisplayName string    `gorm:"type:varchar(255)" json:"display_name"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Contact) TableName() string {
	return "contacts"
}

// Template represents a provider-approved message template. Components holds
// template text that renders to a JSON array of components, sent as is. The
// text sees .doc (the linked document), .message (the message under its JSON
// names, e.g. .message.document_name) and .current_date.
type Template struct {
	Name         string    `gorm:"primaryKey;type:varchar(255)" json:"name"`
	LanguageCode string    `gorm:"type:varchar(20);not null" json:"language_code"`
	Category     string    `gorm:"type:varchar(100)" json:"category"`
	Components   string    `gorm:"type:text" json:"components"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Template) TableName() string {
	return "templates"
}

// WebhookLog is the append-only audit record of a webhook delivery
type WebhookLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Payload   string    `gorm:"type:text;not null" json:"payload"`
	Error     string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (WebhookLog) TableName() string {
	return "webhook_logs"
}

// Document is a snapshot of the business record a message refers to, as
// handed over by the application that triggered it. Data is a JSON object.
type Document struct {
	DocumentType string    `gorm:"primaryKey;type:varchar(140)" json:"document_type"`
	DocumentName string    `gorm:"primaryKey;type:varchar(140)" json:"document_name"`
	Data         string    `gorm:"type:text;not null" json:"data"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Document) TableName() string {
	return "documents"
}

// SystemSetting is one administrative key/value pair
type SystemSetting struct {
	Key       string    `gorm:"primaryKey;type:varchar(100)" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}
