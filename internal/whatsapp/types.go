package whatsapp

import "encoding/json"

// --- Message Structures ---

type GenericMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type,omitempty"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *TextObj     `json:"text,omitempty"`
	Image            *MediaObj    `json:"image,omitempty"`
	Video            *MediaObj    `json:"video,omitempty"`
	Audio            *MediaObj    `json:"audio,omitempty"`
	Document         *MediaObj    `json:"document,omitempty"`
	Sticker          *MediaObj    `json:"sticker,omitempty"`
	Template         *TemplateObj `json:"template,omitempty"`
}

type TextObj struct {
	PreviewUrl bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type MediaObj struct {
	ID       string `json:"id,omitempty"`
	Link     string `json:"link,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"` // For documents
}

type TemplateObj struct {
	Name       string         `json:"name"`
	Language   LanguageObj    `json:"language"`
	// Components are sent as rendered; each element is one JSON object.
	Components []json.RawMessage `json:"components,omitempty"`
}

type LanguageObj struct {
	Code string `json:"code"`
}

// ReadReceipt marks an inbound message as read.
type ReadReceipt struct {
	MessagingProduct string `json:"messaging_product"`
	Status           string `json:"status"`
	MessageID        string `json:"message_id"`
}

// --- Response Structures ---

type SendResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type MediaResponse struct {
	ID string `json:"id"`
}

type MediaURLResponse struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256"`
	FileSize int64  `json:"file_size"`
	ID       string `json:"id"`
}

type errorEnvelope struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}
