package models

import "strings"

type MessageType string

const (
	TypeText     MessageType = "Text"
	TypeImage    MessageType = "Image"
	TypeAudio    MessageType = "Audio"
	TypeVideo    MessageType = "Video"
	TypeDocument MessageType = "Document"
	TypeSticker  MessageType = "Sticker"
	TypeTemplate MessageType = "Template"
)

var knownTypes = map[MessageType]bool{
	TypeText: true, TypeImage: true, TypeAudio: true, TypeVideo: true,
	TypeDocument: true, TypeSticker: true, TypeTemplate: true,
}

// ParseMessageType title-cases a provider type ("image" -> Image).
func ParseMessageType(s string) (MessageType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	t := MessageType(strings.ToUpper(s[:1]) + s[1:])
	return t, knownTypes[t]
}

// Wire is the lower-case type name used in provider payloads.
func (t MessageType) Wire() string {
	return strings.ToLower(string(t))
}

func (t MessageType) Valid() bool {
	return knownTypes[t]
}

// HasMedia reports whether the type carries a media payload.
func (t MessageType) HasMedia() bool {
	switch t {
	case TypeImage, TypeAudio, TypeVideo, TypeDocument, TypeSticker:
		return true
	}
	return false
}
