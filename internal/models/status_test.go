package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseProviderStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"sent", StatusSent, true},
		{"delivered", StatusDelivered, true},
		{"READ", StatusRead, true},
		{"failed", StatusFailed, true},
		{"deleted", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseProviderStatus(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanAdvance_Outgoing(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusDraft, StatusQueued, true},
		{StatusQueued, StatusSent, true},
		{StatusSent, StatusDelivered, true},
		{StatusDelivered, StatusRead, true},
		{StatusSent, StatusRead, true},
		{StatusDelivered, StatusSent, false},
		{StatusRead, StatusDelivered, false},
		{StatusSent, StatusSent, false},
		{StatusSent, StatusFailed, true},
		{StatusDelivered, StatusFailed, false},
		{StatusFailed, StatusRead, false},
		{StatusSent, StatusReceived, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanAdvance(DirectionOutgoing, tt.from, tt.to))
		})
	}
}

func TestCanAdvance_Incoming(t *testing.T) {
	assert.True(t, CanAdvance(DirectionIncoming, StatusReceived, StatusMarkedAsSeen))
	assert.False(t, CanAdvance(DirectionIncoming, StatusMarkedAsSeen, StatusReceived))
	assert.False(t, CanAdvance(DirectionIncoming, StatusReceived, StatusDelivered))
}

func TestParseMessageType(t *testing.T) {
	got, ok := ParseMessageType("document")
	assert.True(t, ok)
	assert.Equal(t, TypeDocument, got)
	assert.Equal(t, "document", got.Wire())
	assert.True(t, got.HasMedia())

	got, ok = ParseMessageType("reaction")
	assert.False(t, ok)
	assert.Equal(t, MessageType("Reaction"), got)

	assert.False(t, TypeTemplate.HasMedia())
}

func TestSyncImagePreview(t *testing.T) {
	img := &Message{MessageType: TypeImage, MediaFile: "/files/a.jpg"}
	img.SyncImagePreview()
	assert.Equal(t, "/files/a.jpg", img.MediaImage)

	doc := &Message{MessageType: TypeDocument, MediaImage: "/files/b.png"}
	doc.SyncImagePreview()
	assert.Equal(t, "/files/b.png", doc.MediaFile)
}
