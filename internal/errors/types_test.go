package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "error without cause",
			err:      Validation("recipient is required"),
			expected: "VALIDATION: recipient is required",
		},
		{
			name:     "error with cause",
			err:      Database("insert", stderrors.New("disk full")),
			expected: "DATABASE: database insert failed: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestGetCode_ThroughWrapping(t *testing.T) {
	base := MediaNotUploaded("upload first")
	wrapped := fmt.Errorf("send message 7: %w", base)

	assert.Equal(t, ErrCodeMediaNotUploaded, GetCode(wrapped))
	assert.True(t, Is(wrapped, ErrCodeMediaNotUploaded))
	assert.False(t, Is(wrapped, ErrCodeValidation))
	assert.Equal(t, ErrCodeInternal, GetCode(stderrors.New("plain")))
	assert.False(t, Is(nil, ErrCodeInternal))
}

func TestProviderRejected_KeepsProviderMessage(t *testing.T) {
	cause := stderrors.New("status 400")
	err := ProviderRejected("(#131030) Recipient phone number not in allowed list", cause)

	assert.Equal(t, "(#131030) Recipient phone number not in allowed list", err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestAppError_WithContext(t *testing.T) {
	err := NotFound("message", 42)

	assert.Equal(t, "message", err.Context["resource"])
	assert.Equal(t, 42, err.Context["id"])
	assert.Same(t, err, err.WithContext("extra", true))
}

func TestLogger_LogErrorIncludesCodeAndContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("debug")
	logger.SetOutput(&buf)

	err := Authentication("verify token mismatch").WithContext("remote", "10.0.0.1")
	logger.LogError(err, "webhook verification failed", logrus.Fields{"path": "/webhook"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "webhook verification failed", entry["msg"])
	assert.Equal(t, "AUTHENTICATION", entry["error_code"])
	assert.Equal(t, "10.0.0.1", entry["remote"])
	assert.Equal(t, "/webhook", entry["path"])
	assert.Equal(t, "error", entry["level"])
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	logger := NewLogger("verbose")
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}
