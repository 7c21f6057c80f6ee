package app

import (
	"context"
	"strings"
	"testing"

	"waba-integration/internal/config"
	"waba-integration/internal/credentials"
	"waba-integration/internal/database"
	"waba-integration/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, secret string) *config.Config {
	return &config.Config{
		LogLevel:         "error",
		DBDriver:         "memory",
		MediaDir:         t.TempDir(),
		HTTPTimeout:      config.DefaultHTTPTimeout,
		EncryptionSecret: secret,
		Settings:         config.Settings{Enabled: true, PhoneNumberID: "PNID"},
	}
}

func TestSetSetting_EncryptsAccessToken(t *testing.T) {
	a, err := New(testConfig(t, "0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	ctx := context.Background()

	require.NoError(t, a.SetSetting(ctx, database.SettingAccessToken, "EAAG-secret"))
	require.NoError(t, a.SetSetting(ctx, database.SettingVerifyToken, "verify-me"))

	var row models.SystemSetting
	require.NoError(t, a.DB.First(&row, "key = ?", database.SettingAccessToken).Error)
	assert.True(t, strings.HasPrefix(row.Value, credentials.EncryptedPrefix))
	assert.NotContains(t, row.Value, "EAAG-secret")

	require.NoError(t, a.DB.First(&row, "key = ?", database.SettingVerifyToken).Error)
	assert.Equal(t, "verify-me", row.Value)

	creds, err := credentials.NewProvider(a.Deps.Settings, a.Deps.Encryptor).Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, "EAAG-secret", creds.AccessToken)
	assert.Equal(t, "PNID", creds.PhoneNumberID)
}

func TestNew_RejectsShortSecret(t *testing.T) {
	_, err := New(testConfig(t, "short"))
	assert.Error(t, err)
}
