package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// EncryptedPrefix marks a stored secret as ciphertext.
	EncryptedPrefix = "enc:"

	keySize          = 32
	nonceSize        = 12
	pbkdf2Iterations = 100000
	encryptionSalt   = "waba-integration-settings-v1"
	minSecretLength  = 32
)

// Encryptor protects secrets stored in the settings table. A zero-value
// Encryptor (no secret configured) passes plaintext through unchanged.
type Encryptor struct {
	gcm cipher.AEAD
}

// NewEncryptor derives an AES-256-GCM key from secret. An empty secret
// disables encryption.
func NewEncryptor(secret string) (*Encryptor, error) {
	if secret == "" {
		return &Encryptor{}, nil
	}
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("encryption secret must be at least %d characters long", minSecretLength)
	}

	key := pbkdf2.Key([]byte(secret), []byte(encryptionSalt), pbkdf2Iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Encryptor{gcm: gcm}, nil
}

func (e *Encryptor) Enabled() bool {
	return e != nil && e.gcm != nil
}

func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" || !e.Enabled() {
		return plaintext, nil
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := e.gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(append(nonce, sealed...)), nil
}

// Decrypt returns values without EncryptedPrefix unchanged, so tokens coming
// from the environment need no special handling.
func (e *Encryptor) Decrypt(value string) (string, error) {
	if !strings.HasPrefix(value, EncryptedPrefix) {
		return value, nil
	}
	if !e.Enabled() {
		return "", fmt.Errorf("value is encrypted but no encryption secret is configured")
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, EncryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	plaintext, err := e.gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}
