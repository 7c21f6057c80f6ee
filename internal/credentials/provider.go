package credentials

import (
	"context"
	"fmt"
	"sync"

	"waba-integration/internal/config"
	apperrors "waba-integration/internal/errors"
)

// Credentials is what every provider call needs.
type Credentials struct {
	AccessToken   string
	APIBase       string // versioned, e.g. https://graph.facebook.com/v19.0
	PhoneNumberID string
}

// SettingsSource loads the administrative settings.
type SettingsSource interface {
	Load(ctx context.Context) (*config.Settings, error)
}

// Provider resolves credentials once and serves the cached value for the rest
// of its lifetime. Create one per request/session; Invalidate is the only way
// to force a reload.
type Provider struct {
	source    SettingsSource
	encryptor *Encryptor

	mu     sync.Mutex
	cached *Credentials
}

func NewProvider(source SettingsSource, encryptor *Encryptor) *Provider {
	return &Provider{source: source, encryptor: encryptor}
}

func (p *Provider) Credentials(ctx context.Context) (Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil {
		return *p.cached, nil
	}

	settings, err := p.source.Load(ctx)
	if err != nil {
		return Credentials{}, fmt.Errorf("load settings: %w", err)
	}
	if !settings.Enabled {
		return Credentials{}, apperrors.Validation("WhatsApp Business API integration is not enabled")
	}

	token, err := p.encryptor.Decrypt(settings.AccessToken)
	if err != nil {
		return Credentials{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to decrypt access token")
	}
	if token == "" {
		return Credentials{}, apperrors.Validation("access token is not configured")
	}
	if settings.PhoneNumberID == "" {
		return Credentials{}, apperrors.Validation("phone number id is not configured")
	}

	p.cached = &Credentials{
		AccessToken:   token,
		APIBase:       settings.APIBase(),
		PhoneNumberID: settings.PhoneNumberID,
	}
	return *p.cached, nil
}

// Invalidate drops the cached credentials.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}
