package messaging

import (
	"net/http"

	"waba-integration/internal/credentials"
	"waba-integration/internal/database"
	"waba-integration/internal/render"
	"waba-integration/internal/storage"
	"waba-integration/internal/whatsapp"

	"github.com/sirupsen/logrus"
)

// Deps are the long-lived collaborators shared by every session.
type Deps struct {
	Store      *database.Store
	Settings   credentials.SettingsSource
	Encryptor  *credentials.Encryptor
	HTTPClient *http.Client
	Files      storage.FileStore
	Renderer   render.Renderer
	Documents  render.DocumentLoader
	Authorizer Authorizer
	Logger     *logrus.Logger
}

// Session is one request's worth of outbound operations. Its dispatcher and
// media transfer share a credential provider, so the access token is read at
// most once per session.
type Session struct {
	Credentials *credentials.Provider
	Dispatcher  *Dispatcher
	Transfer    *MediaTransfer
}

func NewSession(deps Deps) *Session {
	provider := credentials.NewProvider(deps.Settings, deps.Encryptor)
	client := whatsapp.NewClient(provider, deps.HTTPClient)

	return &Session{
		Credentials: provider,
		Dispatcher:  NewDispatcher(deps.Store, client, deps.Renderer, deps.Documents, deps.Logger),
		Transfer:    NewMediaTransfer(deps.Store, client, deps.Files, deps.Authorizer, deps.Logger),
	}
}
