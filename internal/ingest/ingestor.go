// Package ingest turns webhook deliveries into message state store
// mutations. It never decides how a failure is answered over HTTP: Ingest
// reports what happened and returns the per-item errors to the caller.
package ingest

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"waba-integration/internal/config"
	apperrors "waba-integration/internal/errors"
	"waba-integration/internal/messaging"
	"waba-integration/internal/models"

	"github.com/sirupsen/logrus"
)

// Store is the part of the message state store used by ingestion.
type Store interface {
	AdvanceStatus(ctx context.Context, providerID string, status models.Status) (bool, error)
	EnsureContact(ctx context.Context, waID, displayName string) (bool, error)
	CreateIncoming(ctx context.Context, msg *models.Message) (bool, error)
}

type SettingsLoader interface {
	Load(ctx context.Context) (*config.Settings, error)
}

// Downloader fetches provider-hosted media for a stored message.
type Downloader interface {
	Download(ctx context.Context, msg *models.Message, actingAs messaging.Principal) error
}

// Outcome summarizes one delivery.
type Outcome struct {
	StatusesApplied   int `json:"statuses_applied"`
	StatusesIgnored   int `json:"statuses_ignored"`
	MessagesCreated   int `json:"messages_created"`
	MessagesDuplicate int `json:"messages_duplicate"`
	MessagesSkipped   int `json:"messages_skipped"`
	ContactsCreated   int `json:"contacts_created"`
	MediaDownloaded   int `json:"media_downloaded"`
	DownloadsFailed   int `json:"downloads_failed"`
}

type Ingestor struct {
	store      Store
	settings   SettingsLoader
	downloader Downloader
	logger     *logrus.Logger

	loaded *config.Settings
}

// New returns an Ingestor for one delivery. downloader may be nil, which
// disables automatic media download.
func New(store Store, settings SettingsLoader, downloader Downloader, logger *logrus.Logger) *Ingestor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Ingestor{store: store, settings: settings, downloader: downloader, logger: logger}
}

// Ingest applies every status update and inbound message of p. Processing
// continues past individual failures; they are joined into the returned error.
func (i *Ingestor) Ingest(ctx context.Context, p *Payload) (Outcome, error) {
	var out Outcome
	var errs []error

	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			value := change.Value

			for _, st := range value.Statuses {
				if err := i.applyStatus(ctx, st, &out); err != nil {
					errs = append(errs, err)
				}
			}

			names := make(map[string]string, len(value.Contacts))
			for _, c := range value.Contacts {
				names[c.WaID] = c.Profile.Name
			}
			for _, m := range value.Messages {
				if err := i.ingestMessage(ctx, m, names[m.From], &out); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}

	return out, errors.Join(errs...)
}

// applyStatus moves a known message forward. Unknown provider ids and stale
// or unrecognized statuses are ignored.
func (i *Ingestor) applyStatus(ctx context.Context, st StatusUpdate, out *Outcome) error {
	status, ok := models.ParseProviderStatus(st.Status)
	if !ok || st.ID == "" {
		out.StatusesIgnored++
		return nil
	}

	applied, err := i.store.AdvanceStatus(ctx, st.ID, status)
	if err != nil {
		return fmt.Errorf("status %s for %s: %w", st.Status, st.ID, err)
	}
	if applied {
		out.StatusesApplied++
	} else {
		out.StatusesIgnored++
	}
	return nil
}

func (i *Ingestor) ingestMessage(ctx context.Context, m InboundMessage, displayName string, out *Outcome) error {
	if m.ID == "" || m.From == "" {
		return apperrors.Validation("inbound message without id or sender").
			WithContext("provider_id", m.ID)
	}

	msgType, ok := models.ParseMessageType(m.Type)
	if !ok || msgType == models.TypeTemplate {
		out.MessagesSkipped++
		i.logger.WithFields(logrus.Fields{
			"provider_id": m.ID,
			"type":        m.Type,
		}).Debug("Skipping unsupported inbound message type")
		return nil
	}

	created, err := i.store.EnsureContact(ctx, m.From, displayName)
	if err != nil {
		return fmt.Errorf("contact for %s: %w", m.ID, err)
	}
	if created {
		out.ContactsCreated++
	}

	msg := &models.Message{
		ProviderID:  m.ID,
		Direction:   models.DirectionIncoming,
		Status:      models.StatusReceived,
		MessageType: msgType,
		From:        m.From,
	}
	if m.Text != nil {
		msg.MessageBody = m.Text.Body
	}
	if media := m.media(); media != nil {
		msg.MediaID = media.ID
		msg.MediaMimeType = media.MimeType
		msg.MediaHash = media.SHA256
		if msgType == models.TypeDocument {
			msg.MediaFilename = media.Filename
			msg.MediaCaption = media.Caption
		}
	}

	created, err = i.store.CreateIncoming(ctx, msg)
	if err != nil {
		return fmt.Errorf("message %s: %w", m.ID, err)
	}
	if !created {
		out.MessagesDuplicate++
		return nil
	}
	out.MessagesCreated++

	i.autoDownload(ctx, msg, out)
	return nil
}

// autoDownload never fails ingestion; failures are counted and logged.
func (i *Ingestor) autoDownload(ctx context.Context, msg *models.Message, out *Outcome) {
	if i.downloader == nil || msg.MediaID == "" {
		return
	}
	if msg.MessageType != models.TypeImage && msg.MessageType != models.TypeAudio {
		return
	}

	settings, err := i.loadSettings(ctx)
	if err != nil {
		i.logger.WithError(err).Warn("Failed to load settings; skipping media download")
		return
	}
	if msg.MessageType == models.TypeImage && !settings.AutoDownloadImages {
		return
	}
	if msg.MessageType == models.TypeAudio && !settings.AutoDownloadAudio {
		return
	}

	if err := i.downloader.Download(ctx, msg, messaging.SystemPrincipal); err != nil {
		out.DownloadsFailed++
		apperrors.WrapLogger(i.logger).LogWarn(err, "Automatic media download failed", logrus.Fields{
			"message_id":  msg.ID,
			"provider_id": msg.ProviderID,
			"media_id":    msg.MediaID,
		})
		return
	}
	out.MediaDownloaded++
}

func (i *Ingestor) loadSettings(ctx context.Context) (*config.Settings, error) {
	if i.loaded != nil {
		return i.loaded, nil
	}
	settings, err := i.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	i.loaded = settings
	return settings, nil
}

// Verify answers the webhook verification handshake: the challenge is echoed
// only when the presented token matches the configured one.
func Verify(configured, presented, challenge string) (string, error) {
	if configured == "" || subtle.ConstantTimeCompare([]byte(configured), []byte(presented)) != 1 {
		return "", apperrors.Authentication("webhook verification token mismatch")
	}
	return challenge, nil
}
