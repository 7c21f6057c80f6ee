package messaging

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	apperrors "waba-integration/internal/errors"
	"waba-integration/internal/models"
	"waba-integration/internal/storage"
	"waba-integration/internal/whatsapp"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

// MediaClient is the media side of the provider.
type MediaClient interface {
	UploadMedia(ctx context.Context, content io.Reader, mimeType, filename string) (string, error)
	RetrieveMediaURL(ctx context.Context, mediaID string) (*whatsapp.MediaURLResponse, error)
	Download(ctx context.Context, url string) ([]byte, string, error)
}

// MediaTransfer moves attachment bytes between the file store and the
// provider. Concurrent calls on the same message are not serialized; the last
// write of the media fields wins.
type MediaTransfer struct {
	store      MessageStore
	client     MediaClient
	files      storage.FileStore
	authorizer Authorizer
	logger     *logrus.Logger
}

func NewMediaTransfer(store MessageStore, client MediaClient, files storage.FileStore, authorizer Authorizer, logger *logrus.Logger) *MediaTransfer {
	if authorizer == nil {
		authorizer = AllowAll{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MediaTransfer{
		store:      store,
		client:     client,
		files:      files,
		authorizer: authorizer,
		logger:     logger,
	}
}

// Upload sends the message's local file to the provider and stores the
// returned media id.
func (t *MediaTransfer) Upload(ctx context.Context, msg *models.Message) error {
	if msg.MediaFile == "" {
		return apperrors.Validation("please attach a media file before uploading").
			WithContext("message_id", msg.ID)
	}

	content, err := t.readFile(ctx, msg.MediaFile)
	if err != nil {
		return err
	}

	mimeType := msg.MediaMimeType
	if mimeType == "" {
		mimeType = baseMediaType(mimetype.Detect(content).String())
	}
	filename := msg.MediaFilename
	if filename == "" {
		filename = storage.OriginalName(msg.MediaFile)
	}

	mediaID, err := t.client.UploadMedia(ctx, bytes.NewReader(content), mimeType, filename)
	if err != nil {
		return providerError(err, "upload")
	}

	if err := t.store.SetMediaReference(ctx, msg.ID, mediaID, mimeType); err != nil {
		return err
	}
	msg.MediaID = mediaID
	msg.MediaMimeType = mimeType
	msg.MediaUploaded = true

	t.logger.WithFields(logrus.Fields{
		"message_id": msg.ID,
		"media_id":   mediaID,
		"mime_type":  mimeType,
	}).Info("Media uploaded")
	return nil
}

func (t *MediaTransfer) readFile(ctx context.Context, fileURL string) ([]byte, error) {
	rc, err := t.files.Open(ctx, fileURL)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "media file cannot be opened").
			WithContext("media_file", fileURL)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to read media file").
			WithContext("media_file", fileURL)
	}
	return content, nil
}

// Download fetches the provider-hosted media of msg into the file store,
// acting as the given principal.
func (t *MediaTransfer) Download(ctx context.Context, msg *models.Message, actingAs Principal) error {
	if !actingAs.System {
		if err := t.authorizer.Authorize(ctx, actingAs, ActionDownload, msg); err != nil {
			return err
		}
	}
	if msg.MediaID == "" {
		return apperrors.Validation("message has no media id to download").
			WithContext("message_id", msg.ID)
	}

	info, err := t.client.RetrieveMediaURL(ctx, msg.MediaID)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return apperrors.MediaLookup("failed to resolve media url", err).
			WithContext("media_id", msg.MediaID)
	}

	content, contentType, err := t.client.Download(ctx, info.URL)
	if err != nil {
		return providerError(err, "download")
	}

	if contentType == "" {
		contentType = info.MimeType
	}
	mimeType := msg.MediaMimeType
	if mimeType == "" {
		mimeType = baseMediaType(contentType)
	}

	fileURL, err := t.files.Save(ctx, downloadFilename(msg, contentType), content)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to store downloaded media").
			WithContext("message_id", msg.ID)
	}
	if err := t.store.SetMediaFile(ctx, msg, fileURL, mimeType); err != nil {
		return err
	}

	t.logger.WithFields(logrus.Fields{
		"message_id": msg.ID,
		"media_id":   msg.MediaID,
		"media_file": fileURL,
		"acting_as":  actingAs.Name,
	}).Info("Media downloaded")
	return nil
}

// downloadFilename prefers the stored filename and falls back to
// attachment_.<subtype> from the content type.
func downloadFilename(msg *models.Message, contentType string) string {
	if msg.MediaFilename != "" {
		return msg.MediaFilename
	}
	_, subtype, ok := strings.Cut(baseMediaType(contentType), "/")
	if !ok || subtype == "" {
		subtype = "bin"
	}
	return "attachment_." + subtype
}

// baseMediaType strips parameters: "text/plain; charset=utf-8" -> "text/plain".
func baseMediaType(contentType string) string {
	base, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(base)
}
