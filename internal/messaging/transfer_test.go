package messaging

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	apperrors "waba-integration/internal/errors"
	"waba-integration/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")

type denyAll struct{}

func (denyAll) Authorize(ctx context.Context, p Principal, action string, msg *models.Message) error {
	return apperrors.PermissionDenied(p.Name + " may not " + action)
}

func uploadHandler(t *testing.T, wantMime, wantFilename, mediaID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v19.0/PNID/media", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "whatsapp", r.FormValue("messaging_product"))
		assert.Equal(t, wantMime, r.FormValue("type"))

		file, header, err := r.FormFile("file")
		if assert.NoError(t, err) {
			defer file.Close()
			assert.Equal(t, wantFilename, header.Filename)
			content, _ := io.ReadAll(file)
			assert.Equal(t, pdfBytes, content)
		}
		respond(`{"id":"` + mediaID + `"}`)(w, r)
	}
}

func TestUpload_RequiresMediaFile(t *testing.T) {
	f := newFixture(t, unreachable(t))

	msg := f.createDraft(t, models.Message{To: "911234567890", MessageType: models.TypeDocument})

	err := f.transfer.Upload(context.Background(), msg)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation))
	assert.Zero(t, f.networkCalls())
}

func TestUpload_InfersMimeTypeAndStoresReference(t *testing.T) {
	f := newFixture(t, uploadHandler(t, "application/pdf", "invoice.pdf", "media123"))
	ctx := context.Background()

	fileURL, err := f.files.Save(ctx, "invoice.pdf", pdfBytes)
	require.NoError(t, err)
	msg := f.createDraft(t, models.Message{To: "911234567890", MessageType: models.TypeDocument, MediaFile: fileURL})

	require.NoError(t, f.transfer.Upload(ctx, msg))

	stored := f.reload(t, msg.ID)
	assert.Equal(t, "media123", stored.MediaID)
	assert.Equal(t, "application/pdf", stored.MediaMimeType)
	assert.True(t, stored.MediaUploaded)
	assert.Equal(t, "media123", msg.MediaID)
}

func TestUpload_ThenSend(t *testing.T) {
	var sendBody string
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v19.0/PNID/media":
			uploadHandler(t, "application/pdf", "quote.pdf", "media123")(w, r)
		case "/v19.0/PNID/messages":
			b, _ := io.ReadAll(r.Body)
			sendBody = string(b)
			respond(`{"messages":[{"id":"wamid.DOC"}]}`)(w, r)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	ctx := context.Background()

	fileURL, err := f.files.Save(ctx, "quote.pdf", pdfBytes)
	require.NoError(t, err)
	msg := f.createDraft(t, models.Message{
		To:            "911234567890",
		MessageType:   models.TypeDocument,
		MediaFile:     fileURL,
		MediaFilename: "quote.pdf",
	})

	_, err = f.dispatcher.Send(ctx, msg)
	require.True(t, apperrors.Is(err, apperrors.ErrCodeMediaNotUploaded))
	assert.Zero(t, f.networkCalls())

	require.NoError(t, f.transfer.Upload(ctx, msg))
	assert.Equal(t, "media123", f.reload(t, msg.ID).MediaID)

	_, err = f.dispatcher.Send(ctx, msg)
	require.NoError(t, err)
	assert.Contains(t, sendBody, `"id":"media123"`)

	stored := f.reload(t, msg.ID)
	assert.Equal(t, models.StatusSent, stored.Status)
	assert.Equal(t, "wamid.DOC", stored.ProviderID)
}

func TestUpload_ProviderRejected(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Param file must be a file with one of the following types"}}`))
	})
	ctx := context.Background()

	fileURL, err := f.files.Save(ctx, "invoice.pdf", pdfBytes)
	require.NoError(t, err)
	msg := f.createDraft(t, models.Message{To: "911234567890", MessageType: models.TypeDocument, MediaFile: fileURL})

	err = f.transfer.Upload(ctx, msg)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeProviderRejected))
	assert.False(t, f.reload(t, msg.ID).MediaUploaded)
}

func mediaServer(t *testing.T, content []byte, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/v19.0/media123":
			respond(`{"url":"http://` + r.Host + `/blob/media123","mime_type":"image/jpeg","id":"media123"}`)(w, r)
		case "/blob/media123":
			w.Header().Set("Content-Type", contentType)
			_, _ = w.Write(content)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"Unsupported get request"}}`))
		}
	}
}

func createIncoming(t *testing.T, f *fixture, msg models.Message) *models.Message {
	t.Helper()
	msg.Direction = models.DirectionIncoming
	msg.Status = models.StatusReceived
	msg.From = "919999999999"
	_, err := f.store.CreateIncoming(context.Background(), &msg)
	require.NoError(t, err)
	return &msg
}

func TestDownload_StoresFileAndMirrorsImagePreview(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	f := newFixture(t, mediaServer(t, jpeg, "image/jpeg"))
	ctx := context.Background()

	msg := createIncoming(t, f, models.Message{ProviderID: "wamid.IMG", MessageType: models.TypeImage, MediaID: "media123"})

	require.NoError(t, f.transfer.Download(ctx, msg, Principal{Name: "operator"}))

	stored := f.reload(t, msg.ID)
	assert.True(t, strings.HasPrefix(stored.MediaFile, "/files/"))
	assert.True(t, strings.HasSuffix(stored.MediaFile, "_attachment_.jpeg"), stored.MediaFile)
	assert.Equal(t, stored.MediaFile, stored.MediaImage)
	assert.Equal(t, "image/jpeg", stored.MediaMimeType)

	rc, err := f.files.Open(ctx, stored.MediaFile)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, jpeg, got)
}

func TestDownload_AgainReplacesStoredImage(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	f := newFixture(t, mediaServer(t, jpeg, "image/jpeg"))
	ctx := context.Background()

	msg := createIncoming(t, f, models.Message{ProviderID: "wamid.IMG2", MessageType: models.TypeImage, MediaID: "media123"})

	require.NoError(t, f.transfer.Download(ctx, msg, SystemPrincipal))
	first := f.reload(t, msg.ID).MediaFile

	require.NoError(t, f.transfer.Download(ctx, msg, SystemPrincipal))
	second := f.reload(t, msg.ID)

	assert.NotEqual(t, first, second.MediaFile)
	assert.Equal(t, second.MediaFile, second.MediaImage)
	assert.Equal(t, second.MediaFile, msg.MediaFile)
}

func TestDownload_FailedSaveLeavesMessageUntouched(t *testing.T) {
	f := newFixture(t, mediaServer(t, pdfBytes, "application/pdf"))

	msg := &models.Message{ID: 999, Direction: models.DirectionIncoming, MessageType: models.TypeDocument, MediaID: "media123"}

	err := f.transfer.Download(context.Background(), msg, SystemPrincipal)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound), "got %v", err)
	assert.Empty(t, msg.MediaMimeType)
	assert.Empty(t, msg.MediaFile)
}

func TestDownload_KeepsStoredFilename(t *testing.T) {
	f := newFixture(t, mediaServer(t, pdfBytes, "application/pdf"))

	msg := createIncoming(t, f, models.Message{
		ProviderID:    "wamid.DOC",
		MessageType:   models.TypeDocument,
		MediaID:       "media123",
		MediaFilename: "statement.pdf",
	})

	require.NoError(t, f.transfer.Download(context.Background(), msg, SystemPrincipal))

	stored := f.reload(t, msg.ID)
	assert.True(t, strings.HasSuffix(stored.MediaFile, "_statement.pdf"), stored.MediaFile)
	assert.Empty(t, stored.MediaImage)
}

func TestDownload_MediaLookupFailure(t *testing.T) {
	f := newFixture(t, mediaServer(t, nil, ""))

	msg := createIncoming(t, f, models.Message{ProviderID: "wamid.X", MessageType: models.TypeAudio, MediaID: "expired"})

	err := f.transfer.Download(context.Background(), msg, SystemPrincipal)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeMediaLookup))
	assert.Empty(t, f.reload(t, msg.ID).MediaFile)
}

func TestDownload_RequiresMediaID(t *testing.T) {
	f := newFixture(t, unreachable(t))

	msg := createIncoming(t, f, models.Message{ProviderID: "wamid.T", MessageType: models.TypeText})

	err := f.transfer.Download(context.Background(), msg, SystemPrincipal)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation))
	assert.Zero(t, f.networkCalls())
}

func TestDownload_AuthorizerSkippedForSystem(t *testing.T) {
	f := newFixture(t, mediaServer(t, []byte("ogg"), "audio/ogg; codecs=opus"))
	f.transfer.authorizer = denyAll{}
	ctx := context.Background()

	msg := createIncoming(t, f, models.Message{ProviderID: "wamid.AUD", MessageType: models.TypeAudio, MediaID: "media123"})

	err := f.transfer.Download(ctx, msg, Principal{Name: "guest"})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodePermissionDenied))
	assert.Zero(t, f.networkCalls())

	require.NoError(t, f.transfer.Download(ctx, msg, SystemPrincipal))
	stored := f.reload(t, msg.ID)
	assert.True(t, strings.HasSuffix(stored.MediaFile, "_attachment_.ogg"), stored.MediaFile)
	assert.Equal(t, "audio/ogg", stored.MediaMimeType)
}

func TestDownloadFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		want        string
	}{
		{"stored filename wins", "report.pdf", "application/pdf", "report.pdf"},
		{"from content type", "", "image/png", "attachment_.png"},
		{"parameters stripped", "", "audio/ogg; codecs=opus", "attachment_.ogg"},
		{"unknown content type", "", "", "attachment_.bin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := downloadFilename(&models.Message{MediaFilename: tt.filename}, tt.contentType)
			assert.Equal(t, tt.want, got)
		})
	}
}
