package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"waba-integration/internal/config"
	"waba-integration/internal/credentials"
	"waba-integration/internal/database"
	apperrors "waba-integration/internal/errors"
	"waba-integration/internal/messaging"
	"waba-integration/internal/models"
	"waba-integration/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSettings struct {
	settings config.Settings
}

func (s staticSettings) Load(ctx context.Context) (*config.Settings, error) {
	settings := s.settings
	return &settings, nil
}

// recordingWriter accepts only the phone number id.
type recordingWriter struct {
	values map[string]string
}

func (w *recordingWriter) SetSetting(ctx context.Context, key, value string) error {
	if key != database.SettingPhoneNumberID {
		return apperrors.Validation("unknown setting " + key)
	}
	w.values[key] = value
	return nil
}

type testEnv struct {
	router   *gin.Engine
	store    *database.Store
	settings *recordingWriter
}

func newTestEnv(t *testing.T, provider http.HandlerFunc) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	server := httptest.NewServer(provider)
	t.Cleanup(server.Close)

	db, err := database.OpenMemory()
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := database.NewStore(db)
	documents := database.NewDocumentStore(db)
	deps := messaging.Deps{
		Store: store,
		Settings: staticSettings{settings: config.Settings{
			Enabled:       true,
			AccessToken:   "test-token",
			APIBaseURL:    server.URL,
			APIVersion:    "v19.0",
			PhoneNumberID: "PNID",
		}},
		Encryptor:  &credentials.Encryptor{},
		HTTPClient: server.Client(),
		Files:      files,
		Documents:  documents,
		Logger:     logger,
	}

	writer := &recordingWriter{values: map[string]string{}}
	r := gin.New()
	RegisterRoutes(r.Group("/api"), deps, documents, writer, nil)
	return &testEnv{router: r, store: store, settings: writer}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), into))
}

func (e *testEnv) createMessage(t *testing.T, body map[string]interface{}) models.Message {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/messages", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var msg models.Message
	decode(t, w, &msg)
	return msg
}

func msgPath(msg models.Message, action string) string {
	p := "/api/messages/" + strconv.FormatUint(uint64(msg.ID), 10)
	if action != "" {
		p += "/" + action
	}
	return p
}

func providerStub(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v19.0/PNID/messages":
			_, _ = w.Write([]byte(`{"messaging_product":"whatsapp","messages":[{"id":"wamid.X"}]}`))
		case "/v19.0/PNID/media":
			_, _ = w.Write([]byte(`{"id":"media123"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"Unknown path"}}`))
		}
	}
}

func TestSendTextMessage(t *testing.T) {
	env := newTestEnv(t, providerStub(t))

	msg := env.createMessage(t, map[string]interface{}{
		"to":           "911234567890",
		"message_type": "Text",
		"message_body": "hi",
	})
	assert.Equal(t, models.StatusDraft, msg.Status)
	assert.Equal(t, models.DirectionOutgoing, msg.Direction)

	w := env.do(t, http.MethodPost, msgPath(msg, "send"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Message  models.Message  `json:"message"`
		Response json.RawMessage `json:"response"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "wamid.X", resp.Message.ProviderID)
	assert.Contains(t, string(resp.Response), "wamid.X")

	w = env.do(t, http.MethodGet, msgPath(msg, ""), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stored models.Message
	decode(t, w, &stored)
	assert.Equal(t, models.StatusSent, stored.Status)
	assert.Equal(t, "wamid.X", stored.ProviderID)

	w = env.do(t, http.MethodGet, "/api/contacts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var contacts []models.Contact
	decode(t, w, &contacts)
	require.Len(t, contacts, 1)
	assert.Equal(t, "911234567890", contacts[0].WaID)
}

func TestSendErrorsMapToStatusCodes(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	})

	media := env.createMessage(t, map[string]interface{}{"to": "911234567890", "message_type": "Image"})
	w := env.do(t, http.MethodPost, msgPath(media, "send"), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "MEDIA_NOT_UPLOADED")

	noRecipient := env.createMessage(t, map[string]interface{}{"message_type": "Text", "message_body": "hi"})
	w = env.do(t, http.MethodPost, msgPath(noRecipient, "send"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	text := env.createMessage(t, map[string]interface{}{"to": "911234567890", "message_type": "Text", "message_body": "hi"})
	w = env.do(t, http.MethodPost, msgPath(text, "send"), nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid OAuth access token")

	w = env.do(t, http.MethodPost, msgPath(text, "mark-seen"), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAttachUploadThenSend(t *testing.T) {
	env := newTestEnv(t, providerStub(t))

	msg := env.createMessage(t, map[string]interface{}{
		"to":            "911234567890",
		"message_type":  "Document",
		"media_caption": "Quote",
	})

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "quote.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-1.4\n%%EOF\n"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, msgPath(msg, "attachment"), body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var attached models.Message
	decode(t, w, &attached)
	assert.True(t, strings.HasPrefix(attached.MediaFile, storage.URLPrefix))
	assert.Equal(t, "quote.pdf", attached.MediaFilename)

	w = env.do(t, http.MethodPost, msgPath(msg, "upload"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var uploaded models.Message
	decode(t, w, &uploaded)
	assert.Equal(t, "media123", uploaded.MediaID)
	assert.Equal(t, "application/pdf", uploaded.MediaMimeType)
	assert.True(t, uploaded.MediaUploaded)

	w = env.do(t, http.MethodPost, msgPath(msg, "send"), nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRequestValidation(t *testing.T) {
	env := newTestEnv(t, providerStub(t))

	w := env.do(t, http.MethodPost, "/api/messages", map[string]interface{}{"message_type": "Carousel"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/messages", map[string]interface{}{"to": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/messages/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/messages/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")

	w = env.do(t, http.MethodGet, "/api/messages?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMessagesFilters(t *testing.T) {
	env := newTestEnv(t, providerStub(t))
	ctx := context.Background()

	env.createMessage(t, map[string]interface{}{"to": "911111111111", "message_type": "Text"})
	env.createMessage(t, map[string]interface{}{"to": "922222222222", "message_type": "Text"})
	_, err := env.store.CreateIncoming(ctx, &models.Message{
		ProviderID: "wamid.IN", Direction: models.DirectionIncoming, Status: models.StatusReceived,
		MessageType: models.TypeText, From: "911111111111",
	})
	require.NoError(t, err)

	var messages []models.Message
	w := env.do(t, http.MethodGet, "/api/messages?wa_id=911111111111", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &messages)
	assert.Len(t, messages, 2)

	w = env.do(t, http.MethodGet, "/api/messages?direction=Incoming", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &messages)
	require.Len(t, messages, 1)
	assert.Equal(t, "wamid.IN", messages[0].ProviderID)
}

func TestTemplatesAndNotifications(t *testing.T) {
	var sent []string
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		sent = append(sent, string(b))
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.N"}]}`))
	})

	w := env.do(t, http.MethodPost, "/api/templates", map[string]interface{}{
		"name":          "order_update",
		"language_code": "en",
		"components":    `[{"type":"body","parameters":[{"type":"text","text":{{ json .doc.customer_name }}}]}]`,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/templates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var templates []models.Template
	decode(t, w, &templates)
	require.Len(t, templates, 1)
	assert.Equal(t, "order_update", templates[0].Name)

	w = env.do(t, http.MethodPost, "/api/notifications", map[string]interface{}{
		"document_type": "Sales Order",
		"document_name": "SO-0001",
		"doc":           map[string]interface{}{"customer_name": "Asha"},
		"template":      "order_update",
		"recipients":    []map[string]interface{}{{"wa_id": "911111111111", "display_name": "Asha"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Sent   []uint `json:"sent"`
		Failed int    `json:"failed"`
	}
	decode(t, w, &resp)
	assert.Len(t, resp.Sent, 1)
	assert.Zero(t, resp.Failed)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], `"text":"Asha"`)

	w = env.do(t, http.MethodPost, "/api/notifications", map[string]interface{}{"message": "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboardStats(t *testing.T) {
	env := newTestEnv(t, providerStub(t))

	msg := env.createMessage(t, map[string]interface{}{"to": "911111111111", "message_type": "Text", "message_body": "hi"})
	env.createMessage(t, map[string]interface{}{"to": "922222222222", "message_type": "Text", "message_body": "hi"})
	w := env.do(t, http.MethodPost, msgPath(msg, "send"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/dashboard/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats database.Stats
	decode(t, w, &stats)
	assert.Equal(t, []database.StatusCount{
		{Direction: models.DirectionOutgoing, Status: models.StatusDraft, Count: 1},
		{Direction: models.DirectionOutgoing, Status: models.StatusSent, Count: 1},
	}, stats.Messages)
	assert.Equal(t, int64(1), stats.Contacts)
}

func TestSettingsEndpoints(t *testing.T) {
	env := newTestEnv(t, providerStub(t))

	w := env.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view map[string]interface{}
	decode(t, w, &view)
	assert.Equal(t, true, view[database.SettingAccessToken])
	assert.Equal(t, "PNID", view[database.SettingPhoneNumberID])
	assert.NotContains(t, w.Body.String(), "test-token")

	w = env.do(t, http.MethodPut, "/api/settings", map[string]string{"key": database.SettingPhoneNumberID, "value": "777"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "777", env.settings.values[database.SettingPhoneNumberID])

	w = env.do(t, http.MethodPut, "/api/settings", map[string]string{"key": "BOGUS", "value": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/api/settings", map[string]string{"value": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
