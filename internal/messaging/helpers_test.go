package messaging

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"waba-integration/internal/credentials"
	"waba-integration/internal/database"
	"waba-integration/internal/models"
	"waba-integration/internal/render"
	"waba-integration/internal/storage"
	"waba-integration/internal/whatsapp"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type staticCreds struct {
	apiBase string
}

func (s staticCreds) Credentials(ctx context.Context) (credentials.Credentials, error) {
	return credentials.Credentials{AccessToken: "test-token", APIBase: s.apiBase, PhoneNumberID: "PNID"}, nil
}

type fixture struct {
	store      *database.Store
	files      *storage.LocalStore
	dispatcher *Dispatcher
	transfer   *MediaTransfer
	calls      *int32
}

func newFixture(t *testing.T, handler http.HandlerFunc) *fixture {
	t.Helper()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
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
	client := whatsapp.NewClient(staticCreds{apiBase: server.URL + "/v19.0"}, server.Client())
	documents := render.StaticDocuments{
		"Sales Order/SO-0001": {"name": "SO-0001", "customer_name": "Asha"},
	}

	return &fixture{
		store:      store,
		files:      files,
		dispatcher: NewDispatcher(store, client, render.NewTextRenderer(), documents, logger),
		transfer:   NewMediaTransfer(store, client, files, nil, logger),
		calls:      &calls,
	}
}

func (f *fixture) networkCalls() int {
	return int(atomic.LoadInt32(f.calls))
}

func (f *fixture) createDraft(t *testing.T, msg models.Message) *models.Message {
	t.Helper()
	msg.Direction = models.DirectionOutgoing
	if msg.Status == "" {
		msg.Status = models.StatusDraft
	}
	require.NoError(t, f.store.CreateMessage(context.Background(), &msg))
	return &msg
}

func (f *fixture) reload(t *testing.T, id uint) *models.Message {
	t.Helper()
	msg, err := f.store.GetMessage(context.Background(), id)
	require.NoError(t, err)
	return msg
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func unreachable(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected provider call: %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}
}
