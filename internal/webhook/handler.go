package webhook

import (
	"net/http"

	"waba-integration/internal/database"
	apperrors "waba-integration/internal/errors"
	"waba-integration/internal/ingest"
	"waba-integration/internal/messaging"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler is the HTTP boundary of inbound processing. Deliveries are always
// answered with 200 so the provider does not retry; failures go to the
// webhook log and the error log instead.
type Handler struct {
	Deps   messaging.Deps
	Store  *database.Store
	Logger *apperrors.Logger
}

func NewHandler(deps messaging.Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		Deps:   deps,
		Store:  deps.Store,
		Logger: apperrors.WrapLogger(logger),
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/webhook", h.VerifyWebhook)
	r.POST("/webhook", h.HandleMessage)
}

func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "" && mode != "subscribe" {
		c.Status(http.StatusForbidden)
		return
	}

	settings, err := h.Deps.Settings.Load(c.Request.Context())
	if err != nil {
		h.Logger.LogError(err, "Failed to load settings for webhook verification")
		c.Status(http.StatusInternalServerError)
		return
	}

	echo, err := ingest.Verify(settings.VerifyToken, token, challenge)
	if err != nil {
		h.Logger.LogWarn(err, "Webhook verification rejected")
		c.Status(http.StatusForbidden)
		return
	}

	h.Logger.Info("Webhook verified successfully")
	c.String(http.StatusOK, echo)
}

func (h *Handler) HandleMessage(c *gin.Context) {
	ctx := c.Request.Context()

	raw, err := c.GetRawData()
	if err != nil {
		h.Logger.LogError(err, "Failed to read webhook body")
		if err := h.Store.AppendWebhookLog(ctx, "", "read body: "+err.Error()); err != nil {
			h.Logger.LogError(err, "Failed to write webhook log")
		}
		c.Status(http.StatusOK)
		return
	}

	outcome, ingestErr := h.ingest(c, raw)

	errText := ""
	if ingestErr != nil {
		errText = ingestErr.Error()
		h.Logger.LogError(ingestErr, "Webhook processing failed", logrus.Fields{
			"payload": string(raw),
		})
	}
	if err := h.Store.AppendWebhookLog(ctx, string(raw), errText); err != nil {
		h.Logger.LogError(err, "Failed to write webhook log", logrus.Fields{
			"payload": string(raw),
		})
	}

	h.Logger.WithFields(logrus.Fields{
		"statuses_applied":   outcome.StatusesApplied,
		"messages_created":   outcome.MessagesCreated,
		"messages_duplicate": outcome.MessagesDuplicate,
		"downloads_failed":   outcome.DownloadsFailed,
	}).Info("Webhook processed")

	c.Status(http.StatusOK)
}

func (h *Handler) ingest(c *gin.Context, raw []byte) (outcome ingest.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.Newf(apperrors.ErrCodeInternal, "panic during ingestion: %v", r)
		}
	}()

	payload, err := ingest.Parse(raw)
	if err != nil {
		return outcome, err
	}

	session := messaging.NewSession(h.Deps)
	ingestor := ingest.New(h.Store, h.Deps.Settings, session.Transfer, h.Deps.Logger)
	return ingestor.Ingest(c.Request.Context(), payload)
}
