package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"waba-integration/internal/database"
	apperrors "waba-integration/internal/errors"
	"waba-integration/internal/messaging"
	"waba-integration/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// principalHeader names the caller on whose behalf an operation runs.
// Authentication happens in front of this service.
const principalHeader = "X-Acting-As"

type MessageHandler struct {
	Deps   messaging.Deps
	Store  *database.Store
	Logger *apperrors.Logger
}

func NewMessageHandler(deps messaging.Deps) *MessageHandler {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MessageHandler{Deps: deps, Store: deps.Store, Logger: apperrors.WrapLogger(logger)}
}

type CreateMessageRequest struct {
	To              string `json:"to"`
	MessageType     string `json:"message_type" binding:"required"`
	MessageBody     string `json:"message_body"`
	MediaFilename   string `json:"media_filename"`
	MediaCaption    string `json:"media_caption"`
	MessageTemplate string `json:"message_template"`
	DocumentType    string `json:"document_type"`
	DocumentName    string `json:"document_name"`
	AttachPrint     bool   `json:"attach_print"`
	PrintFormat     string `json:"print_format"`
	Queued          bool   `json:"queued"`
}

// CreateMessage stores a new outgoing Draft (or Queued) message.
func (h *MessageHandler) CreateMessage(c *gin.Context) {
	var req CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msgType, ok := models.ParseMessageType(req.MessageType)
	if !ok {
		writeError(c, h.Logger, apperrors.Newf(apperrors.ErrCodeValidation, "unknown message type %q", req.MessageType))
		return
	}

	status := models.StatusDraft
	if req.Queued {
		status = models.StatusQueued
	}

	msg := &models.Message{
		Direction:       models.DirectionOutgoing,
		Status:          status,
		MessageType:     msgType,
		To:              req.To,
		MessageBody:     req.MessageBody,
		MediaFilename:   req.MediaFilename,
		MediaCaption:    req.MediaCaption,
		MessageTemplate: req.MessageTemplate,
		DocumentType:    req.DocumentType,
		DocumentName:    req.DocumentName,
		AttachPrint:     req.AttachPrint,
		PrintFormat:     req.PrintFormat,
	}
	if err := h.Store.CreateMessage(c.Request.Context(), msg); err != nil {
		writeError(c, h.Logger, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) GetMessages(c *gin.Context) {
	filter := database.MessageFilter{
		Direction: models.Direction(c.Query("direction")),
		WaID:      c.Query("wa_id"),
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = n
	}

	messages, err := h.Store.ListMessages(c.Request.Context(), filter)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *MessageHandler) GetMessage(c *gin.Context) {
	msg, ok := h.loadMessage(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, msg)
}

// AttachFile stores the uploaded multipart "file" as the message's local
// media. A previous provider upload no longer applies.
func (h *MessageHandler) AttachFile(c *gin.Context) {
	msg, ok := h.loadMessage(c)
	if !ok {
		return
	}
	if msg.Direction != models.DirectionOutgoing || !msg.MessageType.HasMedia() {
		writeError(c, h.Logger, apperrors.InvalidOperation("only outgoing media messages take attachments"))
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}

	fileURL, err := h.Deps.Files.Save(c.Request.Context(), header.Filename, content)
	if err != nil {
		writeError(c, h.Logger, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to store attachment"))
		return
	}

	msg.MediaFile = fileURL
	msg.MediaImage = ""
	msg.MediaID = ""
	msg.MediaMimeType = ""
	msg.MediaUploaded = false
	if msg.MediaFilename == "" {
		msg.MediaFilename = header.Filename
	}
	if err := h.Store.SaveMessage(c.Request.Context(), msg); err != nil {
		writeError(c, h.Logger, err)
		return
	}

	c.JSON(http.StatusOK, msg)
}

func (h *MessageHandler) Send(c *gin.Context) {
	msg, ok := h.loadMessage(c)
	if !ok {
		return
	}

	session := messaging.NewSession(h.Deps)
	raw, err := session.Dispatcher.Send(c.Request.Context(), msg)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msg, "response": json.RawMessage(raw)})
}

func (h *MessageHandler) Upload(c *gin.Context) {
	msg, ok := h.loadMessage(c)
	if !ok {
		return
	}

	session := messaging.NewSession(h.Deps)
	if err := session.Transfer.Upload(c.Request.Context(), msg); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *MessageHandler) Download(c *gin.Context) {
	msg, ok := h.loadMessage(c)
	if !ok {
		return
	}

	session := messaging.NewSession(h.Deps)
	if err := session.Transfer.Download(c.Request.Context(), msg, principal(c)); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *MessageHandler) MarkAsSeen(c *gin.Context) {
	msg, ok := h.loadMessage(c)
	if !ok {
		return
	}

	session := messaging.NewSession(h.Deps)
	if err := session.Dispatcher.MarkAsSeen(c.Request.Context(), msg); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *MessageHandler) loadMessage(c *gin.Context) (*models.Message, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message id"})
		return nil, false
	}

	msg, err := h.Store.GetMessage(c.Request.Context(), uint(id))
	if err != nil {
		writeError(c, h.Logger, err)
		return nil, false
	}
	return msg, true
}

func principal(c *gin.Context) messaging.Principal {
	name := c.GetHeader(principalHeader)
	if name == "" {
		name = "api"
	}
	return messaging.Principal{Name: name}
}
