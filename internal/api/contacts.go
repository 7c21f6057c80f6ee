package api

import (
	"net/http"

	"waba-integration/internal/database"
	apperrors "waba-integration/internal/errors"

	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	Store  *database.Store
	Logger *apperrors.Logger
}

func NewContactHandler(store *database.Store, logger *apperrors.Logger) *ContactHandler {
	return &ContactHandler{Store: store, Logger: logger}
}

func (h *ContactHandler) GetContacts(c *gin.Context) {
	contacts, err := h.Store.ListContacts(c.Request.Context())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, contacts)
}

func (h *ContactHandler) GetContact(c *gin.Context) {
	contact, err := h.Store.GetContact(c.Request.Context(), c.Param("waId"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, contact)
}
