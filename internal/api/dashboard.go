package api

import (
	"net/http"

	"waba-integration/internal/database"
	apperrors "waba-integration/internal/errors"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	Store  *database.Store
	Logger *apperrors.Logger
}

func NewDashboardHandler(store *database.Store, logger *apperrors.Logger) *DashboardHandler {
	return &DashboardHandler{Store: store, Logger: logger}
}

func (h *DashboardHandler) GetStats(c *gin.Context) {
	stats, err := h.Store.Stats(c.Request.Context())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
