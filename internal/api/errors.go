package api

import (
	"net/http"

	apperrors "waba-integration/internal/errors"

	"github.com/gin-gonic/gin"
)

var statusByCode = map[apperrors.ErrorCode]int{
	apperrors.ErrCodeValidation:       http.StatusBadRequest,
	apperrors.ErrCodeMediaNotUploaded: http.StatusConflict,
	apperrors.ErrCodeInvalidOperation: http.StatusConflict,
	apperrors.ErrCodeAuthentication:   http.StatusUnauthorized,
	apperrors.ErrCodePermissionDenied: http.StatusForbidden,
	apperrors.ErrCodeNotFound:         http.StatusNotFound,
	apperrors.ErrCodeProviderRejected: http.StatusBadGateway,
	apperrors.ErrCodeMediaLookup:      http.StatusBadGateway,
	apperrors.ErrCodeNetwork:          http.StatusBadGateway,
}

// writeError answers with the HTTP status of the error's code. Outbound
// errors reach the caller unmodified, including the provider's reason.
func writeError(c *gin.Context, logger *apperrors.Logger, err error) {
	code := apperrors.GetCode(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		logger.LogError(err, "Request failed")
	} else {
		logger.LogWarn(err, "Request rejected")
	}

	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
