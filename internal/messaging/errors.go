package messaging

import (
	"errors"

	apperrors "waba-integration/internal/errors"
	"waba-integration/internal/whatsapp"
)

// providerError classifies a transport failure. Application errors (such as
// missing credentials) pass through untouched.
func providerError(err error, action string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	var apiErr *whatsapp.APIError
	if errors.As(err, &apiErr) {
		return apperrors.ProviderRejected(apiErr.Message, err).
			WithContext("action", action).
			WithContext("status_code", apiErr.StatusCode)
	}
	return apperrors.Wrap(err, apperrors.ErrCodeNetwork, action+" request failed").
		WithContext("action", action)
}
