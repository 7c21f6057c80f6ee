package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode categorizes an error so callers can branch on the kind of failure
// instead of on message text.
type ErrorCode string

const (
	// Caller errors
	ErrCodeValidation       ErrorCode = "VALIDATION"
	ErrCodeMediaNotUploaded ErrorCode = "MEDIA_NOT_UPLOADED"
	ErrCodeInvalidOperation ErrorCode = "INVALID_OPERATION"
	ErrCodeAuthentication   ErrorCode = "AUTHENTICATION"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// Provider errors
	ErrCodeProviderRejected ErrorCode = "PROVIDER_REJECTED"
	ErrCodeMediaLookup      ErrorCode = "MEDIA_LOOKUP"
	ErrCodeNetwork          ErrorCode = "NETWORK"

	// Internal errors
	ErrCodeDatabase ErrorCode = "DATABASE"
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// AppError is a structured application error
type AppError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a code and message
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// GetCode extracts the error code from anywhere in the chain
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// Is reports whether err carries the given code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return GetCode(err) == code
}

func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func MediaNotUploaded(message string) *AppError {
	return New(ErrCodeMediaNotUploaded, message)
}

// ProviderRejected carries the provider's own error text as the message.
func ProviderRejected(providerMessage string, cause error) *AppError {
	return Wrap(cause, ErrCodeProviderRejected, providerMessage)
}

func MediaLookup(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeMediaLookup, message)
}

func Authentication(message string) *AppError {
	return New(ErrCodeAuthentication, message)
}

func InvalidOperation(message string) *AppError {
	return New(ErrCodeInvalidOperation, message)
}

func PermissionDenied(message string) *AppError {
	return New(ErrCodePermissionDenied, message)
}

func NotFound(resource string, id interface{}) *AppError {
	return Newf(ErrCodeNotFound, "%s %v not found", resource, id).
		WithContext("resource", resource).
		WithContext("id", id)
}

func Database(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabase, fmt.Sprintf("database %s failed", operation)).
		WithContext("operation", operation)
}
