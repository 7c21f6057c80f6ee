package errors

import (
	stderrors "errors"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger with structured error logging
type Logger struct {
	*logrus.Logger
}

// NewLogger creates a JSON logger at the given level; unknown levels fall back to info.
func NewLogger(level string) *Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return &Logger{Logger: logger}
}

// WrapLogger adapts an existing logrus logger.
func WrapLogger(logger *logrus.Logger) *Logger {
	return &Logger{Logger: logger}
}

// WithError adds err and any AppError context to the entry
func (l *Logger) WithError(err error) *logrus.Entry {
	entry := l.Logger.WithError(err)

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		entry = entry.WithField("error_code", appErr.Code)
		for k, v := range appErr.Context {
			entry = entry.WithField(k, v)
		}
	}

	return entry
}

// LogError logs an error with structured context
func (l *Logger) LogError(err error, message string, fields ...logrus.Fields) {
	entry := l.WithError(err)
	for _, field := range fields {
		entry = entry.WithFields(field)
	}
	entry.Error(message)
}

// LogWarn logs a warning with structured context
func (l *Logger) LogWarn(err error, message string, fields ...logrus.Fields) {
	entry := l.WithError(err)
	for _, field := range fields {
		entry = entry.WithFields(field)
	}
	entry.Warn(message)
}
