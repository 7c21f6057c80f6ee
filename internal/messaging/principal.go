package messaging

import (
	"context"

	"waba-integration/internal/models"
)

// Principal is the identity an operation runs as.
type Principal struct {
	Name   string
	System bool
}

// SystemPrincipal bypasses authorization. Ingestion uses it for automatic
// media downloads.
var SystemPrincipal = Principal{Name: "system", System: true}

// Action names passed to an Authorizer.
const (
	ActionDownload = "download"
)

// Authorizer decides whether a principal may perform action on msg.
type Authorizer interface {
	Authorize(ctx context.Context, p Principal, action string, msg *models.Message) error
}

// AllowAll authorizes everything.
type AllowAll struct{}

func (AllowAll) Authorize(ctx context.Context, p Principal, action string, msg *models.Message) error {
	return nil
}
