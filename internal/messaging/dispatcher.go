// Package messaging implements the outbound side of the message lifecycle:
// dispatching messages, marking inbound messages as seen and moving media
// between local storage and the provider.
package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "waba-integration/internal/errors"
	"waba-integration/internal/models"
	"waba-integration/internal/render"
	"waba-integration/internal/whatsapp"

	"github.com/sirupsen/logrus"
)

const recipientIndividual = "individual"

// Dispatcher turns Draft or Queued messages into provider requests.
type Dispatcher struct {
	store     MessageStore
	client    Sender
	renderer  render.Renderer
	documents render.DocumentLoader
	logger    *logrus.Logger
	now       func() time.Time
}

func NewDispatcher(store MessageStore, client Sender, renderer render.Renderer, documents render.DocumentLoader, logger *logrus.Logger) *Dispatcher {
	if renderer == nil {
		renderer = render.NewTextRenderer()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Dispatcher{
		store:     store,
		client:    client,
		renderer:  renderer,
		documents: documents,
		logger:    logger,
		now:       time.Now,
	}
}

// Send dispatches msg with exactly one provider call. On success the provider
// id and the Sent status are persisted together and the raw provider response
// is returned. On failure msg is left untouched.
func (d *Dispatcher) Send(ctx context.Context, msg *models.Message) ([]byte, error) {
	if msg.Direction == models.DirectionIncoming {
		return nil, apperrors.InvalidOperation("incoming messages cannot be sent").
			WithContext("message_id", msg.ID)
	}
	if !msg.Status.Dispatchable() {
		return nil, apperrors.Newf(apperrors.ErrCodeInvalidOperation, "message in status %s cannot be sent", msg.Status).
			WithContext("message_id", msg.ID)
	}
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return nil, apperrors.Validation("recipient (to) is required to send a message")
	}

	build, ok := bodyBuilders[msg.MessageType]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrCodeValidation, "unsupported message type %q", msg.MessageType)
	}

	body := whatsapp.GenericMessage{
		RecipientType: recipientIndividual,
		To:            to,
		Type:          msg.MessageType.Wire(),
	}
	if err := build(ctx, d, msg, &body); err != nil {
		return nil, err
	}

	if _, err := d.store.EnsureContact(ctx, to, ""); err != nil {
		return nil, err
	}

	resp, raw, err := d.client.SendMessage(ctx, body)
	if err != nil {
		return raw, providerError(err, "send")
	}
	if len(resp.Messages) == 0 || resp.Messages[0].ID == "" {
		return raw, apperrors.New(apperrors.ErrCodeProviderRejected, "provider response carries no message id").
			WithContext("message_id", msg.ID)
	}

	providerID := resp.Messages[0].ID
	if err := d.store.MarkSent(ctx, msg.ID, providerID); err != nil {
		return raw, fmt.Errorf("record sent message %d: %w", msg.ID, err)
	}
	msg.ProviderID = providerID
	msg.Status = models.StatusSent

	d.logger.WithFields(logrus.Fields{
		"message_id":   msg.ID,
		"provider_id":  providerID,
		"message_type": msg.MessageType,
		"wa_id":        to,
	}).Info("Message sent")

	return raw, nil
}

// MarkAsSeen sends a read receipt for an incoming message.
func (d *Dispatcher) MarkAsSeen(ctx context.Context, msg *models.Message) error {
	if msg.Direction != models.DirectionIncoming {
		return apperrors.InvalidOperation("only incoming messages can be marked as seen").
			WithContext("message_id", msg.ID)
	}
	if msg.ProviderID == "" {
		return apperrors.Validation("message has no provider id")
	}

	if err := d.client.MarkAsRead(ctx, msg.ProviderID); err != nil {
		return providerError(err, "mark as seen")
	}

	if !models.CanAdvance(msg.Direction, msg.Status, models.StatusMarkedAsSeen) {
		return nil
	}
	if err := d.store.SetStatus(ctx, msg.ID, models.StatusMarkedAsSeen); err != nil {
		return err
	}
	msg.Status = models.StatusMarkedAsSeen

	d.logger.WithFields(logrus.Fields{
		"message_id":  msg.ID,
		"provider_id": msg.ProviderID,
	}).Debug("Message marked as seen")
	return nil
}
