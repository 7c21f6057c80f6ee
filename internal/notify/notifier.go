// Package notify delivers business notifications over WhatsApp: one message
// per recipient, optionally carrying a printed copy of the triggering
// document.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "waba-integration/internal/errors"
	"waba-integration/internal/messaging"
	"waba-integration/internal/models"
	"waba-integration/internal/render"

	"github.com/sirupsen/logrus"
)

const pdfMimeType = "application/pdf"

// PrintRenderer produces the printed form of a document.
type PrintRenderer interface {
	RenderPrint(ctx context.Context, documentType, documentName, printFormat string) (filename string, content []byte, err error)
}

type Recipient struct {
	WaID        string `json:"wa_id" binding:"required"`
	DisplayName string `json:"display_name"`
}

// Notification is one triggered alert. Message is template text rendered
// against the document; Template, when set, sends a provider template
// instead of plain text.
type Notification struct {
	DocumentType string      `json:"document_type"`
	DocumentName string      `json:"document_name"`
	Recipients   []Recipient `json:"recipients" binding:"required,min=1"`
	Message      string      `json:"message"`
	Template     string      `json:"template"`
	AttachPrint  bool        `json:"attach_print"`
	PrintFormat  string      `json:"print_format"`
}

// Report lists what happened per recipient.
type Report struct {
	Sent     []uint            `json:"sent"`
	Failures map[string]string `json:"failures,omitempty"`
}

type Notifier struct {
	deps    messaging.Deps
	printer PrintRenderer
	logger  *apperrors.Logger
	now     func() time.Time
}

// NewNotifier returns a Notifier; printer may be nil when no print pipeline
// is available, in which case AttachPrint notifications are rejected.
func NewNotifier(deps messaging.Deps, printer PrintRenderer) *Notifier {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if deps.Renderer == nil {
		deps.Renderer = render.NewTextRenderer()
	}
	return &Notifier{deps: deps, printer: printer, logger: apperrors.WrapLogger(logger), now: time.Now}
}

// Notify sends n to every recipient. A failing recipient is logged and
// reported without stopping the others; only problems that affect every
// recipient are returned as an error.
func (n *Notifier) Notify(ctx context.Context, note Notification) (*Report, error) {
	if len(note.Recipients) == 0 {
		return nil, apperrors.Validation("notification has no recipients")
	}
	if note.AttachPrint && n.printer == nil {
		return nil, apperrors.Validation("print attachments are not available")
	}
	if note.AttachPrint && (note.DocumentType == "" || note.DocumentName == "") {
		return nil, apperrors.Validation("a print attachment needs a document")
	}

	body, err := n.renderBody(ctx, note)
	if err != nil {
		return nil, err
	}

	var attachment *printed
	if note.AttachPrint {
		attachment, err = n.print(ctx, note)
		if err != nil {
			return nil, err
		}
	}

	session := messaging.NewSession(n.deps)
	report := &Report{Failures: map[string]string{}}
	for _, r := range note.Recipients {
		id, err := n.notifyOne(ctx, session, note, r, body, attachment)
		if err != nil {
			report.Failures[r.WaID] = err.Error()
			n.logger.LogError(err, "Failed to send notification", logrus.Fields{
				"wa_id":         r.WaID,
				"document_type": note.DocumentType,
				"document_name": note.DocumentName,
			})
			continue
		}
		report.Sent = append(report.Sent, id)
	}
	return report, nil
}

func (n *Notifier) renderBody(ctx context.Context, note Notification) (string, error) {
	if strings.TrimSpace(note.Message) == "" {
		return "", nil
	}

	var doc map[string]interface{}
	if note.DocumentType != "" && note.DocumentName != "" && n.deps.Documents != nil {
		loaded, err := n.deps.Documents.Load(ctx, note.DocumentType, note.DocumentName)
		if err != nil {
			return "", fmt.Errorf("load %s %s: %w", note.DocumentType, note.DocumentName, err)
		}
		doc = loaded
	}

	body, err := n.deps.Renderer.Render(ctx, note.Message, map[string]interface{}{
		"doc":          doc,
		"current_date": n.now().Format("2006-01-02"),
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeValidation, "failed to render notification message")
	}
	return body, nil
}

type printed struct {
	filename string
	fileURL  string
}

func (n *Notifier) print(ctx context.Context, note Notification) (*printed, error) {
	format := note.PrintFormat
	if format == "" {
		format = "Standard"
	}

	filename, content, err := n.printer.RenderPrint(ctx, note.DocumentType, note.DocumentName, format)
	if err != nil {
		return nil, fmt.Errorf("print %s %s: %w", note.DocumentType, note.DocumentName, err)
	}
	fileURL, err := n.deps.Files.Save(ctx, filename, content)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to store print attachment")
	}
	return &printed{filename: filename, fileURL: fileURL}, nil
}

// notifyOne creates the recipient's contact and a Queued message, uploads the
// print when there is one, and sends.
func (n *Notifier) notifyOne(ctx context.Context, session *messaging.Session, note Notification, r Recipient, body string, attachment *printed) (uint, error) {
	if _, err := n.deps.Store.EnsureContact(ctx, r.WaID, r.DisplayName); err != nil {
		return 0, err
	}

	msg := &models.Message{
		Direction:       models.DirectionOutgoing,
		Status:          models.StatusQueued,
		MessageType:     messageType(note),
		To:              r.WaID,
		MessageBody:     body,
		MessageTemplate: note.Template,
		DocumentType:    note.DocumentType,
		DocumentName:    note.DocumentName,
		AttachPrint:     note.AttachPrint,
		PrintFormat:     note.PrintFormat,
	}
	if attachment != nil {
		msg.MediaFile = attachment.fileURL
		msg.MediaFilename = attachment.filename
		msg.MediaMimeType = pdfMimeType
		if msg.MessageType == models.TypeDocument {
			msg.MediaCaption = body
		}
	}
	if err := n.deps.Store.CreateMessage(ctx, msg); err != nil {
		return 0, err
	}

	if attachment != nil {
		if err := session.Transfer.Upload(ctx, msg); err != nil {
			return msg.ID, err
		}
	}
	if _, err := session.Dispatcher.Send(ctx, msg); err != nil {
		return msg.ID, err
	}
	return msg.ID, nil
}

// messageType: a provider template wins; a print turns plain text into a
// document whose caption is the text.
func messageType(note Notification) models.MessageType {
	switch {
	case note.Template != "":
		return models.TypeTemplate
	case note.AttachPrint:
		return models.TypeDocument
	}
	return models.TypeText
}
