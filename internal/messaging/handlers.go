package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "waba-integration/internal/errors"
	"waba-integration/internal/models"
	"waba-integration/internal/whatsapp"
)

// bodyBuilder fills the type-specific part of an outbound request.
type bodyBuilder func(ctx context.Context, d *Dispatcher, msg *models.Message, body *whatsapp.GenericMessage) error

var bodyBuilders = map[models.MessageType]bodyBuilder{
	models.TypeText:     buildText,
	models.TypeImage:    buildMedia,
	models.TypeAudio:    buildMedia,
	models.TypeVideo:    buildMedia,
	models.TypeDocument: buildMedia,
	models.TypeSticker:  buildMedia,
	models.TypeTemplate: buildTemplate,
}

func buildText(ctx context.Context, d *Dispatcher, msg *models.Message, body *whatsapp.GenericMessage) error {
	body.Text = &whatsapp.TextObj{PreviewUrl: false, Body: msg.MessageBody}
	return nil
}

func buildMedia(ctx context.Context, d *Dispatcher, msg *models.Message, body *whatsapp.GenericMessage) error {
	if msg.MediaID == "" {
		return apperrors.MediaNotUploaded("please attach and upload the media before sending this message").
			WithContext("message_id", msg.ID)
	}

	media := &whatsapp.MediaObj{ID: msg.MediaID}
	switch msg.MessageType {
	case models.TypeImage:
		body.Image = media
	case models.TypeAudio:
		body.Audio = media
	case models.TypeVideo:
		body.Video = media
	case models.TypeSticker:
		body.Sticker = media
	case models.TypeDocument:
		media.Filename = msg.MediaFilename
		media.Caption = msg.MediaCaption
		body.Document = media
	}
	return nil
}

func buildTemplate(ctx context.Context, d *Dispatcher, msg *models.Message, body *whatsapp.GenericMessage) error {
	if msg.MessageTemplate == "" {
		return apperrors.Validation("a template message needs a template name")
	}

	tmpl, err := d.store.GetTemplate(ctx, msg.MessageTemplate)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrCodeNotFound) {
			return apperrors.Wrap(err, apperrors.ErrCodeValidation, fmt.Sprintf("template %q is not known", msg.MessageTemplate))
		}
		return err
	}

	components, err := d.renderComponents(ctx, tmpl, msg)
	if err != nil {
		return err
	}

	body.Template = &whatsapp.TemplateObj{
		Name:       tmpl.Name,
		Language:   whatsapp.LanguageObj{Code: tmpl.LanguageCode},
		Components: components,
	}
	return nil
}

func (d *Dispatcher) renderComponents(ctx context.Context, tmpl *models.Template, msg *models.Message) ([]json.RawMessage, error) {
	if strings.TrimSpace(tmpl.Components) == "" {
		return nil, nil
	}

	data, err := d.templateContext(ctx, msg)
	if err != nil {
		return nil, err
	}

	rendered, err := d.renderer.Render(ctx, tmpl.Components, data)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "failed to render template components").
			WithContext("template", tmpl.Name)
	}

	var components []json.RawMessage
	if err := json.Unmarshal([]byte(rendered), &components); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "rendered template components are not a JSON array").
			WithContext("template", tmpl.Name)
	}
	for i, component := range components {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(component, &fields); err != nil || fields == nil {
			return nil, apperrors.Newf(apperrors.ErrCodeValidation, "template component %d is not a JSON object", i).
				WithContext("template", tmpl.Name)
		}
	}
	return components, nil
}

// templateContext is {doc, message, current_date}; doc is the triggering
// business record when the message links one, message is keyed by JSON name.
func (d *Dispatcher) templateContext(ctx context.Context, msg *models.Message) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if msg.DocumentType != "" && msg.DocumentName != "" && d.documents != nil {
		loaded, err := d.documents.Load(ctx, msg.DocumentType, msg.DocumentName)
		if err != nil {
			return nil, fmt.Errorf("load %s %s: %w", msg.DocumentType, msg.DocumentName, err)
		}
		doc = loaded
	}

	message, err := fieldsOf(msg)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"doc":          doc,
		"message":      message,
		"current_date": d.now().Format("2006-01-02"),
	}, nil
}

// fieldsOf exposes msg to templates under its JSON names, e.g.
// .message.document_name.
func fieldsOf(msg *models.Message) (map[string]interface{}, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return fields, nil
}
