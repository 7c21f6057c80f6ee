package database

import (
	"context"
	"errors"

	apperrors "waba-integration/internal/errors"
	"waba-integration/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// advanceAttempts bounds the compare-and-set loop in AdvanceStatus.
const advanceAttempts = 3

// Store is the message state store: the single owner of Message and Contact
// rows, plus the read side of templates and the append-only webhook log.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) error {
	msg.SyncImagePreview()
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Wrap(err, apperrors.ErrCodeInvalidOperation, "message already exists").
				WithContext("provider_id", msg.ProviderID)
		}
		return apperrors.Database("create message", err)
	}
	return nil
}

// CreateIncoming inserts an inbound message unless one with the same provider
// id already exists. It reports whether a row was created.
func (s *Store) CreateIncoming(ctx context.Context, msg *models.Message) (bool, error) {
	if msg.ProviderID != "" {
		existing, err := s.GetMessageByProviderID(ctx, msg.ProviderID)
		if err != nil {
			return false, err
		}
		if existing != nil {
			*msg = *existing
			return false, nil
		}
	}

	err := s.db.WithContext(ctx).Create(msg).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost a race with a concurrent delivery of the same message.
		return false, nil
	}
	if err != nil {
		return false, apperrors.Database("create incoming message", err)
	}
	return true, nil
}

func (s *Store) GetMessage(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	err := s.db.WithContext(ctx).First(&msg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("message", id)
	}
	if err != nil {
		return nil, apperrors.Database("get message", err)
	}
	return &msg, nil
}

// GetMessageByProviderID returns nil, nil when no message carries the id.
func (s *Store) GetMessageByProviderID(ctx context.Context, providerID string) (*models.Message, error) {
	var msg models.Message
	err := s.db.WithContext(ctx).Where("provider_id = ?", providerID).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Database("get message by provider id", err)
	}
	return &msg, nil
}

type MessageFilter struct {
	Direction models.Direction
	WaID      string
	Limit     int
}

func (s *Store) ListMessages(ctx context.Context, f MessageFilter) ([]models.Message, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if f.Direction != "" {
		q = q.Where("direction = ?", f.Direction)
	}
	if f.WaID != "" {
		q = q.Where("recipient = ? OR sender = ?", f.WaID, f.WaID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	messages := []models.Message{}
	if err := q.Find(&messages).Error; err != nil {
		return nil, apperrors.Database("list messages", err)
	}
	return messages, nil
}

// SaveMessage writes every field of msg.
func (s *Store) SaveMessage(ctx context.Context, msg *models.Message) error {
	msg.SyncImagePreview()
	if err := s.db.WithContext(ctx).Save(msg).Error; err != nil {
		return apperrors.Database("save message", err)
	}
	return nil
}

// MarkSent records the provider id and the Sent status in one statement.
func (s *Store) MarkSent(ctx context.Context, id uint, providerID string) error {
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"provider_id": providerID,
			"status":      models.StatusSent,
		})
	if res.Error != nil {
		return apperrors.Database("mark message sent", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("message", id)
	}
	return nil
}

func (s *Store) SetStatus(ctx context.Context, id uint, status models.Status) error {
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return apperrors.Database("set message status", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("message", id)
	}
	return nil
}

// SetMediaReference stores the outcome of an upload.
func (s *Store) SetMediaReference(ctx context.Context, id uint, mediaID, mimeType string) error {
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"media_id":        mediaID,
			"media_mime_type": mimeType,
			"media_uploaded":  true,
		})
	if res.Error != nil {
		return apperrors.Database("set media reference", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("message", id)
	}
	return nil
}

// SetMediaFile stores the outcome of a download: fileURL replaces any earlier
// file (and, for images, the preview). An empty mimeType keeps the stored one.
// msg is only updated once the row is.
func (s *Store) SetMediaFile(ctx context.Context, msg *models.Message, fileURL, mimeType string) error {
	preview := msg.MediaImage
	if msg.MessageType == models.TypeImage {
		preview = fileURL
	}
	updates := map[string]interface{}{
		"media_file":  fileURL,
		"media_image": preview,
	}
	if mimeType != "" {
		updates["media_mime_type"] = mimeType
	}

	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", msg.ID).
		Updates(updates)
	if res.Error != nil {
		return apperrors.Database("set media file", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("message", msg.ID)
	}

	msg.MediaFile = fileURL
	msg.MediaImage = preview
	if mimeType != "" {
		msg.MediaMimeType = mimeType
	}
	return nil
}

// AdvanceStatus moves the message with the given provider id to status only
// if that is strictly later in its lifecycle. A missing message or a stale
// status is not an error; applied reports whether the row changed.
func (s *Store) AdvanceStatus(ctx context.Context, providerID string, status models.Status) (bool, error) {
	for attempt := 0; attempt < advanceAttempts; attempt++ {
		msg, err := s.GetMessageByProviderID(ctx, providerID)
		if err != nil {
			return false, err
		}
		if msg == nil || !models.CanAdvance(msg.Direction, msg.Status, status) {
			return false, nil
		}

		res := s.db.WithContext(ctx).Model(&models.Message{}).
			Where("id = ? AND status = ?", msg.ID, msg.Status).
			Update("status", status)
		if res.Error != nil {
			return false, apperrors.Database("advance message status", res.Error)
		}
		if res.RowsAffected == 1 {
			return true, nil
		}
		// Another delivery changed the status in between; re-evaluate.
	}
	return false, nil
}

// EnsureContact creates the contact if it does not exist and reports whether
// it did. An existing contact without a display name gets the given one.
func (s *Store) EnsureContact(ctx context.Context, waID, displayName string) (bool, error) {
	contact := models.Contact{WaID: waID, DisplayName: displayName}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&contact)
	if res.Error != nil {
		return false, apperrors.Database("ensure contact", res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	if displayName != "" {
		err := s.db.WithContext(ctx).Model(&models.Contact{}).
			Where("wa_id = ? AND (display_name IS NULL OR display_name = '')", waID).
			Update("display_name", displayName).Error
		if err != nil {
			return false, apperrors.Database("update contact name", err)
		}
	}
	return false, nil
}

func (s *Store) GetContact(ctx context.Context, waID string) (*models.Contact, error) {
	var contact models.Contact
	err := s.db.WithContext(ctx).First(&contact, "wa_id = ?", waID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("contact", waID)
	}
	if err != nil {
		return nil, apperrors.Database("get contact", err)
	}
	return &contact, nil
}

func (s *Store) ListContacts(ctx context.Context) ([]models.Contact, error) {
	contacts := []models.Contact{}
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&contacts).Error; err != nil {
		return nil, apperrors.Database("list contacts", err)
	}
	return contacts, nil
}

func (s *Store) GetTemplate(ctx context.Context, name string) (*models.Template, error) {
	var tmpl models.Template
	err := s.db.WithContext(ctx).First(&tmpl, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("template", name)
	}
	if err != nil {
		return nil, apperrors.Database("get template", err)
	}
	return &tmpl, nil
}

func (s *Store) ListTemplates(ctx context.Context) ([]models.Template, error) {
	templates := []models.Template{}
	if err := s.db.WithContext(ctx).Order("name").Find(&templates).Error; err != nil {
		return nil, apperrors.Database("list templates", err)
	}
	return templates, nil
}

// SaveTemplate upserts a template; templates are managed outside the core
// and only seeded through here.
func (s *Store) SaveTemplate(ctx context.Context, tmpl *models.Template) error {
	if err := s.db.WithContext(ctx).Save(tmpl).Error; err != nil {
		return apperrors.Database("save template", err)
	}
	return nil
}

// AppendWebhookLog records a webhook delivery verbatim.
func (s *Store) AppendWebhookLog(ctx context.Context, payload, errText string) error {
	entry := models.WebhookLog{Payload: payload, Error: errText}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return apperrors.Database("append webhook log", err)
	}
	return nil
}

// StatusCount is one row of Stats: messages per direction and status.
type StatusCount struct {
	Direction models.Direction `json:"direction"`
	Status    models.Status    `json:"status"`
	Count     int64            `json:"count"`
}

type Stats struct {
	Messages      []StatusCount `json:"messages"`
	Contacts      int64         `json:"contacts"`
	WebhookErrors int64         `json:"webhook_errors"`
	WebhookTotal  int64         `json:"webhook_total"`
}

// Stats summarizes message traffic for the dashboard.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	db := s.db.WithContext(ctx)
	stats := &Stats{Messages: []StatusCount{}}

	err := db.Model(&models.Message{}).
		Select("direction, status, COUNT(*) AS count").
		Group("direction, status").
		Order("direction, status").
		Scan(&stats.Messages).Error
	if err != nil {
		return nil, apperrors.Database("count messages", err)
	}
	if err := db.Model(&models.Contact{}).Count(&stats.Contacts).Error; err != nil {
		return nil, apperrors.Database("count contacts", err)
	}
	if err := db.Model(&models.WebhookLog{}).Count(&stats.WebhookTotal).Error; err != nil {
		return nil, apperrors.Database("count webhook logs", err)
	}
	if err := db.Model(&models.WebhookLog{}).Where("error <> ''").Count(&stats.WebhookErrors).Error; err != nil {
		return nil, apperrors.Database("count webhook errors", err)
	}
	return stats, nil
}
