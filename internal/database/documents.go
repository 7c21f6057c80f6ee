package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "waba-integration/internal/errors"
	"waba-integration/internal/models"

	"gorm.io/gorm"
)

// DocumentStore keeps document snapshots and serves them to template
// rendering. Unknown documents load as nil.
type DocumentStore struct {
	db *gorm.DB
}

func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Save(ctx context.Context, documentType, documentName string, data map[string]interface{}) error {
	if documentType == "" || documentName == "" {
		return apperrors.Validation("document type and name are required")
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document %s %s: %w", documentType, documentName, err)
	}

	doc := models.Document{DocumentType: documentType, DocumentName: documentName, Data: string(encoded)}
	if err := s.db.WithContext(ctx).Save(&doc).Error; err != nil {
		return apperrors.Database("save document", err)
	}
	return nil
}

func (s *DocumentStore) Load(ctx context.Context, documentType, documentName string) (map[string]interface{}, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).
		Where("document_type = ? AND document_name = ?", documentType, documentName).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Database("load document", err)
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(doc.Data), &data); err != nil {
		return nil, fmt.Errorf("decode document %s %s: %w", documentType, documentName, err)
	}
	return data, nil
}
