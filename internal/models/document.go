package models

import (
	"errors"
	"time"
)

type Document struct {
	ID             string    `db:"id" json:"id"`
	OwnerID        string    `db:"user_id" json:"owner_id"`
	Category       Category  `db:"category" json:"category"`
	ImageReference string    `db:"image_url" json:"image_reference"`
	ExtractedText  string    `db:"extracted_text" json:"extracted_text"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// NewDocument validates the fields every stored document must carry.
func NewDocument(ownerID string, category Category, imageReference, extractedText string, createdAt time.Time) (Document, error) {
	if ownerID == "" {
		return Document{}, errors.New("document owner is required")
	}
	if !category.Valid() {
		return Document{}, ErrUnknownCategory
	}
	if imageReference == "" {
		return Document{}, errors.New("document image reference is required")
	}
	return Document{
		OwnerID:        ownerID,
		Category:       category,
		ImageReference: imageReference,
		ExtractedText:  extractedText,
		CreatedAt:      createdAt,
	}, nil
}
