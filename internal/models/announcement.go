package models

import (
	"errors"
	"strings"
	"time"
)

var ErrTitleRequired = errors.New("title is required")

type Announcement struct {
	ID             string    `db:"id" json:"id"`
	Title          string    `db:"title" json:"title"`
	Description    string    `db:"description" json:"description"`
	ImageReference *string   `db:"image_url" json:"image_reference"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

func NewAnnouncement(title, description string, imageReference *string) (Announcement, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Announcement{}, ErrTitleRequired
	}
	return Announcement{
		Title:          title,
		Description:    strings.TrimSpace(description),
		ImageReference: imageReference,
	}, nil
}
