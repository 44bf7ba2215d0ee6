package models

import (
	"time"

	"github.com/google/uuid"
)

type Attachment struct {
	ID         uuid.UUID `db:"id"`
	MessageID  uuid.UUID `db:"message_id"`
	ObjectPath string    `db:"object_path"`
	FileName   string    `db:"file_name"`
	MimeType   string    `db:"mime_type"`
	SizeBytes  int64     `db:"size_bytes"`
	CreatedBy  uuid.UUID `db:"created_by"`
	CreatedAt  time.Time `db:"created_at"`
}
