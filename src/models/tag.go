package models

import (
	"time"

	"github.com/google/uuid"
)

type Tag struct {
	ID        uuid.UUID  `db:"id"`
	Name      string     `db:"name"`
	CreatedBy *uuid.UUID `db:"created_by"`
	CreatedAt time.Time  `db:"created_at"`
}

const MaxTagNameLength = 50

// Tags attach to thread roots only, never to replies.
type ThreadTag struct {
	ThreadID uuid.UUID `db:"thread_id"`
	TagID    uuid.UUID `db:"tag_id"`
}
