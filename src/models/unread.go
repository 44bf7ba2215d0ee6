package models

import (
	"time"

	"github.com/google/uuid"
)

// A missing marker means the user has never read the channel.
type UnreadMarker struct {
	UserID     uuid.UUID `db:"user_id"`
	ChannelID  uuid.UUID `db:"channel_id"`
	LastReadAt time.Time `db:"last_read_at"`
}
