package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type Reaction struct {
	MessageID uuid.UUID `db:"message_id"`
	UserID    uuid.UUID `db:"user_id"`
	Emoji     string    `db:"emoji"`
	CreatedAt time.Time `db:"created_at"`
}

// The only reactions we accept, in display order.
var ReactionEmojis = []string{"👍", "❤️", "😂", "👀", "✅"}

func IsReactionEmoji(emoji string) bool {
	return slices.Contains(ReactionEmojis, emoji)
}
