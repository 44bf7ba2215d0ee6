package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Channel struct {
	ID          uuid.UUID `db:"id"`
	Slug        string    `db:"slug"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	IsArchived  bool      `db:"is_archived"`
	CreatedBy   uuid.UUID `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
}

const MaxChannelSlugLength = 64

var REChannelSlugInvalid = regexp.MustCompile(`[^a-z0-9-]+`)

// NormalizeChannelSlug lowercases s and collapses anything that isn't a
// lowercase letter, digit or hyphen into a single hyphen.
func NormalizeChannelSlug(s string) string {
	slug := strings.ToLower(strings.TrimSpace(s))
	slug = REChannelSlugInvalid.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > MaxChannelSlugLength {
		slug = strings.TrimRight(slug[:MaxChannelSlugLength], "-")
	}
	return slug
}
