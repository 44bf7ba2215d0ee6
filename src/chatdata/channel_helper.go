package chatdata

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/opsportal/portal/src/db"
	"github.com/opsportal/portal/src/models"
	"github.com/opsportal/portal/src/oops"
	"github.com/opsportal/portal/src/perf"
)

func ListChannels(ctx context.Context, dbConn db.ConnOrTx, includeArchived bool) ([]*models.Channel, error) {
	var qb db.QueryBuilder
	qb.Add(
		`
		---- List channels
		SELECT $columns
		FROM chat_channel
		WHERE TRUE
		`,
	)
	if !includeArchived {
		qb.Add(`AND NOT is_archived`)
	}
	qb.Add(`ORDER BY name ASC, id ASC`)

	channels, err := db.Query[models.Channel](ctx, dbConn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, oops.New(err, "failed to list channels")
	}
	return channels, nil
}

// FetchChannelBySlug matches the slug exactly, case included. Archived
// channels are still returned.
func FetchChannelBySlug(ctx context.Context, dbConn db.ConnOrTx, slug string) (*models.Channel, error) {
	channel, err := db.QueryOne[models.Channel](ctx, dbConn,
		`
		---- Fetch channel by slug
		SELECT $columns
		FROM chat_channel
		WHERE slug = $1
		`,
		slug,
	)
	if errors.Is(err, db.NotFound) {
		return nil, ErrChannelNotFound
	} else if err != nil {
		return nil, oops.New(err, "failed to fetch channel by slug")
	}
	return channel, nil
}

func FetchChannel(ctx context.Context, dbConn db.ConnOrTx, channelID uuid.UUID) (*models.Channel, error) {
	channel, err := db.QueryOne[models.Channel](ctx, dbConn,
		`
		---- Fetch channel
		SELECT $columns
		FROM chat_channel
		WHERE id = $1
		`,
		channelID,
	)
	if errors.Is(err, db.NotFound) {
		return nil, ErrChannelNotFound
	} else if err != nil {
		return nil, oops.New(err, "failed to fetch channel")
	}
	return channel, nil
}

type CreateChannelInput struct {
	Slug        string
	Name        string
	Description string
}

func CreateChannel(ctx context.Context, dbConn db.ConnOrTx, actor models.User, in CreateChannelInput) (*models.Channel, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}

	slug := models.NormalizeChannelSlug(in.Slug)
	if slug == "" {
		return nil, oops.InvalidInput("A channel needs a slug made of letters, numbers or hyphens.")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, oops.InvalidInput("A channel needs a name.")
	}

	channel, err := db.QueryOne[models.Channel](ctx, dbConn,
		`
		---- Create channel
		INSERT INTO chat_channel (slug, name, description, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING $columns
		`,
		slug, name, nullIfBlank(in.Description), actor.ID,
	)
	if db.IsUniqueViolation(err) {
		return nil, oops.InvalidInput("The slug '%s' is already in use.", slug)
	} else if err != nil {
		return nil, oops.New(err, "failed to create channel")
	}
	return channel, nil
}

// Nil fields are left unchanged. A channel's slug can never be changed.
type UpdateChannelInput struct {
	Name        *string
	Description *string
	Archived    *bool
}

func UpdateChannel(ctx context.Context, dbConn db.ConnOrTx, actor models.User, channelID uuid.UUID, in UpdateChannelInput) (*models.Channel, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	if in == (UpdateChannelInput{}) {
		return FetchChannel(ctx, dbConn, channelID)
	}

	var qb db.QueryBuilder
	qb.Add(
		`
		---- Update channel
		UPDATE chat_channel
		SET id = id
		`,
	)
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, oops.InvalidInput("A channel needs a name.")
		}
		qb.Add(`, name = $?`, name)
	}
	if in.Description != nil {
		qb.Add(`, description = $?`, nullIfBlank(*in.Description))
	}
	if in.Archived != nil {
		qb.Add(`, is_archived = $?`, *in.Archived)
	}
	qb.Add(`WHERE id = $? RETURNING $columns`, channelID)

	channel, err := db.QueryOne[models.Channel](ctx, dbConn, qb.String(), qb.Args()...)
	if errors.Is(err, db.NotFound) {
		return nil, ErrChannelNotFound
	} else if err != nil {
		return nil, oops.New(err, "failed to update channel")
	}
	return channel, nil
}

type ChannelWithUnread struct {
	Channel     models.Channel `db:"channel"`
	UnreadCount int            `db:"unread.thread_count"`
}

// TotalUnread is the number of unread threads across the active channels in
// a listing. Archived channels are frozen and don't count.
func TotalUnread(channels []*ChannelWithUnread) int {
	total := 0
	for _, c := range channels {
		if !c.Channel.IsArchived {
			total += c.UnreadCount
		}
	}
	return total
}

// ListChannelsWithUnread is ListChannels plus each channel's unread count for
// userID, computed the same way as UnreadCountForChannel.
func ListChannelsWithUnread(ctx context.Context, dbConn db.ConnOrTx, userID uuid.UUID, includeArchived bool) ([]*ChannelWithUnread, error) {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("SQL", "List channels with unread")
	defer perf.EndBlock()

	var qb db.QueryBuilder
	qb.Add(
		`
		SELECT $columns
		FROM
			chat_channel AS channel
			LEFT JOIN chat_unread_marker AS marker ON (
				marker.channel_id = channel.id
				AND marker.user_id = $?
			)
			JOIN LATERAL (
				SELECT COUNT(*) AS thread_count
				FROM
					chat_message AS thread
		`+threadStatsJoin+`
				WHERE
					thread.channel_id = channel.id
					AND thread.parent_id IS NULL
					AND thread.deleted_at IS NULL
					AND `+threadIsUnread+`
			) AS unread ON TRUE
		WHERE TRUE
		`,
		userID,
	)
	if !includeArchived {
		qb.Add(`AND NOT channel.is_archived`)
	}
	qb.Add(`ORDER BY channel.name ASC, channel.id ASC`)

	channels, err := db.Query[ChannelWithUnread](ctx, dbConn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, oops.New(err, "failed to list channels with unread counts")
	}
	return channels, nil
}

func nullIfBlank(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
