package chatdata

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/opsportal/portal/src/db"
	"github.com/opsportal/portal/src/oops"
)

// UnreadCountForChannel counts the live threads in a channel with activity
// after the user's marker, or all of them if the user has no marker.
func UnreadCountForChannel(ctx context.Context, dbConn db.ConnOrTx, userID, channelID uuid.UUID) (int, error) {
	count, err := db.QueryOneScalar[int](ctx, dbConn,
		`
		---- Count unread threads
		SELECT COUNT(*)
		FROM
			chat_message AS thread
			LEFT JOIN chat_unread_marker AS marker ON (
				marker.channel_id = thread.channel_id
				AND marker.user_id = $2
			)
		`+threadStatsJoin+`
		WHERE
			thread.channel_id = $1
			AND thread.parent_id IS NULL
			AND thread.deleted_at IS NULL
			AND `+threadIsUnread,
		channelID, userID,
	)
	if err != nil {
		return 0, oops.New(err, "failed to count unread threads")
	}
	return count, nil
}

/*
MarkRead moves the user's marker for a channel forward to at. A nil at means
the database's current time, and a later one is clamped to it, since message
timestamps come from the database too. The marker never moves backwards, so a
late request from a stale session can't make threads unread again.
*/
func MarkRead(ctx context.Context, dbConn db.ConnOrTx, userID, channelID uuid.UUID, at *time.Time) error {
	_, err := dbConn.Exec(ctx,
		`
		---- Mark channel read
		INSERT INTO chat_unread_marker (user_id, channel_id, last_read_at)
		VALUES ($1, $2, LEAST(COALESCE($3::timestamptz, now()), now()))
		ON CONFLICT (user_id, channel_id) DO UPDATE
			SET last_read_at = GREATEST(chat_unread_marker.last_read_at, EXCLUDED.last_read_at)
		`,
		userID, channelID, at,
	)
	if err != nil {
		return oops.New(err, "failed to mark channel read")
	}
	return nil
}

// MarkAllChannelsRead applies MarkRead to every active channel at once.
func MarkAllChannelsRead(ctx context.Context, dbConn db.ConnOrTx, userID uuid.UUID, at *time.Time) error {
	_, err := dbConn.Exec(ctx,
		`
		---- Mark all channels read
		INSERT INTO chat_unread_marker (user_id, channel_id, last_read_at)
		SELECT $1, channel.id, LEAST(COALESCE($2::timestamptz, now()), now())
		FROM chat_channel AS channel
		WHERE NOT channel.is_archived
		ON CONFLICT (user_id, channel_id) DO UPDATE
			SET last_read_at = GREATEST(chat_unread_marker.last_read_at, EXCLUDED.last_read_at)
		`,
		userID, at,
	)
	if err != nil {
		return oops.New(err, "failed to mark all channels read")
	}
	return nil
}

// fetchLastRead returns nil if the user has never read the channel.
func fetchLastRead(ctx context.Context, dbConn db.ConnOrTx, userID, channelID uuid.UUID) (*time.Time, error) {
	lastRead, err := db.QueryOneScalar[time.Time](ctx, dbConn,
		`
		---- Fetch unread marker
		SELECT last_read_at
		FROM chat_unread_marker
		WHERE user_id = $1 AND channel_id = $2
		`,
		userID, channelID,
	)
	if errors.Is(err, db.NotFound) {
		return nil, nil
	} else if err != nil {
		return nil, oops.New(err, "failed to fetch unread marker")
	}
	return &lastRead, nil
}
