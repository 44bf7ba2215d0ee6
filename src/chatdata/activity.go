package chatdata

import (
	"time"
)

/*
A thread's activity is the later of its own creation and its newest non-deleted
reply. Thread ordering and unread counts both use it, in SQL through
threadStatsJoin and in Go through ThreadActivity, and the two must agree.
*/

// Joins "stats" (reply_count, activity) onto a row aliased "thread".
const threadStatsJoin = `
	JOIN LATERAL (
		SELECT
			COUNT(reply.id) AS reply_count,
			GREATEST(thread.created_at, COALESCE(MAX(reply.created_at), thread.created_at)) AS activity
		FROM chat_message AS reply
		WHERE
			reply.parent_id = thread.id
			AND reply.deleted_at IS NULL
	) AS stats ON TRUE
`

// Expects "stats" from threadStatsJoin and a LEFT JOINed chat_unread_marker
// aliased "marker".
const threadIsUnread = `(marker.last_read_at IS NULL OR stats.activity > marker.last_read_at)`

func ThreadActivity(threadCreatedAt time.Time, replyCreatedAts []time.Time) time.Time {
	activity := threadCreatedAt
	for _, t := range replyCreatedAts {
		if t.After(activity) {
			activity = t
		}
	}
	return activity
}

// IsUnread reports whether a thread with the given activity is unread for a
// user whose marker is lastRead. A nil marker means the channel was never read.
func IsUnread(activity time.Time, lastRead *time.Time) bool {
	return lastRead == nil || activity.After(*lastRead)
}
