package chatdata

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/opsportal/portal/src/db"
	"github.com/opsportal/portal/src/models"
	"github.com/opsportal/portal/src/oops"
	"github.com/opsportal/portal/src/utils"
)

const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 100
)

type SearchQuery struct {
	Query     string
	ChannelID *uuid.UUID
	TagID     *uuid.UUID
}

type SearchResult struct {
	Channel models.Channel `db:"channel"`
	ThreadAndStuff
}

/*
SearchThreads finds live threads in active channels whose body contains the
query, or which carry a tag whose name contains it. Matching is plain
case-insensitive substring matching; results come back most recently active
first with no relevance ranking.
*/
func SearchThreads(ctx context.Context, dbConn db.ConnOrTx, q SearchQuery, limit int) ([]SearchResult, error) {
	query := strings.TrimSpace(q.Query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	limit = utils.Clamp(1, limit, MaxSearchLimit)
	pattern := db.ContainsPattern(query)

	var qb db.QueryBuilder
	qb.Add(
		`
		---- Search threads
		SELECT $columns
		FROM
			chat_message AS thread
			JOIN chat_channel AS channel ON channel.id = thread.channel_id
			LEFT JOIN profile AS author ON author.id = thread.created_by
		`+threadStatsJoin+`
		WHERE
			thread.parent_id IS NULL
			AND thread.deleted_at IS NULL
			AND NOT channel.is_archived
			AND (
				thread.body ILIKE $?
				OR EXISTS (
					SELECT 1
					FROM
						chat_thread_tag AS tt
						JOIN chat_tag AS tag ON tag.id = tt.tag_id
					WHERE tt.thread_id = thread.id AND tag.name ILIKE $?
				)
			)
		`,
		pattern, pattern,
	)
	if q.ChannelID != nil {
		qb.Add(`AND thread.channel_id = $?`, *q.ChannelID)
	}
	if q.TagID != nil {
		qb.Add(`AND EXISTS (SELECT 1 FROM chat_thread_tag AS tt WHERE tt.thread_id = thread.id AND tt.tag_id = $?)`, *q.TagID)
	}
	qb.Add(`ORDER BY stats.activity DESC, thread.id ASC LIMIT $?`, limit)

	rows, err := db.Query[SearchResult](ctx, dbConn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, oops.New(err, "failed to search threads")
	}

	threadIDs := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		threadIDs[i] = row.Thread.ID
	}
	tags, err := TagsForThreads(ctx, dbConn, threadIDs)
	if err != nil {
		return nil, err
	}

	result := make([]SearchResult, len(rows))
	for i, row := range rows {
		row.Tags = tags[row.Thread.ID]
		result[i] = *row
	}
	return result, nil
}
