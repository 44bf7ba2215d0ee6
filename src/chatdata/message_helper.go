package chatdata

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/opsportal/portal/src/attachments"
	"github.com/opsportal/portal/src/db"
	"github.com/opsportal/portal/src/models"
	"github.com/opsportal/portal/src/objectstore"
	"github.com/opsportal/portal/src/oops"
	"github.com/opsportal/portal/src/perf"
)

const MaxMessageBodyLength = 20000

type ThreadsQuery struct {
	ChannelID uuid.UUID
	TagID     *uuid.UUID // if nil, threads with any tags

	Limit, Offset int // if empty, no pagination
}

type ThreadAndStuff struct {
	Thread       models.Message `db:"thread"`
	Author       *models.User   `db:"author"` // nil if the profile is gone
	ReplyCount   int            `db:"stats.reply_count"`
	LastActivity time.Time      `db:"stats.activity"`
	Tags         []*models.Tag
	Unread       bool
}

/*
ListThreads returns the live threads of a channel, most recently active first.
Ties are broken by thread id so that the order is stable across calls.
*/
func ListThreads(
	ctx context.Context,
	dbConn db.ConnOrTx,
	currentUser *models.User,
	q ThreadsQuery,
) ([]ThreadAndStuff, error) {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("SQL", "Fetch threads")
	defer perf.EndBlock()

	var qb db.QueryBuilder
	qb.Add(
		`
		SELECT $columns
		FROM
			chat_message AS thread
			LEFT JOIN profile AS author ON author.id = thread.created_by
		`+threadStatsJoin+`
		WHERE
			thread.channel_id = $?
			AND thread.parent_id IS NULL
			AND thread.deleted_at IS NULL
		`,
		q.ChannelID,
	)
	if q.TagID != nil {
		qb.Add(
			`
			AND EXISTS (
				SELECT 1 FROM chat_thread_tag AS tt
				WHERE tt.thread_id = thread.id AND tt.tag_id = $?
			)
			`,
			*q.TagID,
		)
	}
	qb.Add(`ORDER BY stats.activity DESC, thread.id ASC`)
	if q.Limit > 0 {
		qb.Add(`LIMIT $? OFFSET $?`, q.Limit, q.Offset)
	}

	rows, err := db.Query[ThreadAndStuff](ctx, dbConn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, oops.New(err, "failed to fetch threads")
	}

	var lastRead *time.Time
	if currentUser != nil {
		lastRead, err = fetchLastRead(ctx, dbConn, currentUser.ID, q.ChannelID)
		if err != nil {
			return nil, err
		}
	}

	threadIDs := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		threadIDs[i] = row.Thread.ID
	}
	tags, err := TagsForThreads(ctx, dbConn, threadIDs)
	if err != nil {
		return nil, err
	}

	result := make([]ThreadAndStuff, len(rows))
	for i, row := range rows {
		row.Tags = tags[row.Thread.ID]
		row.Unread = currentUser != nil && IsUnread(row.LastActivity, lastRead)
		result[i] = *row
	}

	return result, nil
}

type MessageAndStuff struct {
	Message     models.Message `db:"msg"`
	Author      *models.User   `db:"author"`
	Attachments []*models.Attachment
	Reactions   []ReactionSummary
	Mentions    []*models.User
}

// ListReplies returns the live replies to a thread, oldest first.
func ListReplies(ctx context.Context, dbConn db.ConnOrTx, currentUser *models.User, threadID uuid.UUID) ([]MessageAndStuff, error) {
	rows, err := db.Query[MessageAndStuff](ctx, dbConn,
		`
		---- Fetch replies
		SELECT $columns
		FROM
			chat_message AS msg
			LEFT JOIN profile AS author ON author.id = msg.created_by
		WHERE
			msg.parent_id = $1
			AND msg.deleted_at IS NULL
		ORDER BY msg.created_at ASC, msg.id ASC
		`,
		threadID,
	)
	if err != nil {
		return nil, oops.New(err, "failed to fetch replies")
	}

	result := make([]MessageAndStuff, len(rows))
	for i, row := range rows {
		result[i] = *row
	}
	if err := enrichMessages(ctx, dbConn, currentUser, result); err != nil {
		return nil, err
	}
	return result, nil
}

type ThreadWithReplies struct {
	Thread       MessageAndStuff
	Tags         []*models.Tag
	Replies      []MessageAndStuff
	LastActivity time.Time
}

// FetchThreadWithReplies loads a live thread root with everything needed to
// show it.
func FetchThreadWithReplies(ctx context.Context, dbConn db.ConnOrTx, currentUser *models.User, threadID uuid.UUID) (*ThreadWithReplies, error) {
	thread, err := db.QueryOne[MessageAndStuff](ctx, dbConn,
		`
		---- Fetch thread
		SELECT $columns
		FROM
			chat_message AS msg
			LEFT JOIN profile AS author ON author.id = msg.created_by
		WHERE
			msg.id = $1
			AND msg.parent_id IS NULL
			AND msg.deleted_at IS NULL
		`,
		threadID,
	)
	if errors.Is(err, db.NotFound) {
		return nil, ErrThreadNotFound
	} else if err != nil {
		return nil, oops.New(err, "failed to fetch thread")
	}

	threadOnly := []MessageAndStuff{*thread}
	if err := enrichMessages(ctx, dbConn, currentUser, threadOnly); err != nil {
		return nil, err
	}

	replies, err := ListReplies(ctx, dbConn, currentUser, threadID)
	if err != nil {
		return nil, err
	}
	tags, err := TagsForThread(ctx, dbConn, threadID)
	if err != nil {
		return nil, err
	}

	replyTimes := make([]time.Time, len(replies))
	for i, reply := range replies {
		replyTimes[i] = reply.Message.CreatedAt
	}

	return &ThreadWithReplies{
		Thread:       threadOnly[0],
		Tags:         tags,
		Replies:      replies,
		LastActivity: ThreadActivity(thread.Message.CreatedAt, replyTimes),
	}, nil
}

func enrichMessages(ctx context.Context, dbConn db.ConnOrTx, currentUser *models.User, messages []MessageAndStuff) error {
	if len(messages) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(messages))
	for i, m := range messages {
		ids[i] = m.Message.ID
	}

	atts, err := attachments.ListAttachments(ctx, dbConn, ids)
	if err != nil {
		return err
	}
	attsByMessage := make(map[uuid.UUID][]*models.Attachment)
	for _, att := range atts {
		attsByMessage[att.MessageID] = append(attsByMessage[att.MessageID], att)
	}

	reactions, err := ReactionSummaries(ctx, dbConn, currentUser, ids)
	if err != nil {
		return err
	}

	mentions, err := MentionsForMessages(ctx, dbConn, ids)
	if err != nil {
		return err
	}

	for i := range messages {
		messages[i].Attachments = attsByMessage[messages[i].Message.ID]
		messages[i].Reactions = reactions[messages[i].Message.ID]
		messages[i].Mentions = mentions[messages[i].Message.ID]
	}
	return nil
}

// FetchMessage returns a live message, thread or reply.
func FetchMessage(ctx context.Context, dbConn db.ConnOrTx, messageID uuid.UUID) (*models.Message, error) {
	msg, err := db.QueryOne[models.Message](ctx, dbConn,
		`
		---- Fetch message
		SELECT $columns
		FROM chat_message
		WHERE id = $1 AND deleted_at IS NULL
		`,
		messageID,
	)
	if errors.Is(err, db.NotFound) {
		return nil, ErrMessageNotFound
	} else if err != nil {
		return nil, oops.New(err, "failed to fetch message")
	}
	return msg, nil
}

// FetchMessageForAudit returns a message even if it has been deleted, so that
// administrators can still read what was said.
func FetchMessageForAudit(ctx context.Context, dbConn db.ConnOrTx, actor models.User, messageID uuid.UUID) (*MessageAndStuff, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}

	msg, err := db.QueryOne[MessageAndStuff](ctx, dbConn,
		`
		---- Fetch message for audit
		SELECT $columns
		FROM
			chat_message AS msg
			LEFT JOIN profile AS author ON author.id = msg.created_by
		WHERE msg.id = $1
		`,
		messageID,
	)
	if errors.Is(err, db.NotFound) {
		return nil, ErrMessageNotFound
	} else if err != nil {
		return nil, oops.New(err, "failed to fetch message for audit")
	}

	atts, err := attachments.ListAttachments(ctx, dbConn, []uuid.UUID{messageID})
	if err != nil {
		return nil, err
	}
	msg.Attachments = atts

	mentions, err := MentionsForMessages(ctx, dbConn, []uuid.UUID{messageID})
	if err != nil {
		return nil, err
	}
	msg.Mentions = mentions[messageID]
	return msg, nil
}

// Includes deleted messages. Must be called inside a transaction.
func fetchMessageForUpdate(ctx context.Context, tx pgx.Tx, messageID uuid.UUID) (*models.Message, error) {
	msg, err := db.QueryOne[models.Message](ctx, tx,
		`
		---- Lock message
		SELECT $columns
		FROM chat_message
		WHERE id = $1
		FOR SHARE
		`,
		messageID,
	)
	if errors.Is(err, db.NotFound) {
		return nil, ErrMessageNotFound
	} else if err != nil {
		return nil, oops.New(err, "failed to fetch message")
	}
	return msg, nil
}

func cleanBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", oops.InvalidInput("A message can't be empty.")
	}
	if len(body) > MaxMessageBodyLength {
		return "", oops.InvalidInput("Messages can be at most %d characters long.", MaxMessageBodyLength)
	}
	return body, nil
}

type CreateThreadInput struct {
	ChannelID   uuid.UUID
	Body        string
	TagIDs      []uuid.UUID
	MentionIDs  []uuid.UUID
	Attachments []attachments.Upload
}

type CreatedMessage struct {
	Message     *models.Message
	Attachments []*models.Attachment
	Mentions    []*models.User
}

/*
CreateThread creates a thread root along with its tags and attachments, all in
one transaction. Attachments are validated before anything is written. If the
transaction fails after some objects were uploaded, they are deleted again on a
best-effort basis.
*/
func CreateThread(
	ctx context.Context,
	dbConn db.ConnOrTx,
	store objectstore.Store,
	actor models.User,
	in CreateThreadInput,
) (*CreatedMessage, error) {
	body, err := cleanBody(in.Body)
	if err != nil {
		return nil, err
	}
	if err := attachments.ValidateUploads(0, in.Attachments); err != nil {
		return nil, err
	}
	if err := validateMentions(in.MentionIDs); err != nil {
		return nil, err
	}

	var result CreatedMessage
	var written []string
	err = db.Transact(ctx, dbConn, func(tx pgx.Tx) error {
		if err := lockActiveChannel(ctx, tx, in.ChannelID); err != nil {
			return err
		}

		msg, err := db.QueryOne[models.Message](ctx, tx,
			`
			---- Create thread
			INSERT INTO chat_message (channel_id, parent_id, body, created_by)
			VALUES ($1, NULL, $2, $3)
			RETURNING $columns
			`,
			in.ChannelID, body, actor.ID,
		)
		if err != nil {
			return oops.New(err, "failed to create thread")
		}

		if err := insertThreadTags(ctx, tx, msg.ID, in.TagIDs); err != nil {
			return err
		}
		mentions, err := saveMentions(ctx, tx, msg.ID, in.MentionIDs)
		if err != nil {
			return err
		}

		atts, paths, err := attachments.Store(ctx, tx, store, attachments.MessageContext{
			ChannelID:  msg.ChannelID,
			ThreadID:   msg.ID,
			MessageID:  msg.ID,
			UploaderID: actor.ID,
		}, in.Attachments)
		written = paths
		if err != nil {
			return err
		}

		result = CreatedMessage{Message: msg, Attachments: atts, Mentions: mentions}
		return nil
	})
	if err != nil {
		attachments.Cleanup(context.WithoutCancel(ctx), store, written)
		return nil, err
	}

	return &result, nil
}

// Takes a share lock on the channel so it can't be archived while we post
// into it.
func lockActiveChannel(ctx context.Context, tx pgx.Tx, channelID uuid.UUID) error {
	archived, err := db.QueryOneScalar[bool](ctx, tx,
		`
		---- Lock channel
		SELECT is_archived
		FROM chat_channel
		WHERE id = $1
		FOR SHARE
		`,
		channelID,
	)
	if errors.Is(err, db.NotFound) {
		return ErrInvalidChannel
	} else if err != nil {
		return oops.New(err, "failed to lock channel")
	}
	if archived {
		return ErrInvalidChannel
	}
	return nil
}

type CreateReplyInput struct {
	ParentID    uuid.UUID
	Body        string
	MentionIDs  []uuid.UUID
	Attachments []attachments.Upload
}

/*
CreateReply adds a reply to a thread. The parent is locked for the duration of
the transaction, so it can't be deleted between the checks and the insert.
Replies to replies are refused with ErrThreadNotFound: only thread roots can be
replied to.
*/
func CreateReply(
	ctx context.Context,
	dbConn db.ConnOrTx,
	store objectstore.Store,
	actor models.User,
	in CreateReplyInput,
) (*CreatedMessage, error) {
	body, err := cleanBody(in.Body)
	if err != nil {
		return nil, err
	}
	if err := attachments.ValidateUploads(0, in.Attachments); err != nil {
		return nil, err
	}
	if err := validateMentions(in.MentionIDs); err != nil {
		return nil, err
	}

	var result CreatedMessage
	var written []string
	err = db.Transact(ctx, dbConn, func(tx pgx.Tx) error {
		parent, err := fetchMessageForUpdate(ctx, tx, in.ParentID)
		if errors.Is(err, ErrMessageNotFound) {
			return ErrThreadNotFound
		} else if err != nil {
			return err
		}
		if !parent.IsThread() {
			return ErrThreadNotFound
		}
		if parent.IsDeleted() {
			return ErrThreadClosed
		}
		if err := lockActiveChannel(ctx, tx, parent.ChannelID); err != nil {
			return err
		}

		msg, err := db.QueryOne[models.Message](ctx, tx,
			`
			---- Create reply
			INSERT INTO chat_message (channel_id, parent_id, body, created_by)
			VALUES ($1, $2, $3, $4)
			RETURNING $columns
			`,
			parent.ChannelID, parent.ID, body, actor.ID,
		)
		if err != nil {
			return oops.New(err, "failed to create reply")
		}
		mentions, err := saveMentions(ctx, tx, msg.ID, in.MentionIDs)
		if err != nil {
			return err
		}

		atts, paths, err := attachments.Store(ctx, tx, store, attachments.MessageContext{
			ChannelID:  parent.ChannelID,
			ThreadID:   parent.ID,
			MessageID:  msg.ID,
			UploaderID: actor.ID,
		}, in.Attachments)
		written = paths
		if err != nil {
			return err
		}

		result = CreatedMessage{Message: msg, Attachments: atts, Mentions: mentions}
		return nil
	})
	if err != nil {
		attachments.Cleanup(context.WithoutCancel(ctx), store, written)
		return nil, err
	}

	return &result, nil
}

/*
SoftDelete marks a message as deleted. Only the author or an admin may do so.
Deleting an already deleted message succeeds and keeps the original deletion
time.
*/
func SoftDelete(ctx context.Context, dbConn db.ConnOrTx, actor models.User, messageID uuid.UUID) error {
	authorID, err := db.QueryOneScalar[uuid.UUID](ctx, dbConn,
		`
		---- Fetch message author
		SELECT created_by
		FROM chat_message
		WHERE id = $1
		`,
		messageID,
	)
	if errors.Is(err, db.NotFound) {
		return ErrMessageNotFound
	} else if err != nil {
		return oops.New(err, "failed to fetch message author")
	}

	if authorID != actor.ID && !actor.IsAdmin() {
		return ErrNotAuthor
	}

	_, err = dbConn.Exec(ctx,
		`
		---- Soft delete message
		UPDATE chat_message
		SET deleted_at = COALESCE(deleted_at, now())
		WHERE id = $1
		`,
		messageID,
	)
	if err != nil {
		return oops.New(err, "failed to delete message")
	}
	return nil
}

// UpdateMessage edits a message's body. Only the author may edit, and only
// while the message is live.
func UpdateMessage(ctx context.Context, dbConn db.ConnOrTx, actor models.User, messageID uuid.UUID, body string) (*models.Message, error) {
	body, err := cleanBody(body)
	if err != nil {
		return nil, err
	}

	var result *models.Message
	err = db.Transact(ctx, dbConn, func(tx pgx.Tx) error {
		msg, err := fetchMessageForUpdate(ctx, tx, messageID)
		if err != nil {
			return err
		}
		if msg.CreatedBy != actor.ID {
			return ErrNotAuthor
		}
		if msg.IsDeleted() {
			return ErrMessageDeleted
		}

		result, err = db.QueryOne[models.Message](ctx, tx,
			`
			---- Update message
			UPDATE chat_message
			SET body = $2, updated_at = now()
			WHERE id = $1
			RETURNING $columns
			`,
			messageID, body,
		)
		if err != nil {
			return oops.New(err, "failed to update message")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
