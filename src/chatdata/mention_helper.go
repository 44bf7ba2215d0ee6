package chatdata

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/opsportal/portal/src/db"
	"github.com/opsportal/portal/src/models"
	"github.com/opsportal/portal/src/oops"
	"github.com/opsportal/portal/src/utils"
)

const (
	MaxMentionsPerMessage = 20

	DefaultMentionsLimit = 50
	MaxMentionsLimit     = 100

	DefaultMentionCandidatesLimit = 10
	MaxMentionCandidatesLimit     = 20
)

func validateMentions(userIDs []uuid.UUID) error {
	if len(uniqueIDs(userIDs)) > MaxMentionsPerMessage {
		return oops.InvalidInput("A message can mention at most %d people.", MaxMentionsPerMessage)
	}
	return nil
}

// insertMentions records who a new message mentions. Every id must belong to
// an existing profile, otherwise the surrounding transaction rolls back.
func insertMentions(ctx context.Context, tx pgx.Tx, messageID uuid.UUID, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}

	tag, err := tx.Exec(ctx,
		`
		---- Insert mentions
		INSERT INTO chat_message_mention (message_id, mentioned_user_id)
		SELECT $1, profile.id
		FROM profile
		WHERE profile.id = ANY($2)
		ON CONFLICT DO NOTHING
		`,
		messageID, userIDs,
	)
	if err != nil {
		return oops.New(err, "failed to save mentions")
	}
	if int(tag.RowsAffected()) != len(uniqueIDs(userIDs)) {
		return oops.InvalidInput("One or more of the mentioned people don't exist.")
	}
	return nil
}

func saveMentions(ctx context.Context, tx pgx.Tx, messageID uuid.UUID, userIDs []uuid.UUID) ([]*models.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	if err := insertMentions(ctx, tx, messageID, userIDs); err != nil {
		return nil, err
	}
	mentions, err := MentionsForMessages(ctx, tx, []uuid.UUID{messageID})
	if err != nil {
		return nil, err
	}
	return mentions[messageID], nil
}

// MentionsForMessages fetches the mentioned profiles of many messages in one
// query. Messages without mentions have no entry in the result.
func MentionsForMessages(ctx context.Context, dbConn db.ConnOrTx, messageIDs []uuid.UUID) (map[uuid.UUID][]*models.User, error) {
	result := make(map[uuid.UUID][]*models.User)
	if len(messageIDs) == 0 {
		return result, nil
	}

	type mentionRow struct {
		MessageID uuid.UUID   `db:"mention.message_id"`
		User      models.User `db:"profile"`
	}
	rows, err := db.Query[mentionRow](ctx, dbConn,
		`
		---- Fetch mentions for messages
		SELECT $columns
		FROM
			chat_message_mention AS mention
			JOIN profile ON profile.id = mention.mentioned_user_id
		WHERE mention.message_id = ANY($1)
		ORDER BY lower(COALESCE(profile.display_name, profile.email)) ASC, profile.id ASC
		`,
		messageIDs,
	)
	if err != nil {
		return nil, oops.New(err, "failed to fetch mentions")
	}

	for _, row := range rows {
		user := row.User
		result[row.MessageID] = append(result[row.MessageID], &user)
	}
	return result, nil
}

type MentionedMessage struct {
	Channel models.Channel `db:"channel"`
	MessageAndStuff
}

/*
ListMentions returns the live messages that mention a user, newest first.
Replies in deleted threads are left out along with the threads themselves.
*/
func ListMentions(ctx context.Context, dbConn db.ConnOrTx, currentUser models.User, limit int) ([]MentionedMessage, error) {
	if limit <= 0 {
		limit = DefaultMentionsLimit
	}
	limit = utils.Clamp(1, limit, MaxMentionsLimit)

	rows, err := db.Query[MentionedMessage](ctx, dbConn,
		`
		---- List mentions
		SELECT $columns
		FROM
			chat_message_mention AS mention
			JOIN chat_message AS msg ON msg.id = mention.message_id
			JOIN chat_channel AS channel ON channel.id = msg.channel_id
			LEFT JOIN profile AS author ON author.id = msg.created_by
		WHERE
			mention.mentioned_user_id = $1
			AND msg.deleted_at IS NULL
			AND NOT EXISTS (
				SELECT 1
				FROM chat_message AS parent
				WHERE parent.id = msg.parent_id AND parent.deleted_at IS NOT NULL
			)
		ORDER BY msg.created_at DESC, msg.id ASC
		LIMIT $2
		`,
		currentUser.ID,
		limit,
	)
	if err != nil {
		return nil, oops.New(err, "failed to list mentions")
	}

	messages := make([]MessageAndStuff, len(rows))
	for i, row := range rows {
		messages[i] = row.MessageAndStuff
	}
	if err := enrichMessages(ctx, dbConn, &currentUser, messages); err != nil {
		return nil, err
	}

	result := make([]MentionedMessage, len(rows))
	for i, row := range rows {
		result[i] = MentionedMessage{Channel: row.Channel, MessageAndStuff: messages[i]}
	}
	return result, nil
}

// SearchMentionCandidates finds people to mention by display name or email.
// A blank query matches nothing.
func SearchMentionCandidates(ctx context.Context, dbConn db.ConnOrTx, query string, limit int) ([]*models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultMentionCandidatesLimit
	}
	limit = utils.Clamp(1, limit, MaxMentionCandidatesLimit)

	users, err := db.Query[models.User](ctx, dbConn,
		`
		---- Search mention candidates
		SELECT $columns
		FROM profile
		WHERE display_name ILIKE $1 OR email ILIKE $1
		ORDER BY lower(COALESCE(display_name, email)) ASC, id ASC
		LIMIT $2
		`,
		db.ContainsPattern(query),
		limit,
	)
	if err != nil {
		return nil, oops.New(err, "failed to search mention candidates")
	}
	return users, nil
}
