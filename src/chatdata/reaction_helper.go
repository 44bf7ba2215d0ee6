package chatdata

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/opsportal/portal/src/db"
	"github.com/opsportal/portal/src/models"
	"github.com/opsportal/portal/src/oops"
)

type ReactionSummary struct {
	Emoji       string
	Count       int
	ReactedByMe bool
}

// ToggleReaction adds the reaction if the actor hasn't made it yet and removes
// it otherwise. It reports whether the reaction is present afterwards.
func ToggleReaction(ctx context.Context, dbConn db.ConnOrTx, actor models.User, messageID uuid.UUID, emoji string) (bool, error) {
	if !models.IsReactionEmoji(emoji) {
		return false, oops.InvalidInput("That reaction isn't available.")
	}

	var present bool
	err := db.Transact(ctx, dbConn, func(tx pgx.Tx) error {
		msg, err := fetchMessageForUpdate(ctx, tx, messageID)
		if err != nil {
			return err
		}
		if msg.IsDeleted() {
			return ErrMessageDeleted
		}

		removed, err := tx.Exec(ctx,
			`
			---- Remove reaction
			DELETE FROM chat_reaction
			WHERE message_id = $1 AND user_id = $2 AND emoji = $3
			`,
			messageID, actor.ID, emoji,
		)
		if err != nil {
			return oops.New(err, "failed to remove reaction")
		}
		if removed.RowsAffected() > 0 {
			present = false
			return nil
		}

		_, err = tx.Exec(ctx,
			`
			---- Add reaction
			INSERT INTO chat_reaction (message_id, user_id, emoji)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
			`,
			messageID, actor.ID, emoji,
		)
		if err != nil {
			return oops.New(err, "failed to add reaction")
		}
		present = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return present, nil
}

// ReactionSummaries tallies reactions per message, in the fixed order of
// models.ReactionEmojis. Emojis nobody used are left out.
func ReactionSummaries(ctx context.Context, dbConn db.ConnOrTx, currentUser *models.User, messageIDs []uuid.UUID) (map[uuid.UUID][]ReactionSummary, error) {
	result := make(map[uuid.UUID][]ReactionSummary)
	if len(messageIDs) == 0 {
		return result, nil
	}

	var currentUserID *uuid.UUID
	if currentUser != nil {
		currentUserID = &currentUser.ID
	}

	type reactionRow struct {
		MessageID   uuid.UUID `db:"message_id"`
		Emoji       string    `db:"emoji"`
		Count       int       `db:"reaction_count"`
		ReactedByMe bool      `db:"reacted_by_me"`
	}
	rows, err := db.Query[reactionRow](ctx, dbConn,
		`
		---- Fetch reaction summaries
		SELECT $columns
		FROM (
			SELECT
				message_id,
				emoji,
				COUNT(*) AS reaction_count,
				COALESCE(bool_or(user_id = $2), FALSE) AS reacted_by_me
			FROM chat_reaction
			WHERE message_id = ANY($1)
			GROUP BY message_id, emoji
		) AS tally
		`,
		messageIDs, currentUserID,
	)
	if err != nil {
		return nil, oops.New(err, "failed to fetch reactions")
	}

	byMessage := make(map[uuid.UUID]map[string]*reactionRow)
	for _, row := range rows {
		if byMessage[row.MessageID] == nil {
			byMessage[row.MessageID] = make(map[string]*reactionRow)
		}
		byMessage[row.MessageID][row.Emoji] = row
	}
	for messageID, counts := range byMessage {
		for _, emoji := range models.ReactionEmojis {
			if row, ok := counts[emoji]; ok {
				result[messageID] = append(result[messageID], ReactionSummary{
					Emoji:       emoji,
					Count:       row.Count,
					ReactedByMe: row.ReactedByMe,
				})
			}
		}
	}
	return result, nil
}
