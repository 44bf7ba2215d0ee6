package chatdata

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/opsportal/portal/src/db"
	"github.com/opsportal/portal/src/models"
	"github.com/opsportal/portal/src/oops"
	"github.com/opsportal/portal/src/utils"
)

const (
	DefaultTagSearchLimit = 20
	MaxTagSearchLimit     = 20
)

func ListTags(ctx context.Context, dbConn db.ConnOrTx) ([]*models.Tag, error) {
	tags, err := db.Query[models.Tag](ctx, dbConn,
		`
		---- List tags
		SELECT $columns
		FROM chat_tag
		ORDER BY lower(name) ASC, id ASC
		`,
	)
	if err != nil {
		return nil, oops.New(err, "failed to list tags")
	}
	return tags, nil
}

// SearchTags does a case-insensitive substring match on tag names. A blank
// query matches nothing, and limit is clamped to MaxTagSearchLimit.
func SearchTags(ctx context.Context, dbConn db.ConnOrTx, query string, limit int) ([]*models.Tag, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultTagSearchLimit
	}
	limit = utils.Clamp(1, limit, MaxTagSearchLimit)

	tags, err := db.Query[models.Tag](ctx, dbConn,
		`
		---- Search tags
		SELECT $columns
		FROM chat_tag
		WHERE name ILIKE $1
		ORDER BY lower(name) ASC, id ASC
		LIMIT $2
		`,
		db.ContainsPattern(query),
		limit,
	)
	if err != nil {
		return nil, oops.New(err, "failed to search tags")
	}
	return tags, nil
}

func FetchTag(ctx context.Context, dbConn db.ConnOrTx, tagID uuid.UUID) (*models.Tag, error) {
	tag, err := db.QueryOne[models.Tag](ctx, dbConn,
		`
		---- Fetch tag
		SELECT $columns
		FROM chat_tag
		WHERE id = $1
		`,
		tagID,
	)
	if errors.Is(err, db.NotFound) {
		return nil, ErrTagNotFound
	} else if err != nil {
		return nil, oops.New(err, "failed to fetch tag")
	}
	return tag, nil
}

func TagsForThread(ctx context.Context, dbConn db.ConnOrTx, threadID uuid.UUID) ([]*models.Tag, error) {
	byThread, err := TagsForThreads(ctx, dbConn, []uuid.UUID{threadID})
	if err != nil {
		return nil, err
	}
	return byThread[threadID], nil
}

// TagsForThreads fetches the tags of many threads in one query. Threads
// without tags have no entry in the result.
func TagsForThreads(ctx context.Context, dbConn db.ConnOrTx, threadIDs []uuid.UUID) (map[uuid.UUID][]*models.Tag, error) {
	result := make(map[uuid.UUID][]*models.Tag)
	if len(threadIDs) == 0 {
		return result, nil
	}

	type tagRow struct {
		ThreadID uuid.UUID  `db:"tt.thread_id"`
		Tag      models.Tag `db:"tag"`
	}
	rows, err := db.Query[tagRow](ctx, dbConn,
		`
		---- Fetch tags for threads
		SELECT $columns
		FROM
			chat_thread_tag AS tt
			JOIN chat_tag AS tag ON tag.id = tt.tag_id
		WHERE tt.thread_id = ANY($1)
		ORDER BY lower(tag.name) ASC, tag.id ASC
		`,
		threadIDs,
	)
	if err != nil {
		return nil, oops.New(err, "failed to fetch tags for threads")
	}

	for _, row := range rows {
		tag := row.Tag
		result[row.ThreadID] = append(result[row.ThreadID], &tag)
	}
	return result, nil
}

// ThreadIDsForTag returns the live threads carrying a tag.
func ThreadIDsForTag(ctx context.Context, dbConn db.ConnOrTx, tagID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := db.QueryScalar[uuid.UUID](ctx, dbConn,
		`
		---- Fetch thread ids for tag
		SELECT tt.thread_id
		FROM
			chat_thread_tag AS tt
			JOIN chat_message AS thread ON thread.id = tt.thread_id
		WHERE
			tt.tag_id = $1
			AND thread.deleted_at IS NULL
		ORDER BY tt.thread_id
		`,
		tagID,
	)
	if err != nil {
		return nil, oops.New(err, "failed to fetch threads for tag")
	}
	return ids, nil
}

/*
CreateTag creates a tag, or returns the existing one if a tag by that name
already exists in any capitalization. Any member may create tags.
*/
func CreateTag(ctx context.Context, dbConn db.ConnOrTx, actor models.User, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, oops.InvalidInput("A tag needs a name.")
	}
	if utf8.RuneCountInString(name) > models.MaxTagNameLength {
		return nil, oops.InvalidInput("Tag names can be at most %d characters.", models.MaxTagNameLength)
	}

	var result *models.Tag
	err := db.Transact(ctx, dbConn, func(tx pgx.Tx) error {
		// ON CONFLICT DO NOTHING returns no row when the tag exists, so we
		// follow up with a lookup in that case.
		tag, err := db.QueryOne[models.Tag](ctx, tx,
			`
			---- Create tag
			INSERT INTO chat_tag (name, created_by)
			VALUES ($1, $2)
			ON CONFLICT (lower(name)) DO NOTHING
			RETURNING $columns
			`,
			name, actor.ID,
		)
		if errors.Is(err, db.NotFound) {
			tag, err = db.QueryOne[models.Tag](ctx, tx,
				`
				---- Fetch tag by name
				SELECT $columns
				FROM chat_tag
				WHERE lower(name) = lower($1)
				`,
				name,
			)
		}
		if err != nil {
			return oops.New(err, "failed to create tag")
		}
		result = tag
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteTag removes a tag and, through the foreign key cascade, its thread
// associations. The threads themselves are untouched.
func DeleteTag(ctx context.Context, dbConn db.ConnOrTx, actor models.User, tagID uuid.UUID) error {
	if !actor.IsAdmin() {
		return ErrAdminOnly
	}

	tag, err := dbConn.Exec(ctx,
		`
		---- Delete tag
		DELETE FROM chat_tag
		WHERE id = $1
		`,
		tagID,
	)
	if err != nil {
		return oops.New(err, "failed to delete tag")
	}
	if tag.RowsAffected() == 0 {
		return ErrTagNotFound
	}
	return nil
}

func AddTagToThread(ctx context.Context, dbConn db.ConnOrTx, actor models.User, threadID, tagID uuid.UUID) error {
	return db.Transact(ctx, dbConn, func(tx pgx.Tx) error {
		if err := checkCanTagThread(ctx, tx, actor, threadID); err != nil {
			return err
		}
		if _, err := FetchTag(ctx, tx, tagID); err != nil {
			return err
		}

		_, err := tx.Exec(ctx,
			`
			---- Add tag to thread
			INSERT INTO chat_thread_tag (thread_id, tag_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
			`,
			threadID, tagID,
		)
		if err != nil {
			return oops.New(err, "failed to add tag to thread")
		}
		return nil
	})
}

func RemoveTagFromThread(ctx context.Context, dbConn db.ConnOrTx, actor models.User, threadID, tagID uuid.UUID) error {
	return db.Transact(ctx, dbConn, func(tx pgx.Tx) error {
		if err := checkCanTagThread(ctx, tx, actor, threadID); err != nil {
			return err
		}

		_, err := tx.Exec(ctx,
			`
			---- Remove tag from thread
			DELETE FROM chat_thread_tag
			WHERE thread_id = $1 AND tag_id = $2
			`,
			threadID, tagID,
		)
		if err != nil {
			return oops.New(err, "failed to remove tag from thread")
		}
		return nil
	})
}

// Only thread roots carry tags, and only their author or an admin may change
// them.
func checkCanTagThread(ctx context.Context, tx pgx.Tx, actor models.User, threadID uuid.UUID) error {
	msg, err := fetchMessageForUpdate(ctx, tx, threadID)
	if errors.Is(err, ErrMessageNotFound) {
		return ErrThreadNotFound
	} else if err != nil {
		return err
	}

	if !msg.IsThread() {
		return oops.InvalidInput("Tags can only be added to threads, not replies.")
	}
	if msg.IsDeleted() {
		return ErrThreadNotFound
	}
	if msg.CreatedBy != actor.ID && !actor.IsAdmin() {
		return ErrNotAuthor
	}
	return nil
}

// insertThreadTags associates tags with a freshly created thread. Unknown tag
// ids are rejected so the surrounding transaction rolls back.
func insertThreadTags(ctx context.Context, tx pgx.Tx, threadID uuid.UUID, tagIDs []uuid.UUID) error {
	if len(tagIDs) == 0 {
		return nil
	}

	tag, err := tx.Exec(ctx,
		`
		---- Insert thread tags
		INSERT INTO chat_thread_tag (thread_id, tag_id)
		SELECT $1, tag.id
		FROM chat_tag AS tag
		WHERE tag.id = ANY($2)
		ON CONFLICT DO NOTHING
		`,
		threadID, tagIDs,
	)
	if err != nil {
		return oops.New(err, "failed to tag thread")
	}
	if int(tag.RowsAffected()) != len(uniqueIDs(tagIDs)) {
		return oops.InvalidInput("One or more of the selected tags don't exist.")
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	var result []uuid.UUID
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			result = append(result, id)
		}
	}
	return result
}
