package migrations

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/opsportal/portal/src/migration/types"
)

func init() {
	registerMigration(AddMentions{})
}

type AddMentions struct{}

func (m AddMentions) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 10, 14, 10, 11, 27, 0, time.UTC))
}

func (m AddMentions) Name() string {
	return "AddMentions"
}

func (m AddMentions) Description() string {
	return "Record which people a message mentions"
}

func (m AddMentions) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		CREATE TABLE chat_message_mention (
			message_id UUID NOT NULL REFERENCES chat_message (id) ON DELETE CASCADE,
			mentioned_user_id UUID NOT NULL,
			PRIMARY KEY (message_id, mentioned_user_id)
		);
		CREATE INDEX chat_message_mention_user ON chat_message_mention (mentioned_user_id);
		`,
	)
	return err
}

func (m AddMentions) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		DROP TABLE chat_message_mention;
		`,
	)
	return err
}
