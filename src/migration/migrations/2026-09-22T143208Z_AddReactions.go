package migrations

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/opsportal/portal/src/migration/types"
)

func init() {
	registerMigration(AddReactions{})
}

type AddReactions struct{}

func (m AddReactions) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 9, 22, 14, 32, 8, 0, time.UTC))
}

func (m AddReactions) Name() string {
	return "AddReactions"
}

func (m AddReactions) Description() string {
	return "Add emoji reactions on messages"
}

func (m AddReactions) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		CREATE TABLE chat_reaction (
			message_id UUID NOT NULL REFERENCES chat_message (id) ON DELETE CASCADE,
			user_id UUID NOT NULL,
			emoji VARCHAR(16) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
			PRIMARY KEY (message_id, user_id, emoji)
		);
		`,
	)
	return err
}

func (m AddReactions) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		DROP TABLE chat_reaction;
		`,
	)
	return err
}
