package migrations

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/opsportal/portal/src/migration/types"
)

func init() {
	registerMigration(AddBodySearchIndex{})
}

type AddBodySearchIndex struct{}

func (m AddBodySearchIndex) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 10, 6, 8, 3, 42, 0, time.UTC))
}

func (m AddBodySearchIndex) Name() string {
	return "AddBodySearchIndex"
}

func (m AddBodySearchIndex) Description() string {
	return "Trigram index so ILIKE thread search doesn't scan every message"
}

func (m AddBodySearchIndex) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		CREATE EXTENSION IF NOT EXISTS pg_trgm;
		CREATE INDEX chat_message_body_trgm ON chat_message USING gin (body gin_trgm_ops) WHERE parent_id IS NULL;
		CREATE INDEX chat_tag_name_trgm ON chat_tag USING gin (name gin_trgm_ops);
		`,
	)
	return err
}

func (m AddBodySearchIndex) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		DROP INDEX chat_tag_name_trgm;
		DROP INDEX chat_message_body_trgm;
		`,
	)
	return err
}
