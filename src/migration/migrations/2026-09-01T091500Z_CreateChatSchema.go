package migrations

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/opsportal/portal/src/migration/types"
)

func init() {
	registerMigration(CreateChatSchema{})
}

type CreateChatSchema struct{}

func (m CreateChatSchema) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 9, 1, 9, 15, 0, 0, time.UTC))
}

func (m CreateChatSchema) Name() string {
	return "CreateChatSchema"
}

func (m CreateChatSchema) Description() string {
	return "Create channels, messages, tags, attachments and unread markers"
}

func (m CreateChatSchema) Up(ctx context.Context, tx pgx.Tx) error {
	// profile belongs to the auth backend. We create it only so that a fresh
	// database has something to read roles from.
	_, err := tx.Exec(ctx,
		`
		CREATE TABLE IF NOT EXISTS profile (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL DEFAULT '',
			display_name TEXT,
			role TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE chat_channel (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			slug VARCHAR(64) NOT NULL UNIQUE,
			name TEXT NOT NULL,
			description TEXT,
			is_archived BOOLEAN NOT NULL DEFAULT FALSE,
			created_by UUID NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
		);

		CREATE TABLE chat_message (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			channel_id UUID NOT NULL REFERENCES chat_channel (id),
			parent_id UUID REFERENCES chat_message (id),
			body TEXT NOT NULL,
			created_by UUID NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
			updated_at TIMESTAMP WITH TIME ZONE,
			deleted_at TIMESTAMP WITH TIME ZONE,
			CONSTRAINT chat_message_not_own_parent CHECK (parent_id IS NULL OR parent_id <> id)
		);
		CREATE INDEX chat_message_threads ON chat_message (channel_id, created_at) WHERE parent_id IS NULL;
		CREATE INDEX chat_message_replies ON chat_message (parent_id, created_at) WHERE parent_id IS NOT NULL;

		CREATE TABLE chat_tag (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(50) NOT NULL,
			created_by UUID,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
		);
		CREATE UNIQUE INDEX chat_tag_name_lower ON chat_tag (lower(name));

		CREATE TABLE chat_thread_tag (
			thread_id UUID NOT NULL REFERENCES chat_message (id) ON DELETE CASCADE,
			tag_id UUID NOT NULL REFERENCES chat_tag (id) ON DELETE CASCADE,
			PRIMARY KEY (thread_id, tag_id)
		);
		CREATE INDEX chat_thread_tag_tag ON chat_thread_tag (tag_id);

		CREATE TABLE chat_attachment (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			message_id UUID NOT NULL REFERENCES chat_message (id),
			object_path TEXT NOT NULL UNIQUE,
			file_name TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			size_bytes BIGINT NOT NULL CHECK (size_bytes > 0),
			created_by UUID NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
		);
		CREATE INDEX chat_attachment_message ON chat_attachment (message_id);

		CREATE TABLE chat_unread_marker (
			user_id UUID NOT NULL,
			channel_id UUID NOT NULL REFERENCES chat_channel (id),
			last_read_at TIMESTAMP WITH TIME ZONE NOT NULL,
			PRIMARY KEY (user_id, channel_id)
		);
		`,
	)
	return err
}

func (m CreateChatSchema) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		DROP TABLE chat_unread_marker;
		DROP TABLE chat_attachment;
		DROP TABLE chat_thread_tag;
		DROP TABLE chat_tag;
		DROP TABLE chat_message;
		DROP TABLE chat_channel;
		`,
	)
	return err
}
