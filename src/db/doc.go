/*
This package contains lowish-level APIs for making queries against the portal's Postgres database. It maps query results onto Go types while letting you write plain SQL.

The primary functions are Query, QueryOne, QueryScalar and QueryOneScalar, all built on QueryIterator.

Query syntax

Arguments use pgx placeholders ($1, $2, ...) and are escaped and mapped to the right Postgres type by pgx.

	ids, err := db.QueryScalar[uuid.UUID](ctx, conn,
		`
		SELECT thread_id
		FROM chat_thread_tag
		WHERE tag_id = ANY($1)
		`,
		tagIDs,
	)

(If you want to use a slice in your query, use Postgres arrays instead of IN.)

To query multiple columns at once, use a struct type with `db:"column_name"` tags and the special $columns placeholder:

	type Channel struct {
		ID   uuid.UUID `db:"id"`
		Slug string    `db:"slug"`
	}
	channels, err := db.Query[Channel](ctx, conn, `SELECT $columns FROM chat_channel`)
	// Resulting query:
	// SELECT id, slug FROM chat_channel

When a JOIN makes column names ambiguous, give the placeholder a table prefix with $columns{prefix}. Nested structs with their own `db` tag contribute their fields under that tag as a prefix, which is how joined rows are stitched back together:

	type row struct {
		Thread models.Message `db:"thread"`
		Author *models.User   `db:"author"` // nil when every author column is NULL
	}
	rows, err := db.Query[row](ctx, conn, `
		SELECT $columns
		FROM
			chat_message AS thread
			LEFT JOIN profile AS author ON author.id = thread.created_by
	`)
	// Resulting query:
	// SELECT thread.id, thread.body, ..., author.id, author.email, ... FROM ...

For queries assembled piece by piece, use QueryBuilder and its `$?` placeholders.
*/
package db
