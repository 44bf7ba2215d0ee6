package attachments

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/opsportal/portal/src/db"
	"github.com/opsportal/portal/src/logging"
	"github.com/opsportal/portal/src/models"
	"github.com/opsportal/portal/src/objectstore"
	"github.com/opsportal/portal/src/oops"
	"github.com/opsportal/portal/src/utils"
	"github.com/prometheus/client_golang/prometheus"
)

type Upload struct {
	FileName     string
	DeclaredType string
	Size         int64
	Body         io.ReadSeeker
}

// Where a batch of uploads is going. ThreadID equals MessageID for a thread
// root.
type MessageContext struct {
	ChannelID  uuid.UUID
	ThreadID   uuid.UUID
	MessageID  uuid.UUID
	UploaderID uuid.UUID
}

const uploadAttempts = 3

var uploadsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "portal_attachment_uploads_total",
		Help: "Attachment uploads to the object store, by outcome",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(uploadsTotal)
}

/*
Store uploads each file and then records it in the database, in that order, so
that a metadata row never points at a missing object. The returned paths are
every object that was written, including on error, so the caller can clean them
up if its transaction doesn't commit.

Uploads must already have passed ValidateUploads.
*/
func Store(
	ctx context.Context,
	dbConn db.ConnOrTx,
	store objectstore.Store,
	msg MessageContext,
	uploads []Upload,
) ([]*models.Attachment, []string, error) {
	var result []*models.Attachment
	var written []string

	for _, upload := range uploads {
		id := uuid.New()
		objectPath := ObjectPath(msg.ChannelID, msg.ThreadID, msg.MessageID, id, upload.FileName)
		mimeType := ResolveMimeType(upload.DeclaredType, upload.FileName)

		err := putWithRetry(ctx, store, objectPath, upload, mimeType)
		if err != nil {
			uploadsTotal.WithLabelValues("error").Inc()
			return nil, written, err
		}
		uploadsTotal.WithLabelValues("ok").Inc()
		written = append(written, objectPath)

		attachment, err := db.QueryOne[models.Attachment](ctx, dbConn,
			`
			---- Insert attachment
			INSERT INTO chat_attachment (id, message_id, object_path, file_name, mime_type, size_bytes, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING $columns
			`,
			id, msg.MessageID, objectPath, upload.FileName, mimeType, upload.Size, msg.UploaderID,
		)
		if err != nil {
			return nil, written, oops.New(err, "failed to save attachment metadata")
		}
		result = append(result, attachment)
	}

	return result, written, nil
}

func putWithRetry(ctx context.Context, store objectstore.Store, objectPath string, upload Upload, mimeType string) error {
	b := &backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    2 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var err error
	for attempt := 1; attempt <= uploadAttempts; attempt++ {
		if _, seekErr := upload.Body.Seek(0, io.SeekStart); seekErr != nil {
			return oops.New(seekErr, "failed to rewind upload '%s'", upload.FileName)
		}

		err = store.Put(ctx, objectPath, upload.Body, upload.Size, mimeType)
		if err == nil {
			return nil
		}
		if attempt == uploadAttempts {
			break
		}

		wait := b.Duration()
		logging.ExtractLogger(ctx).Warn().Err(err).
			Str("objectPath", objectPath).
			Int("attempt", attempt).
			Dur("retryIn", wait).
			Msg("attachment upload failed, retrying")
		if sleepErr := utils.SleepContext(ctx, wait); sleepErr != nil {
			break
		}
	}

	return oops.New(err, "failed to upload attachment '%s'", upload.FileName)
}

// Cleanup deletes objects whose metadata never got committed. Failures are
// logged and otherwise ignored; at worst the objects are orphaned.
func Cleanup(ctx context.Context, store objectstore.Store, objectPaths []string) {
	for _, p := range objectPaths {
		if err := store.Delete(ctx, p); err != nil {
			logging.ExtractLogger(ctx).Warn().Err(err).Str("objectPath", p).Msg("failed to clean up orphaned attachment")
		}
	}
}

func ListAttachments(ctx context.Context, dbConn db.ConnOrTx, messageIDs []uuid.UUID) ([]*models.Attachment, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	attachments, err := db.Query[models.Attachment](ctx, dbConn,
		`
		---- List attachments
		SELECT $columns
		FROM chat_attachment
		WHERE message_id = ANY($1)
		ORDER BY created_at ASC, id ASC
		`,
		messageIDs,
	)
	if err != nil {
		return nil, oops.New(err, "failed to fetch attachments")
	}
	return attachments, nil
}
