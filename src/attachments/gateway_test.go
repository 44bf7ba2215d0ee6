package attachments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opsportal/portal/src/auth"
	"github.com/opsportal/portal/src/models"
	"github.com/opsportal/portal/src/objectstore"
	"github.com/opsportal/portal/src/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateway(t *testing.T) {
	ctx := context.Background()
	member := &models.User{ID: uuid.New(), Email: "member@example.test"}

	liveID := uuid.New()
	deletedID := uuid.New()
	deletedAt := time.Now()
	lookup := fakeLookup{rows: map[uuid.UUID]*AttachmentAndMessage{
		liveID: {
			Attachment: models.Attachment{ID: liveID, ObjectPath: "chat/c/t/m/x_Q3.pdf", FileName: "Q3.pdf", MimeType: "application/pdf"},
			Message:    models.Message{ID: uuid.New()},
		},
		deletedID: {
			Attachment: models.Attachment{ID: deletedID, ObjectPath: "chat/c/t/m/y_old.png", FileName: "old.png", MimeType: "image/png"},
			Message:    models.Message{ID: uuid.New(), DeletedAt: &deletedAt},
		},
	}}

	t.Run("download", func(t *testing.T) {
		store := &recordingStore{}
		g := Gateway{Lookup: lookup, Store: store}

		grant, err := g.RequestDownloadGrant(ctx, liveID, member)
		require.Nil(t, err)
		assert.Equal(t, "Q3.pdf", grant.FileName)
		assert.Contains(t, grant.URL, "chat/c/t/m/x_Q3.pdf")
		require.Len(t, store.grants, 1)
		assert.Equal(t, DownloadGrantTTL, store.grants[0].TTL)
		assert.Equal(t, objectstore.AccessOptions{ForceDownloadAs: "Q3.pdf"}, store.grants[0].Opts)
	})
	t.Run("preview", func(t *testing.T) {
		store := &recordingStore{}
		g := Gateway{Lookup: lookup, Store: store}

		grant, err := g.RequestPreviewGrant(ctx, liveID, member)
		require.Nil(t, err)
		assert.Equal(t, "application/pdf", grant.MimeType)
		require.Len(t, store.grants, 1)
		assert.Equal(t, PreviewGrantTTL, store.grants[0].TTL)
		assert.Empty(t, store.grants[0].Opts.ForceDownloadAs)
	})
	t.Run("unauthenticated", func(t *testing.T) {
		store := &recordingStore{}
		g := Gateway{Lookup: lookup, Store: store}

		_, err := g.RequestDownloadGrant(ctx, liveID, nil)
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
		_, err = g.RequestPreviewGrant(ctx, liveID, nil)
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
		assert.Equal(t, 0, store.calls())
	})
	t.Run("missing", func(t *testing.T) {
		store := &recordingStore{}
		g := Gateway{Lookup: lookup, Store: store}

		_, err := g.RequestDownloadGrant(ctx, uuid.New(), member)
		assert.ErrorIs(t, err, ErrAttachmentNotFound)
		assert.Equal(t, oops.KindNotFound, oops.KindOf(err))
		assert.Equal(t, 0, store.calls())
	})
	t.Run("deleted message", func(t *testing.T) {
		store := &recordingStore{}
		g := Gateway{Lookup: lookup, Store: store}

		_, err := g.RequestDownloadGrant(ctx, deletedID, member)
		assert.ErrorIs(t, err, ErrMessageDeleted)
		_, err = g.RequestPreviewGrant(ctx, deletedID, member)
		assert.ErrorIs(t, err, ErrMessageDeleted)
		assert.Equal(t, oops.KindForbidden, oops.KindOf(err))
		assert.Equal(t, 0, store.calls())
	})
	t.Run("store failure", func(t *testing.T) {
		store := &recordingStore{grantErr: errors.New("signing key unavailable")}
		g := Gateway{Lookup: lookup, Store: store}

		_, err := g.RequestDownloadGrant(ctx, liveID, member)
		assert.ErrorIs(t, err, ErrGrantIssuanceFailed)
		assert.True(t, oops.Retryable(err))
	})
	t.Run("lookup failure", func(t *testing.T) {
		g := Gateway{Lookup: fakeLookup{err: errors.New("connection refused")}, Store: &recordingStore{}}

		_, err := g.RequestPreviewGrant(ctx, liveID, member)
		assert.Equal(t, oops.KindUpstreamFailure, oops.KindOf(err))
	})
	t.Run("grants are not cached", func(t *testing.T) {
		store := &recordingStore{}
		g := Gateway{Lookup: lookup, Store: store}

		for i := 0; i < 3; i++ {
			_, err := g.RequestDownloadGrant(ctx, liveID, member)
			require.Nil(t, err)
		}
		assert.Len(t, store.grants, 3)
	})
}
