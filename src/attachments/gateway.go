package attachments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/opsportal/portal/src/auth"
	"github.com/opsportal/portal/src/db"
	"github.com/opsportal/portal/src/logging"
	"github.com/opsportal/portal/src/models"
	"github.com/opsportal/portal/src/objectstore"
	"github.com/opsportal/portal/src/oops"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ErrAttachmentNotFound  = oops.Sentinel(oops.KindNotFound, "attachment_not_found", "That attachment doesn't exist.")
	ErrMessageDeleted      = oops.Sentinel(oops.KindForbidden, "message_deleted", "The message this belongs to has been deleted.")
	ErrGrantIssuanceFailed = oops.Sentinel(oops.KindUpstreamFailure, "grant_issuance_failed", "We couldn't get a link to that file right now. Please try again.")
)

type DownloadGrant struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
}

type PreviewGrant struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
}

type AttachmentAndMessage struct {
	Attachment models.Attachment `db:"att"`
	Message    models.Message    `db:"msg"`
}

// A Lookup finds an attachment together with the message it belongs to,
// including deleted messages. It returns db.NotFound if either is missing.
type Lookup interface {
	FetchAttachmentAndMessage(ctx context.Context, attachmentID uuid.UUID) (*AttachmentAndMessage, error)
}

type DBLookup struct {
	Conn db.ConnOrTx
}

func (l DBLookup) FetchAttachmentAndMessage(ctx context.Context, attachmentID uuid.UUID) (*AttachmentAndMessage, error) {
	return db.QueryOne[AttachmentAndMessage](ctx, l.Conn,
		`
		---- Fetch attachment for grant
		SELECT $columns
		FROM
			chat_attachment AS att
			JOIN chat_message AS msg ON msg.id = att.message_id
		WHERE att.id = $1
		`,
		attachmentID,
	)
}

var grantsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "portal_attachment_grants_total",
		Help: "Temporary attachment access grants, by kind and outcome",
	},
	[]string{"kind", "outcome"},
)

func init() {
	prometheus.MustRegister(grantsTotal)
}

/*
The Gateway decides whether someone may see an attachment right now and, if so,
hands out a short-lived URL for it. Nothing is cached: every request re-checks
the message, so a deletion takes effect for all grants issued afterwards.
*/
type Gateway struct {
	Lookup Lookup
	Store  objectstore.Store
}

func (g *Gateway) RequestDownloadGrant(ctx context.Context, attachmentID uuid.UUID, requester *models.User) (DownloadGrant, error) {
	att, err := g.authorize(ctx, attachmentID, requester)
	if err != nil {
		countGrant("download", err)
		return DownloadGrant{}, err
	}

	url, err := g.issue(ctx, att, DownloadGrantTTL, objectstore.AccessOptions{ForceDownloadAs: att.FileName})
	countGrant("download", err)
	if err != nil {
		return DownloadGrant{}, err
	}

	return DownloadGrant{
		URL:      url,
		FileName: att.FileName,
	}, nil
}

func (g *Gateway) RequestPreviewGrant(ctx context.Context, attachmentID uuid.UUID, requester *models.User) (PreviewGrant, error) {
	att, err := g.authorize(ctx, attachmentID, requester)
	if err != nil {
		countGrant("preview", err)
		return PreviewGrant{}, err
	}

	url, err := g.issue(ctx, att, PreviewGrantTTL, objectstore.AccessOptions{})
	countGrant("preview", err)
	if err != nil {
		return PreviewGrant{}, err
	}

	return PreviewGrant{
		URL:      url,
		FileName: att.FileName,
		MimeType: att.MimeType,
	}, nil
}

func (g *Gateway) authorize(ctx context.Context, attachmentID uuid.UUID, requester *models.User) (*models.Attachment, error) {
	if requester == nil {
		return nil, auth.ErrUnauthenticated
	}

	found, err := g.Lookup.FetchAttachmentAndMessage(ctx, attachmentID)
	if errors.Is(err, db.NotFound) {
		return nil, ErrAttachmentNotFound
	} else if err != nil {
		return nil, oops.New(err, "failed to look up attachment")
	}

	if found.Message.IsDeleted() {
		return nil, ErrMessageDeleted
	}

	return &found.Attachment, nil
}

func (g *Gateway) issue(ctx context.Context, att *models.Attachment, ttl time.Duration, opts objectstore.AccessOptions) (string, error) {
	url, err := g.Store.IssueTemporaryAccess(ctx, att.ObjectPath, ttl, opts)
	if err != nil {
		logging.ExtractLogger(ctx).Error().Err(err).
			Stringer("attachmentID", att.ID).
			Msg("failed to issue attachment grant")
		return "", ErrGrantIssuanceFailed.Wrap(err)
	}
	return url, nil
}

func countGrant(kind string, err error) {
	outcome := "granted"
	if err != nil {
		outcome = oops.CodeOf(err)
	}
	grantsTotal.WithLabelValues(kind, outcome).Inc()
}
