package website

import (
	"net/http"

	"github.com/opsportal/portal/src/attachments"
)

// Grants are single-use from the client's point of view: every request
// issues a fresh one, and responses are marked no-store by the route.

func AttachmentDownload(gateway *attachments.Gateway) Handler {
	return func(c *RequestContext) ResponseData {
		attachmentID, err := pathUUID(c, "attachmentid", attachments.ErrAttachmentNotFound)
		if err != nil {
			return c.ErrorResponse(err)
		}

		grant, err := gateway.RequestDownloadGrant(c, attachmentID, c.CurrentUser)
		if err != nil {
			return c.ErrorResponse(err)
		}
		return c.Redirect(grant.URL, http.StatusFound)
	}
}

func AttachmentPreview(gateway *attachments.Gateway) Handler {
	return func(c *RequestContext) ResponseData {
		attachmentID, err := pathUUID(c, "attachmentid", attachments.ErrAttachmentNotFound)
		if err != nil {
			return c.ErrorResponse(err)
		}

		grant, err := gateway.RequestPreviewGrant(c, attachmentID, c.CurrentUser)
		if err != nil {
			return c.ErrorResponse(err)
		}
		return c.JSON(http.StatusOK, grant)
	}
}
