package chatdata

import (
	"github.com/opsportal/portal/src/attachments"
	"github.com/opsportal/portal/src/oops"
)

var (
	ErrChannelNotFound = oops.Sentinel(oops.KindNotFound, "channel_not_found", "That channel doesn't exist.")
	ErrInvalidChannel  = oops.Sentinel(oops.KindInvalidInput, "invalid_channel", "That channel doesn't exist or has been archived.")
	ErrThreadNotFound  = oops.Sentinel(oops.KindNotFound, "thread_not_found", "That thread doesn't exist.")
	ErrThreadClosed    = oops.Sentinel(oops.KindForbidden, "thread_closed", "This thread has been deleted and can't be replied to.")
	ErrMessageNotFound = oops.Sentinel(oops.KindNotFound, "message_not_found", "That message doesn't exist.")
	ErrNotAuthor       = oops.Sentinel(oops.KindForbidden, "not_author", "Only the author can do that.")
	ErrAdminOnly       = oops.Sentinel(oops.KindForbidden, "admin_only", "Only administrators can do that.")
	ErrTagNotFound     = oops.Sentinel(oops.KindNotFound, "tag_not_found", "That tag doesn't exist.")

	// Shared with the attachment gateway so that both report a deleted
	// message the same way.
	ErrMessageDeleted = attachments.ErrMessageDeleted
)
