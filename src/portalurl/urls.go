package portalurl

import (
	"regexp"

	"github.com/google/uuid"
	"github.com/opsportal/portal/src/oops"
)

// Ids in paths are matched loosely and parsed by the handler, so a malformed
// id is a 404 from the handler rather than a routing miss.
const idPattern = `[^/]+`

/*
* Channels
 */

var RegexChannels = regexp.MustCompile("^/channels$")

func BuildChannels(includeArchived bool) string {
	var q []Q
	if includeArchived {
		q = append(q, Q{"archived", "true"})
	}
	return Url("/channels", q)
}

var RegexMarkAllRead = regexp.MustCompile("^/channels/read$")

func BuildMarkAllRead() string {
	return Url("/channels/read", nil)
}

var RegexChannel = regexp.MustCompile(`^/channels/(?P<slug>[^/]+)$`)

func BuildChannel(slug string) string {
	checkSlug(slug)
	return Url("/channels/"+slug, nil)
}

var RegexChannelThreads = regexp.MustCompile(`^/channels/(?P<slug>[^/]+)/threads$`)

func BuildChannelThreads(slug string, tagID *uuid.UUID) string {
	checkSlug(slug)
	var q []Q
	if tagID != nil {
		q = append(q, Q{"tag", tagID.String()})
	}
	return Url("/channels/"+slug+"/threads", q)
}

var RegexChannelMarkRead = regexp.MustCompile(`^/channels/(?P<slug>[^/]+)/read$`)

func BuildChannelMarkRead(slug string) string {
	checkSlug(slug)
	return Url("/channels/"+slug+"/read", nil)
}

/*
* Threads
 */

var RegexThread = regexp.MustCompile(`^/threads/(?P<threadid>` + idPattern + `)$`)

func BuildThread(threadID uuid.UUID) string {
	return Url("/threads/"+threadID.String(), nil)
}

var RegexThreadReplies = regexp.MustCompile(`^/threads/(?P<threadid>` + idPattern + `)/replies$`)

func BuildThreadReplies(threadID uuid.UUID) string {
	return Url("/threads/"+threadID.String()+"/replies", nil)
}

var RegexThreadTags = regexp.MustCompile(`^/threads/(?P<threadid>` + idPattern + `)/tags$`)

func BuildThreadTags(threadID uuid.UUID) string {
	return Url("/threads/"+threadID.String()+"/tags", nil)
}

var RegexThreadTagDelete = regexp.MustCompile(`^/threads/(?P<threadid>` + idPattern + `)/tags/(?P<tagid>` + idPattern + `)/delete$`)

func BuildThreadTagDelete(threadID, tagID uuid.UUID) string {
	return Url("/threads/"+threadID.String()+"/tags/"+tagID.String()+"/delete", nil)
}

/*
* Messages
 */

var RegexMessageEdit = regexp.MustCompile(`^/messages/(?P<messageid>` + idPattern + `)/edit$`)

func BuildMessageEdit(messageID uuid.UUID) string {
	return Url("/messages/"+messageID.String()+"/edit", nil)
}

var RegexMessageDelete = regexp.MustCompile(`^/messages/(?P<messageid>` + idPattern + `)/delete$`)

func BuildMessageDelete(messageID uuid.UUID) string {
	return Url("/messages/"+messageID.String()+"/delete", nil)
}

var RegexMessageReactions = regexp.MustCompile(`^/messages/(?P<messageid>` + idPattern + `)/reactions$`)

func BuildMessageReactions(messageID uuid.UUID) string {
	return Url("/messages/"+messageID.String()+"/reactions", nil)
}

/*
* Tags and search
 */

var RegexTags = regexp.MustCompile("^/tags$")

func BuildTags() string {
	return Url("/tags", nil)
}

var RegexTagSearch = regexp.MustCompile("^/tags/search$")

func BuildTagSearch(query string) string {
	return Url("/tags/search", []Q{{"q", query}})
}

var RegexSearch = regexp.MustCompile("^/search$")

func BuildSearch(query string, channelID, tagID *uuid.UUID) string {
	q := []Q{{"q", query}}
	if channelID != nil {
		q = append(q, Q{"channel", channelID.String()})
	}
	if tagID != nil {
		q = append(q, Q{"tag", tagID.String()})
	}
	return Url("/search", q)
}

/*
* Mentions
 */

var RegexMentions = regexp.MustCompile("^/mentions$")

func BuildMentions() string {
	return Url("/mentions", nil)
}

var RegexMentionCandidates = regexp.MustCompile("^/mentions/candidates$")

func BuildMentionCandidates(query string) string {
	return Url("/mentions/candidates", []Q{{"q", query}})
}

/*
* Attachments
 */

var RegexAttachmentDownload = regexp.MustCompile(`^/attachments/(?P<attachmentid>` + idPattern + `)/download$`)

func BuildAttachmentDownload(attachmentID uuid.UUID) string {
	return Url("/attachments/"+attachmentID.String()+"/download", nil)
}

var RegexAttachmentPreview = regexp.MustCompile(`^/attachments/(?P<attachmentid>` + idPattern + `)/preview$`)

func BuildAttachmentPreview(attachmentID uuid.UUID) string {
	return Url("/attachments/"+attachmentID.String()+"/preview", nil)
}

/*
* Admin
 */

var RegexAdminChannels = regexp.MustCompile("^/admin/channels$")

func BuildAdminChannels() string {
	return Url("/admin/channels", nil)
}

var RegexAdminChannel = regexp.MustCompile(`^/admin/channels/(?P<channelid>` + idPattern + `)$`)

func BuildAdminChannel(channelID uuid.UUID) string {
	return Url("/admin/channels/"+channelID.String(), nil)
}

var RegexAdminTagDelete = regexp.MustCompile(`^/admin/tags/(?P<tagid>` + idPattern + `)/delete$`)

func BuildAdminTagDelete(tagID uuid.UUID) string {
	return Url("/admin/tags/"+tagID.String()+"/delete", nil)
}

var RegexAdminMessage = regexp.MustCompile(`^/admin/messages/(?P<messageid>` + idPattern + `)$`)

func BuildAdminMessage(messageID uuid.UUID) string {
	return Url("/admin/messages/"+messageID.String(), nil)
}

/*
* Misc
 */

var RegexHealth = regexp.MustCompile("^/health$")

func BuildHealth() string {
	return Url("/health", nil)
}

var RegexCatchAll = regexp.MustCompile("^")

var reBadSlug = regexp.MustCompile(`[/\s]`)

func checkSlug(slug string) {
	if slug == "" || reBadSlug.MatchString(slug) {
		panic(oops.New(nil, "invalid channel slug %q", slug))
	}
}
