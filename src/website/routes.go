package website

import (
	"net/http"

	"github.com/opsportal/portal/src/attachments"
	"github.com/opsportal/portal/src/db"
	"github.com/opsportal/portal/src/objectstore"
	"github.com/opsportal/portal/src/portalurl"
	"github.com/opsportal/portal/src/ratelimit"
)

// Everything the routes need from the outside world. Limiter may be nil to
// disable rate limiting.
type Deps struct {
	Conn         db.ConnOrTx
	Authenticate Authenticator
	Store        objectstore.Store
	Gateway      *attachments.Gateway
	Limiter      *ratelimit.Limiter
}

const (
	rateLimitBucketGrants  = "grants"
	rateLimitBucketUploads = "uploads"
)

func NewWebsiteRoutes(deps Deps) http.Handler {
	router := &Router{}
	routes := RouteBuilder{
		Router: router,
		Middlewares: []Middleware{
			trackRequestPerf,
			logContextErrorsMiddleware,
			panicCatcherMiddleware,
			withConn(deps.Conn),
		},
	}

	routes.GET(portalurl.RegexHealth, func(c *RequestContext) ResponseData {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	authed := routes.WithMiddleware(
		loadCurrentUser(deps.Authenticate),
		needsAuth,
		noStore,
	)
	grants := authed.WithMiddleware(rateLimited(deps.Limiter, rateLimitBucketGrants))
	uploads := authed.WithMiddleware(rateLimited(deps.Limiter, rateLimitBucketUploads))
	admin := authed.WithMiddleware(adminsOnly)

	grants.GET(portalurl.RegexAttachmentDownload, AttachmentDownload(deps.Gateway))
	grants.GET(portalurl.RegexAttachmentPreview, AttachmentPreview(deps.Gateway))

	authed.GET(portalurl.RegexChannels, ListChannels)
	authed.POST(portalurl.RegexMarkAllRead, MarkAllChannelsRead)
	authed.GET(portalurl.RegexChannel, Channel)
	authed.GET(portalurl.RegexChannelThreads, ChannelThreads)
	uploads.POST(portalurl.RegexChannelThreads, CreateThreadSubmit(deps.Store))
	authed.POST(portalurl.RegexChannelMarkRead, MarkChannelRead)

	authed.GET(portalurl.RegexThread, Thread)
	authed.GET(portalurl.RegexThreadReplies, ThreadReplies)
	uploads.POST(portalurl.RegexThreadReplies, CreateReplySubmit(deps.Store))
	authed.POST(portalurl.RegexThreadTags, AddThreadTag)
	authed.POST(portalurl.RegexThreadTagDelete, RemoveThreadTag)

	authed.POST(portalurl.RegexMessageEdit, EditMessageSubmit)
	authed.POST(portalurl.RegexMessageDelete, DeleteMessageSubmit)
	authed.POST(portalurl.RegexMessageReactions, ToggleReactionSubmit)

	authed.GET(portalurl.RegexTags, ListTags)
	authed.POST(portalurl.RegexTags, CreateTagSubmit)
	authed.GET(portalurl.RegexTagSearch, SearchTags)
	authed.GET(portalurl.RegexSearch, Search)

	authed.GET(portalurl.RegexMentions, ListMentions)
	authed.GET(portalurl.RegexMentionCandidates, MentionCandidates)

	admin.POST(portalurl.RegexAdminChannels, AdminCreateChannelSubmit)
	admin.POST(portalurl.RegexAdminChannel, AdminUpdateChannelSubmit)
	admin.POST(portalurl.RegexAdminTagDelete, AdminDeleteTagSubmit)
	admin.GET(portalurl.RegexAdminMessage, AdminMessage)

	routes.AnyMethod(portalurl.RegexCatchAll, FourOhFour)

	return router
}
