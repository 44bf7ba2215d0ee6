package website

import (
	"net/http"
	"strings"
	"time"

	"github.com/opsportal/portal/src/apitypes"
	"github.com/opsportal/portal/src/chatdata"
	"github.com/opsportal/portal/src/objectstore"
	"github.com/opsportal/portal/src/oops"
	"github.com/opsportal/portal/src/utils"
)

const maxThreadsPerPage = 100

func ListChannels(c *RequestContext) ResponseData {
	includeArchived := c.Req.URL.Query().Get("archived") == "true"

	channels, err := chatdata.ListChannelsWithUnread(c, c.Conn, c.CurrentUser.ID, includeArchived)
	if err != nil {
		return c.ErrorResponse(err)
	}

	return c.JSON(http.StatusOK, apitypes.ChannelListToAPI(channels))
}

func Channel(c *RequestContext) ResponseData {
	channel, err := chatdata.FetchChannelBySlug(c, c.Conn, c.PathParams["slug"])
	if err != nil {
		return c.ErrorResponse(err)
	}

	unread, err := chatdata.UnreadCountForChannel(c, c.Conn, c.CurrentUser.ID, channel.ID)
	if err != nil {
		return c.ErrorResponse(err)
	}

	result := apitypes.ChannelToAPI(channel)
	result.UnreadCount = &unread
	return c.JSON(http.StatusOK, result)
}

func ChannelThreads(c *RequestContext) ResponseData {
	channel, err := chatdata.FetchChannelBySlug(c, c.Conn, c.PathParams["slug"])
	if err != nil {
		return c.ErrorResponse(err)
	}

	query := c.Req.URL.Query()
	tagID, err := optionalUUID(query.Get("tag"), "tag")
	if err != nil {
		return c.ErrorResponse(err)
	}
	limit, err := optionalInt(query.Get("limit"), "limit")
	if err != nil {
		return c.ErrorResponse(err)
	}
	offset, err := optionalInt(query.Get("offset"), "offset")
	if err != nil {
		return c.ErrorResponse(err)
	}
	if limit > 0 {
		limit = utils.Clamp(1, limit, maxThreadsPerPage)
	}

	threads, err := chatdata.ListThreads(c, c.Conn, c.CurrentUser, chatdata.ThreadsQuery{
		ChannelID: channel.ID,
		TagID:     tagID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return c.ErrorResponse(err)
	}

	result := make([]apitypes.Thread, 0, len(threads))
	for i := range threads {
		result = append(result, apitypes.ThreadToAPI(&threads[i]))
	}
	return c.JSON(http.StatusOK, result)
}

func CreateThreadSubmit(store objectstore.Store) Handler {
	return func(c *RequestContext) ResponseData {
		channel, err := chatdata.FetchChannelBySlug(c, c.Conn, c.PathParams["slug"])
		if err != nil {
			return c.ErrorResponse(err)
		}

		uploads, cleanup, err := parseUploads(c)
		defer cleanup()
		if err != nil {
			return c.ErrorResponse(err)
		}
		tagIDs, err := uuidList(c.Req.Form["tag"], "tag")
		if err != nil {
			return c.ErrorResponse(err)
		}
		mentionIDs, err := uuidList(c.Req.Form["mention"], "mention")
		if err != nil {
			return c.ErrorResponse(err)
		}

		created, err := chatdata.CreateThread(c, c.Conn, store, *c.CurrentUser, chatdata.CreateThreadInput{
			ChannelID:   channel.ID,
			Body:        c.Req.Form.Get("body"),
			TagIDs:      tagIDs,
			MentionIDs:  mentionIDs,
			Attachments: uploads,
		})
		if err != nil {
			return c.ErrorResponse(err)
		}
		c.Logger.Info().Str("threadId", created.Message.ID.String()).Int("attachments", len(created.Attachments)).Msg("thread created")

		return c.JSON(http.StatusCreated, apitypes.CreatedMessageToAPI(created, c.CurrentUser))
	}
}

// MarkChannelRead defaults to now. Clients that know when they last fetched
// can pass that instead, so nothing that arrived since is skipped.
func MarkChannelRead(c *RequestContext) ResponseData {
	channel, err := chatdata.FetchChannelBySlug(c, c.Conn, c.PathParams["slug"])
	if err != nil {
		return c.ErrorResponse(err)
	}
	if err := parseForm(c); err != nil {
		return c.ErrorResponse(err)
	}
	at, err := readAt(c.Req.Form.Get("at"))
	if err != nil {
		return c.ErrorResponse(err)
	}

	if err := chatdata.MarkRead(c, c.Conn, c.CurrentUser.ID, channel.ID, at); err != nil {
		return c.ErrorResponse(err)
	}
	return ResponseData{StatusCode: http.StatusNoContent}
}

func MarkAllChannelsRead(c *RequestContext) ResponseData {
	if err := parseForm(c); err != nil {
		return c.ErrorResponse(err)
	}
	at, err := readAt(c.Req.Form.Get("at"))
	if err != nil {
		return c.ErrorResponse(err)
	}

	if err := chatdata.MarkAllChannelsRead(c, c.Conn, c.CurrentUser.ID, at); err != nil {
		return c.ErrorResponse(err)
	}
	return ResponseData{StatusCode: http.StatusNoContent}
}

// readAt parses the optional "at" field. Absent means now, which the database
// fills in.
func readAt(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	at, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, oops.InvalidInput("at must be an RFC 3339 timestamp.")
	}
	return &at, nil
}
