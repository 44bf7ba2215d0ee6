package website

import (
	"net/http"

	"github.com/opsportal/portal/src/apitypes"
	"github.com/opsportal/portal/src/chatdata"
	"github.com/opsportal/portal/src/objectstore"
)

func Thread(c *RequestContext) ResponseData {
	threadID, err := pathUUID(c, "threadid", chatdata.ErrThreadNotFound)
	if err != nil {
		return c.ErrorResponse(err)
	}

	thread, err := chatdata.FetchThreadWithReplies(c, c.Conn, c.CurrentUser, threadID)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.JSON(http.StatusOK, apitypes.ThreadWithRepliesToAPI(thread))
}

func ThreadReplies(c *RequestContext) ResponseData {
	threadID, err := pathUUID(c, "threadid", chatdata.ErrThreadNotFound)
	if err != nil {
		return c.ErrorResponse(err)
	}

	replies, err := chatdata.ListReplies(c, c.Conn, c.CurrentUser, threadID)
	if err != nil {
		return c.ErrorResponse(err)
	}

	result := make([]apitypes.Message, 0, len(replies))
	for i := range replies {
		result = append(result, apitypes.MessageAndStuffToAPI(&replies[i]))
	}
	return c.JSON(http.StatusOK, result)
}

func CreateReplySubmit(store objectstore.Store) Handler {
	return func(c *RequestContext) ResponseData {
		threadID, err := pathUUID(c, "threadid", chatdata.ErrThreadNotFound)
		if err != nil {
			return c.ErrorResponse(err)
		}

		uploads, cleanup, err := parseUploads(c)
		defer cleanup()
		if err != nil {
			return c.ErrorResponse(err)
		}
		mentionIDs, err := uuidList(c.Req.Form["mention"], "mention")
		if err != nil {
			return c.ErrorResponse(err)
		}

		created, err := chatdata.CreateReply(c, c.Conn, store, *c.CurrentUser, chatdata.CreateReplyInput{
			ParentID:    threadID,
			Body:        c.Req.Form.Get("body"),
			MentionIDs:  mentionIDs,
			Attachments: uploads,
		})
		if err != nil {
			return c.ErrorResponse(err)
		}

		return c.JSON(http.StatusCreated, apitypes.CreatedMessageToAPI(created, c.CurrentUser))
	}
}

func AddThreadTag(c *RequestContext) ResponseData {
	threadID, err := pathUUID(c, "threadid", chatdata.ErrThreadNotFound)
	if err != nil {
		return c.ErrorResponse(err)
	}
	if err := parseForm(c); err != nil {
		return c.ErrorResponse(err)
	}
	tagID, err := requiredUUID(c.Req.Form.Get("tag"), "tag")
	if err != nil {
		return c.ErrorResponse(err)
	}

	if err := chatdata.AddTagToThread(c, c.Conn, *c.CurrentUser, threadID, tagID); err != nil {
		return c.ErrorResponse(err)
	}
	return ResponseData{StatusCode: http.StatusNoContent}
}

func RemoveThreadTag(c *RequestContext) ResponseData {
	threadID, err := pathUUID(c, "threadid", chatdata.ErrThreadNotFound)
	if err != nil {
		return c.ErrorResponse(err)
	}
	tagID, err := pathUUID(c, "tagid", chatdata.ErrTagNotFound)
	if err != nil {
		return c.ErrorResponse(err)
	}

	if err := chatdata.RemoveTagFromThread(c, c.Conn, *c.CurrentUser, threadID, tagID); err != nil {
		return c.ErrorResponse(err)
	}
	return ResponseData{StatusCode: http.StatusNoContent}
}
