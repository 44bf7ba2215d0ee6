package website

import (
	"net/http"
	"strconv"

	"github.com/opsportal/portal/src/apitypes"
	"github.com/opsportal/portal/src/chatdata"
	"github.com/opsportal/portal/src/oops"
)

func AdminCreateChannelSubmit(c *RequestContext) ResponseData {
	if err := parseForm(c); err != nil {
		return c.ErrorResponse(err)
	}

	channel, err := chatdata.CreateChannel(c, c.Conn, *c.CurrentUser, chatdata.CreateChannelInput{
		Slug:        c.Req.Form.Get("slug"),
		Name:        c.Req.Form.Get("name"),
		Description: c.Req.Form.Get("description"),
	})
	if err != nil {
		return c.ErrorResponse(err)
	}
	c.Logger.Info().Str("slug", channel.Slug).Msg("channel created")
	return c.JSON(http.StatusCreated, apitypes.ChannelToAPI(channel))
}

// Only the fields present in the form are changed.
func AdminUpdateChannelSubmit(c *RequestContext) ResponseData {
	channelID, err := pathUUID(c, "channelid", chatdata.ErrChannelNotFound)
	if err != nil {
		return c.ErrorResponse(err)
	}
	if err := parseForm(c); err != nil {
		return c.ErrorResponse(err)
	}

	var in chatdata.UpdateChannelInput
	if _, ok := c.Req.PostForm["name"]; ok {
		name := c.Req.PostForm.Get("name")
		in.Name = &name
	}
	if _, ok := c.Req.PostForm["description"]; ok {
		description := c.Req.PostForm.Get("description")
		in.Description = &description
	}
	if _, ok := c.Req.PostForm["archived"]; ok {
		archived, err := strconv.ParseBool(c.Req.PostForm.Get("archived"))
		if err != nil {
			return c.ErrorResponse(oops.InvalidInput("archived must be true or false."))
		}
		in.Archived = &archived
	}

	channel, err := chatdata.UpdateChannel(c, c.Conn, *c.CurrentUser, channelID, in)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.JSON(http.StatusOK, apitypes.ChannelToAPI(channel))
}

func AdminDeleteTagSubmit(c *RequestContext) ResponseData {
	tagID, err := pathUUID(c, "tagid", chatdata.ErrTagNotFound)
	if err != nil {
		return c.ErrorResponse(err)
	}

	if err := chatdata.DeleteTag(c, c.Conn, *c.CurrentUser, tagID); err != nil {
		return c.ErrorResponse(err)
	}
	return ResponseData{StatusCode: http.StatusNoContent}
}

// AdminMessage shows a message even after it was deleted, for moderation.
func AdminMessage(c *RequestContext) ResponseData {
	messageID, err := pathUUID(c, "messageid", chatdata.ErrMessageNotFound)
	if err != nil {
		return c.ErrorResponse(err)
	}

	msg, err := chatdata.FetchMessageForAudit(c, c.Conn, *c.CurrentUser, messageID)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.JSON(http.StatusOK, apitypes.MessageAndStuffToAPI(msg))
}
