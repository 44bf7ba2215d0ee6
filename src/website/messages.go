package website

import (
	"net/http"

	"github.com/opsportal/portal/src/apitypes"
	"github.com/opsportal/portal/src/chatdata"
)

func EditMessageSubmit(c *RequestContext) ResponseData {
	messageID, err := pathUUID(c, "messageid", chatdata.ErrMessageNotFound)
	if err != nil {
		return c.ErrorResponse(err)
	}
	if err := parseForm(c); err != nil {
		return c.ErrorResponse(err)
	}

	msg, err := chatdata.UpdateMessage(c, c.Conn, *c.CurrentUser, messageID, c.Req.Form.Get("body"))
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.JSON(http.StatusOK, apitypes.MessageToAPI(msg, c.CurrentUser))
}

func DeleteMessageSubmit(c *RequestContext) ResponseData {
	messageID, err := pathUUID(c, "messageid", chatdata.ErrMessageNotFound)
	if err != nil {
		return c.ErrorResponse(err)
	}

	if err := chatdata.SoftDelete(c, c.Conn, *c.CurrentUser, messageID); err != nil {
		return c.ErrorResponse(err)
	}
	c.Logger.Info().Str("messageId", messageID.String()).Msg("message deleted")
	return ResponseData{StatusCode: http.StatusNoContent}
}

type reactionResult struct {
	Emoji   string `json:"emoji"`
	Present bool   `json:"present"`
}

func ToggleReactionSubmit(c *RequestContext) ResponseData {
	messageID, err := pathUUID(c, "messageid", chatdata.ErrMessageNotFound)
	if err != nil {
		return c.ErrorResponse(err)
	}
	if err := parseForm(c); err != nil {
		return c.ErrorResponse(err)
	}
	emoji := c.Req.Form.Get("emoji")

	present, err := chatdata.ToggleReaction(c, c.Conn, *c.CurrentUser, messageID, emoji)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.JSON(http.StatusOK, reactionResult{Emoji: emoji, Present: present})
}
