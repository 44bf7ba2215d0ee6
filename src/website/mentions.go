package website

import (
	"net/http"

	"github.com/opsportal/portal/src/apitypes"
	"github.com/opsportal/portal/src/chatdata"
)

func ListMentions(c *RequestContext) ResponseData {
	limit, err := optionalInt(c.Req.URL.Query().Get("limit"), "limit")
	if err != nil {
		return c.ErrorResponse(err)
	}

	mentions, err := chatdata.ListMentions(c, c.Conn, *c.CurrentUser, limit)
	if err != nil {
		return c.ErrorResponse(err)
	}

	result := make([]apitypes.Mention, 0, len(mentions))
	for i := range mentions {
		result = append(result, apitypes.MentionToAPI(&mentions[i]))
	}
	return c.JSON(http.StatusOK, result)
}

func MentionCandidates(c *RequestContext) ResponseData {
	query := c.Req.URL.Query()
	limit, err := optionalInt(query.Get("limit"), "limit")
	if err != nil {
		return c.ErrorResponse(err)
	}

	users, err := chatdata.SearchMentionCandidates(c, c.Conn, query.Get("q"), limit)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.JSON(http.StatusOK, apitypes.UsersToAPI(users))
}
