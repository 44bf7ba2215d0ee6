package website

import (
	"net/http"

	"github.com/opsportal/portal/src/apitypes"
	"github.com/opsportal/portal/src/chatdata"
)

func ListTags(c *RequestContext) ResponseData {
	tags, err := chatdata.ListTags(c, c.Conn)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.JSON(http.StatusOK, apitypes.TagsToAPI(tags))
}

func SearchTags(c *RequestContext) ResponseData {
	query := c.Req.URL.Query()
	limit, err := optionalInt(query.Get("limit"), "limit")
	if err != nil {
		return c.ErrorResponse(err)
	}

	tags, err := chatdata.SearchTags(c, c.Conn, query.Get("q"), limit)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.JSON(http.StatusOK, apitypes.TagsToAPI(tags))
}

func CreateTagSubmit(c *RequestContext) ResponseData {
	if err := parseForm(c); err != nil {
		return c.ErrorResponse(err)
	}

	tag, err := chatdata.CreateTag(c, c.Conn, *c.CurrentUser, c.Req.Form.Get("name"))
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.JSON(http.StatusCreated, apitypes.TagToAPI(tag))
}
