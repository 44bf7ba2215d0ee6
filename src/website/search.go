package website

import (
	"net/http"

	"github.com/opsportal/portal/src/apitypes"
	"github.com/opsportal/portal/src/chatdata"
)

func Search(c *RequestContext) ResponseData {
	query := c.Req.URL.Query()
	channelID, err := optionalUUID(query.Get("channel"), "channel")
	if err != nil {
		return c.ErrorResponse(err)
	}
	tagID, err := optionalUUID(query.Get("tag"), "tag")
	if err != nil {
		return c.ErrorResponse(err)
	}
	limit, err := optionalInt(query.Get("limit"), "limit")
	if err != nil {
		return c.ErrorResponse(err)
	}

	results, err := chatdata.SearchThreads(c, c.Conn, chatdata.SearchQuery{
		Query:     query.Get("q"),
		ChannelID: channelID,
		TagID:     tagID,
	}, limit)
	if err != nil {
		return c.ErrorResponse(err)
	}

	result := make([]apitypes.SearchResult, 0, len(results))
	for i := range results {
		result = append(result, apitypes.SearchResultToAPI(&results[i]))
	}
	return c.JSON(http.StatusOK, result)
}
