package website

import (
	"errors"
	"net/http"

	"github.com/opsportal/portal/src/auth"
	"github.com/opsportal/portal/src/oops"
)

var (
	ErrRouteNotFound = oops.Sentinel(oops.KindNotFound, "not_found", "Not Found")
	ErrRateLimited   = oops.Sentinel(oops.KindForbidden, "rate_limited", "You're doing that too often. Please wait a moment and try again.")
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusForError maps an error's kind to the HTTP status it is served with.
// A couple of Forbidden codes get more specific statuses.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	}

	switch oops.KindOf(err) {
	case oops.KindNotFound:
		return http.StatusNotFound
	case oops.KindForbidden:
		return http.StatusForbidden
	case oops.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

/*
ErrorResponse renders err as {"error": {"code", "message"}}. Only the message
of a kinded error is shown to the client; anything else gets a generic
message, and the full error is logged by logContextErrorsMiddleware.
*/
func (c *RequestContext) ErrorResponse(err error) ResponseData {
	status := StatusForError(err)
	res := c.JSON(status, errorBody{
		Error: errorDetail{
			Code:    oops.CodeOf(err),
			Message: oops.PublicMessage(err),
		},
	})
	if status >= 500 {
		res.Errors = append(res.Errors, err)
	}
	return res
}

func FourOhFour(c *RequestContext) ResponseData {
	return c.ErrorResponse(ErrRouteNotFound)
}
