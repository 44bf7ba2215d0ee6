package website

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/opsportal/portal/src/auth"
	"github.com/opsportal/portal/src/chatdata"
	"github.com/opsportal/portal/src/db"
	"github.com/opsportal/portal/src/models"
	"github.com/opsportal/portal/src/oops"
	"github.com/opsportal/portal/src/perf"
	"github.com/opsportal/portal/src/ratelimit"
)

func panicCatcherMiddleware(h Handler) Handler {
	return func(c *RequestContext) (res ResponseData) {
		defer func() {
			if recovered := recover(); recovered != nil {
				maybeError, ok := recovered.(error)
				var err error
				if ok {
					err = oops.New(maybeError, "recovered from panic")
				} else {
					err = oops.New(nil, "Recovered from panic with value: %v", recovered)
				}
				res = c.ErrorResponse(err)
			}
		}()

		return h(c)
	}
}

func trackRequestPerf(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		c.Perf = perf.MakeNewRequestPerf(c.Route, c.Req.Method, c.Req.URL.Path)

		var res ResponseData
		defer func() {
			c.Perf.EndRequest()
			observeRequest(c.Route, c.Req.Method, res.StatusCode, c.Perf.End.Sub(c.Perf.Start))

			log := c.Logger.Debug()
			blockStack := make([]time.Time, 0)
			for i, block := range c.Perf.Blocks {
				for len(blockStack) > 0 && block.End.After(blockStack[len(blockStack)-1]) {
					blockStack = blockStack[:len(blockStack)-1]
				}
				log.Str(fmt.Sprintf("[%4.d] At %9.2fms", i, c.Perf.MsFromStart(&block)), fmt.Sprintf("%*.s[%s] %s (%.4fms)", len(blockStack)*2, "", block.Category, block.Description, block.DurationMs()))
				blockStack = append(blockStack, block.End)
			}
			log.Int("status", res.StatusCode).Msg(fmt.Sprintf("Served [%s] %s in %.4fms", c.Perf.Method, c.Perf.Path, c.Perf.DurationMs()))
		}()

		res = h(c)
		return res
	}
}

func withConn(conn db.ConnOrTx) Middleware {
	return func(h Handler) Handler {
		return func(c *RequestContext) ResponseData {
			c.Conn = conn
			return h(c)
		}
	}
}

// An Authenticator resolves the caller of a request. It returns (nil, nil)
// when the request carries no credentials.
type Authenticator func(c *RequestContext) (*models.User, error)

func TokenAuthenticator(verifier *auth.TokenVerifier, cookieName string) Authenticator {
	return func(c *RequestContext) (*models.User, error) {
		return auth.Authenticate(c, c.Conn, verifier, c.Req, cookieName)
	}
}

func loadCurrentUser(authenticate Authenticator) Middleware {
	return func(h Handler) Handler {
		return func(c *RequestContext) ResponseData {
			user, err := authenticate(c)
			if err != nil {
				return c.ErrorResponse(err)
			}
			c.CurrentUser = user
			if user != nil {
				logger := c.Logger.With().Str("userId", user.ID.String()).Logger()
				c.Logger = &logger
			}
			return h(c)
		}
	}
}

func needsAuth(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		if c.CurrentUser == nil {
			return c.ErrorResponse(auth.ErrUnauthenticated)
		}

		return h(c)
	}
}

func adminsOnly(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		if !c.CurrentUser.IsAdmin() {
			return c.ErrorResponse(chatdata.ErrAdminOnly)
		}

		return h(c)
	}
}

/*
rateLimited counts requests per user in the named bucket. It must run after
needsAuth. A nil limiter disables limiting, and a limiter that can't reach
Redis lets requests through.
*/
func rateLimited(limiter *ratelimit.Limiter, bucket string) Middleware {
	return func(h Handler) Handler {
		return func(c *RequestContext) ResponseData {
			if limiter == nil {
				return h(c)
			}

			result, err := limiter.Allow(c, bucket+":"+c.CurrentUser.ID.String())
			if err == nil && !result.Allowed {
				rateLimitedTotal.WithLabelValues(bucket).Inc()
				res := c.ErrorResponse(ErrRateLimited)
				res.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds()))))
				return res
			}
			return h(c)
		}
	}
}

func logContextErrors(c *RequestContext, errs ...error) {
	for _, err := range errs {
		c.Logger.Error().Timestamp().Stack().Str("Requested", c.FullUrl()).Err(err).Msg("error occurred during request")
	}
}

func logContextErrorsMiddleware(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		res := h(c)
		logContextErrors(c, res.Errors...)
		return res
	}
}

// Keeps grant URLs and per-user listings out of shared caches.
func noStore(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		res := h(c)
		res.Header().Set("Cache-Control", "no-store")
		return res
	}
}
