package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/opsportal/portal/src/db"
	"github.com/opsportal/portal/src/models"
	"github.com/opsportal/portal/src/oops"
)

var ErrUnauthenticated = oops.Sentinel(oops.KindForbidden, "unauthenticated", "You need to be logged in to do that.")

// TokenFromRequest reads a bearer token from the Authorization header, falling
// back to the access token cookie. It returns "" if neither is present.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}

	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// FetchUser loads a profile row. A missing profile is db.NotFound.
func FetchUser(ctx context.Context, dbConn db.ConnOrTx, userID uuid.UUID) (*models.User, error) {
	user, err := db.QueryOne[models.User](ctx, dbConn,
		`
		---- Fetch user
		SELECT $columns
		FROM profile
		WHERE id = $1
		`,
		userID,
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, db.NotFound
		}
		return nil, oops.New(err, "failed to fetch user")
	}
	return user, nil
}

/*
Authenticate resolves a request to a user. It returns (nil, nil) for a request
with no credentials at all, and ErrUnauthenticated for credentials that don't
check out, including a valid token for a profile that no longer exists.
*/
func Authenticate(ctx context.Context, dbConn db.ConnOrTx, verifier *TokenVerifier, r *http.Request, cookieName string) (*models.User, error) {
	token := TokenFromRequest(r, cookieName)
	if token == "" {
		return nil, nil
	}

	userID, err := verifier.Verify(token)
	if err != nil {
		return nil, ErrUnauthenticated.Wrap(err)
	}

	user, err := FetchUser(ctx, dbConn, userID)
	if errors.Is(err, db.NotFound) {
		return nil, ErrUnauthenticated.Wrap(err)
	} else if err != nil {
		return nil, err
	}
	return user, nil
}
