package middleware

// identity.go derives the caller component of rate limit keys from the
// actor Authenticate resolved.  Anonymous callers share "anon" and are
// told apart by IP.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// actorKey returns "user:<id>" for a verified session and "anon"
// otherwise.  Request headers are never part of the key.
func actorKey(c echo.Context) string {
	if a := ActorFrom(c); a.Authenticated() {
		return "user:" + strconv.FormatUint(a.UserID, 10)
	}
	return "anon"
}

// Headers carrying public editor credentials.
const (
	EditorIDHeader    = "X-Editor-Id"
	EditorTokenHeader = "X-Editor-Token"
)
