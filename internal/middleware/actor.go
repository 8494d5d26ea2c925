package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pamfree/internal/authz"
	"github.com/iliyamo/pamfree/internal/model"
	"github.com/iliyamo/pamfree/internal/utils"
)

// SessionCookie carries the access token for browser clients.
const SessionCookie = "pamfree_session"

// Authenticate resolves the request's actor from the Bearer header or
// the session cookie and stores it on the request context.  It never
// rejects: missing or invalid material yields the anonymous actor.
// Routes that need a user are wrapped in RequireUser.
func Authenticate(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := authz.Anonymous
			if raw := sessionToken(c.Request()); raw != "" {
				if claims, err := utils.ParseAccessToken(secret, raw); err == nil {
					if id, err := claims.UserID(); err == nil && model.ValidRole(claims.Role) {
						actor = authz.Actor{UserID: id, Role: claims.Role}
					}
				}
			}
			req := c.Request()
			c.SetRequest(req.WithContext(authz.WithActor(req.Context(), actor)))
			return next(c)
		}
	}
}

// sessionToken prefers the Authorization header over the cookie.
func sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if ck, err := r.Cookie(SessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

// ActorFrom returns the actor resolved by Authenticate.
func ActorFrom(c echo.Context) authz.Actor {
	return authz.FromContext(c.Request().Context())
}

// RequireUser rejects anonymous actors with 401.
func RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !ActorFrom(c).Authenticated() {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}
		return next(c)
	}
}

// RequireAdmin rejects anonymous actors with 401 and non-admins with 403.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		a := ActorFrom(c)
		if !a.Authenticated() {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}
		if !a.IsAdmin() {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "admin role required"})
		}
		return next(c)
	}
}
