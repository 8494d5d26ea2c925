package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pamfree/internal/middleware"
	"github.com/iliyamo/pamfree/internal/service"
)

// AuthHandler serves registration, login and the caller's own profile.
type AuthHandler struct {
	Auth         *service.AuthService
	Users        *service.UserService
	CookieSecure bool
}

func NewAuthHandler(auth *service.AuthService, users *service.UserService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Auth: auth, Users: users, CookieSecure: cookieSecure}
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

// setSession writes the access token cookie used by browser clients.
func (h *AuthHandler) setSession(c echo.Context, token string, exp time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSession(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Register: create a user and open a session immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	ctx, cancel := withTimeout(c)
	defer cancel()

	sess, err := h.Auth.Register(ctx, req)
	if err != nil {
		return fail(c, err)
	}
	h.setSession(c, sess.AccessToken, sess.AccessExpiresAt)
	return c.JSON(http.StatusCreated, sess)
}

// Login: verify credentials and return a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginInput
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := withTimeout(c)
	defer cancel()

	sess, err := h.Auth.Login(ctx, req)
	if err != nil {
		return fail(c, err)
	}
	h.setSession(c, sess.AccessToken, sess.AccessExpiresAt)
	return c.JSON(http.StatusOK, sess)
}

// Refresh: rotate the refresh token and issue a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	sess, err := h.Auth.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return fail(c, err)
	}
	h.setSession(c, sess.AccessToken, sess.AccessExpiresAt)
	return c.JSON(http.StatusOK, sess)
}

// Logout revokes the given refresh token.  Without one, a signed-in
// caller is logged out of every session.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := withTimeout(c)
	defer cancel()

	actor := middleware.ActorFrom(c)
	var err error
	switch {
	case raw != "":
		err = h.Auth.Logout(ctx, raw)
	case actor.Authenticated():
		err = h.Auth.LogoutAll(ctx, actor)
	}
	if err != nil {
		return fail(c, err)
	}
	h.clearSession(c)
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.Me(ctx, middleware.ActorFrom(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateMe changes the caller's name or email.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	var req service.ProfileInput
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	if req.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &e
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, middleware.ActorFrom(c), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// ChangePassword replaces the caller's password and ends all sessions.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req service.PasswordInput
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Users.ChangePassword(ctx, middleware.ActorFrom(c), req); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
