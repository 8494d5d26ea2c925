package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pamfree/internal/middleware"
	"github.com/iliyamo/pamfree/internal/service"
)

// AdminHandler manages other users' accounts.
type AdminHandler struct {
	Users *service.UserService
}

func NewAdminHandler(users *service.UserService) *AdminHandler {
	return &AdminHandler{Users: users}
}

// ListUsers returns every account.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	users, err := h.Users.List(ctx, middleware.ActorFrom(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// SetRole changes a user's role.  Admins cannot change their own.
func (h *AdminHandler) SetRole(c echo.Context) error {
	id, err := pathID(c, "userId")
	if err != nil {
		return fail(c, err)
	}
	var req service.RoleInput
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.SetRole(ctx, middleware.ActorFrom(c), id, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// DeleteUser removes a user and everything they own.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := pathID(c, "userId")
	if err != nil {
		return fail(c, err)
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Users.Delete(ctx, middleware.ActorFrom(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
