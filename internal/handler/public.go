package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pamfree/internal/middleware"
	"github.com/iliyamo/pamfree/internal/service"
)

// PublicHandler serves the unauthenticated viewer and the public
// editor endpoints.  Pin writes carry the editor credentials in the
// X-Editor-Id and X-Editor-Token headers and are re-verified each time.
type PublicHandler struct {
	Maps    *service.MapService
	Editors *service.EditorService
}

func NewPublicHandler(s *service.Services) *PublicHandler {
	return &PublicHandler{Maps: s.Maps, Editors: s.Editors}
}

func editorCredentials(c echo.Context) service.EditorCredentials {
	h := c.Request().Header
	return service.EditorCredentials{
		EditorID: strings.TrimSpace(h.Get(middleware.EditorIDHeader)),
		Token:    strings.TrimSpace(h.Get(middleware.EditorTokenHeader)),
	}
}

// ViewMap returns the map with all floors and pins.
func (h *PublicHandler) ViewMap(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	v, err := h.Maps.View(ctx, middleware.ActorFrom(c), c.Param("mapId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// RegisterEditor issues an editor token for a publicly editable map.
// The token is only ever returned here.
func (h *PublicHandler) RegisterEditor(c echo.Context) error {
	var req service.RegisterEditorInput
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	req.Nickname = strings.TrimSpace(req.Nickname)

	ctx, cancel := withTimeout(c)
	defer cancel()

	reg, err := h.Editors.Register(ctx, c.Param("mapId"), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, reg)
}

// VerifyEditor checks an editor id and token pair.
func (h *PublicHandler) VerifyEditor(c echo.Context) error {
	var req service.VerifyEditorInput
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	v, err := h.Editors.Verify(ctx, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *PublicHandler) CreatePin(c echo.Context) error {
	floorID, err := pathID(c, "floorId")
	if err != nil {
		return fail(c, err)
	}
	var req service.CreatePinInput
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := h.Editors.CreatePin(ctx, editorCredentials(c), c.Param("mapId"), floorID, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *PublicHandler) UpdatePin(c echo.Context) error {
	floorID, err := pathID(c, "floorId")
	if err != nil {
		return fail(c, err)
	}
	pinID, err := pathID(c, "pinId")
	if err != nil {
		return fail(c, err)
	}
	var req service.UpdatePinInput
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := h.Editors.UpdatePin(ctx, editorCredentials(c), c.Param("mapId"), floorID, pinID, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PublicHandler) DeletePin(c echo.Context) error {
	floorID, err := pathID(c, "floorId")
	if err != nil {
		return fail(c, err)
	}
	pinID, err := pathID(c, "pinId")
	if err != nil {
		return fail(c, err)
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Editors.DeletePin(ctx, editorCredentials(c), c.Param("mapId"), floorID, pinID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
