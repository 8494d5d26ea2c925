package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pamfree/internal/apperror"
	"github.com/iliyamo/pamfree/internal/middleware"
	"github.com/iliyamo/pamfree/internal/service"
)

// MapHandler serves the authenticated map, floor and pin endpoints.
// Ownership is checked by the services; the handler only parses input.
type MapHandler struct {
	Maps           *service.MapService
	Floors         *service.FloorService
	Pins           *service.PinService
	MaxUploadBytes int64
}

func NewMapHandler(s *service.Services, maxUpload int64) *MapHandler {
	return &MapHandler{Maps: s.Maps, Floors: s.Floors, Pins: s.Pins, MaxUploadBytes: maxUpload}
}

// ----- maps -----

func (h *MapHandler) CreateMap(c echo.Context) error {
	var req service.CreateMapInput
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	req.Title = strings.TrimSpace(req.Title)

	ctx, cancel := withTimeout(c)
	defer cancel()

	m, err := h.Maps.Create(ctx, middleware.ActorFrom(c), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *MapHandler) ListMaps(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	maps, err := h.Maps.List(ctx, middleware.ActorFrom(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, maps)
}

func (h *MapHandler) GetMap(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	m, err := h.Maps.Get(ctx, middleware.ActorFrom(c), c.Param("mapId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *MapHandler) UpdateMap(c echo.Context) error {
	var req service.UpdateMapInput
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	m, err := h.Maps.Update(ctx, middleware.ActorFrom(c), c.Param("mapId"), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *MapHandler) DeleteMap(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Maps.Delete(ctx, middleware.ActorFrom(c), c.Param("mapId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ----- floors -----

func (h *MapHandler) ListFloors(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	floors, err := h.Floors.List(ctx, middleware.ActorFrom(c), c.Param("mapId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, floors)
}

func (h *MapHandler) CreateFloor(c echo.Context) error {
	var req service.CreateFloorInput
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	req.Name = strings.TrimSpace(req.Name)

	ctx, cancel := withTimeout(c)
	defer cancel()

	f, err := h.Floors.Create(ctx, middleware.ActorFrom(c), c.Param("mapId"), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *MapHandler) UpdateFloor(c echo.Context) error {
	floorID, err := pathID(c, "floorId")
	if err != nil {
		return fail(c, err)
	}
	var req service.UpdateFloorInput
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	f, err := h.Floors.Update(ctx, middleware.ActorFrom(c), c.Param("mapId"), floorID, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *MapHandler) DeleteFloor(c echo.Context) error {
	floorID, err := pathID(c, "floorId")
	if err != nil {
		return fail(c, err)
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Floors.Delete(ctx, middleware.ActorFrom(c), c.Param("mapId"), floorID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// UploadFloorImage reads the multipart field "file" fully, up to
// MaxUploadBytes, and stores it as the floor image.
func (h *MapHandler) UploadFloorImage(c echo.Context) error {
	floorID, err := pathID(c, "floorId")
	if err != nil {
		return fail(c, err)
	}
	img, err := h.readImage(c)
	if err != nil {
		return fail(c, err)
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	f, err := h.Floors.SetImage(ctx, middleware.ActorFrom(c), c.Param("mapId"), floorID, img)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *MapHandler) readImage(c echo.Context) (service.ImageUpload, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return service.ImageUpload{}, he
		}
		if errors.Is(err, http.ErrMissingFile) {
			return service.ImageUpload{}, apperror.BadRequest("file is required")
		}
		return service.ImageUpload{}, apperror.BadRequest("invalid multipart body")
	}
	if h.MaxUploadBytes > 0 && fh.Size > h.MaxUploadBytes {
		return service.ImageUpload{}, apperror.BadRequest("file is too large")
	}
	src, err := fh.Open()
	if err != nil {
		return service.ImageUpload{}, apperror.Internal("open upload", err)
	}
	defer src.Close()

	var r io.Reader = src
	if h.MaxUploadBytes > 0 {
		r = io.LimitReader(src, h.MaxUploadBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return service.ImageUpload{}, apperror.Internal("read upload", err)
	}
	if h.MaxUploadBytes > 0 && int64(len(data)) > h.MaxUploadBytes {
		return service.ImageUpload{}, apperror.BadRequest("file is too large")
	}
	return service.ImageUpload{
		FileName: fh.Filename,
		Data:     data,
	}, nil
}

func (h *MapHandler) DeleteFloorImage(c echo.Context) error {
	floorID, err := pathID(c, "floorId")
	if err != nil {
		return fail(c, err)
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	f, err := h.Floors.ClearImage(ctx, middleware.ActorFrom(c), c.Param("mapId"), floorID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, f)
}

// ----- pins -----

func (h *MapHandler) ListPins(c echo.Context) error {
	floorID, err := pathID(c, "floorId")
	if err != nil {
		return fail(c, err)
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	pins, err := h.Pins.List(ctx, middleware.ActorFrom(c), c.Param("mapId"), floorID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, pins)
}

func (h *MapHandler) CreatePin(c echo.Context) error {
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

	p, err := h.Pins.Create(ctx, middleware.ActorFrom(c), c.Param("mapId"), floorID, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *MapHandler) UpdatePin(c echo.Context) error {
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

	p, err := h.Pins.Update(ctx, middleware.ActorFrom(c), c.Param("mapId"), floorID, pinID, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *MapHandler) DeletePin(c echo.Context) error {
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

	res, err := h.Pins.Delete(ctx, middleware.ActorFrom(c), c.Param("mapId"), floorID, pinID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
