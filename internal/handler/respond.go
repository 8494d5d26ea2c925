package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pamfree/internal/apperror"
	"github.com/iliyamo/pamfree/internal/logging"
	"github.com/iliyamo/pamfree/internal/validation"
)

// requestTimeout bounds the store calls of one request.
const requestTimeout = 5 * time.Second

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// statusOf maps an error kind to its HTTP status.  Conflicts are
// reported as 400.
func statusOf(k apperror.Kind) int {
	switch k {
	case apperror.KindBadRequest, apperror.KindConflict:
		return http.StatusBadRequest
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as {"error": message}.  Internal causes are logged
// and replaced with a generic message.
func fail(c echo.Context, err error) error {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error()})
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return err
	}
	var ae *apperror.Error
	if !errors.As(err, &ae) || ae.Kind == apperror.KindInternal {
		logging.Ctx(c.Request().Context()).Error().Err(err).
			Str("method", c.Request().Method).
			Str("route", c.Path()).
			Msg("request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	return c.JSON(statusOf(ae.Kind), echo.Map{"error": ae.Message})
}

// bind decodes the body into v and validates it.
func bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusBadRequest {
			if msg, ok := he.Message.(string); ok && he.Internal != nil && msg != he.Internal.Error() {
				return apperror.BadRequest(msg)
			}
		}
		return apperror.BadRequest("invalid body")
	}
	return c.Validate(v)
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.BadRequest("invalid " + name)
	}
	return id, nil
}

// HTTPErrorHandler renders framework errors (unknown routes, bind
// failures, body limits) in the same {"error": message} shape.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		_ = fail(c, err)
		return
	}
	code := he.Code
	msg := http.StatusText(code)
	if s, ok := he.Message.(string); ok && s != "" {
		msg = s
	}
	if code == http.StatusRequestEntityTooLarge {
		code, msg = http.StatusBadRequest, "request body too large"
	}
	if code >= 500 {
		logging.Ctx(c.Request().Context()).Error().Err(err).Msg("request failed")
		msg = "internal server error"
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, echo.Map{"error": msg})
}
