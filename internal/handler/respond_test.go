package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pamfree/internal/apperror"
	"github.com/iliyamo/pamfree/internal/validation"
)

func TestFailMapsKinds(t *testing.T) {
	tests := []struct {
		err  error
		code int
		msg  string
	}{
		{apperror.BadRequest("bad"), http.StatusBadRequest, "bad"},
		{apperror.Conflict("mapId already exists"), http.StatusBadRequest, "mapId already exists"},
		{apperror.Unauthorized("who"), http.StatusUnauthorized, "who"},
		{apperror.Forbidden("no"), http.StatusForbidden, "no"},
		{apperror.NotFound("gone"), http.StatusNotFound, "gone"},
		{apperror.Internal("delete map", errors.New("db down")), http.StatusInternalServerError, "internal server error"},
		{errors.New("raw"), http.StatusInternalServerError, "internal server error"},
		{&validation.Error{Field: "title", Tag: "required"}, http.StatusBadRequest, "title is required"},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		if err := fail(c, tc.err); err != nil {
			t.Fatalf("fail(%v) returned %v", tc.err, err)
		}
		if rec.Code != tc.code {
			t.Errorf("%v: status = %d, want %d", tc.err, rec.Code, tc.code)
		}
		if !strings.Contains(rec.Body.String(), `"error":"`+tc.msg+`"`) {
			t.Errorf("%v: body = %s", tc.err, rec.Body.String())
		}
		if strings.Contains(rec.Body.String(), "db down") {
			t.Errorf("internal cause leaked: %s", rec.Body.String())
		}
	}
}

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		err  error
		code int
		msg  string
	}{
		{echo.ErrNotFound, http.StatusNotFound, "Not Found"},
		{echo.ErrStatusRequestEntityTooLarge, http.StatusBadRequest, "request body too large"},
		{echo.NewHTTPError(http.StatusInternalServerError, "boom"), http.StatusInternalServerError, "internal server error"},
		{apperror.Forbidden("no"), http.StatusForbidden, "no"},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		HTTPErrorHandler(tc.err, c)
		if rec.Code != tc.code || !strings.Contains(rec.Body.String(), tc.msg) {
			t.Errorf("%v: got %d %s", tc.err, rec.Code, rec.Body.String())
		}
	}
}

func TestPathID(t *testing.T) {
	for in, ok := range map[string]bool{"12": true, "0": false, "-1": false, "x": false, "": false} {
		c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.SetParamNames("floorId")
		c.SetParamValues(in)
		_, err := pathID(c, "floorId")
		if (err == nil) != ok {
			t.Errorf("pathID(%q) err = %v", in, err)
		}
	}
}
