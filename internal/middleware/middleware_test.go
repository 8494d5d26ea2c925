package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pamfree/internal/authz"
	"github.com/iliyamo/pamfree/internal/config"
	"github.com/iliyamo/pamfree/internal/model"
	"github.com/iliyamo/pamfree/internal/utils"
)

const testSecret = "middleware-secret"

func signed(t *testing.T, id uint64, role string) string {
	t.Helper()
	at, err := utils.NewAccessToken(testSecret, id, role, 5)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return at.Token
}

// resolve runs Authenticate on req and returns the actor it stored.
func resolve(t *testing.T, req *http.Request) authz.Actor {
	t.Helper()
	e := echo.New()
	c := e.NewContext(req, httptest.NewRecorder())
	var got authz.Actor
	h := Authenticate(testSecret)(func(c echo.Context) error {
		got = ActorFrom(c)
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	return got
}

func TestAuthenticate(t *testing.T) {
	bearer := httptest.NewRequest(http.MethodGet, "/", nil)
	bearer.Header.Set("Authorization", "Bearer "+signed(t, 7, model.RoleAdmin))

	cookie := httptest.NewRequest(http.MethodGet, "/", nil)
	cookie.AddCookie(&http.Cookie{Name: SessionCookie, Value: signed(t, 9, model.RoleUser)})

	both := httptest.NewRequest(http.MethodGet, "/", nil)
	both.Header.Set("Authorization", "Bearer "+signed(t, 1, model.RoleUser))
	both.AddCookie(&http.Cookie{Name: SessionCookie, Value: signed(t, 2, model.RoleUser)})

	forged := httptest.NewRequest(http.MethodGet, "/", nil)
	other, _ := utils.NewAccessToken("another-secret", 3, model.RoleAdmin, 5)
	forged.Header.Set("Authorization", "Bearer "+other.Token)

	badRole := httptest.NewRequest(http.MethodGet, "/", nil)
	badRole.Header.Set("Authorization", "Bearer "+signed(t, 4, "OWNER"))

	tests := []struct {
		name string
		req  *http.Request
		want authz.Actor
	}{
		{"bearer", bearer, authz.Actor{UserID: 7, Role: model.RoleAdmin}},
		{"cookie", cookie, authz.Actor{UserID: 9, Role: model.RoleUser}},
		{"header wins", both, authz.Actor{UserID: 1, Role: model.RoleUser}},
		{"wrong secret", forged, authz.Anonymous},
		{"unknown role", badRole, authz.Anonymous},
		{"none", httptest.NewRequest(http.MethodGet, "/", nil), authz.Anonymous},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolve(t, tc.req); got != tc.want {
				t.Fatalf("actor = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestRequireUserAndAdmin(t *testing.T) {
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	tests := []struct {
		name  string
		mw    echo.MiddlewareFunc
		actor authz.Actor
		want  int
	}{
		{"user anon", RequireUser, authz.Anonymous, http.StatusUnauthorized},
		{"user ok", RequireUser, authz.Actor{UserID: 1, Role: model.RoleUser}, http.StatusNoContent},
		{"admin anon", RequireAdmin, authz.Anonymous, http.StatusUnauthorized},
		{"admin as user", RequireAdmin, authz.Actor{UserID: 1, Role: model.RoleUser}, http.StatusForbidden},
		{"admin ok", RequireAdmin, authz.Actor{UserID: 2, Role: model.RoleAdmin}, http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(authz.WithActor(req.Context(), tc.actor))
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(req, rec)
			if err := tc.mw(ok)(c); err != nil {
				t.Fatal(err)
			}
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestBuildRateKey(t *testing.T) {
	newCtx := func(actor authz.Actor, editor string) echo.Context {
		req := httptest.NewRequest(http.MethodPost, "/api/maps/m1/floors", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		if editor != "" {
			req.Header.Set(EditorIDHeader, editor)
		}
		req = req.WithContext(authz.WithActor(req.Context(), actor))
		c := echo.New().NewContext(req, httptest.NewRecorder())
		c.SetPath("/api/maps/:mapId/floors")
		return c
	}
	user := authz.Actor{UserID: 42, Role: model.RoleUser}

	tests := []struct {
		strategy string
		actor    authz.Actor
		editor   string
		want     string
	}{
		{"ip", user, "", "rl:ip:10.0.0.1"},
		{"actor", user, "", "rl:actor:user:42"},
		{"actor", authz.Anonymous, "", "rl:actor:anon"},
		{"actor", authz.Anonymous, "ed-1", "rl:actor:anon"},
		{"route", user, "", "rl:route:POST /api/maps/:mapId/floors"},
		{"", user, "", "rl:ip:10.0.0.1:actor:user:42:route:POST /api/maps/:mapId/floors"},
	}
	for _, tc := range tests {
		cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: tc.strategy}
		if got := buildRateKey(cfg, newCtx(tc.actor, tc.editor)); got != tc.want {
			t.Errorf("strategy %q: key = %q, want %q", tc.strategy, got, tc.want)
		}
	}

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_actor_route"}
	first := buildRateKey(cfg, newCtx(authz.Anonymous, "x1"))
	for _, forged := range []string{"x2", "", strings.Repeat("z", 40)} {
		if got := buildRateKey(cfg, newCtx(authz.Anonymous, forged)); got != first {
			t.Errorf("editor header %q changed bucket: %q vs %q", forged, got, first)
		}
	}
}

func TestCacheKeyIsPerPath(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "c", KeyStrategy: "path_query"}
	a := cacheKeyFrom(cfg, httptest.NewRequest(http.MethodGet, "/api/public/maps/a", nil))
	b := cacheKeyFrom(cfg, httptest.NewRequest(http.MethodGet, "/api/public/maps/b", nil))
	aq := cacheKeyFrom(cfg, httptest.NewRequest(http.MethodGet, "/api/public/maps/a?x=1", nil))
	if a == b {
		t.Fatal("different maps share a cache key")
	}
	if a == aq {
		t.Fatal("query ignored with path_query strategy")
	}
	prefix := pathPrefix("c", "/api/public/maps/a")
	if !strings.HasPrefix(a, prefix) || !strings.HasPrefix(aq, prefix) {
		t.Fatalf("keys %q, %q do not share invalidation prefix %q", a, aq, prefix)
	}

	cfg.KeyStrategy = "path"
	if cacheKeyFrom(cfg, httptest.NewRequest(http.MethodGet, "/p?x=1", nil)) !=
		cacheKeyFrom(cfg, httptest.NewRequest(http.MethodGet, "/p?x=2", nil)) {
		t.Fatal("path strategy should ignore the query")
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	bs, err := encodePayload(http.StatusOK, h, []byte(`{"ok":true}`))
	if err != nil {
		t.Fatal(err)
	}
	status, hdr, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || hdr.Get("Content-Type") != "application/json" || string(body) != `{"ok":true}` {
		t.Fatalf("decoded %d %v %q %v", status, hdr, body, ok)
	}
	if _, _, _, ok := decodePayload([]byte{0, 1}); ok {
		t.Fatal("short payload accepted")
	}
}

func TestReplayableDropsPerResponseHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set(echo.HeaderXRequestID, "req-1")
	h.Set("X-Cache", "MISS")
	h.Set("Content-Length", "11")
	got := replayable(h)
	if got.Get("Content-Type") != "application/json" {
		t.Fatalf("content type lost: %v", got)
	}
	for _, k := range []string{echo.HeaderXRequestID, "X-Cache", "Content-Length"} {
		if got.Get(k) != "" {
			t.Errorf("%s kept: %v", k, got)
		}
	}
	if h.Get(echo.HeaderXRequestID) != "req-1" {
		t.Fatal("source header modified")
	}
}

func TestWithoutRedisEverythingPassesThrough(t *testing.T) {
	calls := 0
	next := func(c echo.Context) error { calls++; return c.NoContent(http.StatusOK) }
	rl := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil)
	cache := NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil)
	for i := 0; i < 3; i++ {
		c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/x", nil), httptest.NewRecorder())
		if err := rl(cache(next))(c); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 3 {
		t.Fatalf("handler calls = %d, want 3", calls)
	}
	if err := NewCacheInvalidator(config.CacheConfig{}, nil).InvalidatePath(t.Context(), "/x"); err != nil {
		t.Fatalf("nil invalidator: %v", err)
	}
}
