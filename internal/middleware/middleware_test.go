package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"

    "github.com/iliyamo/agritrace/internal/config"
    "github.com/iliyamo/agritrace/internal/model"
    "github.com/iliyamo/agritrace/internal/service"
)

type stubVerifier struct{}

func (stubVerifier) Verify(raw string) (service.Identity, error) {
    if raw != "good" {
        return service.Identity{}, &service.Error{Kind: service.KindUnauthorized, Message: "invalid or expired session token"}
    }
    return service.Identity{UserID: "u-1", Username: "alice", Role: model.RoleFarmer}, nil
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
    w := httptest.NewRecorder()
    e.ServeHTTP(w, req)
    return w
}

func newEcho() *echo.Echo {
    e := echo.New()
    ok := func(c echo.Context) error {
        id, _ := IdentityFrom(c)
        return c.String(http.StatusOK, id.UserID+" "+currentUserID(c))
    }
    e.GET("/any", ok, Session(stubVerifier{}))
    e.GET("/farmers", ok, Session(stubVerifier{}), RequireRole(model.RoleFarmer))
    e.GET("/retailers", ok, Session(stubVerifier{}), RequireRole(model.RoleRetailer))
    return e
}

func TestSessionReadsCookieThenBearer(t *testing.T) {
    e := newEcho()

    req := httptest.NewRequest(http.MethodGet, "/any", nil)
    req.AddCookie(&http.Cookie{Name: CookieName, Value: "good"})
    w := serve(e, req)
    assert.Equal(t, http.StatusOK, w.Code)
    assert.Equal(t, "u-1 u-1", w.Body.String())

    req = httptest.NewRequest(http.MethodGet, "/any", nil)
    req.Header.Set(echo.HeaderAuthorization, "Bearer good")
    assert.Equal(t, http.StatusOK, serve(e, req).Code)

    req = httptest.NewRequest(http.MethodGet, "/any", nil)
    w = serve(e, req)
    assert.Equal(t, http.StatusUnauthorized, w.Code)
    assert.JSONEq(t, `{"error":"invalid or expired session token"}`, w.Body.String())

    req = httptest.NewRequest(http.MethodGet, "/any", nil)
    req.AddCookie(&http.Cookie{Name: CookieName, Value: "bad"})
    req.Header.Set(echo.HeaderAuthorization, "Bearer good")
    assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code, "cookie takes precedence")
}

func TestRequireRole(t *testing.T) {
    e := newEcho()

    req := httptest.NewRequest(http.MethodGet, "/farmers", nil)
    req.AddCookie(&http.Cookie{Name: CookieName, Value: "good"})
    assert.Equal(t, http.StatusOK, serve(e, req).Code)

    req = httptest.NewRequest(http.MethodGet, "/retailers", nil)
    req.AddCookie(&http.Cookie{Name: CookieName, Value: "good"})
    assert.Equal(t, http.StatusForbidden, serve(e, req).Code)
}

func TestTokenBucketWithoutRedisIsPassThrough(t *testing.T) {
    e := echo.New()
    cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second}
    e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, nil))
    for i := 0; i < 3; i++ {
        assert.Equal(t, http.StatusNoContent, serve(e, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
    }
}

func TestBuildRateKey(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/crops/data/get", nil)
    req.RemoteAddr = "10.0.0.1:1234"
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/crops/data/get")

    cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}
    assert.Equal(t, "rl:ip:10.0.0.1", buildRateKey(cfg, c))

    cfg.KeyStrategy = "ip_user_route"
    assert.Equal(t, "rl:ip:10.0.0.1:user:anon:route:GET /crops/data/get", buildRateKey(cfg, c))

    c.Set(ctxUserID, "u-1")
    cfg.KeyStrategy = "user"
    assert.Equal(t, "rl:user:u-1", buildRateKey(cfg, c))
}

func TestBuildRateKeyByCrop(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/crops/qr?cropId=C1", nil)
    req.RemoteAddr = "10.0.0.2:4000"
    c := e.NewContext(req, httptest.NewRecorder())

    cfg := config.RateLimitConfig{Prefix: "rl:lookup", KeyStrategy: "ip_crop"}
    assert.Equal(t, "rl:lookup:ip:10.0.0.2:crop:C1", buildRateKey(cfg, c))

    c = e.NewContext(httptest.NewRequest(http.MethodGet, "/crops/qr", nil), httptest.NewRecorder())
    cfg.KeyStrategy = "crop"
    assert.Equal(t, "rl:lookup:crop:none", buildRateKey(cfg, c))
}
