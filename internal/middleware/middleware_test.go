package middleware

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/go-redis/redismock/v9"
    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/ticket-marketplace/internal/config"
    "github.com/iliyamo/ticket-marketplace/internal/repository"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
    t.Helper()
    s, err := jwt.NewWithClaims(method, claims).SignedString(key)
    require.NoError(t, err)
    return s
}

func echoEmail(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{"email": Email(c), "role": Role(c)})
}

func serve(h echo.HandlerFunc, mw ...echo.MiddlewareFunc) func(req *http.Request) *httptest.ResponseRecorder {
    e := echo.New()
    e.GET("/x", h, mw...)
    return func(req *http.Request) *httptest.ResponseRecorder {
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        return rec
    }
}

func bearer(tok string) *http.Request {
    req := httptest.NewRequest(http.MethodGet, "/x", nil)
    if tok != "" {
        req.Header.Set("Authorization", "Bearer "+tok)
    }
    return req
}

func TestJWTAuth(t *testing.T) {
    do := serve(echoEmail, JWTAuth(testSecret))
    exp := time.Now().Add(time.Hour).Unix()

    t.Run("email claim", func(t *testing.T) {
        rec := do(bearer(sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"email": "Buyer@Example.com", "exp": exp})))
        assert.Equal(t, http.StatusOK, rec.Code)
        assert.Contains(t, rec.Body.String(), `"email":"buyer@example.com"`)
    })

    t.Run("sub fallback", func(t *testing.T) {
        rec := do(bearer(sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "v@example.com", "exp": exp})))
        assert.Equal(t, http.StatusOK, rec.Code)
        assert.Contains(t, rec.Body.String(), "v@example.com")
    })

    cases := map[string]string{
        "missing header": "",
        "wrong secret":   sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"email": "a@example.com", "exp": exp}),
        "expired":        sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"email": "a@example.com", "exp": time.Now().Add(-time.Minute).Unix()}),
        "no expiry":      sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"email": "a@example.com"}),
        "wrong alg":      sign(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.MapClaims{"email": "a@example.com", "exp": exp}),
        "no email":       sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "12345", "exp": exp}),
        "garbage":        "not-a-token",
    }
    for name, tok := range cases {
        t.Run(name, func(t *testing.T) {
            assert.Equal(t, http.StatusUnauthorized, do(bearer(tok)).Code)
        })
    }
}

type roleMap map[string]string

func (m roleMap) RoleByEmail(_ context.Context, email string) (string, error) {
    if email == "broken@example.com" {
        return "", errors.New("db down")
    }
    r, ok := m[email]
    if !ok {
        return "", repository.ErrNotFound
    }
    return r, nil
}

func TestRequireRole(t *testing.T) {
    roles := roleMap{"admin@example.com": "admin", "u@example.com": "user"}
    do := serve(echoEmail, JWTAuth(testSecret), RequireRole(roles, "admin"))
    exp := time.Now().Add(time.Hour).Unix()
    tok := func(email string) string {
        return sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"email": email, "exp": exp})
    }

    rec := do(bearer(tok("admin@example.com")))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"role":"admin"`)

    assert.Equal(t, http.StatusForbidden, do(bearer(tok("u@example.com"))).Code)
    assert.Equal(t, http.StatusForbidden, do(bearer(tok("stranger@example.com"))).Code)
    assert.Equal(t, http.StatusInternalServerError, do(bearer(tok("broken@example.com"))).Code)
}

func rateCfg() config.RateLimitConfig {
    return config.RateLimitConfig{
        Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: 3 * time.Second,
        TTL: time.Minute, KeyStrategy: "ip", Prefix: "rl",
    }
}

func TestTokenBucket_Denies(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    mock.CustomMatch(func(expected, actual []interface{}) error { return nil }).
        ExpectEvalSha(tokenBucket.Hash(), []string{"rl:ip:192.0.2.1"}).
        SetVal([]interface{}{int64(0), int64(0), int64(2500)})

    do := serve(echoEmail, NewTokenBucket(rateCfg(), rdb))
    req := httptest.NewRequest(http.MethodGet, "/x", nil)
    req.RemoteAddr = "192.0.2.1:5555"
    rec := do(req)

    assert.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.Equal(t, "3", rec.Header().Get("Retry-After"))
    assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
}

func TestTokenBucket_FailsOpen(t *testing.T) {
    rdb, _ := redismock.NewClientMock() // no expectations: every command errors
    do := serve(echoEmail, NewTokenBucket(rateCfg(), rdb))
    assert.Equal(t, http.StatusOK, do(httptest.NewRequest(http.MethodGet, "/x", nil)).Code)

    off := serve(echoEmail, NewTokenBucket(rateCfg(), nil))
    assert.Equal(t, http.StatusOK, off(httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}

func TestBuildRateKey(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/payment-success", nil)
    req.RemoteAddr = "192.0.2.9:1"
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/payment-success")
    c.Set(ctxEmail, "buyer@example.com")

    cfg := rateCfg()
    cfg.KeyStrategy, cfg.Prefix = "user_route", "rl:pay"
    assert.Equal(t, "rl:pay:user:buyer@example.com:route:POST /payment-success", buildRateKey(cfg, c))

    cfg.KeyStrategy = "ip"
    assert.Equal(t, "rl:pay:ip:192.0.2.9", buildRateKey(cfg, c))
}

func cacheCfg() config.CacheConfig {
    return config.CacheConfig{
        Enabled: true, Methods: map[string]bool{"GET": true}, TTL: 15 * time.Second,
        KeyStrategy: "route_query", Prefix: "cache", MaxBodyBytes: 1 << 20,
    }
}

func TestRedisCache_Hit(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    rc := NewRedisCache(cacheCfg(), rdb)

    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/x?page=2", nil)
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/x")
    key := rc.cacheKey(c)

    hdr := http.Header{"Content-Type": []string{"application/json"}}
    payload, err := encodePayload(http.StatusOK, hdr, []byte(`{"cached":true}`))
    require.NoError(t, err)
    mock.ExpectGet(key).SetVal(string(payload))

    called := false
    do := serve(func(c echo.Context) error {
        called = true
        return c.String(http.StatusOK, "fresh")
    }, rc.Middleware())
    rec := do(httptest.NewRequest(http.MethodGet, "/x?page=2", nil))

    assert.False(t, called)
    assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
    assert.JSONEq(t, `{"cached":true}`, rec.Body.String())
    require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_MissCallsHandler(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    rc := NewRedisCache(cacheCfg(), rdb)
    mock.MatchExpectationsInOrder(false)
    mock.Regexp().ExpectGet(`cache:.*`).RedisNil()

    do := serve(func(c echo.Context) error { return c.String(http.StatusOK, "fresh") }, rc.Middleware())
    rec := do(httptest.NewRequest(http.MethodGet, "/x", nil))

    assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
    assert.Equal(t, "fresh", rec.Body.String())
}

func TestRedisCache_Purge(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    rc := NewRedisCache(cacheCfg(), rdb)
    mock.ExpectScan(0, "cache:*", 100).SetVal([]string{"cache:a", "cache:b"}, 0)
    mock.ExpectDel("cache:a", "cache:b").SetVal(2)

    require.NoError(t, rc.Purge(context.Background()))
    require.NoError(t, mock.ExpectationsWereMet())

    var disabled *RedisCache
    assert.NoError(t, disabled.Purge(context.Background()))
}

func TestPayloadRoundTrip(t *testing.T) {
    hdr := http.Header{"Content-Type": []string{"application/json"}}
    bs, err := encodePayload(http.StatusOK, hdr, []byte("body"))
    require.NoError(t, err)
    status, h, body, ok := decodePayload(bs)
    require.True(t, ok)
    assert.Equal(t, http.StatusOK, status)
    assert.Equal(t, "application/json", h.Get("Content-Type"))
    assert.Equal(t, "body", string(body))

    _, _, _, ok = decodePayload([]byte{0, 1})
    assert.False(t, ok)
}
