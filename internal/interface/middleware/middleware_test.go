package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-fixture-users/pkg/helpers"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, err := uuid.Parse(w.Body.String()); err != nil {
		t.Fatalf("generated id %q is not a uuid", w.Body.String())
	}
	if w.Header().Get(RequestIDHeader) != w.Body.String() {
		t.Fatal("request id not echoed")
	}

	own := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, own)
	if got := serve(r, req).Body.String(); got != own {
		t.Fatalf("caller id replaced: %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	if got := serve(r, req).Body.String(); got == "not-a-uuid" {
		t.Fatal("invalid caller id accepted")
	}
}

func TestRealIP(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("real_ip")) })

	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"cloudflare wins", map[string]string{"CF-Connecting-IP": "1.1.1.1", "X-Real-IP": "2.2.2.2"}, "1.1.1.1"},
		{"x-real-ip", map[string]string{"X-Real-IP": "2.2.2.2", "X-Forwarded-For": "3.3.3.3"}, "2.2.2.2"},
		{"left-most forwarded", map[string]string{"X-Forwarded-For": " 3.3.3.3 , 10.0.0.1"}, "3.3.3.3"},
		{"garbage skipped", map[string]string{"CF-Connecting-IP": "nope", "X-Real-IP": "4.4.4.4"}, "4.4.4.4"},
		{"remote addr", nil, "192.0.2.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := serve(r, req).Body.String(); got != tc.want {
				t.Fatalf("real_ip = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAllowPrivateIP(t *testing.T) {
	allow := AllowPrivateIP()
	cases := map[string]bool{
		"127.0.0.1":   true,
		"10.1.2.3":    true,
		"192.168.0.5": true,
		"8.8.8.8":     false,
		"garbage":     false,
	}
	for ip, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Set("real_ip", ip)
		if got := allow(c); got != want {
			t.Errorf("allow(%s) = %v, want %v", ip, got, want)
		}
	}
}

func TestKeyFuncs(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/users", nil)
	c.Set("real_ip", "9.9.9.9")

	if got := KeyByIP()(c); got != "rl:ip:9.9.9.9" {
		t.Errorf("KeyByIP = %q", got)
	}
	if got := KeyByIPAndPath()(c); got != "rl:path:/api/users:ip:9.9.9.9" {
		t.Errorf("KeyByIPAndPath = %q", got)
	}
	if got := KeyByUserID()(c); got != "rl:user:anon:ip:9.9.9.9" {
		t.Errorf("anonymous KeyByUserID = %q", got)
	}
	c.Set(CtxUserIDKey, int64(12))
	if got := KeyByUserID()(c); got != "rl:user:12" {
		t.Errorf("KeyByUserID = %q", got)
	}
}

func TestRateLimitWithoutRedisPassesThrough(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimit(nil, 1, time.Minute, KeyByIP(), nil), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for i := 0; i < 3; i++ {
		if w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil)); w.Code != http.StatusNoContent {
			t.Fatalf("request %d = %d", i, w.Code)
		}
	}
}

func TestAuthWithoutSessionStore(t *testing.T) {
	jwt := helpers.NewJWTManager("access", "refresh", time.Minute, time.Hour)
	r := gin.New()
	r.GET("/me", Auth(nil, jwt), func(c *gin.Context) {
		c.String(http.StatusOK, strconv.FormatInt(CurrentUserID(c), 10))
	})
	r.GET("/admin", Auth(nil, jwt), RequireAdmin(nil), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	withCookie := func(path, token string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.AddCookie(&http.Cookie{Name: helpers.AccessCookie, Value: token})
		}
		return req
	}

	if w := serve(r, withCookie("/me", "")); w.Code != http.StatusUnauthorized {
		t.Fatalf("no cookie = %d", w.Code)
	}
	if w := serve(r, withCookie("/me", "garbage")); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token = %d", w.Code)
	}

	member, _, _ := jwt.GenerateAccessToken(7, "sid", false)
	w := serve(r, withCookie("/me", member))
	if w.Code != http.StatusOK || w.Body.String() != "7" {
		t.Fatalf("member /me = %d %q", w.Code, w.Body.String())
	}
	if w := serve(r, withCookie("/admin", member)); w.Code != http.StatusForbidden {
		t.Fatalf("member /admin = %d", w.Code)
	}

	admin, _, _ := jwt.GenerateAccessToken(1, "sid", true)
	if w := serve(r, withCookie("/admin", admin)); w.Code != http.StatusNoContent {
		t.Fatalf("admin /admin = %d", w.Code)
	}

	refresh, _, _ := jwt.GenerateRefreshToken(7, "sid", 0)
	if w := serve(r, withCookie("/me", refresh)); w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh token as access = %d", w.Code)
	}
}

func TestRequireAdminConsultsLookup(t *testing.T) {
	jwt := helpers.NewJWTManager("access", "refresh", time.Minute, time.Hour)
	stored := map[int64]bool{1: false, 2: true}
	lookup := func(_ context.Context, id int64) (bool, error) {
		admin, ok := stored[id]
		if !ok {
			return false, errors.New("no such user")
		}
		return admin, nil
	}
	r := gin.New()
	r.GET("/admin", Auth(nil, jwt), RequireAdmin(lookup), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	cases := []struct {
		name  string
		id    int64
		claim bool
		want  int
	}{
		{"revoked admin keeps the claim", 1, true, http.StatusForbidden},
		{"promoted member without the claim", 2, false, http.StatusNoContent},
		{"deleted user", 3, true, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, _, err := jwt.GenerateAccessToken(tc.id, "sid", tc.claim)
			if err != nil {
				t.Fatalf("token: %v", err)
			}
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.AddCookie(&http.Cookie{Name: helpers.AccessCookie, Value: token})
			if w := serve(r, req); w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}
