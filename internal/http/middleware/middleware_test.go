package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/renubu/renubu/internal/model"
)

type fakeUsers map[string]*model.User

func (f fakeUsers) GetByAPIKey(_ context.Context, key string) (*model.User, error) {
	if key == "boom" {
		return nil, errors.New("db down")
	}
	return f[key], nil
}

func run(t *testing.T, key string, mws ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, *model.User) {
	t.Helper()
	e := echo.New()
	var seen *model.User
	h := func(c echo.Context) error {
		seen, _ = UserFromCtx(c)
		return c.NoContent(http.StatusNoContent)
	}
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	return rec, seen
}

func TestAPIKeyMiddleware(t *testing.T) {
	rps := 3
	users := fakeUsers{
		"good": {ID: "u1", Status: "active", RateLimitRPS: &rps},
		"off":  {ID: "u2", Status: "suspended"},
	}
	mw := APIKeyMiddleware(users)

	cases := map[string]int{
		"":     http.StatusUnauthorized,
		"nope": http.StatusUnauthorized,
		"off":  http.StatusUnauthorized,
		"boom": http.StatusInternalServerError,
		"good": http.StatusNoContent,
	}
	for key, want := range cases {
		rec, u := run(t, key, mw)
		if rec.Code != want {
			t.Errorf("key %q = %d, want %d", key, rec.Code, want)
		}
		if key == "good" && (u == nil || u.ID != "u1") {
			t.Errorf("user in context = %+v", u)
		}
	}
}

func TestRateLimitWithoutRedisPassesThrough(t *testing.T) {
	users := fakeUsers{"good": {ID: "u1", Status: "active"}}
	mws := []echo.MiddlewareFunc{
		APIKeyMiddleware(users),
		RateLimitMiddleware(RateLimitConfig{DefaultRPS: 1}),
	}
	for i := 0; i < 5; i++ {
		if rec, _ := run(t, "good", mws...); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d = %d", i, rec.Code)
		}
	}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rds := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rds.Close() })
	return mr, rds
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	_, rds := newRedis(t)
	own := 2
	users := fakeUsers{
		"custom":  {ID: "u1", Status: "active", RateLimitRPS: &own},
		"default": {ID: "u2", Status: "active"},
	}
	// A long window keeps every request of the test in the same bucket.
	limiter := RateLimitMiddleware(RateLimitConfig{Redis: rds, DefaultRPS: 1, Burst: 1, Window: time.Hour})
	mws := []echo.MiddlewareFunc{APIKeyMiddleware(users), limiter}

	cases := []struct {
		key     string
		allowed int
	}{
		{"custom", 3},  // own rps 2 + burst 1
		{"default", 2}, // default rps 1 + burst 1
	}
	for _, tc := range cases {
		for i := 0; i < tc.allowed; i++ {
			if rec, _ := run(t, tc.key, mws...); rec.Code != http.StatusNoContent {
				t.Fatalf("%s request %d = %d", tc.key, i+1, rec.Code)
			}
		}

		rec, _ := run(t, tc.key, mws...)
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("%s request %d = %d, want 429", tc.key, tc.allowed+1, rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] != "rate limited" {
			t.Errorf("%s body = %s", tc.key, rec.Body.String())
		}
		secs, err := strconv.Atoi(rec.Header().Get("Retry-After"))
		if err != nil || secs < 1 || secs > int(time.Hour/time.Second) {
			t.Errorf("%s Retry-After = %q", tc.key, rec.Header().Get("Retry-After"))
		}
	}
}

func TestRateLimitPassesThroughWhenRedisFails(t *testing.T) {
	mr, rds := newRedis(t)
	users := fakeUsers{"good": {ID: "u1", Status: "active"}}
	mws := []echo.MiddlewareFunc{
		APIKeyMiddleware(users),
		RateLimitMiddleware(RateLimitConfig{Redis: rds, DefaultRPS: 1, Window: time.Hour}),
	}
	if rec, _ := run(t, "good", mws...); rec.Code != http.StatusNoContent {
		t.Fatalf("first request = %d", rec.Code)
	}
	if rec, _ := run(t, "good", mws...); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", rec.Code)
	}

	mr.Close()
	if rec, _ := run(t, "good", mws...); rec.Code != http.StatusNoContent {
		t.Errorf("with redis down = %d, want pass-through", rec.Code)
	}
}
