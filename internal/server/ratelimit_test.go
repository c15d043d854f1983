package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRateLimiterWindow(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	limiter := NewRateLimiter(client, 2, time.Minute)
	ctx := context.Background()

	for i := range 2 {
		ok, _, err := limiter.Allow(ctx, "spin:1.2.3.4")
		if err != nil || !ok {
			t.Fatalf("request %d: ok=%v err=%v", i+1, ok, err)
		}
	}

	ok, retry, err := limiter.Allow(ctx, "spin:1.2.3.4")
	if err != nil || ok {
		t.Fatalf("third request: ok=%v err=%v", ok, err)
	}
	if retry <= 0 || retry > time.Minute {
		t.Fatalf("retry after = %v", retry)
	}

	if ok, _, _ := limiter.Allow(ctx, "spin:5.6.7.8"); !ok {
		t.Fatal("other client must not be limited")
	}

	mr.FastForward(time.Minute + time.Second)
	if ok, _, _ := limiter.Allow(ctx, "spin:1.2.3.4"); !ok {
		t.Fatal("window must reset")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	_, client := newMiniRedisClient(t)
	limiter := NewRateLimiter(client, 1, time.Minute)

	h := limiter.Middleware("referral")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/referral/enter-code", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusNoContent {
		t.Fatalf("first status = %d", rec.Code)
	}
	rec := send()
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("second status = %d retry = %q", rec.Code, rec.Header().Get("Retry-After"))
	}
}

func TestRateLimiterFailsOpen(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	limiter := NewRateLimiter(client, 1, time.Minute)
	mr.Close()

	called := false
	h := limiter.Middleware("spin")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/spin", nil))
	if !called {
		t.Fatal("request must pass when redis is down")
	}
}
