package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"serotonyl.ru/labubu-roulette/internal/common"
	"serotonyl.ru/labubu-roulette/internal/features/admin"
	"serotonyl.ru/labubu-roulette/internal/features/payments"
	"serotonyl.ru/labubu-roulette/internal/features/prizes"
	"serotonyl.ru/labubu-roulette/internal/features/referral"
	"serotonyl.ru/labubu-roulette/internal/features/roulette"
)

type deniedAuth struct{}

func (deniedAuth) Login(context.Context, string, string) (*admin.Session, error) {
	return nil, common.ErrWrongPassword
}

func (deniedAuth) Authenticate(context.Context, string) (*admin.Session, error) {
	return nil, common.ErrSessionExpired
}

func (deniedAuth) Logout(context.Context, string) error { return nil }

func testRouter(limiter Limiter) http.Handler {
	return NewRouter(Handlers{
		Roulette: roulette.NewHandler(nil),
		Prizes:   prizes.NewHandler(nil),
		Referral: referral.NewHandler(nil),
		Payments: payments.NewHandler(nil),
		Admin:    admin.NewHandler(deniedAuth{}, nil, nil, nil, nil),
	}, limiter, time.Second)
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterBasics(t *testing.T) {
	r := testRouter(nil)

	if rec := serve(r, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
	if rec := serve(r, http.MethodGet, "/nope", ""); rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "NOT_FOUND") {
		t.Fatalf("unknown route = %d %s", rec.Code, rec.Body)
	}
	if rec := serve(r, http.MethodGet, "/admin/wins", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("admin without token = %d", rec.Code)
	}
	if rec := serve(r, http.MethodPost, "/spin", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("spin without session = %d", rec.Code)
	}
}

func TestRouterLimitsSpin(t *testing.T) {
	_, client := newMiniRedisClient(t)
	r := testRouter(NewRateLimiter(client, 2, time.Minute))

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, serve(r, http.MethodPost, "/spin", `{}`).Code)
	}
	if codes[0] != http.StatusBadRequest || codes[1] != http.StatusBadRequest || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	// другие маршруты считаются отдельно
	if rec := serve(r, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
}
