package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"serotonyl.ru/labubu-roulette/internal/common"
	"serotonyl.ru/labubu-roulette/internal/features/roulette"
)

type fakeDesk struct {
	marked map[int64]bool
}

func (f *fakeDesk) ListPendingWins(context.Context, int) ([]roulette.PendingWin, error) {
	return nil, nil
}

func (f *fakeDesk) MarkWin(_ context.Context, id int64, claimed bool) error {
	if id == 404 {
		return common.ErrNotFound
	}
	f.marked[id] = claimed
	return nil
}

type fakeSettings map[string]int64

func (f fakeSettings) Set(_ context.Context, key string, value int64) error {
	if key != "spin_cost" {
		return common.ErrUnknownSetting
	}
	f[key] = value
	return nil
}

type fakePrizes map[int64]bool

func (f fakePrizes) SetActive(_ context.Context, id int64, active bool) error {
	f[id] = active
	return nil
}

// fakeGranter запоминает начисления; игрок 404 не существует.
type fakeGranter map[int64]int64

func (f fakeGranter) GrantLabu(_ context.Context, userID, amount int64, _ string) error {
	if userID == 404 {
		return common.ErrUserNotFound
	}
	f[userID] += amount
	return nil
}

func newTestRouter(t *testing.T) (http.Handler, *fakeDesk, fakeSettings, fakePrizes, string) {
	r, desk, set, pr, _, token := newTestRouterWithGranter(t)
	return r, desk, set, pr, token
}

func newTestRouterWithGranter(t *testing.T) (http.Handler, *fakeDesk, fakeSettings, fakePrizes, fakeGranter, string) {
	t.Helper()
	svc, _, _ := newTestAdmin()
	desk := &fakeDesk{marked: map[int64]bool{}}
	set := fakeSettings{}
	pr := fakePrizes{}
	labu := fakeGranter{}
	h := NewHandler(svc, desk, set, pr, labu)

	r := chi.NewRouter()
	r.Post("/admin/login", h.Login)
	r.Group(func(r chi.Router) {
		r.Use(h.RequireSession)
		r.Get("/admin/wins", h.ListWins)
		r.Post("/admin/wins/{id}/verify", h.VerifyWin)
		r.Post("/admin/wins/{id}/claim", h.ClaimWin)
		r.Put("/admin/settings/{key}", h.UpdateSetting)
		r.Post("/admin/prizes/{id}/active", h.SetPrizeActive)
		r.Post("/admin/users/{id}/labu", h.GrantLabu)
	})

	rec := do(r, http.MethodPost, "/admin/login", `{"password":"s3cret"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Token == "" {
		t.Fatalf("login body = %s", rec.Body)
	}
	return r, desk, set, pr, labu, body.Token
}

func do(h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAdminRoutesRequireSession(t *testing.T) {
	r, _, _, _, _ := newTestRouter(t)

	for _, token := range []string{"", "forged"} {
		rec := do(r, http.MethodGet, "/admin/wins", "", token)
		if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "SESSION_EXPIRED") {
			t.Fatalf("token %q: status = %d body = %s", token, rec.Code, rec.Body)
		}
	}
}

func TestAdminWrongPassword(t *testing.T) {
	r, _, _, _, _ := newTestRouter(t)

	rec := do(r, http.MethodPost, "/admin/login", `{"password":"nope"}`, "")
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "WRONG_PASSWORD") {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
}

func TestAdminActions(t *testing.T) {
	r, desk, set, pr, token := newTestRouter(t)

	if rec := do(r, http.MethodGet, "/admin/wins", "", token); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"wins":[]`) {
		t.Fatalf("wins: %d %s", rec.Code, rec.Body)
	}

	do(r, http.MethodPost, "/admin/wins/5/verify", "", token)
	do(r, http.MethodPost, "/admin/wins/6/claim", "", token)
	if claimed, ok := desk.marked[5]; !ok || claimed {
		t.Fatalf("win 5: %v %v", claimed, ok)
	}
	if !desk.marked[6] {
		t.Fatal("win 6 must be claimed")
	}
	if rec := do(r, http.MethodPost, "/admin/wins/404/claim", "", token); rec.Code != http.StatusNotFound {
		t.Fatalf("missing win status = %d", rec.Code)
	}
	if rec := do(r, http.MethodPost, "/admin/wins/abc/claim", "", token); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", rec.Code)
	}

	if rec := do(r, http.MethodPut, "/admin/settings/spin_cost", `{"value":15000}`, token); rec.Code != http.StatusOK || set["spin_cost"] != 15000 {
		t.Fatalf("setting: %d %v", rec.Code, set)
	}
	if rec := do(r, http.MethodPut, "/admin/settings/house_edge", `{"value":1}`, token); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown setting status = %d", rec.Code)
	}
	if rec := do(r, http.MethodPut, "/admin/settings/spin_cost", `{}`, token); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing value status = %d", rec.Code)
	}

	if rec := do(r, http.MethodPost, "/admin/prizes/3/active", `{"active":false}`, token); rec.Code != http.StatusOK {
		t.Fatalf("prize: %d", rec.Code)
	}
	if active, ok := pr[3]; !ok || active {
		t.Fatalf("prize 3 = %v %v", active, ok)
	}
}

func TestAdminGrantLabu(t *testing.T) {
	r, _, _, _, labu, token := newTestRouterWithGranter(t)

	if rec := do(r, http.MethodPost, "/admin/users/7/labu", `{"amount":500,"comment":"компенсация"}`, token); rec.Code != http.StatusOK {
		t.Fatalf("grant: %d %s", rec.Code, rec.Body)
	}
	if labu[7] != 500 {
		t.Fatalf("granted = %v", labu)
	}
	if rec := do(r, http.MethodPost, "/admin/users/7/labu", `{"amount":0}`, token); rec.Code != http.StatusBadRequest {
		t.Fatalf("zero amount status = %d", rec.Code)
	}
	if rec := do(r, http.MethodPost, "/admin/users/404/labu", `{"amount":10}`, token); rec.Code != http.StatusNotFound {
		t.Fatalf("missing user status = %d", rec.Code)
	}
	if rec := do(r, http.MethodPost, "/admin/users/7/labu", `{"amount":10}`, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no session status = %d", rec.Code)
	}
	if labu[7] != 500 {
		t.Fatalf("rejected grants must not credit: %v", labu)
	}
}
