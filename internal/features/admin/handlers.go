// Package admin — handlers.go: HTTP-ручки админки. Все ручки, кроме входа,
// закрыты RequireSession.
package admin

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/labubu-roulette/internal/common"
	"serotonyl.ru/labubu-roulette/internal/features/roulette"
	"serotonyl.ru/labubu-roulette/internal/transport/httpx"
)

// Authenticator — вход и проверка сессий.
type Authenticator interface {
	Login(ctx context.Context, clientIP, password string) (*Session, error)
	Authenticate(ctx context.Context, token string) (*Session, error)
	Logout(ctx context.Context, token string) error
}

// WinDesk — выигрыши, ожидающие выдачи.
type WinDesk interface {
	ListPendingWins(ctx context.Context, limit int) ([]roulette.PendingWin, error)
	MarkWin(ctx context.Context, winID int64, claimed bool) error
}

// SettingsWriter меняет игровые настройки.
type SettingsWriter interface {
	Set(ctx context.Context, key string, value int64) error
}

// PrizeSwitch включает и выключает сектора рулетки.
type PrizeSwitch interface {
	SetActive(ctx context.Context, id int64, active bool) error
}

// LabuGranter начисляет ЛАБУ вручную.
type LabuGranter interface {
	GrantLabu(ctx context.Context, userID, amount int64, comment string) error
}

const (
	defaultWinsLimit = 50
	maxWinsLimit     = 200
)

// Handler обрабатывает запросы админки.
type Handler struct {
	auth     Authenticator
	wins     WinDesk
	settings SettingsWriter
	prizes   PrizeSwitch
	labu     LabuGranter
}

// NewHandler создаёт обработчик админки.
func NewHandler(auth Authenticator, wins WinDesk, settings SettingsWriter, prizes PrizeSwitch, labu LabuGranter) *Handler {
	return &Handler{auth: auth, wins: wins, settings: settings, prizes: prizes, labu: labu}
}

// Login — POST /admin/login {password}.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	session, err := h.auth.Login(r.Context(), clientIP(r), req.Password)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
	})
}

// Logout — POST /admin/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), bearerToken(r)); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// RequireSession пропускает запрос только с действующим bearer-токеном.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := h.auth.Authenticate(r.Context(), bearerToken(r)); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListWins — GET /admin/wins?limit=N: невыданные ценные выигрыши.
func (h *Handler) ListWins(w http.ResponseWriter, r *http.Request) {
	limit := defaultWinsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpx.WriteError(w, r, common.ErrValidation)
			return
		}
		limit = min(n, maxWinsLimit)
	}

	wins, err := h.wins.ListPendingWins(r.Context(), limit)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if wins == nil {
		wins = []roulette.PendingWin{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "wins": wins})
}

// VerifyWin — POST /admin/wins/{id}/verify.
func (h *Handler) VerifyWin(w http.ResponseWriter, r *http.Request) {
	h.markWin(w, r, false)
}

// ClaimWin — POST /admin/wins/{id}/claim.
func (h *Handler) ClaimWin(w http.ResponseWriter, r *http.Request) {
	h.markWin(w, r, true)
}

func (h *Handler) markWin(w http.ResponseWriter, r *http.Request, claimed bool) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.wins.MarkWin(r.Context(), id, claimed); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	log.WithFields(log.Fields{
		"win_id":  id,
		"claimed": claimed,
	}).Info("Админ отметил выигрыш")
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// UpdateSetting — PUT /admin/settings/{key} {value}.
func (h *Handler) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value *int64 `json:"value"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if req.Value == nil {
		httpx.WriteError(w, r, common.ErrValidation)
		return
	}

	key := chi.URLParam(r, "key")
	if err := h.settings.Set(r.Context(), key, *req.Value); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "key": key, "value": *req.Value})
}

// SetPrizeActive — POST /admin/prizes/{id}/active {active}.
func (h *Handler) SetPrizeActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	if err := h.prizes.SetActive(r.Context(), id, req.Active); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	log.WithFields(log.Fields{
		"prize_id": id,
		"active":   req.Active,
	}).Info("Админ изменил приз")
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// GrantLabu — POST /admin/users/{id}/labu {amount, comment}.
func (h *Handler) GrantLabu(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var req struct {
		Amount  int64  `json:"amount"`
		Comment string `json:"comment"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if req.Amount <= 0 {
		httpx.WriteError(w, r, common.ErrInvalidAmount)
		return
	}

	if err := h.labu.GrantLabu(r.Context(), id, req.Amount, req.Comment); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "userId": id, "amount": req.Amount})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.ErrValidation
	}
	return id, nil
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) < len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// clientIP — адрес клиента. За прокси RemoteAddr уже подменён middleware.RealIP.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
