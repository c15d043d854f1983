package referral

import (
	"context"
	"net/http"

	"serotonyl.ru/labubu-roulette/internal/features/users"
	"serotonyl.ru/labubu-roulette/internal/transport/httpx"
)

// Program — то, что нужно обработчикам от сервиса.
type Program interface {
	ApplyCode(ctx context.Context, sessionID, code string, profile *users.TelegramProfile) (*ApplyResult, error)
	Stats(ctx context.Context, sessionID string) (*Stats, error)
}

// Handler обрабатывает HTTP-запросы реферальной программы.
type Handler struct {
	program Program
}

// NewHandler создаёт обработчик.
func NewHandler(program Program) *Handler {
	return &Handler{program: program}
}

type enterCodeRequest struct {
	SessionID    string                 `json:"sessionId"`
	ReferralCode string                 `json:"referralCode"`
	TelegramUser *users.TelegramProfile `json:"telegramUser,omitempty"`
}

// EnterCode — POST /referral/enter-code.
func (h *Handler) EnterCode(w http.ResponseWriter, r *http.Request) {
	var req enterCodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	res, err := h.program.ApplyCode(r.Context(), req.SessionID, req.ReferralCode, req.TelegramUser)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   res.Message,
		"labuBonus": res.LabuBonus,
	})
}

// Stats — POST /referral/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	st, err := h.program.Stats(r.Context(), req.SessionID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats":   st,
	})
}
