package payments

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/labubu-roulette/internal/common"
	"serotonyl.ru/labubu-roulette/internal/features/roulette"
	"serotonyl.ru/labubu-roulette/internal/transport/httpx"
)

// Gateway — то, что нужно обработчикам от сервиса.
type Gateway interface {
	CreateLink(ctx context.Context, req LinkRequest) (string, string, error)
	HandleFreeKassa(ctx context.Context, form url.Values) error
	CreateStarsInvoice(ctx context.Context, sessionID string, variant roulette.Variant) (string, int64, error)
}

// Handler обрабатывает HTTP-запросы оплаты.
type Handler struct {
	gateway Gateway
}

// NewHandler создаёт обработчик.
func NewHandler(gateway Gateway) *Handler {
	return &Handler{gateway: gateway}
}

type linkRequest struct {
	SessionID string          `json:"sessionId"`
	AmountRub decimal.Decimal `json:"amountRub"`
	Product   string          `json:"product"`
}

// FreeKassaLink — POST /payments/freekassa/link.
func (h *Handler) FreeKassaLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	link, orderID, err := h.gateway.CreateLink(r.Context(), LinkRequest(req))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"link":    link,
		"orderId": orderID,
		"via":     "sci",
	})
}

// FreeKassaNotify — POST /payments/freekassa/notify, form-urlencoded
// от шлюза. При успехе отвечаем текстом "YES", иначе шлюз повторит уведомление.
func (h *Handler) FreeKassaNotify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, r, common.ErrValidation)
		return
	}

	if err := h.gateway.HandleFreeKassa(r.Context(), r.PostForm); err != nil {
		if errors.Is(err, common.ErrBadSignature) {
			log.WithField("remote", r.RemoteAddr).Warn("Уведомление FreeKassa с неверной подписью")
		}
		httpx.WriteError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("YES"))
}

// StarsInvoice — POST /payments/stars/invoice.
func (h *Handler) StarsInvoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
		SpinType  string `json:"spinType"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	variant, err := roulette.ParseVariant(req.SpinType)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	link, stars, err := h.gateway.CreateStarsInvoice(r.Context(), req.SessionID, variant)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"link":    link,
		"stars":   stars,
	})
}
