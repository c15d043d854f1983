package prizes

import (
	"context"
	"net/http"

	"serotonyl.ru/labubu-roulette/internal/transport/httpx"
)

// Catalog — источник активных призов для витрины.
type Catalog interface {
	ListActive(ctx context.Context) ([]Prize, error)
}

// Handler обслуживает GET /prizes.
type Handler struct {
	catalog Catalog
}

// NewHandler создаёт обработчик каталога.
func NewHandler(catalog Catalog) *Handler {
	return &Handler{catalog: catalog}
}

// PrizeView — приз с полем rawValue для клиента.
type PrizeView struct {
	Prize
	RawValue int64 `json:"rawValue"`
}

// List отдаёт активные призы.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.ListActive(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	views := make([]PrizeView, 0, len(list))
	for _, p := range list {
		views = append(views, PrizeView{Prize: p, RawValue: p.RawValue()})
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"prizes":  views,
	})
}
