// Package roulette — handlers.go: HTTP-обработчики спина, ленты выигрышей,
// профиля и статистики игрока.
package roulette

import (
	"context"
	"net/http"
	"strings"
	"time"

	"serotonyl.ru/labubu-roulette/internal/common"
	"serotonyl.ru/labubu-roulette/internal/features/collection"
	"serotonyl.ru/labubu-roulette/internal/features/prizes"
	"serotonyl.ru/labubu-roulette/internal/features/users"
	"serotonyl.ru/labubu-roulette/internal/transport/httpx"
)

// Сколько выигрышей показываем в публичной ленте
const recentWinsLimit = 10

// Spinner — то, что нужно обработчикам от сервиса.
type Spinner interface {
	Spin(ctx context.Context, req SpinRequest) (*Outcome, error)
	RecentWins(ctx context.Context, limit int) ([]RecentWin, error)
	UserStats(ctx context.Context, sessionID string, profile *users.TelegramProfile) (*UserStats, error)
	Profile(ctx context.Context, sessionID string) (*Profile, error)
}

// Handler обрабатывает HTTP-запросы рулетки.
type Handler struct {
	service Spinner
}

// NewHandler создаёт обработчик рулетки.
func NewHandler(service Spinner) *Handler {
	return &Handler{service: service}
}

type spinRequest struct {
	SessionID    string                 `json:"sessionId"`
	SpinType     string                 `json:"spinType"`
	TelegramUser *users.TelegramProfile `json:"telegramUser,omitempty"`
}

type spinView struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Cost      int64     `json:"cost"`
}

type prizeResultView struct {
	Type         prizes.Type          `json:"type"`
	Name         string               `json:"name"`
	ID           int64                `json:"id"`
	Rarity       string               `json:"rarity"`
	Color        string               `json:"color"`
	Icon         string               `json:"icon"`
	Value        int64                `json:"value"`
	PartType     *collection.PartType `json:"partType,omitempty"`
	PartRarity   *collection.Rarity   `json:"partRarity,omitempty"`
	IsDuplicate  bool                 `json:"isDuplicate"`
	NewPart      bool                 `json:"newPart"`
	Missed       bool                 `json:"missed"`
	LabuAmount   int64                `json:"labuAmount,omitempty"`
	LabuCredited int64                `json:"labuCredited"`
	Message      string               `json:"message"`
}

type spinUserView struct {
	LabuBalance           int64                         `json:"labuBalance"`
	RubBalance            int64                         `json:"rubBalance"`
	TotalSpins            int                           `json:"totalSpins"`
	NormalCollection      map[collection.PartType]int   `json:"normalCollection"`
	CollectibleCollection map[collection.PartType]int   `json:"collectibleCollection"`
	Collections           map[string]collection.Status `json:"collections"`
}

type spinResponse struct {
	Success     bool            `json:"success"`
	Spin        spinView        `json:"spin"`
	Prize       prizes.Prize    `json:"prize"`
	PrizeResult prizeResultView `json:"prizeResult"`
	User        spinUserView    `json:"user"`
	Win         *Win            `json:"win"`
}

// HandleSpin — POST /spin.
func (h *Handler) HandleSpin(w http.ResponseWriter, r *http.Request) {
	var req spinRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{Error: "Session ID required", Code: "VALIDATION_ERROR"})
		return
	}
	variant, err := ParseVariant(req.SpinType)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	out, err := h.service.Spin(r.Context(), SpinRequest{
		SessionID: req.SessionID,
		Variant:   variant,
		Telegram:  req.TelegramUser,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, buildSpinResponse(out))
}

func buildSpinResponse(out *Outcome) spinResponse {
	res := out.Settlement
	p := res.Prize

	result := prizeResultView{
		Type:         p.Type,
		Name:         p.Name,
		ID:           p.ID,
		Rarity:       p.Rarity,
		Color:        p.Color,
		Icon:         p.Icon,
		Value:        p.Value,
		PartType:     p.PartType,
		PartRarity:   p.PartRarity,
		IsDuplicate:  res.IsDuplicate,
		NewPart:      res.NewPart,
		Missed:       res.Missed,
		LabuCredited: res.LabuCredited,
		Message:      res.Message,
	}
	if res.IsDuplicate || p.Type == prizes.TypeLabu {
		result.LabuAmount = res.LabuCredited
	}

	return spinResponse{
		Success: true,
		Spin: spinView{
			ID:        out.Spin.ID,
			Timestamp: out.Spin.Timestamp,
			Cost:      out.Spin.Cost,
		},
		Prize:       p,
		PrizeResult: result,
		User: spinUserView{
			LabuBalance:           out.LabuBalance,
			RubBalance:            out.RubBalance,
			TotalSpins:            out.TotalSpins,
			NormalCollection:      out.Collection.NormalCollection,
			CollectibleCollection: out.Collection.CollectibleCollection,
			Collections: map[string]collection.Status{
				"normal":     out.Collection.Collections.Normal,
				"collection": out.Collection.Collections.Collection,
			},
		},
		Win: res.Win,
	}
}

// HandleRecentWins — GET /spin.
func (h *Handler) HandleRecentWins(w http.ResponseWriter, r *http.Request) {
	wins, err := h.service.RecentWins(r.Context(), recentWinsLimit)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"wins":    wins,
	})
}

type sessionRequest struct {
	SessionID    string                 `json:"sessionId"`
	TelegramUser *users.TelegramProfile `json:"telegramUser,omitempty"`
}

func decodeSession(r *http.Request) (sessionRequest, error) {
	var req sessionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return req, err
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return req, common.ErrValidation
	}
	return req, nil
}

// HandleUserStats — POST /user-stats.
func (h *Handler) HandleUserStats(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSession(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	st, err := h.service.UserStats(r.Context(), req.SessionID, req.TelegramUser)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    st.User,
		"stats": map[string]any{
			"totalSpins": st.Stats.TotalSpins,
			"totalWins":  st.Stats.TotalWins,
			"labuEarned": st.Totals.Earned,
			"labuSpent":  st.Totals.Spent,
		},
	})
}

// HandleProfile — POST /profile.
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSession(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	p, err := h.service.Profile(r.Context(), req.SessionID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"profile": p,
	})
}
