// Package roulette — спин рулетки: розыгрыш приза, применение награды
// и ответ клиенту. models.go описывает спины, выигрыши и результаты.
package roulette

import (
	"fmt"
	"time"

	"serotonyl.ru/labubu-roulette/internal/common"
	"serotonyl.ru/labubu-roulette/internal/features/collection"
	"serotonyl.ru/labubu-roulette/internal/features/prizes"
)

// Variant — вид спина.
type Variant string

const (
	VariantNormal  Variant = "normal"
	VariantPremium Variant = "premium"
)

// ParseVariant разбирает spinType из запроса. Пустая строка означает обычный спин.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case "", VariantNormal:
		return VariantNormal, nil
	case VariantPremium:
		return VariantPremium, nil
	}
	return "", fmt.Errorf("%w: неизвестный spinType %q", common.ErrValidation, s)
}

// Premium — удваивает ли вариант шансы частей.
func (v Variant) Premium() bool {
	return v == VariantPremium
}

// Spin — неизменяемая запись одной платной попытки.
type Spin struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Cost      int64     `json:"cost"` // копейки
	Variant   Variant   `json:"spinType"`
	Timestamp time.Time `json:"timestamp"`
}

// Win связывает спин с выпавшим призом, в том числе с промахом.
// Флаги verified/claimed выставляет админ при ручной выдаче.
type Win struct {
	ID       int64 `json:"id"`
	SpinID   int64 `json:"spinId"`
	UserID   int64 `json:"userId"`
	PrizeID  int64 `json:"prizeId"`
	Verified bool  `json:"verified"`
	Claimed  bool  `json:"claimed"`
}

// Settlement — что произошло с игроком после розыгрыша.
type Settlement struct {
	Prize        prizes.Prize
	IsDuplicate  bool
	NewPart      bool
	LabuCredited int64
	Missed       bool
	Message      string
	Win          *Win
}

// Outcome — итог спина целиком, из него строится ответ POST /spin.
type Outcome struct {
	Spin        *Spin
	Settlement  *Settlement
	LabuBalance int64
	RubBalance  int64
	TotalSpins  int
	Collection  collection.Overview
}

// RecentWin — строка публичной ленты выигрышей.
type RecentWin struct {
	User      string    `json:"user"`
	Prize     string    `json:"prize"`
	Value     int64     `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Verified  bool      `json:"verified"`
}

// PendingWin — выигрыш, ожидающий ручной проверки или выдачи.
type PendingWin struct {
	Win
	UserName  string    `json:"userName"`
	PrizeName string    `json:"prizeName"`
	Value     int64     `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// SpinRecord — спин с выпавшим призом для профиля.
type SpinRecord struct {
	ID        int64     `json:"id"`
	Cost      int64     `json:"cost"`
	Variant   Variant   `json:"spinType"`
	Timestamp time.Time `json:"timestamp"`
	PrizeName string    `json:"prizeName"`
	PrizeType string    `json:"prizeType"`
}

// Stats — агрегаты игрока для /user-stats и профиля.
type Stats struct {
	TotalSpins int `json:"totalSpins"`
	TotalWins  int `json:"totalWins"` // спины, закончившиеся не промахом
}
