// Package referral — реферальная программа: применение промокода
// и разовые бонусы пригласившему за вехи приглашённого.
package referral

import (
	"time"

	"serotonyl.ru/labubu-roulette/internal/config"
)

// Action — веха, за которую положен бонус.
type Action string

const (
	ActionRegistration        Action = "registration"
	ActionFirstSpin           Action = "first_spin"
	ActionTenthSpin           Action = "tenth_spin"
	ActionCompletedCollection Action = "completed_collection"
)

// Description — подпись вехи для журнала и статистики.
func (a Action) Description() string {
	switch a {
	case ActionRegistration:
		return "Регистрация реферала"
	case ActionFirstSpin:
		return "Первый спин реферала"
	case ActionTenthSpin:
		return "10 спинов реферала"
	case ActionCompletedCollection:
		return "Завершение коллекции рефералом"
	}
	return "Реферальная активность"
}

// Amounts — размеры бонусов в ЛАБУ.
type Amounts struct {
	Registration int64
	FirstSpin    int64
	TenthSpin    int64
	Collection   int64
}

// AmountsFromConfig берёт размеры бонусов из окружения.
func AmountsFromConfig(cfg *config.Config) Amounts {
	return Amounts{
		Registration: cfg.ReferralRegistrationBonus,
		FirstSpin:    cfg.ReferralFirstSpinBonus,
		TenthSpin:    cfg.ReferralTenthSpinBonus,
		Collection:   cfg.ReferralCollectionBonus,
	}
}

// For возвращает размер бонуса за веху.
func (a Amounts) For(action Action) int64 {
	switch action {
	case ActionRegistration:
		return a.Registration
	case ActionFirstSpin:
		return a.FirstSpin
	case ActionTenthSpin:
		return a.TenthSpin
	case ActionCompletedCollection:
		return a.Collection
	}
	return 0
}

// Bonus — выплаченный бонус. На (referrer, referral, action) стоит
// уникальный индекс: второй строки для той же вехи быть не может.
type Bonus struct {
	ID         int64     `json:"id"`
	ReferrerID int64     `json:"userId"`
	ReferralID int64     `json:"referralId"`
	Action     Action    `json:"action"`
	Amount     int64     `json:"amount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Referral — приглашённый игрок в статистике пригласившего.
type Referral struct {
	ID                    int64     `json:"id"`
	Name                  string    `json:"name"`
	CreatedAt             time.Time `json:"createdAt"`
	SpinCount             int       `json:"spinCount"`
	HasCompleteCollection bool      `json:"hasCompleteCollection"`
}

// Stats — ответ POST /referral/stats.
type Stats struct {
	ReferralCode    string           `json:"referralCode"`
	TotalReferrals  int              `json:"totalReferrals"`
	TotalEarnings   int64            `json:"totalEarnings"`
	Referrals       []Referral       `json:"referrals"`
	BonusesByAction map[Action]int64 `json:"bonusesByAction"`
	RecentBonuses   []Bonus          `json:"recentBonuses"`
}

// ApplyResult — ответ на успешно применённый промокод.
type ApplyResult struct {
	Message   string `json:"message"`
	LabuBonus int64  `json:"labuBonus"`
}
