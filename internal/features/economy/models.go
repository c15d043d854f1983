// Package economy ведёт балансы игроков: рубли (копейки) и ЛАБУ.
// models.go описывает записи журнала ЛАБУ.
package economy

import "time"

// Transaction — одна строка журнала ЛАБУ. Журнал только дописывается,
// баланс игрока равен сумме его строк.
type Transaction struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Amount      int64     `json:"amount"` // со знаком
	Type        string    `json:"type"`
	Description string    `json:"description"`
	RelatedID   *int64    `json:"relatedId,omitempty"` // spin.id, payment.id и т.п.
	CreatedAt   time.Time `json:"createdAt"`
}

// Типы транзакций ЛАБУ
const (
	TxSpinReward        = "spin_reward"        // Выигрыш ЛАБУ в рулетке
	TxDuplicateExchange = "duplicate_exchange" // Обмен дубликата части
	TxReferralBonus     = "referral_bonus"     // Реферальные бонусы
	TxPurchase          = "purchase"           // Покупка пакета ЛАБУ
	TxAdminGrant        = "admin_grant"        // Ручное начисление из админки
)

// Totals — сколько ЛАБУ игрок получил и потратил за всё время.
type Totals struct {
	Earned int64 `json:"labuEarned"`
	Spent  int64 `json:"labuSpent"`
}

// Drift — расхождение кэшированного баланса с журналом.
type Drift struct {
	UserID int64
	Stored int64
	Ledger int64
}
