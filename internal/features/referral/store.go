package referral

import (
	"context"

	"serotonyl.ru/labubu-roulette/internal/features/users"
)

// Tx — записи одной реферальной операции.
type Tx interface {
	LockUser(ctx context.Context, id int64) (*users.User, error)
	UserByCode(ctx context.Context, code string) (*users.User, error)
	// SetReferrer ставит связь, только если её ещё нет.
	SetReferrer(ctx context.Context, userID, referrerID int64) (bool, error)
	// InsertBonus возвращает false, если бонус за эту веху уже выплачен.
	InsertBonus(ctx context.Context, b *Bonus) (bool, error)
	CreditLabu(ctx context.Context, userID, amount int64, txType, description string, relatedID *int64) error
	AddReferralEarnings(ctx context.Context, userID, amount int64) error
}

// Store — хранилище реферальных бонусов.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	HasBonus(ctx context.Context, referrerID, referralID int64, action Action) (bool, error)
	// ListBonuses — все бонусы пригласившего, новые первыми.
	ListBonuses(ctx context.Context, referrerID int64) ([]Bonus, error)
	ListReferrals(ctx context.Context, referrerID int64) ([]Referral, error)
}
