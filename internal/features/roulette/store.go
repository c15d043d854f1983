package roulette

import (
	"context"

	"serotonyl.ru/labubu-roulette/internal/features/prizes"
	"serotonyl.ru/labubu-roulette/internal/features/settings"
)

// Tx — всё, что спин делает внутри одной транзакции:
// списание, запись спина, каталог, награда и выигрыш.
type Tx interface {
	Ledger
	Settings(ctx context.Context) (settings.Snapshot, error)
	DebitRub(ctx context.Context, userID, amount int64) error
	CreateSpin(ctx context.Context, userID, cost int64, variant Variant) (*Spin, error)
	ActivePrizes(ctx context.Context) ([]prizes.Prize, error)
	MissPrize(ctx context.Context) (*prizes.Prize, error)
	CountSpins(ctx context.Context, userID int64) (int, error)
}

// Store — хранилище спинов и выигрышей.
type Store interface {
	// InTx выполняет fn атомарно: ошибка fn откатывает все записи.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	RecentWins(ctx context.Context, limit int) ([]RecentWin, error)
	ListSpins(ctx context.Context, userID int64, limit int) ([]SpinRecord, error)
	Stats(ctx context.Context, userID int64) (Stats, error)
}
