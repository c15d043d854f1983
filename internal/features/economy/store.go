// Package economy — store.go: транзакционная обёртка над Repository для Service.
package economy

import (
	"context"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/labubu-roulette/internal/db/postgres"
)

// Store — всё, что нужно Service от базы.
type Store interface {
	ListTransactions(ctx context.Context, userID int64, limit int) ([]*Transaction, error)
	Totals(ctx context.Context, userID int64) (Totals, error)
	FindDrift(ctx context.Context) ([]Drift, error)
	InTx(ctx context.Context, fn func(ctx context.Context, tx Ledger) error) error
}

// Ledger — операции, которые выполняются внутри одной транзакции.
type Ledger interface {
	CreditLabu(ctx context.Context, userID, amount int64, txType, description string, relatedID *int64) error
	FixDrift(ctx context.Context, userID int64) (Drift, bool, error)
}

type pgStore struct {
	*Repository
	db postgres.TxBeginner
}

// NewStore связывает репозиторий с пулом, открывающим транзакции.
func NewStore(repo *Repository, db postgres.TxBeginner) Store {
	return &pgStore{Repository: repo, db: db}
}

func (s *pgStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Ledger) error) error {
	return postgres.WithTx(ctx, s.db, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, s.Repository.WithTx(tx))
	})
}
