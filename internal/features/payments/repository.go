// Package payments — repository.go работает с таблицей payments.
package payments

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/labubu-roulette/internal/db/postgres"
	"serotonyl.ru/labubu-roulette/internal/features/economy"
	"serotonyl.ru/labubu-roulette/internal/features/settings"
)

// DB — пул: запросы и транзакции.
type DB interface {
	postgres.Querier
	postgres.TxBeginner
}

// Repository — PostgreSQL-реализация Store.
type Repository struct {
	db       DB
	economy  *economy.Repository
	settings *settings.Repository
}

// NewRepository создаёт хранилище платежей.
func NewRepository(db DB, economyRepo *economy.Repository, settingsRepo *settings.Repository) *Repository {
	return &Repository{db: db, economy: economyRepo, settings: settingsRepo}
}

// InTx открывает транзакцию платежа.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return postgres.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &pgTx{
			tx:       tx,
			economy:  r.economy.WithTx(tx),
			settings: r.settings.WithTx(tx),
		})
	})
}

// Settings — текущие цены вне транзакции.
func (r *Repository) Settings(ctx context.Context) (settings.Snapshot, error) {
	return r.settings.Snapshot(ctx)
}

type pgTx struct {
	tx       pgx.Tx
	economy  *economy.Repository
	settings *settings.Repository
}

func (t *pgTx) Settings(ctx context.Context) (settings.Snapshot, error) {
	return t.settings.Snapshot(ctx)
}

func (t *pgTx) CreditRub(ctx context.Context, userID, amount int64) error {
	return t.economy.CreditRub(ctx, userID, amount)
}

func (t *pgTx) CreditLabu(ctx context.Context, userID, amount int64, txType, description string, relatedID *int64) error {
	return t.economy.CreditLabu(ctx, userID, amount, txType, description, relatedID)
}

// InsertPayment записывает платёж. Конфликт (provider, order_id) означает
// повторное уведомление и ошибкой не считается.
func (t *pgTx) InsertPayment(ctx context.Context, p *Payment) (bool, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO payments (provider, order_id, user_id, product, amount)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider, order_id) DO NOTHING
		RETURNING id, created_at
	`, p.Provider, p.OrderID, p.UserID, p.Product, p.Amount).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if postgres.IsNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("ошибка записи платежа: %w", err)
	}
	return true, nil
}
