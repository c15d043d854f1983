// Package referral — repository.go работает с таблицей referral_bonuses
// и собирает сводку по приглашённым.
package referral

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/labubu-roulette/internal/db/postgres"
	"serotonyl.ru/labubu-roulette/internal/features/collection"
	"serotonyl.ru/labubu-roulette/internal/features/economy"
	"serotonyl.ru/labubu-roulette/internal/features/users"
)

// DB — пул: запросы и транзакции.
type DB interface {
	postgres.Querier
	postgres.TxBeginner
}

// Repository — PostgreSQL-реализация Store.
type Repository struct {
	db      DB
	users   *users.Repository
	economy *economy.Repository
}

// NewRepository создаёт хранилище реферальных бонусов.
func NewRepository(db DB, userRepo *users.Repository, economyRepo *economy.Repository) *Repository {
	return &Repository{db: db, users: userRepo, economy: economyRepo}
}

// InTx открывает транзакцию реферальной операции.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return postgres.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &pgTx{
			tx:      tx,
			users:   r.users.WithTx(tx),
			economy: r.economy.WithTx(tx),
		})
	})
}

type pgTx struct {
	tx      pgx.Tx
	users   *users.Repository
	economy *economy.Repository
}

func (t *pgTx) LockUser(ctx context.Context, id int64) (*users.User, error) {
	return t.users.LockByID(ctx, id)
}

func (t *pgTx) UserByCode(ctx context.Context, code string) (*users.User, error) {
	return t.users.GetByReferralCode(ctx, code)
}

func (t *pgTx) SetReferrer(ctx context.Context, userID, referrerID int64) (bool, error) {
	return t.users.SetReferrer(ctx, userID, referrerID)
}

func (t *pgTx) CreditLabu(ctx context.Context, userID, amount int64, txType, description string, relatedID *int64) error {
	return t.economy.CreditLabu(ctx, userID, amount, txType, description, relatedID)
}

func (t *pgTx) AddReferralEarnings(ctx context.Context, userID, amount int64) error {
	return t.economy.AddReferralEarnings(ctx, userID, amount)
}

// InsertBonus вставляет строку бонуса. Конфликт по уникальному индексу
// не ошибка: значит, веха уже оплачена, и транзакция остаётся живой.
func (t *pgTx) InsertBonus(ctx context.Context, b *Bonus) (bool, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO referral_bonuses (referrer_id, referral_id, action, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (referrer_id, referral_id, action) DO NOTHING
		RETURNING id, created_at
	`, b.ReferrerID, b.ReferralID, b.Action, b.Amount).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		if postgres.IsNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("ошибка записи реферального бонуса: %w", err)
	}
	return true, nil
}

// HasBonus — выплачен ли уже бонус за веху.
func (r *Repository) HasBonus(ctx context.Context, referrerID, referralID int64, action Action) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM referral_bonuses
			WHERE referrer_id = $1 AND referral_id = $2 AND action = $3
		)
	`, referrerID, referralID, action).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки реферального бонуса: %w", err)
	}
	return exists, nil
}

// ListBonuses — бонусы пригласившего, новые первыми.
func (r *Repository) ListBonuses(ctx context.Context, referrerID int64) ([]Bonus, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, referrer_id, referral_id, action, amount, created_at
		FROM referral_bonuses
		WHERE referrer_id = $1
		ORDER BY created_at DESC, id DESC
	`, referrerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения реферальных бонусов: %w", err)
	}
	defer rows.Close()

	var list []Bonus
	for rows.Next() {
		var b Bonus
		if err := rows.Scan(&b.ID, &b.ReferrerID, &b.ReferralID, &b.Action, &b.Amount, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования бонуса: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// ListReferrals — приглашённые с числом спинов и признаком собранной
// коллекции. Коллекции читаются одним запросом на всех приглашённых
// и проверяются тем же предикатом, что и после спина.
func (r *Repository) ListReferrals(ctx context.Context, referrerID int64) ([]Referral, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.id, u.name, u.created_at,
		       (SELECT COUNT(*) FROM spins s WHERE s.user_id = u.id)
		FROM users u
		WHERE u.referred_by_id = $1
		ORDER BY u.created_at DESC, u.id DESC
	`, referrerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения рефералов: %w", err)
	}
	defer rows.Close()

	var (
		list []Referral
		ids  []int64
	)
	for rows.Next() {
		var ref Referral
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.CreatedAt, &ref.SpinCount); err != nil {
			return nil, fmt.Errorf("ошибка сканирования реферала: %w", err)
		}
		list = append(list, ref)
		ids = append(ids, ref.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return list, nil
	}

	entries, err := r.collectionsOf(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].HasCompleteCollection = collection.BuildOverview(entries[list[i].ID]).AnyComplete()
	}
	return list, nil
}

func (r *Repository) collectionsOf(ctx context.Context, userIDs []int64) (map[int64][]collection.Entry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, part_type, part_rarity, quantity
		FROM user_collection
		WHERE user_id = ANY($1)
	`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения коллекций рефералов: %w", err)
	}
	defer rows.Close()

	byUser := make(map[int64][]collection.Entry, len(userIDs))
	for rows.Next() {
		var (
			userID int64
			e      collection.Entry
		)
		if err := rows.Scan(&userID, &e.PartType, &e.PartRarity, &e.Quantity); err != nil {
			return nil, fmt.Errorf("ошибка сканирования части: %w", err)
		}
		byUser[userID] = append(byUser[userID], e)
	}
	return byUser, rows.Err()
}
