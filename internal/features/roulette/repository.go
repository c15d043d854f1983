// Package roulette — repository.go: PostgreSQL-реализация Store.
// Транзакция спина собирает репозитории экономики, каталога, коллекций
// и настроек поверх одного pgx.Tx.
package roulette

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/labubu-roulette/internal/common"
	"serotonyl.ru/labubu-roulette/internal/db/postgres"
	"serotonyl.ru/labubu-roulette/internal/features/collection"
	"serotonyl.ru/labubu-roulette/internal/features/economy"
	"serotonyl.ru/labubu-roulette/internal/features/prizes"
	"serotonyl.ru/labubu-roulette/internal/features/settings"
	"serotonyl.ru/labubu-roulette/internal/features/users"
)

// DB — пул: умеет и запросы, и транзакции.
type DB interface {
	postgres.Querier
	postgres.TxBeginner
}

// Repository работает с таблицами spins и wins.
type Repository struct {
	db          DB
	economy     *economy.Repository
	prizes      *prizes.Repository
	collections *collection.Repository
	settings    *settings.Repository
}

// NewRepository создаёт хранилище спинов.
func NewRepository(
	db DB,
	economyRepo *economy.Repository,
	prizeRepo *prizes.Repository,
	collectionRepo *collection.Repository,
	settingsRepo *settings.Repository,
) *Repository {
	return &Repository{
		db:          db,
		economy:     economyRepo,
		prizes:      prizeRepo,
		collections: collectionRepo,
		settings:    settingsRepo,
	}
}

// InTx открывает транзакцию спина.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return postgres.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &pgTx{
			tx:          tx,
			economy:     r.economy.WithTx(tx),
			prizes:      r.prizes.WithTx(tx),
			collections: r.collections.WithTx(tx),
			settings:    r.settings.WithTx(tx),
		})
	})
}

// pgTx реализует Tx поверх одной транзакции.
type pgTx struct {
	tx          pgx.Tx
	economy     *economy.Repository
	prizes      *prizes.Repository
	collections *collection.Repository
	settings    *settings.Repository
}

func (t *pgTx) Settings(ctx context.Context) (settings.Snapshot, error) {
	return t.settings.Snapshot(ctx)
}

func (t *pgTx) DebitRub(ctx context.Context, userID, amount int64) error {
	return t.economy.DebitRub(ctx, userID, amount)
}

func (t *pgTx) ActivePrizes(ctx context.Context) ([]prizes.Prize, error) {
	return t.prizes.ListActive(ctx)
}

func (t *pgTx) MissPrize(ctx context.Context) (*prizes.Prize, error) {
	return t.prizes.GetOrCreateMissPrize(ctx)
}

func (t *pgTx) AddCollectionPart(ctx context.Context, userID int64, part collection.PartType, rarity collection.Rarity) (bool, error) {
	return t.collections.Add(ctx, userID, part, rarity)
}

func (t *pgTx) IncrementCollectionPart(ctx context.Context, userID int64, part collection.PartType, rarity collection.Rarity) error {
	return t.collections.Increment(ctx, userID, part, rarity)
}

func (t *pgTx) CreditLabu(ctx context.Context, userID, amount int64, txType, description string, relatedID *int64) error {
	return t.economy.CreditLabu(ctx, userID, amount, txType, description, relatedID)
}

func (t *pgTx) CreateSpin(ctx context.Context, userID, cost int64, variant Variant) (*Spin, error) {
	s := Spin{UserID: userID, Cost: cost, Variant: variant}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO spins (user_id, amount, spin_type)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, userID, cost, variant).Scan(&s.ID, &s.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("ошибка записи спина: %w", err)
	}
	return &s, nil
}

func (t *pgTx) CreateWin(ctx context.Context, spinID, userID, prizeID int64) (*Win, error) {
	w := Win{SpinID: spinID, UserID: userID, PrizeID: prizeID}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO wins (spin_id, user_id, prize_id)
		VALUES ($1, $2, $3)
		RETURNING id, verified, claimed
	`, spinID, userID, prizeID).Scan(&w.ID, &w.Verified, &w.Claimed)
	if err != nil {
		return nil, fmt.Errorf("ошибка записи выигрыша: %w", err)
	}
	return &w, nil
}

func (t *pgTx) CountSpins(ctx context.Context, userID int64) (int, error) {
	return countSpins(ctx, t.tx, userID)
}

func countSpins(ctx context.Context, q postgres.Querier, userID int64) (int, error) {
	var n int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM spins WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта спинов: %w", err)
	}
	return n, nil
}

// CountSpins — число спинов игрока вне транзакции спина.
func (r *Repository) CountSpins(ctx context.Context, userID int64) (int, error) {
	return countSpins(ctx, r.db, userID)
}

// RecentWins — последние выигрыши с ненулевой ценностью приза.
func (r *Repository) RecentWins(ctx context.Context, limit int) ([]RecentWin, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.name, p.name, p.value, w.created_at, w.verified
		FROM wins w
		JOIN users u ON u.id = w.user_id
		JOIN prizes p ON p.id = w.prize_id
		WHERE p.value > 0
		ORDER BY w.created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ленты выигрышей: %w", err)
	}
	defer rows.Close()

	list := make([]RecentWin, 0, limit)
	for rows.Next() {
		var (
			w    RecentWin
			name string
		)
		if err := rows.Scan(&name, &w.Prize, &w.Value, &w.Timestamp, &w.Verified); err != nil {
			return nil, fmt.Errorf("ошибка сканирования выигрыша: %w", err)
		}
		w.User = users.MaskName(name)
		list = append(list, w)
	}
	return list, rows.Err()
}

// ListSpins — последние спины игрока с выпавшими призами.
func (r *Repository) ListSpins(ctx context.Context, userID int64, limit int) ([]SpinRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.amount, s.spin_type, s.created_at,
		       COALESCE(p.name, ''), COALESCE(p.prize_type, '')
		FROM spins s
		LEFT JOIN wins w ON w.spin_id = s.id
		LEFT JOIN prizes p ON p.id = w.prize_id
		WHERE s.user_id = $1
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения спинов: %w", err)
	}
	defer rows.Close()

	var list []SpinRecord
	for rows.Next() {
		var s SpinRecord
		if err := rows.Scan(&s.ID, &s.Cost, &s.Variant, &s.Timestamp, &s.PrizeName, &s.PrizeType); err != nil {
			return nil, fmt.Errorf("ошибка сканирования спина: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Stats — число спинов и непустых выигрышей игрока.
func (r *Repository) Stats(ctx context.Context, userID int64) (Stats, error) {
	var st Stats
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM spins WHERE user_id = $1),
			(SELECT COUNT(*) FROM wins w JOIN prizes p ON p.id = w.prize_id
			 WHERE w.user_id = $1 AND p.prize_type <> 'empty')
	`, userID).Scan(&st.TotalSpins, &st.TotalWins)
	if err != nil {
		return Stats{}, fmt.Errorf("ошибка статистики игрока: %w", err)
	}
	return st, nil
}

// ListPendingWins — ценные выигрыши, которые ещё не выданы.
func (r *Repository) ListPendingWins(ctx context.Context, limit int) ([]PendingWin, error) {
	rows, err := r.db.Query(ctx, `
		SELECT w.id, w.spin_id, w.user_id, w.prize_id, w.verified, w.claimed,
		       u.name, p.name, p.value, w.created_at
		FROM wins w
		JOIN users u ON u.id = w.user_id
		JOIN prizes p ON p.id = w.prize_id
		WHERE p.value > 0 AND NOT w.claimed
		ORDER BY w.created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения невыданных выигрышей: %w", err)
	}
	defer rows.Close()

	var list []PendingWin
	for rows.Next() {
		var w PendingWin
		if err := rows.Scan(
			&w.ID, &w.SpinID, &w.UserID, &w.PrizeID, &w.Verified, &w.Claimed,
			&w.UserName, &w.PrizeName, &w.Value, &w.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования выигрыша: %w", err)
		}
		list = append(list, w)
	}
	return list, rows.Err()
}

// MarkWin выставляет флаги проверки/выдачи. Выданный выигрыш
// считается и проверенным.
func (r *Repository) MarkWin(ctx context.Context, winID int64, claimed bool) error {
	query := `UPDATE wins SET verified = TRUE WHERE id = $1`
	if claimed {
		query = `UPDATE wins SET verified = TRUE, claimed = TRUE WHERE id = $1`
	}
	tag, err := r.db.Exec(ctx, query, winID)
	if err != nil {
		return fmt.Errorf("ошибка обновления выигрыша: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("выигрыш %d: %w", winID, common.ErrNotFound)
	}
	return nil
}
