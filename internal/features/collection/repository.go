// Package collection — repository.go работает с таблицей user_collection.
package collection

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/labubu-roulette/internal/db/postgres"
)

// Repository хранит части игроков.
type Repository struct {
	db postgres.Querier
}

// NewRepository создаёт репозиторий коллекций.
func NewRepository(db postgres.Querier) *Repository {
	return &Repository{db: db}
}

// WithTx возвращает копию репозитория поверх транзакции tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

// List возвращает все строки коллекции игрока.
func (r *Repository) List(ctx context.Context, userID int64) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT part_type, part_rarity, quantity
		FROM user_collection
		WHERE user_id = $1
		ORDER BY part_rarity, part_type
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения коллекции: %w", err)
	}
	defer rows.Close()

	var list []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.PartType, &e.PartRarity, &e.Quantity); err != nil {
			return nil, fmt.Errorf("ошибка сканирования части: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Add пытается вставить новую часть с quantity=1.
// Возвращает false, если строка уже есть: это и есть признак дубликата.
// Проверку делает уникальный индекс, а не предварительный SELECT,
// поэтому два параллельных спина не создадут две строки.
func (r *Repository) Add(ctx context.Context, userID int64, part PartType, rarity Rarity) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO user_collection (user_id, part_type, part_rarity, quantity)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id, part_type, part_rarity) DO NOTHING
	`, userID, part, rarity)
	if err != nil {
		return false, fmt.Errorf("ошибка добавления части: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Increment увеличивает счётчик уже имеющейся части.
func (r *Repository) Increment(ctx context.Context, userID int64, part PartType, rarity Rarity) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE user_collection
		SET quantity = quantity + 1, updated_at = NOW()
		WHERE user_id = $1 AND part_type = $2 AND part_rarity = $3
	`, userID, part, rarity)
	if err != nil {
		return fmt.Errorf("ошибка увеличения счётчика части: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("часть %s/%s у игрока %d не найдена", part, rarity, userID)
	}
	return nil
}
