// Package prizes — repository.go: чтение каталога, ленивое создание
// приза-промаха и управление активностью секторов.
package prizes

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/labubu-roulette/internal/common"
	"serotonyl.ru/labubu-roulette/internal/db/postgres"
)

// Repository — доступ к таблице prizes.
type Repository struct {
	db postgres.Querier
}

// NewRepository создаёт репозиторий призов.
func NewRepository(db postgres.Querier) *Repository {
	return &Repository{db: db}
}

// WithTx возвращает копию репозитория поверх транзакции tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

const prizeColumns = `
	id, name, value, chance, rarity, color, icon, is_active,
	prize_type, part_type, part_rarity, labu_amount, created_at
`

func scanPrize(row pgx.Row) (*Prize, error) {
	var p Prize
	err := row.Scan(
		&p.ID, &p.Name, &p.Value, &p.Chance, &p.Rarity, &p.Color, &p.Icon, &p.IsActive,
		&p.Type, &p.PartType, &p.PartRarity, &p.LabuAmount, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListActive возвращает активные призы (без промаха) по возрастанию шанса.
// Порядок влияет только на отображение, но сохраняется и для розыгрыша.
func (r *Repository) ListActive(ctx context.Context) ([]Prize, error) {
	query := `
		SELECT ` + prizeColumns + `
		FROM prizes
		WHERE is_active AND prize_type <> 'empty'
		ORDER BY chance ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения каталога: %w", err)
	}
	defer rows.Close()

	var list []Prize
	for rows.Next() {
		p, err := scanPrize(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования приза: %w", err)
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// GetOrCreateMissPrize возвращает приз-промах, создавая его при первом вызове.
// Частичный уникальный индекс на prize_type = 'empty' не даёт создать второй;
// проигравший гонку INSERT ничего не вставляет и просто перечитывает строку.
func (r *Repository) GetOrCreateMissPrize(ctx context.Context) (*Prize, error) {
	selectQuery := `SELECT ` + prizeColumns + ` FROM prizes WHERE prize_type = 'empty' LIMIT 1`

	p, err := scanPrize(r.db.QueryRow(ctx, selectQuery))
	if err == nil {
		return p, nil
	}
	if !postgres.IsNoRows(err) {
		return nil, fmt.Errorf("ошибка чтения приза-промаха: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO prizes (name, value, chance, rarity, color, icon, is_active, prize_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (prize_type) WHERE prize_type = 'empty' DO NOTHING
	`, missPrize.Name, missPrize.Value, missPrize.Chance, missPrize.Rarity,
		missPrize.Color, missPrize.Icon, missPrize.IsActive, missPrize.Type)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания приза-промаха: %w", err)
	}

	p, err = scanPrize(r.db.QueryRow(ctx, selectQuery))
	if err != nil {
		return nil, fmt.Errorf("ошибка перечитывания приза-промаха: %w", err)
	}
	log.WithField("prize_id", p.ID).Info("Создан приз-промах")
	return p, nil
}

// SetActive включает или выключает сектор. Промах включить нельзя.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE prizes SET is_active = $2, updated_at = NOW()
		WHERE id = $1 AND prize_type <> 'empty'
	`, id, active)
	if err != nil {
		return fmt.Errorf("ошибка изменения приза: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("приз %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// SeedDefaults заливает стартовый каталог, если в базе ещё нет ни одного
// приза типа part или labu. Возвращает число созданных записей.
func (r *Repository) SeedDefaults(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM prizes WHERE prize_type <> 'empty'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта призов: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	catalog := DefaultCatalog()
	for _, p := range catalog {
		_, err := r.db.Exec(ctx, `
			INSERT INTO prizes (name, value, chance, rarity, color, icon, is_active,
			                    prize_type, part_type, part_rarity, labu_amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, p.Name, p.Value, p.Chance, p.Rarity, p.Color, p.Icon, p.IsActive,
			p.Type, p.PartType, p.PartRarity, p.LabuAmount)
		if err != nil {
			return 0, fmt.Errorf("ошибка создания приза %q: %w", p.Name, err)
		}
	}
	return len(catalog), nil
}
