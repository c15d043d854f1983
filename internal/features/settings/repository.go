package settings

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/labubu-roulette/internal/common"
	"serotonyl.ru/labubu-roulette/internal/db/postgres"
)

// Repository читает и пишет таблицу settings.
type Repository struct {
	db       postgres.Querier
	defaults Snapshot
}

// NewRepository создаёт репозиторий настроек.
func NewRepository(db postgres.Querier, defaults Snapshot) *Repository {
	return &Repository{db: db, defaults: defaults}
}

// WithTx возвращает копию репозитория, работающую внутри транзакции.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx, defaults: r.defaults}
}

// Snapshot читает все ключи одним запросом.
func (r *Repository) Snapshot(ctx context.Context) (Snapshot, error) {
	rows, err := r.db.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("ошибка чтения настроек: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Snapshot{}, fmt.Errorf("ошибка чтения настройки: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("ошибка чтения настроек: %w", err)
	}

	return Build(values, r.defaults), nil
}

// Set обновляет значение известного ключа.
func (r *Repository) Set(ctx context.Context, key string, value int64) error {
	if !Known(key) {
		return fmt.Errorf("%w: %s", common.ErrUnknownSetting, key)
	}
	if value < 0 {
		return fmt.Errorf("%w: значение не может быть отрицательным", common.ErrValidation)
	}

	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, key, strconv.FormatInt(value, 10)); err != nil {
		return fmt.Errorf("ошибка сохранения настройки: %w", err)
	}

	log.WithFields(log.Fields{
		"key":   key,
		"value": value,
	}).Info("Настройка изменена")
	return nil
}

// SeedDefaults заполняет отсутствующие ключи стартовыми значениями.
// Существующие значения не трогает.
func (r *Repository) SeedDefaults(ctx context.Context) error {
	query := `
		INSERT INTO settings (key, value, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO NOTHING
	`
	for _, s := range seedValues {
		if _, err := r.db.Exec(ctx, query, s.key, s.value, s.description); err != nil {
			return fmt.Errorf("ошибка заполнения настройки %s: %w", s.key, err)
		}
	}
	return nil
}
