// Package users — repository.go отвечает за операции с таблицей users.
// Каждая функция выполняет один SQL-запрос; WithTx привязывает
// репозиторий к открытой транзакции.
package users

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/labubu-roulette/internal/common"
	"serotonyl.ru/labubu-roulette/internal/db/postgres"
)

// Имена уникальных ограничений таблицы users, которые Postgres
// присваивает по умолчанию.
const (
	referralCodeConstraint = "users_referral_code_key"
	telegramIDConstraint   = "users_telegram_id_key"
)

type Repository struct {
	db postgres.Querier
}

func NewRepository(db postgres.Querier) *Repository {
	return &Repository{db: db}
}

// WithTx возвращает копию репозитория поверх транзакции tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

const userColumns = `
	id, session_id, telegram_id, name, username, labu_balance, rub_balance,
	referral_code, referred_by_id, referral_earnings, created_at
`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.SessionID, &u.TelegramID, &u.Name, &u.Username,
		&u.LabuBalance, &u.RubBalance,
		&u.ReferralCode, &u.ReferredByID, &u.ReferralEarnings, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create добавляет игрока. Если sessionId уже занят (параллельный запрос
// успел раньше), возвращает created=false без ошибки.
// Конфликты по referral_code и telegram_id возвращаются как ошибки
// уникальности; различать их нужно по имени ограничения.
func (r *Repository) Create(ctx context.Context, u *User) (bool, error) {
	query := `
		INSERT INTO users (session_id, telegram_id, name, username, referral_code)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO NOTHING
		RETURNING ` + userColumns

	created, err := scanUser(r.db.QueryRow(ctx, query,
		u.SessionID, u.TelegramID, u.Name, u.Username, u.ReferralCode,
	))
	if err != nil {
		if postgres.IsNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("ошибка создания игрока: %w", err)
	}
	*u = *created
	return true, nil
}

// GetBySession ищет игрока по sessionId.
// Если не найден, ошибка оборачивает common.ErrUserNotFound.
func (r *Repository) GetBySession(ctx context.Context, sessionID string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE session_id = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, sessionID))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("игрок (session=%s): %w", sessionID, common.ErrUserNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения игрока (session=%s): %w", sessionID, err)
	}
	return u, nil
}

// GetByID ищет игрока по внутреннему ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("игрок (id=%d): %w", id, common.ErrUserNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения игрока (id=%d): %w", id, err)
	}
	return u, nil
}

// LockByID читает игрока с блокировкой строки (FOR UPDATE).
// Имеет смысл только внутри транзакции.
func (r *Repository) LockByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("игрок (id=%d): %w", id, common.ErrUserNotFound)
		}
		return nil, fmt.Errorf("ошибка блокировки игрока (id=%d): %w", id, err)
	}
	return u, nil
}

// GetByReferralCode ищет владельца промокода (без учёта регистра).
func (r *Repository) GetByReferralCode(ctx context.Context, code string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE referral_code = UPPER($1)`
	u, err := scanUser(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("промокод %q: %w", code, common.ErrReferralCodeNotFound)
		}
		return nil, fmt.Errorf("ошибка поиска промокода: %w", err)
	}
	return u, nil
}

// SetReferrer записывает пригласившего. Связь ставится один раз:
// если referred_by_id уже заполнен, возвращает false.
func (r *Repository) SetReferrer(ctx context.Context, userID, referrerID int64) (bool, error) {
	query := `
		UPDATE users
		SET referred_by_id = $2, updated_at = NOW()
		WHERE id = $1 AND referred_by_id IS NULL
	`
	tag, err := r.db.Exec(ctx, query, userID, referrerID)
	if err != nil {
		return false, fmt.Errorf("ошибка записи реферера: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AttachTelegram дописывает Telegram-данные гостю, который открыл игру из бота.
// Если этот telegram_id уже принадлежит другой записи, ничего не меняет
// и возвращает false.
func (r *Repository) AttachTelegram(ctx context.Context, userID int64, p *TelegramProfile) (bool, error) {
	query := `
		UPDATE users
		SET telegram_id = $2,
		    username = NULLIF($3, ''),
		    name = COALESCE(NULLIF($4, ''), name),
		    updated_at = NOW()
		WHERE id = $1
		  AND NOT EXISTS (SELECT 1 FROM users WHERE telegram_id = $2)
	`
	tag, err := r.db.Exec(ctx, query, userID, p.ID, p.Username, p.DisplayName())
	if err != nil {
		// Параллельная привязка того же telegram_id
		if postgres.IsConstraintViolation(err, telegramIDConstraint) {
			return false, nil
		}
		return false, fmt.Errorf("ошибка обновления Telegram-данных: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListReferrals возвращает приглашённых игроком, новые первыми.
func (r *Repository) ListReferrals(ctx context.Context, referrerID int64) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE referred_by_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, referrerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения рефералов: %w", err)
	}
	defer rows.Close()

	var list []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения реферала: %w", err)
		}
		list = append(list, u)
	}
	return list, rows.Err()
}
