// Package admin — repository.go работает с таблицами admin_sessions и admin_login_attempts.
package admin

import (
	"context"
	"fmt"
	"time"

	"serotonyl.ru/labubu-roulette/internal/common"
	"serotonyl.ru/labubu-roulette/internal/db/postgres"
)

// Repository работает с админ-таблицами.
type Repository struct {
	db postgres.Querier
}

// NewRepository создаёт репозиторий.
func NewRepository(db postgres.Querier) *Repository {
	return &Repository{db: db}
}

// CreateSession создаёт новую сессию администратора.
func (r *Repository) CreateSession(ctx context.Context, s *Session) error {
	query := `
		INSERT INTO admin_sessions (session_token, client_ip, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, authenticated_at, last_activity
	`
	err := r.db.QueryRow(ctx, query, s.Token, s.ClientIP, s.ExpiresAt).
		Scan(&s.ID, &s.AuthenticatedAt, &s.LastActivity)
	if err != nil {
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	return nil
}

// GetSession возвращает сессию по токену.
func (r *Repository) GetSession(ctx context.Context, token string) (*Session, error) {
	query := `
		SELECT id, session_token, client_ip, authenticated_at, expires_at, last_activity
		FROM admin_sessions
		WHERE session_token = $1
	`
	var s Session
	err := r.db.QueryRow(ctx, query, token).Scan(
		&s.ID, &s.Token, &s.ClientIP, &s.AuthenticatedAt, &s.ExpiresAt, &s.LastActivity,
	)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.ErrSessionExpired
		}
		return nil, fmt.Errorf("ошибка чтения сессии: %w", err)
	}
	return &s, nil
}

// DeleteSession завершает сессию.
func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM admin_sessions WHERE session_token = $1`, token); err != nil {
		return fmt.Errorf("ошибка удаления сессии: %w", err)
	}
	return nil
}

// UpdateActivity обновляет время последней активности.
func (r *Repository) UpdateActivity(ctx context.Context, token string) error {
	query := `UPDATE admin_sessions SET last_activity = NOW() WHERE session_token = $1`
	_, err := r.db.Exec(ctx, query, token)
	return err
}

// LogAttempt записывает попытку входа.
func (r *Repository) LogAttempt(ctx context.Context, clientIP string, success bool) error {
	query := `INSERT INTO admin_login_attempts (client_ip, success) VALUES ($1, $2)`
	_, err := r.db.Exec(ctx, query, clientIP, success)
	return err
}

// CountFailedAttempts возвращает количество неудачных попыток с адреса после since.
func (r *Repository) CountFailedAttempts(ctx context.Context, clientIP string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM admin_login_attempts
		WHERE client_ip = $1 AND success = FALSE AND attempt_time >= $2
	`
	var count int
	err := r.db.QueryRow(ctx, query, clientIP, since).Scan(&count)
	return count, err
}

// PurgeExpired удаляет истёкшие сессии и попытки входа старше суток.
func (r *Repository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM admin_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки сессий: %w", err)
	}
	if _, err := r.db.Exec(ctx,
		`DELETE FROM admin_login_attempts WHERE attempt_time < $1`, now.Add(-24*time.Hour),
	); err != nil {
		return 0, fmt.Errorf("ошибка очистки попыток входа: %w", err)
	}
	return tag.RowsAffected(), nil
}
