// Package postgres — queries.go содержит общие утилиты для запросов:
// интерфейс Querier, обёртку транзакций и распознавание конфликтов уникальности.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier — общее подмножество методов *pgxpool.Pool и pgx.Tx.
// Репозитории принимают Querier, чтобы одна и та же функция работала
// и вне транзакции, и внутри неё.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner умеет открывать транзакцию (пул или соединение).
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// UniqueViolation — SQLSTATE нарушения уникального индекса.
const UniqueViolation = "23505"

// WithTx выполняет fn в транзакции. Любая ошибка fn откатывает всё целиком,
// при успехе транзакция фиксируется.
func WithTx(ctx context.Context, db TxBeginner, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// IsUniqueViolation сообщает, что err вызван конфликтом уникального индекса.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == UniqueViolation
}

// IsConstraintViolation сообщает, что err вызван конфликтом именно
// уникального ограничения constraint (например, "users_telegram_id_key").
func IsConstraintViolation(err error, constraint string) bool {
	if !IsUniqueViolation(err) {
		return false
	}
	var pgErr *pgconn.PgError
	errors.As(err, &pgErr)
	return pgErr.ConstraintName == constraint
}

// IsNoRows сообщает, что запрос не вернул ни одной строки.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// ExecMigrationSQL выполняет один SQL-запрос миграции в транзакции
// и возвращает true, если миграция была применена сейчас.
// Если запрос упадёт, транзакция откатится автоматически.
func ExecMigrationSQL(ctx context.Context, db TxBeginner, version int, sql string) (bool, error) {
	applied := false
	err := WithTx(ctx, db, func(ctx context.Context, tx pgx.Tx) error {
		var exists bool
		err := tx.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("ошибка проверки миграции: %w", err)
		}
		if exists {
			return nil
		}

		if _, err := tx.Exec(ctx, sql); err != nil {
			return fmt.Errorf("ошибка выполнения миграции %d: %w", version, err)
		}

		if _, err := tx.Exec(ctx,
			"INSERT INTO schema_migrations (version) VALUES ($1)", version,
		); err != nil {
			return fmt.Errorf("ошибка записи версии миграции: %w", err)
		}
		applied = true
		return nil
	})
	return applied, err
}
