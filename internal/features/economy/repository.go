// Package economy — repository.go выполняет операции с балансами в users
// и журналом labu_transactions. Методы, меняющие несколько строк,
// рассчитаны на вызов через WithTx: атомарность обеспечивает транзакция вызывающего.
package economy

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/labubu-roulette/internal/common"
	"serotonyl.ru/labubu-roulette/internal/db/postgres"
)

// Repository предоставляет методы для работы с балансами и журналом.
type Repository struct {
	db postgres.Querier
}

// NewRepository создаёт новый репозиторий экономики.
func NewRepository(db postgres.Querier) *Repository {
	return &Repository{db: db}
}

// WithTx возвращает копию репозитория поверх транзакции tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

// CreditLabu начисляет ЛАБУ и дописывает строку журнала.
//
// Параметры:
//   - userID: кому начислить
//   - amount: сколько (положительное число)
//   - txType: тип транзакции (spin_reward, duplicate_exchange, ...)
//   - description: описание для истории
//   - relatedID: связанная сущность (спин, платёж), может быть nil
func (r *Repository) CreditLabu(ctx context.Context, userID, amount int64, txType, description string, relatedID *int64) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET labu_balance = labu_balance + $2, updated_at = NOW()
		WHERE id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("ошибка начисления ЛАБУ: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("начисление ЛАБУ (id=%d): %w", userID, common.ErrUserNotFound)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO labu_transactions (user_id, amount, type, description, related_id)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, amount, txType, description, relatedID)
	if err != nil {
		return fmt.Errorf("ошибка записи транзакции ЛАБУ: %w", err)
	}
	return nil
}

// DebitRub списывает рубли, только если на балансе хватает.
// Проверка и списание идут одним UPDATE, поэтому два параллельных спина
// не уведут баланс в минус.
func (r *Repository) DebitRub(ctx context.Context, userID, amount int64) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET rub_balance = rub_balance - $2, updated_at = NOW()
		WHERE id = $1 AND rub_balance >= $2
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("ошибка списания рублей: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("ошибка проверки игрока: %w", err)
	}
	if !exists {
		return fmt.Errorf("списание (id=%d): %w", userID, common.ErrUserNotFound)
	}
	return common.ErrInsufficientFunds
}

// CreditRub пополняет рублёвый баланс (копейки).
func (r *Repository) CreditRub(ctx context.Context, userID, amount int64) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET rub_balance = rub_balance + $2, updated_at = NOW()
		WHERE id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("ошибка пополнения рублей: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("пополнение (id=%d): %w", userID, common.ErrUserNotFound)
	}
	return nil
}

// AddReferralEarnings увеличивает счётчик заработка на рефералах.
func (r *Repository) AddReferralEarnings(ctx context.Context, userID, amount int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET referral_earnings = referral_earnings + $2, updated_at = NOW()
		WHERE id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("ошибка учёта реферального заработка: %w", err)
	}
	return nil
}

// ListTransactions возвращает последние N строк журнала игрока.
func (r *Repository) ListTransactions(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	query := `
		SELECT id, user_id, amount, type, description, related_id, created_at
		FROM labu_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения транзакций: %w", err)
	}
	defer rows.Close()

	var list []*Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Description, &t.RelatedID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования транзакции: %w", err)
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

// Totals считает заработанные и потраченные ЛАБУ по журналу.
func (r *Repository) Totals(ctx context.Context, userID int64) (Totals, error) {
	var t Totals
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0),
		       COALESCE(-SUM(amount) FILTER (WHERE amount < 0), 0)
		FROM labu_transactions
		WHERE user_id = $1
	`, userID).Scan(&t.Earned, &t.Spent)
	if err != nil {
		return Totals{}, fmt.Errorf("ошибка подсчёта ЛАБУ: %w", err)
	}
	return t, nil
}

// FindDrift возвращает игроков, у которых labu_balance не равен сумме журнала.
// Только чтение; исправление идёт через FixDrift под блокировкой строки.
func (r *Repository) FindDrift(ctx context.Context) ([]Drift, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.id, u.labu_balance, COALESCE(SUM(t.amount), 0) AS ledger
		FROM users u
		LEFT JOIN labu_transactions t ON t.user_id = u.id
		GROUP BY u.id, u.labu_balance
		HAVING u.labu_balance <> COALESCE(SUM(t.amount), 0)
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска расхождений: %w", err)
	}
	defer rows.Close()

	var list []Drift
	for rows.Next() {
		var d Drift
		if err := rows.Scan(&d.UserID, &d.Stored, &d.Ledger); err != nil {
			return nil, fmt.Errorf("ошибка чтения расхождения: %w", err)
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// FixDrift блокирует строку игрока, пересчитывает журнал и выравнивает
// баланс. Возвращает false, если расхождения уже нет.
// Вызывать только внутри транзакции.
func (r *Repository) FixDrift(ctx context.Context, userID int64) (Drift, bool, error) {
	d := Drift{UserID: userID}

	err := r.db.QueryRow(ctx, `SELECT labu_balance FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&d.Stored)
	if err != nil {
		return d, false, fmt.Errorf("ошибка блокировки баланса: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM labu_transactions WHERE user_id = $1
	`, userID).Scan(&d.Ledger)
	if err != nil {
		return d, false, fmt.Errorf("ошибка суммы журнала: %w", err)
	}

	if d.Stored == d.Ledger {
		return d, false, nil
	}

	_, err = r.db.Exec(ctx, `
		UPDATE users SET labu_balance = $2, updated_at = NOW() WHERE id = $1
	`, userID, d.Ledger)
	if err != nil {
		return d, false, fmt.Errorf("ошибка выравнивания баланса: %w", err)
	}
	return d, true, nil
}
