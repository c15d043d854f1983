// Package economy — service.go: операции над балансом, которым нужна
// собственная транзакция, и сверка баланса ЛАБУ с журналом.
package economy

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Service — точка входа экономики для кода вне транзакций.
type Service struct {
	repo Store
}

// NewService создаёт сервис экономики.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// CreditLabu начисляет ЛАБУ в отдельной транзакции:
// баланс и строка журнала появляются вместе или не появляются вовсе.
func (s *Service) CreditLabu(ctx context.Context, userID, amount int64, txType, description string, relatedID *int64) error {
	return s.repo.InTx(ctx, func(ctx context.Context, tx Ledger) error {
		return tx.CreditLabu(ctx, userID, amount, txType, description, relatedID)
	})
}

// GrantLabu — ручное начисление из админки.
func (s *Service) GrantLabu(ctx context.Context, userID, amount int64, comment string) error {
	desc := "Начисление администратора"
	if comment = strings.TrimSpace(comment); comment != "" {
		desc += ": " + comment
	}
	if err := s.CreditLabu(ctx, userID, amount, TxAdminGrant, desc, nil); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"user_id": userID,
		"amount":  amount,
	}).Info("Админ начислил ЛАБУ")
	return nil
}

// History — последние операции и итоги по ЛАБУ для профиля.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]*Transaction, Totals, error) {
	txs, err := s.repo.ListTransactions(ctx, userID, limit)
	if err != nil {
		return nil, Totals{}, err
	}
	totals, err := s.repo.Totals(ctx, userID)
	if err != nil {
		return nil, Totals{}, err
	}
	return txs, totals, nil
}

// Totals — итоги по ЛАБУ без списка операций.
func (s *Service) Totals(ctx context.Context, userID int64) (Totals, error) {
	return s.repo.Totals(ctx, userID)
}

// Reconcile выравнивает кэшированный labu_balance по журналу.
// Журнал считается источником истины: каждое расхождение логируется
// и исправляется в своей транзакции под блокировкой строки игрока.
// Возвращает число исправленных игроков.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	drifts, err := s.repo.FindDrift(ctx)
	if err != nil {
		return 0, err
	}

	fixed := 0
	for _, candidate := range drifts {
		var (
			d       Drift
			changed bool
		)
		err := s.repo.InTx(ctx, func(ctx context.Context, tx Ledger) error {
			var err error
			d, changed, err = tx.FixDrift(ctx, candidate.UserID)
			return err
		})
		if err != nil {
			return fixed, fmt.Errorf("сверка игрока %d: %w", candidate.UserID, err)
		}
		if !changed {
			continue
		}
		fixed++
		log.WithFields(log.Fields{
			"user_id": d.UserID,
			"stored":  d.Stored,
			"ledger":  d.Ledger,
		}).Warn("Баланс ЛАБУ расходился с журналом, исправлен")
	}

	return fixed, nil
}
