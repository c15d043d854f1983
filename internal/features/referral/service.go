// Package referral — service.go: вехи приглашённых, промокоды и статистика.
package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/labubu-roulette/internal/common"
	"serotonyl.ru/labubu-roulette/internal/features/collection"
	"serotonyl.ru/labubu-roulette/internal/features/economy"
	"serotonyl.ru/labubu-roulette/internal/features/users"
)

// Сколько последних бонусов отдаём в статистике
const recentBonusesLimit = 10

// Вехи по числу спинов приглашённого
const (
	firstSpinMilestone = 1
	tenthSpinMilestone = 10
)

// Users — игроки.
type Users interface {
	EnsureBySession(ctx context.Context, sessionID string, profile *users.TelegramProfile) (*users.User, error)
	GetBySession(ctx context.Context, sessionID string) (*users.User, error)
	GetByID(ctx context.Context, id int64) (*users.User, error)
}

// Collections — коллекции приглашённого.
type Collections interface {
	IsComplete(ctx context.Context, userID int64, rarity collection.Rarity) (collection.Status, error)
}

// Notifier ставит сообщение в очередь Telegram.
type Notifier interface {
	Notify(chatID int64, text string)
}

// Service управляет реферальной программой.
type Service struct {
	store       Store
	users       Users
	collections Collections
	notifier    Notifier
	amounts     Amounts
}

// NewService создаёт реферальный сервис.
func NewService(store Store, userDir Users, collections Collections, notifier Notifier, amounts Amounts) *Service {
	return &Service{
		store:       store,
		users:       userDir,
		collections: collections,
		notifier:    notifier,
		amounts:     amounts,
	}
}

// Evaluate проверяет вехи игрока после спина и выплачивает положенное
// пригласившему. spinCount: число спинов игрока с учётом только что
// сделанного. Ошибки логируются и не возвращаются: спин уже состоялся.
func (s *Service) Evaluate(ctx context.Context, userID int64, spinCount int) {
	if err := s.evaluate(ctx, userID, spinCount); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id":    userID,
			"spin_count": spinCount,
		}).Error("Ошибка проверки реферальных бонусов")
	}
}

func (s *Service) evaluate(ctx context.Context, userID int64, spinCount int) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.ReferredByID == nil {
		return nil
	}
	referrerID := *user.ReferredByID

	var due []Action
	switch spinCount {
	case firstSpinMilestone:
		due = append(due, ActionFirstSpin)
	case tenthSpinMilestone:
		due = append(due, ActionTenthSpin)
	}

	// Бонус за коллекцию один на приглашённого, какой бы набор он ни собрал
	for _, rarity := range []collection.Rarity{collection.RarityNormal, collection.RarityExclusive} {
		st, err := s.collections.IsComplete(ctx, userID, rarity)
		if err != nil {
			return err
		}
		if st.Complete {
			due = append(due, ActionCompletedCollection)
			break
		}
	}

	var errs []error
	for _, action := range due {
		if _, err := s.Award(ctx, referrerID, user, action); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Award выплачивает бонус за веху, если он ещё не выплачен.
//
// Предварительная проверка только экономит транзакцию. Настоящая защита
// от двойной выплаты стоит уникальный индекс: начисление идёт лишь после того,
// как строка бонуса действительно вставилась. Возвращает true, если бонус
// выплачен этим вызовом.
func (s *Service) Award(ctx context.Context, referrerID int64, referral *users.User, action Action) (bool, error) {
	amount := s.amounts.For(action)
	if amount <= 0 {
		return false, nil
	}

	exists, err := s.store.HasBonus(ctx, referrerID, referral.ID, action)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	issued := false
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		inserted, err := tx.InsertBonus(ctx, &Bonus{
			ReferrerID: referrerID,
			ReferralID: referral.ID,
			Action:     action,
			Amount:     amount,
		})
		if err != nil || !inserted {
			return err
		}

		relatedID := referral.ID
		desc := "Реферальный бонус: " + action.Description()
		if err := tx.CreditLabu(ctx, referrerID, amount, economy.TxReferralBonus, desc, &relatedID); err != nil {
			return err
		}
		if err := tx.AddReferralEarnings(ctx, referrerID, amount); err != nil {
			return err
		}
		issued = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("ошибка выплаты бонуса %s: %w", action, err)
	}
	if !issued {
		return false, nil
	}

	log.WithFields(log.Fields{
		"referrer_id": referrerID,
		"referral_id": referral.ID,
		"action":      action,
		"amount":      amount,
	}).Info("Реферальный бонус выплачен")

	s.notifyReferrer(ctx, referrerID, fmt.Sprintf(
		"🤝 %s: +%s (%s)", action.Description(), common.FormatLabu(amount), referral.Name,
	))
	return true, nil
}

func (s *Service) notifyReferrer(ctx context.Context, referrerID int64, text string) {
	if s.notifier == nil {
		return
	}
	referrer, err := s.users.GetByID(ctx, referrerID)
	if err != nil {
		log.WithError(err).WithField("referrer_id", referrerID).Warn("Не удалось найти пригласившего для уведомления")
		return
	}
	if referrer.TelegramID != nil {
		s.notifier.Notify(*referrer.TelegramID, text)
	}
}

// ApplyCode привязывает игрока к владельцу промокода и выплачивает
// бонус регистрации обоим. Всё в одной транзакции под блокировкой
// строки игрока: второй параллельный запрос увидит уже заполненную связь.
func (s *Service) ApplyCode(ctx context.Context, sessionID, code string, profile *users.TelegramProfile) (*ApplyResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if strings.TrimSpace(sessionID) == "" || code == "" {
		return nil, fmt.Errorf("%w: Session ID и промокод обязательны", common.ErrValidation)
	}

	user, err := s.users.EnsureBySession(ctx, sessionID, profile)
	if err != nil {
		return nil, err
	}

	amount := s.amounts.Registration
	var referrer *users.User
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		locked, err := tx.LockUser(ctx, user.ID)
		if err != nil {
			return err
		}
		if locked.ReferredByID != nil {
			return common.ErrReferralAlreadyUsed
		}

		referrer, err = tx.UserByCode(ctx, code)
		if err != nil {
			return err
		}
		if referrer.ID == locked.ID {
			return common.ErrReferralSelf
		}

		linked, err := tx.SetReferrer(ctx, locked.ID, referrer.ID)
		if err != nil {
			return err
		}
		if !linked {
			return common.ErrReferralAlreadyUsed
		}

		if amount > 0 {
			referrerID, userID := referrer.ID, locked.ID
			if err := tx.CreditLabu(ctx, locked.ID, amount, economy.TxReferralBonus, "Бонус за использование промокода", &referrerID); err != nil {
				return err
			}
			desc := "Бонус за приглашение пользователя " + locked.Name
			if err := tx.CreditLabu(ctx, referrer.ID, amount, economy.TxReferralBonus, desc, &userID); err != nil {
				return err
			}
			if err := tx.AddReferralEarnings(ctx, referrer.ID, amount); err != nil {
				return err
			}
		}

		inserted, err := tx.InsertBonus(ctx, &Bonus{
			ReferrerID: referrer.ID,
			ReferralID: locked.ID,
			Action:     ActionRegistration,
			Amount:     amount,
		})
		if err != nil {
			return err
		}
		if !inserted {
			return common.ErrReferralAlreadyUsed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":     user.ID,
		"referrer_id": referrer.ID,
		"amount":      amount,
	}).Info("Промокод применён")

	s.notifyReferrer(ctx, referrer.ID, fmt.Sprintf(
		"🤝 Новый игрок по вашему промокоду: %s. +%s", user.Name, common.FormatLabu(amount),
	))

	return &ApplyResult{
		Message:   fmt.Sprintf("Промокод успешно применен! Вы получили %d ЛАБУ!", amount),
		LabuBonus: amount,
	}, nil
}

// Stats собирает реферальную статистику игрока.
func (s *Service) Stats(ctx context.Context, sessionID string) (*Stats, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: Session ID обязателен", common.ErrValidation)
	}
	user, err := s.users.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	referrals, err := s.store.ListReferrals(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	bonuses, err := s.store.ListBonuses(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	byAction := make(map[Action]int64)
	for _, b := range bonuses {
		byAction[b.Action] += b.Amount
	}
	recent := bonuses
	if len(recent) > recentBonusesLimit {
		recent = recent[:recentBonusesLimit]
	}
	if referrals == nil {
		referrals = []Referral{}
	}
	if recent == nil {
		recent = []Bonus{}
	}

	return &Stats{
		ReferralCode:    user.ReferralCode,
		TotalReferrals:  len(referrals),
		TotalEarnings:   user.ReferralEarnings,
		Referrals:       referrals,
		BonusesByAction: byAction,
		RecentBonuses:   recent,
	}, nil
}
