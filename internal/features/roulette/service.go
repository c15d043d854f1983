// Package roulette — service.go координирует спин от начала до конца.
package roulette

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/labubu-roulette/internal/common"
	"serotonyl.ru/labubu-roulette/internal/features/collection"
	"serotonyl.ru/labubu-roulette/internal/features/economy"
	"serotonyl.ru/labubu-roulette/internal/features/users"
)

// Порог ЛАБУ, начиная с которого выигрыш считается джекпотом для уведомления
const jackpotLabu = 5000

// Users — поиск и создание игроков.
type Users interface {
	EnsureBySession(ctx context.Context, sessionID string, profile *users.TelegramProfile) (*users.User, error)
	GetByID(ctx context.Context, id int64) (*users.User, error)
}

// Collections — состояние коллекций игрока.
type Collections interface {
	Overview(ctx context.Context, userID int64) (collection.Overview, error)
}

// ReferralEvaluator проверяет реферальные вехи после спина.
// Ошибки не возвращает: пропущенный бонус не ломает спин.
type ReferralEvaluator interface {
	Evaluate(ctx context.Context, userID int64, spinCount int)
}

// History — журнал ЛАБУ для профиля.
type History interface {
	History(ctx context.Context, userID int64, limit int) ([]*economy.Transaction, economy.Totals, error)
	Totals(ctx context.Context, userID int64) (economy.Totals, error)
}

// Notifier ставит сообщение в очередь Telegram. Не блокирует.
type Notifier interface {
	Notify(chatID int64, text string)
}

// Service управляет рулеткой.
type Service struct {
	store       Store
	users       Users
	collections Collections
	referrals   ReferralEvaluator
	history     History
	notifier    Notifier
	resolver    *Resolver
}

// NewService создаёт сервис рулетки.
func NewService(
	store Store,
	userDir Users,
	collections Collections,
	referrals ReferralEvaluator,
	history History,
	notifier Notifier,
	resolver *Resolver,
) *Service {
	if resolver == nil {
		resolver = NewResolver(nil)
	}
	return &Service{
		store:       store,
		users:       userDir,
		collections: collections,
		referrals:   referrals,
		history:     history,
		notifier:    notifier,
		resolver:    resolver,
	}
}

// SpinRequest — входные данные спина.
type SpinRequest struct {
	SessionID string
	Variant   Variant
	Telegram  *users.TelegramProfile
}

// Spin выполняет полный цикл спина.
//
// Списание, запись спина, розыгрыш, награда и выигрыш идут одной транзакцией:
// при любой ошибке игрок не теряет деньги без записанного результата.
// Реферальные бонусы и уведомления идут уже после фиксации.
func (s *Service) Spin(ctx context.Context, req SpinRequest) (*Outcome, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, fmt.Errorf("%w: sessionId обязателен", common.ErrValidation)
	}

	user, err := s.users.EnsureBySession(ctx, req.SessionID, req.Telegram)
	if err != nil {
		return nil, err
	}

	var (
		spin      *Spin
		result    *Settlement
		spinCount int
	)
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		snap, err := tx.Settings(ctx)
		if err != nil {
			return err
		}

		cost := snap.CostFor(req.Variant.Premium())
		if err := tx.DebitRub(ctx, user.ID, cost); err != nil {
			return err
		}

		spin, err = tx.CreateSpin(ctx, user.ID, cost, req.Variant)
		if err != nil {
			return err
		}

		catalog, err := tx.ActivePrizes(ctx)
		if err != nil {
			return err
		}
		miss, err := tx.MissPrize(ctx)
		if err != nil {
			return err
		}

		table := BuildTable(catalog, req.Variant)
		if table.Total() > 100 {
			log.WithFields(log.Fields{
				"total":   table.Total(),
				"variant": req.Variant,
			}).Warn("Сумма шансов больше 100%, промах невозможен")
		}
		prize, _ := s.resolver.Draw(table, *miss)

		result, err = Settle(ctx, tx, user.ID, prize, spin, snap.DuplicateExchangeRate)
		if err != nil {
			return err
		}

		spinCount, err = tx.CountSpins(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":   user.ID,
		"spin_id":   spin.ID,
		"variant":   req.Variant,
		"cost":      spin.Cost,
		"prize":     result.Prize.Name,
		"missed":    result.Missed,
		"duplicate": result.IsDuplicate,
		"labu":      result.LabuCredited,
	}).Info("Спин")

	// Клиент мог отключиться, а бонус рефереру всё равно положен
	s.referrals.Evaluate(context.WithoutCancel(ctx), user.ID, spinCount)

	fresh, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	overview, err := s.collections.Overview(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.notifyOutcome(fresh, result, overview)

	return &Outcome{
		Spin:        spin,
		Settlement:  result,
		LabuBalance: fresh.LabuBalance,
		RubBalance:  fresh.RubBalance,
		TotalSpins:  spinCount,
		Collection:  overview,
	}, nil
}

// notifyOutcome шлёт игроку в Telegram новости о новой части,
// собранном наборе или джекпоте. Гостям без telegram_id не пишем.
func (s *Service) notifyOutcome(u *users.User, res *Settlement, overview collection.Overview) {
	if s.notifier == nil || u.TelegramID == nil {
		return
	}
	chatID := *u.TelegramID

	if res.NewPart && res.Prize.PartRarity != nil {
		st := overview.Collections.Normal
		title := "обычную"
		if *res.Prize.PartRarity == collection.RarityExclusive {
			st = overview.Collections.Collection
			title = "эксклюзивную"
		}
		if st.Complete {
			s.notifier.Notify(chatID, fmt.Sprintf("🏆 Вы собрали %s коллекцию Labubu! Загляните в профиль, чтобы получить приз.", title))
			return
		}
		s.notifier.Notify(chatID, fmt.Sprintf("🧩 Новая часть: %s. Собрано %d %s из %d.",
			res.Prize.Name, st.Progress, common.PluralizeParts(int64(st.Progress)), st.Total))
		return
	}

	if res.LabuCredited >= jackpotLabu && !res.IsDuplicate {
		s.notifier.Notify(chatID, fmt.Sprintf("💰 Джекпот! %s уже на вашем балансе.", common.FormatLabu(res.LabuCredited)))
	}
}

// RecentWins — лента последних ценных выигрышей.
func (s *Service) RecentWins(ctx context.Context, limit int) ([]RecentWin, error) {
	return s.store.RecentWins(ctx, limit)
}

// UserStats — игрок (создаётся при первом обращении) и его агрегаты.
type UserStats struct {
	User   *users.User    `json:"user"`
	Stats  Stats          `json:"stats"`
	Totals economy.Totals `json:"totals"`
}

// UserStats возвращает статистику игрока, создавая его при необходимости.
func (s *Service) UserStats(ctx context.Context, sessionID string, profile *users.TelegramProfile) (*UserStats, error) {
	user, err := s.users.EnsureBySession(ctx, sessionID, profile)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.Stats(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	totals, err := s.history.Totals(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &UserStats{User: user, Stats: stats, Totals: totals}, nil
}

// Profile — всё для экрана профиля.
type Profile struct {
	User         *users.User            `json:"user"`
	Stats        Stats                  `json:"stats"`
	Totals       economy.Totals         `json:"totals"`
	Collection   collection.Overview    `json:"collection"`
	RecentSpins  []SpinRecord           `json:"recentSpins"`
	Transactions []*economy.Transaction `json:"transactions"`
}

// Profile собирает профиль игрока.
func (s *Service) Profile(ctx context.Context, sessionID string) (*Profile, error) {
	user, err := s.users.EnsureBySession(ctx, sessionID, nil)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.Stats(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	overview, err := s.collections.Overview(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	spins, err := s.store.ListSpins(ctx, user.ID, 10)
	if err != nil {
		return nil, err
	}
	txs, totals, err := s.history.History(ctx, user.ID, 20)
	if err != nil {
		return nil, err
	}
	return &Profile{
		User:         user,
		Stats:        stats,
		Totals:       totals,
		Collection:   overview,
		RecentSpins:  spins,
		Transactions: txs,
	}, nil
}
