// Package users — service.go: поиск-или-создание игрока по sessionId.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/labubu-roulette/internal/common"
	"serotonyl.ru/labubu-roulette/internal/db/postgres"
)

// Сколько раз пробуем сгенерировать свободный реферальный код
const referralCodeAttempts = 5

// Service связывает HTTP-обработчики с таблицей users.
type Service struct {
	repo *Repository
}

// NewService создаёт сервис игроков.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// EnsureBySession находит игрока по sessionId или создаёт нового.
// Гость получает имя «Игрок xxxxx»; игрок из Telegram получает своё имя.
// При повторном входе из Telegram к гостевой записи дописывается telegram_id.
func (s *Service) EnsureBySession(ctx context.Context, sessionID string, profile *TelegramProfile) (*User, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionId обязателен", common.ErrValidation)
	}

	u, err := s.repo.GetBySession(ctx, sessionID)
	if err == nil {
		if profile != nil && profile.ID != 0 && u.TelegramID == nil {
			attached, err := s.repo.AttachTelegram(ctx, u.ID, profile)
			if err != nil {
				return nil, err
			}
			if !attached {
				log.WithFields(log.Fields{
					"user_id":     u.ID,
					"telegram_id": profile.ID,
				}).Warn("Telegram-аккаунт уже привязан к другой сессии, оставляем гостя")
				return u, nil
			}
			return s.repo.GetByID(ctx, u.ID)
		}
		return u, nil
	}
	if !errors.Is(err, common.ErrUserNotFound) {
		return nil, err
	}

	return s.create(ctx, sessionID, profile)
}

// create добавляет игрока. Если telegram_id уже занят другой сессией,
// запись создаётся гостевой, без Telegram-данных.
func (s *Service) create(ctx context.Context, sessionID string, profile *TelegramProfile) (*User, error) {
	withTelegram := profile != nil && profile.ID != 0
	for attempt := 1; attempt <= referralCodeAttempts; attempt++ {
		u := &User{
			SessionID:    sessionID,
			Name:         GuestName(),
			ReferralCode: NewReferralCode(),
		}
		if withTelegram {
			id := profile.ID
			u.TelegramID = &id
			if name := profile.DisplayName(); name != "" {
				u.Name = name
			}
			if profile.Username != "" {
				username := profile.Username
				u.Username = &username
			}
		}

		created, err := s.repo.Create(ctx, u)
		if err != nil {
			switch {
			case postgres.IsConstraintViolation(err, referralCodeConstraint):
				log.WithField("attempt", attempt).Warn("Реферальный код занят, генерируем новый")
				continue
			case withTelegram && postgres.IsConstraintViolation(err, telegramIDConstraint):
				log.WithFields(log.Fields{
					"session_id":  sessionID,
					"telegram_id": profile.ID,
				}).Warn("Telegram-аккаунт уже привязан к другой сессии, создаём гостя")
				withTelegram = false
				continue
			}
			return nil, err
		}
		if !created {
			// Параллельный запрос с тем же sessionId успел первым
			return s.repo.GetBySession(ctx, sessionID)
		}

		log.WithFields(log.Fields{
			"user_id":       u.ID,
			"session_id":    sessionID,
			"referral_code": u.ReferralCode,
		}).Info("Новый игрок")
		return u, nil
	}
	return nil, fmt.Errorf("не удалось подобрать реферальный код за %d попыток: %w", referralCodeAttempts, common.ErrConflict)
}

// GetBySession ищет существующего игрока без создания.
func (s *Service) GetBySession(ctx context.Context, sessionID string) (*User, error) {
	return s.repo.GetBySession(ctx, sessionID)
}

// GetByID ищет игрока по внутреннему ID.
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// NewReferralCode — 8 символов верхнего регистра из UUID.
func NewReferralCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:8])
}

// GuestName — «Игрок» и 5 случайных символов.
func GuestName() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "Игрок " + raw[:5]
}
