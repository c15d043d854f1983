// Package admin — service.go содержит логику аутентификации и управления сессиями.
package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"serotonyl.ru/labubu-roulette/internal/common"
)

// Store — хранилище сессий и попыток входа.
type Store interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, token string) (*Session, error)
	DeleteSession(ctx context.Context, token string) error
	UpdateActivity(ctx context.Context, token string) error
	LogAttempt(ctx context.Context, clientIP string, success bool) error
	CountFailedAttempts(ctx context.Context, clientIP string, since time.Time) (int, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Service управляет входом в админку.
type Service struct {
	store        Store
	passwordHash string
	sessionTTL   time.Duration
	now          func() time.Time
}

// NewService создаёт сервис админки.
func NewService(store Store, passwordHash string, sessionTTL time.Duration) *Service {
	return &Service{
		store:        store,
		passwordHash: passwordHash,
		sessionTTL:   sessionTTL,
		now:          time.Now,
	}
}

// Login проверяет пароль администратора (Argon2id) и открывает сессию.
// Включает защиту от brute-force: 3 неудачные попытки с адреса = блокировка на 1 час.
func (s *Service) Login(ctx context.Context, clientIP, password string) (*Session, error) {
	attempts, err := s.store.CountFailedAttempts(ctx, clientIP, s.now().Add(-attemptsWindow))
	if err != nil {
		return nil, err
	}
	if attempts >= maxFailedAttempts {
		log.WithField("ip", clientIP).Warn("Вход в админку заблокирован")
		return nil, common.ErrTooManyAttempts
	}

	match := verifyArgon2id(password, s.passwordHash)

	if err := s.store.LogAttempt(ctx, clientIP, match); err != nil {
		log.WithError(err).Warn("Не удалось записать попытку входа")
	}

	if !match {
		log.WithField("ip", clientIP).Warn("Неверный пароль админки")
		return nil, common.ErrWrongPassword
	}

	session := &Session{
		Token:     generateSecureToken(),
		ClientIP:  clientIP,
		ExpiresAt: s.now().Add(s.sessionTTL),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	log.WithField("ip", clientIP).Info("Вход в админку")
	return session, nil
}

// Authenticate проверяет токен и продлевает активность сессии.
func (s *Service) Authenticate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, common.ErrSessionExpired
	}
	session, err := s.store.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		return nil, common.ErrSessionExpired
	}
	if err := s.store.UpdateActivity(ctx, token); err != nil {
		log.WithError(err).Warn("Не удалось обновить активность сессии")
	}
	return session, nil
}

// Logout завершает сессию.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

// PurgeExpired удаляет истёкшие сессии. Вызывается по расписанию.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.WithField("count", n).Info("Удалены истёкшие сессии админки")
	}
	return n, nil
}

// --- Криптографические утилиты ---

// Параметры Argon2id для новых хешей
const (
	argonMemory      uint32 = 64 * 1024
	argonIterations  uint32 = 3
	argonParallelism uint8  = 2
	argonKeyLength   uint32 = 32
	argonSaltLength         = 16
)

// HashPassword возвращает хеш Argon2id в формате
// $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("ошибка генерации соли: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, argonIterations, argonMemory, argonParallelism, argonKeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonIterations, argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// verifyArgon2id проверяет пароль по хешу Argon2id.
func verifyArgon2id(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}

// generateSecureToken генерирует случайный токен сессии.
func generateSecureToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}
