// Package admin реализует вход в админку по паролю и ручную обработку
// выигрышей, настроек и каталога призов.
// models.go описывает сессии и попытки входа.
package admin

import "time"

// Лимиты входа: после maxFailedAttempts неудачных попыток с одного адреса
// вход закрыт на attemptsWindow.
const (
	maxFailedAttempts = 3
	attemptsWindow    = time.Hour
)

// Session — активная сессия администратора. Token передаётся
// в заголовке Authorization: Bearer <token>.
type Session struct {
	ID              int64     `json:"-"`
	Token           string    `json:"token"`
	ClientIP        string    `json:"-"`
	AuthenticatedAt time.Time `json:"authenticatedAt"`
	ExpiresAt       time.Time `json:"expiresAt"`
	LastActivity    time.Time `json:"-"`
}

// Expired — истекла ли сессия к моменту now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// LoginAttempt — попытка входа (для защиты от brute-force).
type LoginAttempt struct {
	ClientIP    string
	AttemptTime time.Time
	Success     bool
}
