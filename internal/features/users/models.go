// Package users управляет игроками: поиск и создание по sessionId,
// реферальные коды и связь «кто кого пригласил».
package users

import (
	"strings"
	"time"
)

// User — игрок рулетки.
// Балансы хранятся прямо в строке для быстрых чтений: ЛАБУ в штуках,
// рубли в копейках. Изменяются только через пакет economy.
type User struct {
	ID               int64     `json:"id"`
	SessionID        string    `json:"sessionId"`
	TelegramID       *int64    `json:"telegramId,omitempty"`
	Name             string    `json:"name"`
	Username         *string   `json:"username,omitempty"`
	LabuBalance      int64     `json:"labuBalance"`
	RubBalance       int64     `json:"rubBalance"`
	ReferralCode     string    `json:"referralCode"`
	ReferredByID     *int64    `json:"referredById,omitempty"`
	ReferralEarnings int64     `json:"referralEarnings"`
	CreatedAt        time.Time `json:"createdAt"`
}

// TelegramProfile — данные initData Mini App, если игрок пришёл из Telegram.
type TelegramProfile struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// DisplayName возвращает имя для профиля: имя + фамилия или @username.
func (p *TelegramProfile) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	if name != "" {
		return name
	}
	if p.Username != "" {
		return "@" + p.Username
	}
	return ""
}

// MaskedName — имя для публичной ленты выигрышей: первые 8 символов и "...".
func (u *User) MaskedName() string {
	return MaskName(u.Name)
}

// MaskName обрезает имя до 8 рун и добавляет многоточие.
func MaskName(name string) string {
	r := []rune(name)
	if len(r) > 8 {
		r = r[:8]
	}
	return string(r) + "..."
}
