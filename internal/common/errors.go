// Package common — errors.go определяет ошибки, общие для всех модулей рулетки.
// HTTP-слой по ним выбирает статус ответа и машинный код для клиента.
package common

import "errors"

// Базовая классификация ошибок
var (
	// ErrValidation — отсутствуют или некорректны поля запроса (400)
	ErrValidation = errors.New("некорректный запрос")
	// ErrNotFound — запрошенная сущность не найдена (404)
	ErrNotFound = errors.New("не найдено")
	// ErrConflict — конфликт уникальности, обрабатывается внутри и наружу не уходит
	ErrConflict = errors.New("конфликт уникальности")
	// ErrExternalService — сбой Telegram или платёжного шлюза, только логируется
	ErrExternalService = errors.New("внешний сервис недоступен")
	// ErrRateLimited — слишком частые запросы (429)
	ErrRateLimited = errors.New("Слишком много запросов, попробуйте позже")
)

// Ошибки баланса
var (
	// ErrInsufficientFunds — на рублёвом балансе не хватает на спин (402)
	ErrInsufficientFunds = errors.New("Недостаточно средств на балансе")
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная)
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrUserNotFound — пользователь не найден в базе
	ErrUserNotFound = errors.New("пользователь не найден")
)

// Ошибки реферальной программы
var (
	ErrReferralAlreadyUsed  = errors.New("Вы уже использовали промокод!")
	ErrReferralCodeNotFound = errors.New("Промокод не найден!")
	ErrReferralSelf         = errors.New("Нельзя использовать свой собственный промокод!")
)

// Ошибки платежей
var (
	// ErrBadSignature — подпись уведомления не сошлась
	ErrBadSignature = errors.New("неверная подпись платежа")
	// ErrUnknownProduct — неизвестный товар в платеже
	ErrUnknownProduct = errors.New("неизвестный товар")
	// ErrPaymentsDisabled — платёжный шлюз не настроен
	ErrPaymentsDisabled = errors.New("оплата временно недоступна")
)

// Ошибки админки
var (
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired — сессия истекла
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново")
	// ErrUnknownSetting — ключ настройки не поддерживается
	ErrUnknownSetting = errors.New("неизвестная настройка")
)
