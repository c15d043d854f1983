// Package bot — Telegram-бот рулетки: приветствие с кнопкой Mini App
// и приём оплаты звёздами. bot.go содержит цикл получения апдейтов.
package bot

import (
	"context"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/labubu-roulette/internal/bot/filters"
	"serotonyl.ru/labubu-roulette/internal/bot/middleware"
	"serotonyl.ru/labubu-roulette/internal/config"
	"serotonyl.ru/labubu-roulette/internal/features/payments"
)

// API — методы Bot API, которые использует бот. *tgbotapi.BotAPI подходит как есть.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// StarsConfirmer зачисляет успешную оплату звёздами.
type StarsConfirmer interface {
	ConfirmStars(ctx context.Context, sp payments.StarsPayment) error
}

// Notifier ставит сообщение в очередь отправки.
type Notifier interface {
	Notify(chatID int64, text string)
}

// Limiter ограничивает частоту приветствий на пользователя.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// Bot — главная структура бота.
type Bot struct {
	api      API
	cfg      *config.Config
	filter   *filters.ChatFilter
	payments StarsConfirmer
	notifier Notifier
	limiter  Limiter

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт бота. limiter может быть nil.
func New(api API, cfg *config.Config, stars StarsConfirmer, notifier Notifier, limiter Limiter) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:      api,
		cfg:      cfg,
		filter:   filters.NewChatFilter(),
		payments: stars,
		notifier: notifier,
		limiter:  limiter,
		inflight: make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram и блокируется до отмены ctx.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds
	u.AllowedUpdates = []string{"message", "pre_checkout_query"}

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": cap(b.inflight),
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic("bot")

	middleware.LogUpdate(update)

	if update.PreCheckoutQuery != nil {
		b.handlePreCheckout(update.PreCheckoutQuery)
		return
	}

	message := update.Message
	if message == nil {
		return
	}
	if message.SuccessfulPayment != nil {
		b.handleSuccessfulPayment(ctx, message)
		return
	}

	if !b.filter.CheckAccess(message) || message.Text == "" {
		return
	}
	if !b.allow(ctx, message.From.ID) {
		return
	}

	// Приветствие на /start и на любое сообщение: другой переписки у бота нет
	var referralCode string
	if message.IsCommand() && message.Command() == "start" {
		referralCode = referralFromStart(message.CommandArguments())
	}
	if err := b.sendWelcome(message.Chat.ID, referralCode); err != nil {
		log.WithError(err).WithField("chat_id", message.Chat.ID).Error("Ошибка отправки приветствия")
	}
}

func (b *Bot) allow(ctx context.Context, userID int64) bool {
	if b.limiter == nil {
		return true
	}
	ok, _, err := b.limiter.Allow(ctx, "bot:"+strconv.FormatInt(userID, 10))
	if err != nil {
		log.WithError(err).Warn("Rate limit бота недоступен")
		return true
	}
	if !ok {
		log.WithField("user_id", userID).Debug("rate limited")
	}
	return ok
}

func (b *Bot) notify(chatID int64, text string) {
	if b.notifier != nil {
		b.notifier.Notify(chatID, text)
	}
}
