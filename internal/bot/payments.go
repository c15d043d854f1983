package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/labubu-roulette/internal/features/payments"
)

// handlePreCheckout подтверждает счёт в звёздах, если payload наш.
// Telegram ждёт ответа не дольше 10 секунд.
func (b *Bot) handlePreCheckout(q *tgbotapi.PreCheckoutQuery) {
	answer := tgbotapi.PreCheckoutConfig{PreCheckoutQueryID: q.ID, OK: true}
	if _, err := payments.ParseStarsPayload(q.InvoicePayload); err != nil || q.Currency != "XTR" {
		answer.OK = false
		answer.ErrorMessage = "Счёт устарел, откройте рулетку и попробуйте снова"
		log.WithFields(log.Fields{
			"query_id": q.ID,
			"currency": q.Currency,
		}).Warn("Отклонён pre-checkout с чужим payload")
	}

	if _, err := b.api.Request(answer); err != nil {
		log.WithError(err).WithField("query_id", q.ID).Error("Ошибка ответа на pre-checkout")
	}
}

// handleSuccessfulPayment зачисляет оплаченный спин.
func (b *Bot) handleSuccessfulPayment(ctx context.Context, msg *tgbotapi.Message) {
	p := msg.SuccessfulPayment
	var telegramID int64
	if msg.From != nil {
		telegramID = msg.From.ID
	}

	err := b.payments.ConfirmStars(ctx, payments.StarsPayment{
		ChargeID:    p.TelegramPaymentChargeID,
		Payload:     p.InvoicePayload,
		Currency:    p.Currency,
		TotalAmount: p.TotalAmount,
		TelegramID:  telegramID,
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"charge_id": p.TelegramPaymentChargeID,
			"chat_id":   msg.Chat.ID,
		}).Error("Не удалось зачислить оплату звёздами")
		b.notify(msg.Chat.ID, "⚠️ Оплата получена, но зачисление задержалось. Мы уже разбираемся.")
		return
	}
	b.notify(msg.Chat.ID, "⭐ Оплата прошла! Спин зачислен на баланс, возвращайтесь в рулетку.")
}
