// Package middleware содержит общие обёртки для обработчиков бота
// и фоновых воркеров: логирование апдейтов и восстановление после паники.
package middleware

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Сколько символов текста попадает в лог
const logTextLimit = 50

// LogUpdate логирует входящий апдейт: сообщение, pre-checkout или оплату.
func LogUpdate(update tgbotapi.Update) {
	fields := log.Fields{"update_id": update.UpdateID}

	switch {
	case update.PreCheckoutQuery != nil:
		q := update.PreCheckoutQuery
		fields["kind"] = "pre_checkout"
		fields["user_id"] = q.From.ID
		fields["amount"] = q.TotalAmount
		fields["currency"] = q.Currency

	case update.Message != nil && update.Message.SuccessfulPayment != nil:
		p := update.Message.SuccessfulPayment
		fields["kind"] = "successful_payment"
		fields["chat_id"] = update.Message.Chat.ID
		fields["amount"] = p.TotalAmount
		fields["currency"] = p.Currency

	case update.Message != nil:
		m := update.Message
		fields["kind"] = "message"
		fields["chat_id"] = m.Chat.ID
		if m.From != nil {
			fields["user_id"] = m.From.ID
			fields["username"] = m.From.UserName
		}
		fields["text"] = truncate(m.Text, logTextLimit)

	default:
		fields["kind"] = "other"
	}

	log.WithFields(fields).Debug("Входящий апдейт")
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
