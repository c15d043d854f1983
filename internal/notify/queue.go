// Package notify — исходящие сообщения в Telegram через очередь.
// Игровые операции только ставят сообщение в очередь и никогда не ждут
// Telegram, поэтому сбой отправки не откатывает спин или платёж.
package notify

import (
	"context"
	"fmt"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/labubu-roulette/internal/bot/middleware"
	"serotonyl.ru/labubu-roulette/internal/common"
)

// Размер очереди по умолчанию
const defaultQueueSize = 256

// Sender — отправка сообщения. *tgbotapi.BotAPI подходит как есть.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type message struct {
	chatID int64
	text   string
}

// Queue — буферизованная очередь с одним воркером.
type Queue struct {
	sender  Sender
	ch      chan message
	dropped atomic.Int64
	sent    atomic.Int64
}

// NewQueue создаёт очередь. При size <= 0 берётся размер по умолчанию.
func NewQueue(sender Sender, size int) *Queue {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Queue{
		sender: sender,
		ch:     make(chan message, size),
	}
}

// Notify ставит сообщение в очередь. Никогда не блокируется:
// если очередь заполнена, сообщение отбрасывается.
func (q *Queue) Notify(chatID int64, text string) {
	select {
	case q.ch <- message{chatID: chatID, text: text}:
	default:
		q.dropped.Add(1)
		log.WithField("chat_id", chatID).Warn("Очередь уведомлений переполнена, сообщение отброшено")
	}
}

// Run отправляет сообщения, пока не отменён ctx.
func (q *Queue) Run(ctx context.Context) {
	log.Info("Очередь уведомлений запущена")
	for {
		select {
		case <-ctx.Done():
			log.WithField("pending", len(q.ch)).Info("Очередь уведомлений остановлена")
			return
		case m := <-q.ch:
			q.send(m)
		}
	}
}

func (q *Queue) send(m message) {
	defer middleware.RecoverFromPanic("notify")

	msg := tgbotapi.NewMessage(m.chatID, m.text)
	if _, err := q.sender.Send(msg); err != nil {
		log.WithError(fmt.Errorf("%w: %v", common.ErrExternalService, err)).
			WithField("chat_id", m.chatID).
			Warn("Не удалось отправить уведомление")
		return
	}
	q.sent.Add(1)
	log.WithField("chat_id", m.chatID).Debug("Уведомление отправлено")
}

// Stats — сколько сообщений отправлено и отброшено.
func (q *Queue) Stats() (sent, dropped int64) {
	return q.sent.Load(), q.dropped.Load()
}
