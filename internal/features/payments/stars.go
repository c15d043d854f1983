package payments

import (
	"encoding/json"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"serotonyl.ru/labubu-roulette/internal/common"
)

// Валюта Telegram Stars
const starsCurrency = "XTR"

// InvoiceAPI — метод Bot API, которого нет в типизированных конфигах
// библиотеки. *tgbotapi.BotAPI подходит как есть.
type InvoiceAPI interface {
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

type invoiceText struct {
	title       string
	description string
	label       string
}

func invoiceTextFor(premium bool) invoiceText {
	if premium {
		return invoiceText{"Premium Spin ×2", "Премиум спин: x2 шанс на части", "Premium Spin"}
	}
	return invoiceText{"Spin", "Обычный спин", "Spin"}
}

// createInvoiceLink запрашивает ссылку на счёт в звёздах.
func createInvoiceLink(api InvoiceAPI, payload StarsPayload, stars int64, premium bool) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("ошибка сборки payload: %w", err)
	}
	text := invoiceTextFor(premium)

	params := tgbotapi.Params{}
	params.AddNonEmpty("title", text.title)
	params.AddNonEmpty("description", text.description)
	params.AddNonEmpty("payload", string(raw))
	params.AddNonEmpty("currency", starsCurrency)
	if err := params.AddInterface("prices", []tgbotapi.LabeledPrice{{Label: text.label, Amount: int(stars)}}); err != nil {
		return "", fmt.Errorf("ошибка сборки цены: %w", err)
	}

	resp, err := api.MakeRequest("createInvoiceLink", params)
	if err != nil {
		return "", fmt.Errorf("%w: createInvoiceLink: %v", common.ErrExternalService, err)
	}

	var link string
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("%w: неожиданный ответ createInvoiceLink", common.ErrExternalService)
	}
	return link, nil
}

// ParseStarsPayload разбирает payload оплаченного счёта.
func ParseStarsPayload(raw string) (StarsPayload, error) {
	var p StarsPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, fmt.Errorf("%w: payload счёта", common.ErrValidation)
	}
	if strings.TrimSpace(p.SessionID) == "" {
		return p, fmt.Errorf("%w: в payload нет sessionId", common.ErrValidation)
	}
	return p, nil
}
