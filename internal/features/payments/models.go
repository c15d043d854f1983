// Package payments — пополнение баланса: FreeKassa (SCI-ссылка и
// уведомление об оплате) и Telegram Stars (счёт и подтверждение).
package payments

import (
	"fmt"
	"time"

	"serotonyl.ru/labubu-roulette/internal/common"
)

// Provider — платёжный шлюз.
type Provider string

const (
	ProviderFreeKassa Provider = "freekassa"
	ProviderStars     Provider = "stars"
)

// Product — что покупает игрок.
type Product string

const (
	ProductTopUpRub Product = "topup_rub" // пополнение рублёвого кошелька
	ProductSpins10  Product = "spins_10"  // десять обычных спинов на рублёвый баланс
	ProductLabu5000 Product = "labu_5000" // пакет ЛАБУ
	ProductSpin     Product = "spin"      // один спин за звёзды
)

// Сколько ЛАБУ в пакете labu_5000 и спинов в spins_10
const (
	labuPackAmount = 5000
	spinsPackSize  = 10
)

// ParseProduct разбирает товар из ссылки. Пустая строка означает spins_10.
func ParseProduct(s string) (Product, error) {
	switch Product(s) {
	case "":
		return ProductSpins10, nil
	case ProductTopUpRub, ProductSpins10, ProductLabu5000:
		return Product(s), nil
	}
	return "", fmt.Errorf("%w: %q", common.ErrUnknownProduct, s)
}

// Payment — обработанный платёж. (provider, order_id) уникальны:
// повторное уведомление о том же заказе ничего не начисляет.
type Payment struct {
	ID        int64     `json:"id"`
	Provider  Provider  `json:"provider"`
	OrderID   string    `json:"orderId"`
	UserID    int64     `json:"userId"`
	Product   Product   `json:"product"`
	Amount    int64     `json:"amount"` // копейки или звёзды
	CreatedAt time.Time `json:"createdAt"`
}

// StarsPayload — payload счёта в звёздах, возвращается ботом при оплате.
type StarsPayload struct {
	T         int64  `json:"t"`
	SessionID string `json:"sessionId"`
	SpinType  string `json:"spinType"`
}

// StarsPayment — данные успешной оплаты из апдейта бота.
type StarsPayment struct {
	ChargeID    string
	Payload     string
	Currency    string
	TotalAmount int
	TelegramID  int64
}
