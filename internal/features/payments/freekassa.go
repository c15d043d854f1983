package payments

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"serotonyl.ru/labubu-roulette/internal/common"
	"serotonyl.ru/labubu-roulette/internal/config"
)

// Валюта заказов FreeKassa
const freeKassaCurrency = "RUB"

// FreeKassa подписывает ссылки на оплату и проверяет уведомления.
type FreeKassa struct {
	merchantID string
	secret1    string
	secret2    string
	payURL     string
}

// NewFreeKassa возвращает nil, если реквизиты магазина не заданы.
func NewFreeKassa(cfg *config.Config) *FreeKassa {
	if !cfg.FreeKassaEnabled() {
		return nil
	}
	return &FreeKassa{
		merchantID: strings.TrimSpace(cfg.FreeKassaMerchantID),
		secret1:    strings.TrimSpace(cfg.FreeKassaSecret1),
		secret2:    strings.TrimSpace(cfg.FreeKassaSecret2),
		payURL:     cfg.FreeKassaPayURL,
	}
}

// sign — md5 от частей через двоеточие, в верхнем регистре.
func sign(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, ":")))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// FormatAmount — сумма в формате FreeKassa: два знака после точки,
// но без «.00» для целых рублей (199, 199.50).
func FormatAmount(amount decimal.Decimal) string {
	return strings.TrimSuffix(amount.StringFixed(2), ".00")
}

// NewOrderID — номер заказа вида <unix-ms>_<8 символов uuid>.
func NewOrderID(now time.Time) string {
	return fmt.Sprintf("%d_%s", now.UnixMilli(), uuid.NewString()[:8])
}

// Link строит SCI-ссылку на оплату.
// Подпись: md5(m:oa:secret1:currency:o).
func (f *FreeKassa) Link(sessionID string, product Product, amount decimal.Decimal, orderID string) (string, error) {
	u, err := url.Parse(f.payURL)
	if err != nil {
		return "", fmt.Errorf("ошибка адреса FreeKassa: %w", err)
	}
	oa := FormatAmount(amount)

	q := url.Values{}
	q.Set("m", f.merchantID)
	q.Set("oa", oa)
	q.Set("o", orderID)
	q.Set("currency", freeKassaCurrency)
	q.Set("us_session", sessionID)
	q.Set("us_product", string(product))
	q.Set("s", sign(f.merchantID, oa, f.secret1, freeKassaCurrency, orderID))
	q.Set("lang", "ru")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Notification — проверенное уведомление об оплате.
type Notification struct {
	OrderID   string
	Amount    decimal.Decimal
	SessionID string
	Product   Product
}

func firstOf(form url.Values, keys ...string) string {
	for _, k := range keys {
		if v := form.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// Verify проверяет подпись уведомления:
// SIGN == upper(md5(MERCHANT_ID:AMOUNT:secret2:MERCHANT_ORDER_ID)).
func (f *FreeKassa) Verify(form url.Values) (*Notification, error) {
	got := strings.ToUpper(firstOf(form, "SIGN", "SIGNATURE"))
	merchantID := firstOf(form, "MERCHANT_ID", "MERCHANT_ID1")
	amountRaw := firstOf(form, "AMOUNT", "AMOUNT_RUB")
	orderID := firstOf(form, "MERCHANT_ORDER_ID", "ORDER_ID")

	want := sign(merchantID, amountRaw, f.secret2, orderID)
	if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return nil, common.ErrBadSignature
	}
	if merchantID != f.merchantID {
		return nil, fmt.Errorf("%w: чужой магазин %q", common.ErrBadSignature, merchantID)
	}

	amount, err := decimal.NewFromString(amountRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: сумма %q", common.ErrInvalidAmount, amountRaw)
	}
	product, err := ParseProduct(firstOf(form, "us_product"))
	if err != nil {
		return nil, err
	}

	return &Notification{
		OrderID:   orderID,
		Amount:    amount,
		SessionID: firstOf(form, "us_session"),
		Product:   product,
	}, nil
}
