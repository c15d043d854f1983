// Package payments — service.go: начисления по оплаченным заказам.
package payments

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/labubu-roulette/internal/common"
	"serotonyl.ru/labubu-roulette/internal/features/economy"
	"serotonyl.ru/labubu-roulette/internal/features/roulette"
	"serotonyl.ru/labubu-roulette/internal/features/settings"
	"serotonyl.ru/labubu-roulette/internal/features/users"
)

// Tx — записи одного платежа.
type Tx interface {
	// InsertPayment возвращает false, если заказ уже обработан.
	InsertPayment(ctx context.Context, p *Payment) (bool, error)
	Settings(ctx context.Context) (settings.Snapshot, error)
	CreditRub(ctx context.Context, userID, amount int64) error
	CreditLabu(ctx context.Context, userID, amount int64, txType, description string, relatedID *int64) error
}

// Store — хранилище платежей.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Settings(ctx context.Context) (settings.Snapshot, error)
}

// Users — игроки.
type Users interface {
	EnsureBySession(ctx context.Context, sessionID string, profile *users.TelegramProfile) (*users.User, error)
}

// Notifier ставит сообщение в очередь Telegram.
type Notifier interface {
	Notify(chatID int64, text string)
}

// Service обрабатывает платежи.
type Service struct {
	store     Store
	users     Users
	freeKassa *FreeKassa
	invoices  InvoiceAPI
	notifier  Notifier
	now       func() time.Time
}

// NewService создаёт платёжный сервис. При freeKassa == nil FreeKassa отключена.
func NewService(store Store, userDir Users, freeKassa *FreeKassa, invoices InvoiceAPI, notifier Notifier) *Service {
	return &Service{
		store:     store,
		users:     userDir,
		freeKassa: freeKassa,
		invoices:  invoices,
		notifier:  notifier,
		now:       time.Now,
	}
}

// LinkRequest — запрос ссылки на оплату FreeKassa.
type LinkRequest struct {
	SessionID string
	AmountRub decimal.Decimal
	Product   string
}

// CreateLink возвращает ссылку на оплату и номер заказа.
func (s *Service) CreateLink(_ context.Context, req LinkRequest) (string, string, error) {
	if s.freeKassa == nil {
		return "", "", common.ErrPaymentsDisabled
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return "", "", fmt.Errorf("%w: sessionId обязателен", common.ErrValidation)
	}
	if !req.AmountRub.IsPositive() {
		return "", "", common.ErrInvalidAmount
	}
	product, err := ParseProduct(req.Product)
	if err != nil {
		return "", "", err
	}

	orderID := NewOrderID(s.now())
	link, err := s.freeKassa.Link(req.SessionID, product, req.AmountRub, orderID)
	if err != nil {
		return "", "", err
	}

	log.WithFields(log.Fields{
		"session":  req.SessionID,
		"order_id": orderID,
		"product":  product,
		"amount":   FormatAmount(req.AmountRub),
	}).Info("Создана ссылка FreeKassa")
	return link, orderID, nil
}

// HandleFreeKassa проверяет уведомление и начисляет товар.
// Повтор уведомления по тому же заказу ничего не меняет.
func (s *Service) HandleFreeKassa(ctx context.Context, form url.Values) error {
	if s.freeKassa == nil {
		return common.ErrPaymentsDisabled
	}
	n, err := s.freeKassa.Verify(form)
	if err != nil {
		return err
	}
	if strings.TrimSpace(n.SessionID) == "" {
		// Оплата без сессии: деньги пришли, но начислять некому
		log.WithField("order_id", n.OrderID).Warn("Уведомление FreeKassa без us_session")
		return nil
	}

	user, err := s.users.EnsureBySession(ctx, n.SessionID, nil)
	if err != nil {
		return err
	}

	kopecks := n.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	payment := &Payment{
		Provider: ProviderFreeKassa,
		OrderID:  n.OrderID,
		UserID:   user.ID,
		Product:  n.Product,
		Amount:   kopecks,
	}

	applied := false
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		inserted, err := tx.InsertPayment(ctx, payment)
		if err != nil || !inserted {
			return err
		}
		if err := applyProduct(ctx, tx, payment); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка зачисления заказа %s: %w", n.OrderID, err)
	}

	entry := log.WithFields(log.Fields{
		"user_id":  user.ID,
		"order_id": n.OrderID,
		"product":  n.Product,
		"amount":   kopecks,
	})
	if !applied {
		entry.Info("Повторное уведомление FreeKassa, пропускаем")
		return nil
	}
	entry.Info("Оплата FreeKassa зачислена")
	s.notify(user, receiptText(n.Product, kopecks, s.now()))
	return nil
}

func receiptText(product Product, kopecks int64, at time.Time) string {
	what := common.FormatRub(kopecks)
	switch product {
	case ProductSpins10:
		what += fmt.Sprintf(" (%d %s)", spinsPackSize, common.PluralizeSpins(spinsPackSize))
	case ProductLabu5000:
		what += fmt.Sprintf(" (%s)", common.FormatLabu(labuPackAmount))
	}
	return fmt.Sprintf("✅ Оплата получена: %s\n🕒 %s", what, common.FormatDateTime(at))
}

// applyProduct начисляет купленное внутри транзакции платежа.
func applyProduct(ctx context.Context, tx Tx, p *Payment) error {
	switch p.Product {
	case ProductTopUpRub:
		if p.Amount <= 0 {
			return common.ErrInvalidAmount
		}
		return tx.CreditRub(ctx, p.UserID, p.Amount)

	case ProductSpins10:
		snap, err := tx.Settings(ctx)
		if err != nil {
			return err
		}
		return tx.CreditRub(ctx, p.UserID, snap.SpinCost*spinsPackSize)

	case ProductLabu5000:
		paymentID := p.ID
		return tx.CreditLabu(ctx, p.UserID, labuPackAmount, economy.TxPurchase, "Покупка 5000 ЛАБУ (FreeKassa)", &paymentID)
	}
	return fmt.Errorf("%w: %q", common.ErrUnknownProduct, p.Product)
}

// CreateStarsInvoice возвращает ссылку на счёт в звёздах за один спин.
func (s *Service) CreateStarsInvoice(ctx context.Context, sessionID string, variant roulette.Variant) (string, int64, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", 0, fmt.Errorf("%w: sessionId обязателен", common.ErrValidation)
	}
	if s.invoices == nil {
		return "", 0, common.ErrPaymentsDisabled
	}
	snap, err := s.store.Settings(ctx)
	if err != nil {
		return "", 0, err
	}
	stars := snap.StarsFor(variant.Premium())

	link, err := createInvoiceLink(s.invoices, StarsPayload{
		T:         s.now().UnixMilli(),
		SessionID: sessionID,
		SpinType:  string(variant),
	}, stars, variant.Premium())
	if err != nil {
		return "", 0, err
	}
	return link, stars, nil
}

// ConfirmStars зачисляет оплаченный звёздами спин: на рублёвый баланс
// приходит стоимость спина этого вида. Повтор по тому же charge id
// ничего не меняет.
func (s *Service) ConfirmStars(ctx context.Context, sp StarsPayment) error {
	if sp.Currency != starsCurrency {
		return fmt.Errorf("%w: валюта %q", common.ErrValidation, sp.Currency)
	}
	payload, err := ParseStarsPayload(sp.Payload)
	if err != nil {
		return err
	}
	variant, err := roulette.ParseVariant(payload.SpinType)
	if err != nil {
		return err
	}

	var profile *users.TelegramProfile
	if sp.TelegramID != 0 {
		profile = &users.TelegramProfile{ID: sp.TelegramID}
	}
	user, err := s.users.EnsureBySession(ctx, payload.SessionID, profile)
	if err != nil {
		return err
	}

	var (
		credited int64
		applied  bool
	)
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		inserted, err := tx.InsertPayment(ctx, &Payment{
			Provider: ProviderStars,
			OrderID:  sp.ChargeID,
			UserID:   user.ID,
			Product:  ProductSpin,
			Amount:   int64(sp.TotalAmount),
		})
		if err != nil || !inserted {
			return err
		}
		snap, err := tx.Settings(ctx)
		if err != nil {
			return err
		}
		credited = snap.CostFor(variant.Premium())
		if err := tx.CreditRub(ctx, user.ID, credited); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка зачисления оплаты звёздами: %w", err)
	}
	if !applied {
		log.WithField("charge_id", sp.ChargeID).Info("Повторная оплата звёздами, пропускаем")
		return nil
	}

	log.WithFields(log.Fields{
		"user_id":   user.ID,
		"charge_id": sp.ChargeID,
		"stars":     sp.TotalAmount,
		"variant":   variant,
		"credited":  credited,
	}).Info("Оплата звёздами зачислена")
	return nil
}

func (s *Service) notify(u *users.User, text string) {
	if s.notifier != nil && u.TelegramID != nil {
		s.notifier.Notify(*u.TelegramID, text)
	}
}
