package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"serotonyl.ru/labubu-roulette/internal/common"
	"serotonyl.ru/labubu-roulette/internal/features/economy"
	"serotonyl.ru/labubu-roulette/internal/features/roulette"
	"serotonyl.ru/labubu-roulette/internal/features/settings"
	"serotonyl.ru/labubu-roulette/internal/features/users"
)

type paymentKey struct {
	provider Provider
	orderID  string
}

// memStore — платежи и балансы в памяти.
type memStore struct {
	snap     settings.Snapshot
	payments map[paymentKey]Payment
	rub      int64
	labu     int64
	labuTxs  []string
}

func newMemStore() *memStore {
	return &memStore{
		snap:     settings.Snapshot{SpinCost: 12000, PremiumSpinCost: 19900, SpinCostStars: 120, PremiumSpinCostStars: 199},
		payments: map[paymentKey]Payment{},
	}
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	saved := *m
	saved.payments = make(map[paymentKey]Payment, len(m.payments))
	for k, v := range m.payments {
		saved.payments[k] = v
	}
	if err := fn(ctx, m); err != nil {
		*m = saved
		return err
	}
	return nil
}

func (m *memStore) Settings(context.Context) (settings.Snapshot, error) { return m.snap, nil }

func (m *memStore) InsertPayment(_ context.Context, p *Payment) (bool, error) {
	k := paymentKey{p.Provider, p.OrderID}
	if _, ok := m.payments[k]; ok {
		return false, nil
	}
	p.ID = int64(len(m.payments) + 1)
	m.payments[k] = *p
	return true, nil
}

func (m *memStore) CreditRub(_ context.Context, _ int64, amount int64) error {
	m.rub += amount
	return nil
}

func (m *memStore) CreditLabu(_ context.Context, _ int64, amount int64, txType, _ string, _ *int64) error {
	m.labu += amount
	m.labuTxs = append(m.labuTxs, txType)
	return nil
}

type oneUser struct{ profiles []*users.TelegramProfile }

func (o *oneUser) EnsureBySession(_ context.Context, sessionID string, profile *users.TelegramProfile) (*users.User, error) {
	o.profiles = append(o.profiles, profile)
	return &users.User{ID: 7, SessionID: sessionID}, nil
}

// fakeInvoices запоминает последний запрос к Bot API.
type fakeInvoices struct {
	endpoint string
	params   tgbotapi.Params
	err      error
}

func (f *fakeInvoices) MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	f.endpoint, f.params = endpoint, params
	if f.err != nil {
		return nil, f.err
	}
	return &tgbotapi.APIResponse{Ok: true, Result: json.RawMessage(`"https://t.me/$invoice"`)}, nil
}

func newTestService() (*Service, *memStore, *fakeInvoices, *oneUser) {
	store := newMemStore()
	inv := &fakeInvoices{}
	u := &oneUser{}
	return NewService(store, u, testFreeKassa(), inv, nil), store, inv, u
}

func TestHandleFreeKassaIdempotent(t *testing.T) {
	svc, store, _, _ := newTestService()
	form := notifyForm("199.50", "o-1", "topup_rub")

	for range 3 {
		if err := svc.HandleFreeKassa(context.Background(), form); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
	if store.rub != 19950 || len(store.payments) != 1 {
		t.Fatalf("rub = %d payments = %d, want one credit of 19950", store.rub, len(store.payments))
	}
}

func TestHandleFreeKassaProducts(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	if err := svc.HandleFreeKassa(ctx, notifyForm("1200", "o-spins", "spins_10")); err != nil {
		t.Fatalf("spins_10: %v", err)
	}
	if store.rub != 120000 {
		t.Fatalf("spins_10 credited %d, want 10 spins", store.rub)
	}

	if err := svc.HandleFreeKassa(ctx, notifyForm("500", "o-labu", "labu_5000")); err != nil {
		t.Fatalf("labu_5000: %v", err)
	}
	if store.labu != 5000 || len(store.labuTxs) != 1 || store.labuTxs[0] != economy.TxPurchase {
		t.Fatalf("labu = %d txs = %v", store.labu, store.labuTxs)
	}
}

func TestHandleFreeKassaBadSignatureCreditsNothing(t *testing.T) {
	svc, store, _, _ := newTestService()
	form := notifyForm("100", "o-1", "topup_rub")
	form.Set("AMOUNT", "100000")

	if err := svc.HandleFreeKassa(context.Background(), form); !errors.Is(err, common.ErrBadSignature) {
		t.Fatalf("err = %v", err)
	}
	if store.rub != 0 || len(store.payments) != 0 {
		t.Fatal("nothing may be credited")
	}
}

func TestCreateLinkDisabled(t *testing.T) {
	svc := NewService(newMemStore(), &oneUser{}, nil, nil, nil)
	_, _, err := svc.CreateLink(context.Background(), LinkRequest{SessionID: "s", Product: "topup_rub"})
	if !errors.Is(err, common.ErrPaymentsDisabled) {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateStarsInvoice(t *testing.T) {
	svc, _, inv, _ := newTestService()

	link, stars, err := svc.CreateStarsInvoice(context.Background(), "sess-1", roulette.VariantPremium)
	if err != nil {
		t.Fatalf("invoice: %v", err)
	}
	if link != "https://t.me/$invoice" || stars != 199 {
		t.Fatalf("link=%q stars=%d", link, stars)
	}
	if inv.endpoint != "createInvoiceLink" || inv.params["currency"] != "XTR" {
		t.Fatalf("request = %s %v", inv.endpoint, inv.params)
	}
	if !strings.Contains(inv.params["prices"], `"amount":199`) {
		t.Fatalf("prices = %s", inv.params["prices"])
	}
	p, err := ParseStarsPayload(inv.params["payload"])
	if err != nil || p.SessionID != "sess-1" || p.SpinType != "premium" {
		t.Fatalf("payload = %+v %v", p, err)
	}
}

func TestCreateStarsInvoiceTelegramFailure(t *testing.T) {
	svc, _, inv, _ := newTestService()
	inv.err = errors.New("Bad Request: currency XTR not allowed")

	if _, _, err := svc.CreateStarsInvoice(context.Background(), "sess-1", roulette.VariantNormal); !errors.Is(err, common.ErrExternalService) {
		t.Fatalf("err = %v", err)
	}
}

func TestConfirmStarsIdempotent(t *testing.T) {
	svc, store, _, u := newTestService()
	payment := StarsPayment{
		ChargeID:    "charge-1",
		Payload:     `{"t":1,"sessionId":"sess-1","spinType":"premium"}`,
		Currency:    "XTR",
		TotalAmount: 199,
		TelegramID:  42,
	}

	for range 2 {
		if err := svc.ConfirmStars(context.Background(), payment); err != nil {
			t.Fatalf("confirm: %v", err)
		}
	}
	if store.rub != 19900 || len(store.payments) != 1 {
		t.Fatalf("rub = %d payments = %d", store.rub, len(store.payments))
	}
	if u.profiles[0] == nil || u.profiles[0].ID != 42 {
		t.Fatalf("telegram id must be attached: %+v", u.profiles[0])
	}
}

func TestConfirmStarsRejectsBadPayload(t *testing.T) {
	svc, store, _, _ := newTestService()

	cases := []StarsPayment{
		{ChargeID: "c", Payload: `not json`, Currency: "XTR"},
		{ChargeID: "c", Payload: `{"sessionId":""}`, Currency: "XTR"},
		{ChargeID: "c", Payload: `{"sessionId":"s","spinType":"mega"}`, Currency: "XTR"},
		{ChargeID: "c", Payload: `{"sessionId":"s"}`, Currency: "RUB"},
	}
	for _, sp := range cases {
		if err := svc.ConfirmStars(context.Background(), sp); !errors.Is(err, common.ErrValidation) {
			t.Errorf("payload %q: err = %v", sp.Payload, err)
		}
	}
	if store.rub != 0 {
		t.Fatal("nothing may be credited")
	}
}

func TestFreeKassaNotifyHandler(t *testing.T) {
	svc, _, _, _ := newTestService()
	h := NewHandler(svc)

	send := func(form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/payments/freekassa/notify", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.FreeKassaNotify(rec, req)
		return rec
	}

	ok := send(notifyForm("100", "o-1", "topup_rub"))
	if ok.Code != http.StatusOK || ok.Body.String() != "YES" {
		t.Fatalf("status = %d body = %q", ok.Code, ok.Body.String())
	}

	bad := notifyForm("100", "o-2", "topup_rub")
	bad.Set("SIGN", "deadbeef")
	if rec := send(bad); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad sign status = %d", rec.Code)
	}
}

func TestReceiptText(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		product Product
		kopecks int64
		want    string
	}{
		{ProductTopUpRub, 19950, "✅ Оплата получена: 199.50 ₽\n🕒 01.03.2025 12:00"},
		{ProductSpins10, 120000, "✅ Оплата получена: 1 200 ₽ (10 спинов)\n🕒 01.03.2025 12:00"},
		{ProductLabu5000, 50000, "✅ Оплата получена: 500 ₽ (5 000 ЛАБУ)\n🕒 01.03.2025 12:00"},
	}
	for _, tc := range cases {
		if got := receiptText(tc.product, tc.kopecks, at); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.product, got, tc.want)
		}
	}
}
