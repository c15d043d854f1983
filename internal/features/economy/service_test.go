package economy

import (
	"context"
	"errors"
	"testing"

	"serotonyl.ru/labubu-roulette/internal/common"
)

// memStore — балансы и журнал в памяти. Откат транзакции
// восстанавливает копию состояния.
type memStore struct {
	balances map[int64]int64
	ledger   []*Transaction
	fixes    int
}

func newMemStore() *memStore {
	return &memStore{balances: map[int64]int64{}}
}

func (m *memStore) sum(userID int64) int64 {
	var total int64
	for _, t := range m.ledger {
		if t.UserID == userID {
			total += t.Amount
		}
	}
	return total
}

func (m *memStore) ListTransactions(_ context.Context, userID int64, limit int) ([]*Transaction, error) {
	var list []*Transaction
	for i := len(m.ledger) - 1; i >= 0 && len(list) < limit; i-- {
		if m.ledger[i].UserID == userID {
			list = append(list, m.ledger[i])
		}
	}
	return list, nil
}

func (m *memStore) Totals(_ context.Context, userID int64) (Totals, error) {
	var t Totals
	for _, tx := range m.ledger {
		if tx.UserID != userID {
			continue
		}
		if tx.Amount > 0 {
			t.Earned += tx.Amount
		} else {
			t.Spent -= tx.Amount
		}
	}
	return t, nil
}

func (m *memStore) FindDrift(context.Context) ([]Drift, error) {
	var list []Drift
	for id, stored := range m.balances {
		if ledger := m.sum(id); ledger != stored {
			list = append(list, Drift{UserID: id, Stored: stored, Ledger: ledger})
		}
	}
	return list, nil
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Ledger) error) error {
	balances := make(map[int64]int64, len(m.balances))
	for k, v := range m.balances {
		balances[k] = v
	}
	ledger := len(m.ledger)
	if err := fn(ctx, m); err != nil {
		m.balances = balances
		m.ledger = m.ledger[:ledger]
		return err
	}
	return nil
}

func (m *memStore) CreditLabu(_ context.Context, userID, amount int64, txType, description string, relatedID *int64) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	if _, ok := m.balances[userID]; !ok {
		return common.ErrUserNotFound
	}
	m.balances[userID] += amount
	m.ledger = append(m.ledger, &Transaction{
		ID: int64(len(m.ledger) + 1), UserID: userID, Amount: amount,
		Type: txType, Description: description, RelatedID: relatedID,
	})
	return nil
}

func (m *memStore) FixDrift(_ context.Context, userID int64) (Drift, bool, error) {
	d := Drift{UserID: userID, Stored: m.balances[userID], Ledger: m.sum(userID)}
	if d.Stored == d.Ledger {
		return d, false, nil
	}
	m.balances[userID] = d.Ledger
	m.fixes++
	return d, true, nil
}

func TestReconcileFixesOnlyDriftedUsers(t *testing.T) {
	store := newMemStore()
	store.balances[1] = 100
	store.balances[2] = 999
	store.balances[3] = 0
	store.ledger = []*Transaction{
		{UserID: 1, Amount: 100, Type: TxSpinReward},
		{UserID: 2, Amount: 300, Type: TxSpinReward},
		{UserID: 3, Amount: 50, Type: TxReferralBonus},
	}
	svc := NewService(store)

	fixed, err := svc.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if fixed != 2 || store.fixes != 2 {
		t.Fatalf("fixed = %d, store fixes = %d", fixed, store.fixes)
	}
	want := map[int64]int64{1: 100, 2: 300, 3: 50}
	for id, balance := range want {
		if store.balances[id] != balance {
			t.Fatalf("user %d balance = %d, want %d", id, store.balances[id], balance)
		}
	}

	fixed, err = svc.Reconcile(context.Background())
	if err != nil || fixed != 0 {
		t.Fatalf("second pass: fixed = %d, err = %v", fixed, err)
	}
}

func TestGrantLabuWritesLedger(t *testing.T) {
	store := newMemStore()
	store.balances[7] = 0
	svc := NewService(store)
	ctx := context.Background()

	if err := svc.GrantLabu(ctx, 7, 250, "  компенсация "); err != nil {
		t.Fatalf("grant: %v", err)
	}
	txs, totals, err := svc.History(ctx, 7, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(txs) != 1 || txs[0].Type != TxAdminGrant || txs[0].Description != "Начисление администратора: компенсация" {
		t.Fatalf("ledger = %+v", txs)
	}
	if totals.Earned != 250 || store.balances[7] != 250 {
		t.Fatalf("totals = %+v, balance = %d", totals, store.balances[7])
	}

	if err := svc.GrantLabu(ctx, 8, 10, ""); !errors.Is(err, common.ErrUserNotFound) {
		t.Fatalf("unknown user: err = %v", err)
	}
	if err := svc.GrantLabu(ctx, 7, -5, ""); !errors.Is(err, common.ErrInvalidAmount) {
		t.Fatalf("negative amount: err = %v", err)
	}
	if store.balances[7] != 250 || len(store.ledger) != 1 {
		t.Fatalf("rejected grants changed state: %d %d", store.balances[7], len(store.ledger))
	}
}
