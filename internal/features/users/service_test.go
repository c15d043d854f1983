package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"serotonyl.ru/labubu-roulette/internal/common"
)

// fakeRow отдаёт заранее подготовленную строку users или ошибку.
type fakeRow struct {
	user *User
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	u := r.user
	values := []any{
		u.ID, u.SessionID, u.TelegramID, u.Name, u.Username,
		u.LabuBalance, u.RubBalance,
		u.ReferralCode, u.ReferredByID, u.ReferralEarnings, u.CreatedAt,
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = values[i].(int64)
		case *string:
			*p = values[i].(string)
		case **int64:
			*p = values[i].(*int64)
		case **string:
			*p = values[i].(*string)
		case *time.Time:
			*p = values[i].(time.Time)
		default:
			return fmt.Errorf("неожиданный тип %T", d)
		}
	}
	return nil
}

// fakeUsersDB имитирует таблицу users с уникальными session_id,
// telegram_id и referral_code.
type fakeUsersDB struct {
	rows          []*User
	inserts       int
	codeConflicts int // сколько первых вставок упадёт на referral_code
}

func (f *fakeUsersDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if !strings.Contains(sql, "UPDATE users") || !strings.Contains(sql, "telegram_id = $2") {
		return pgconn.NewCommandTag("UPDATE 0"), errors.New("неожиданный запрос")
	}
	id, tgID := args[0].(int64), args[1].(int64)
	for _, u := range f.rows {
		if u.TelegramID != nil && *u.TelegramID == tgID {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
	}
	for _, u := range f.rows {
		if u.ID == id {
			u.TelegramID = &tgID
			return pgconn.NewCommandTag("UPDATE 1"), nil
		}
	}
	return pgconn.NewCommandTag("UPDATE 0"), nil
}

func (f *fakeUsersDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("не используется")
}

func (f *fakeUsersDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	switch {
	case strings.Contains(sql, "INSERT INTO users"):
		return f.insert(args)
	case strings.Contains(sql, "WHERE session_id = $1"):
		for _, u := range f.rows {
			if u.SessionID == args[0].(string) {
				return fakeRow{user: u}
			}
		}
	case strings.Contains(sql, "WHERE id = $1"):
		for _, u := range f.rows {
			if u.ID == args[0].(int64) {
				return fakeRow{user: u}
			}
		}
	}
	return fakeRow{err: pgx.ErrNoRows}
}

func (f *fakeUsersDB) insert(args []any) pgx.Row {
	f.inserts++
	if f.codeConflicts > 0 {
		f.codeConflicts--
		return fakeRow{err: &pgconn.PgError{Code: "23505", ConstraintName: referralCodeConstraint}}
	}
	tgID, _ := args[1].(*int64)
	if tgID != nil {
		for _, u := range f.rows {
			if u.TelegramID != nil && *u.TelegramID == *tgID {
				return fakeRow{err: &pgconn.PgError{Code: "23505", ConstraintName: telegramIDConstraint}}
			}
		}
	}
	u := &User{
		ID:           int64(len(f.rows) + 1),
		SessionID:    args[0].(string),
		TelegramID:   tgID,
		Name:         args[2].(string),
		ReferralCode: args[4].(string),
		CreatedAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.rows = append(f.rows, u)
	return fakeRow{user: u}
}

func ownedTelegramUser(tgID int64) *User {
	return &User{ID: 1, SessionID: "tg_owner", TelegramID: &tgID, Name: "Анна", ReferralCode: "AAAA1111"}
}

func TestEnsureBySessionCreatesGuestWhenTelegramTaken(t *testing.T) {
	db := &fakeUsersDB{rows: []*User{ownedTelegramUser(123)}}
	svc := NewService(NewRepository(db))

	u, err := svc.EnsureBySession(context.Background(), "guest_abc", &TelegramProfile{ID: 123, FirstName: "Анна"})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if u.SessionID != "guest_abc" || u.TelegramID != nil {
		t.Fatalf("user = %+v", u)
	}
	if !strings.HasPrefix(u.Name, "Игрок ") {
		t.Fatalf("name = %q, want guest name", u.Name)
	}
	if db.inserts != 2 {
		t.Fatalf("inserts = %d, want 2", db.inserts)
	}
}

func TestEnsureBySessionRetriesReferralCodeCollision(t *testing.T) {
	db := &fakeUsersDB{codeConflicts: 2}
	svc := NewService(NewRepository(db))

	u, err := svc.EnsureBySession(context.Background(), "guest_abc", &TelegramProfile{ID: 7, Username: "labu"})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if u.TelegramID == nil || *u.TelegramID != 7 || db.inserts != 3 {
		t.Fatalf("user = %+v, inserts = %d", u, db.inserts)
	}
}

func TestEnsureBySessionGivesUpOnPersistentCodeCollision(t *testing.T) {
	db := &fakeUsersDB{codeConflicts: referralCodeAttempts}
	svc := NewService(NewRepository(db))

	_, err := svc.EnsureBySession(context.Background(), "guest_abc", nil)
	if !errors.Is(err, common.ErrConflict) || db.inserts != referralCodeAttempts {
		t.Fatalf("err = %v, inserts = %d", err, db.inserts)
	}
}

func TestEnsureBySessionKeepsGuestWhenAttachConflicts(t *testing.T) {
	guest := &User{ID: 2, SessionID: "guest_abc", Name: "Игрок 12345", ReferralCode: "BBBB2222"}
	db := &fakeUsersDB{rows: []*User{ownedTelegramUser(123), guest}}
	svc := NewService(NewRepository(db))

	u, err := svc.EnsureBySession(context.Background(), "guest_abc", &TelegramProfile{ID: 123})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if u.ID != 2 || u.TelegramID != nil {
		t.Fatalf("user = %+v", u)
	}
}

func TestEnsureBySessionAttachesTelegram(t *testing.T) {
	guest := &User{ID: 1, SessionID: "guest_abc", Name: "Игрок 12345", ReferralCode: "BBBB2222"}
	db := &fakeUsersDB{rows: []*User{guest}}
	svc := NewService(NewRepository(db))

	u, err := svc.EnsureBySession(context.Background(), "guest_abc", &TelegramProfile{ID: 55})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if u.TelegramID == nil || *u.TelegramID != 55 {
		t.Fatalf("user = %+v", u)
	}
}
