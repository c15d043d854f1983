package admin

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/argon2"

	"serotonyl.ru/labubu-roulette/internal/common"
)

// cheapHash — хеш с минимальными параметрами, чтобы тесты не тратили 64 МБ.
func cheapHash(password string) string {
	salt := []byte("0123456789abcdef")
	key := argon2.IDKey([]byte(password), salt, 1, 1024, 1, 32)
	return fmt.Sprintf("$argon2id$v=19$m=1024,t=1,p=1$%s$%s",
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
}

type memAdminStore struct {
	sessions map[string]*Session
	attempts []LoginAttempt
	now      func() time.Time
}

func newMemAdminStore(now func() time.Time) *memAdminStore {
	return &memAdminStore{sessions: map[string]*Session{}, now: now}
}

func (m *memAdminStore) CreateSession(_ context.Context, s *Session) error {
	s.ID = int64(len(m.sessions) + 1)
	s.AuthenticatedAt = m.now()
	cp := *s
	m.sessions[s.Token] = &cp
	return nil
}

func (m *memAdminStore) GetSession(_ context.Context, token string) (*Session, error) {
	s, ok := m.sessions[token]
	if !ok {
		return nil, common.ErrSessionExpired
	}
	cp := *s
	return &cp, nil
}

func (m *memAdminStore) DeleteSession(_ context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

func (m *memAdminStore) UpdateActivity(_ context.Context, token string) error {
	if s, ok := m.sessions[token]; ok {
		s.LastActivity = m.now()
	}
	return nil
}

func (m *memAdminStore) LogAttempt(_ context.Context, ip string, success bool) error {
	m.attempts = append(m.attempts, LoginAttempt{ClientIP: ip, AttemptTime: m.now(), Success: success})
	return nil
}

func (m *memAdminStore) CountFailedAttempts(_ context.Context, ip string, since time.Time) (int, error) {
	n := 0
	for _, a := range m.attempts {
		if a.ClientIP == ip && !a.Success && !a.AttemptTime.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memAdminStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for token, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, token)
			n++
		}
	}
	return n, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestAdmin() (*Service, *memAdminStore, *clock) {
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := newMemAdminStore(c.now)
	svc := NewService(store, cheapHash("s3cret"), 24*time.Hour)
	svc.now = c.now
	return svc, store, c
}

func TestLoginAndAuthenticate(t *testing.T) {
	svc, _, c := newTestAdmin()
	ctx := context.Background()

	session, err := svc.Login(ctx, "10.0.0.1", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.Token == "" || !session.ExpiresAt.Equal(c.t.Add(24*time.Hour)) {
		t.Fatalf("session = %+v", session)
	}

	if _, err := svc.Authenticate(ctx, session.Token); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	c.advance(24 * time.Hour)
	if _, err := svc.Authenticate(ctx, session.Token); !errors.Is(err, common.ErrSessionExpired) {
		t.Fatalf("expired session: err = %v", err)
	}
}

func TestLoginLockoutPerIP(t *testing.T) {
	svc, _, c := newTestAdmin()
	ctx := context.Background()

	for i := range 3 {
		if _, err := svc.Login(ctx, "10.0.0.1", "wrong"); !errors.Is(err, common.ErrWrongPassword) {
			t.Fatalf("attempt %d: err = %v", i+1, err)
		}
	}
	if _, err := svc.Login(ctx, "10.0.0.1", "s3cret"); !errors.Is(err, common.ErrTooManyAttempts) {
		t.Fatalf("locked: err = %v", err)
	}
	if _, err := svc.Login(ctx, "10.0.0.2", "s3cret"); err != nil {
		t.Fatalf("other address must not be locked: %v", err)
	}

	c.advance(time.Hour + time.Second)
	if _, err := svc.Login(ctx, "10.0.0.1", "s3cret"); err != nil {
		t.Fatalf("lock must expire after an hour: %v", err)
	}
}

func TestLogoutAndPurge(t *testing.T) {
	svc, store, c := newTestAdmin()
	ctx := context.Background()

	a, _ := svc.Login(ctx, "ip", "s3cret")
	b, _ := svc.Login(ctx, "ip", "s3cret")

	if err := svc.Logout(ctx, a.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, a.Token); !errors.Is(err, common.ErrSessionExpired) {
		t.Fatalf("after logout: err = %v", err)
	}

	c.advance(25 * time.Hour)
	n, err := svc.PurgeExpired(ctx)
	if err != nil || n != 1 {
		t.Fatalf("purged %d, err %v", n, err)
	}
	if _, ok := store.sessions[b.Token]; ok {
		t.Fatal("expired session must be removed")
	}
}

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=2$") {
		t.Fatalf("hash = %s", hash)
	}
	if !verifyArgon2id("correct horse", hash) || verifyArgon2id("battery staple", hash) {
		t.Fatal("verification mismatch")
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	for _, h := range []string{"", "plain", "$argon2i$v=19$m=1,t=1,p=1$AA$AA", "$argon2id$v=19$bad$AA$AA"} {
		if verifyArgon2id("x", h) {
			t.Errorf("hash %q accepted", h)
		}
	}
}
