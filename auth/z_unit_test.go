package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/zintix-labs/megaodds/errs"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T, now func() time.Time) *Service {
	t.Helper()
	s, err := NewService("test-secret", WithCost(bcrypt.MinCost), WithClock(now))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return s
}

func TestValidateCredentials(t *testing.T) {
	cases := []struct {
		email, pass string
		ok          bool
	}{
		{"a@b.co", "123456", true},
		{"", "123456", false},
		{"not-an-email", "123456", false},
		{"a@b", "123456", false},
		{"a@b.co", "", false},
		{"a@b.co", "12345", false},
	}
	for _, c := range cases {
		err := ValidateCredentials(c.email, c.pass)
		if (err == nil) != c.ok {
			t.Fatalf("ValidateCredentials(%q,%q) err=%v", c.email, c.pass, err)
		}
	}
}

func TestRegisterLoginVerify(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestService(t, func() time.Time { return now })

	u, err := s.Register(" Player@Mega.com ", "secret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "player@mega.com" || u.Balance.IntPart() != 162500 {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := s.Register("player@mega.com", "secret1"); err == nil {
		t.Fatalf("expected duplicate email error")
	}

	if _, err := s.Login("player@mega.com", "wrong!!"); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	tok, err := s.Login("PLAYER@mega.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !tok.ExpiresAt.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("unexpected expiry %v", tok.ExpiresAt)
	}

	got, err := s.Verify(tok.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.ID != u.ID || got.Token != tok.AccessToken {
		t.Fatalf("unexpected verified user %+v", got)
	}

	now = now.Add(25 * time.Hour)
	if _, err := s.Verify(tok.AccessToken); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	now := time.Now
	a := newTestService(t, now)
	b, _ := NewService("other-secret", WithCost(bcrypt.MinCost))
	if _, err := a.Register("x@y.io", "abcdef"); err != nil {
		t.Fatal(err)
	}
	tok, err := a.Login("x@y.io", "abcdef")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Verify(tok.AccessToken); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestNewServiceRequiresSecret(t *testing.T) {
	if _, err := NewService(""); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
