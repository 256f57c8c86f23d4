package session

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nvoskan/equiterm/internal/credstore"
	"github.com/nvoskan/equiterm/internal/model"
	"github.com/nvoskan/equiterm/internal/sessionmon"
	"github.com/nvoskan/equiterm/internal/storage"
	"go.uber.org/zap"
)

type fakeInvalidator struct {
	calls atomic.Int32
}

func (f *fakeInvalidator) Invalidate() { f.calls.Add(1) }

func token(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func newController(t *testing.T, window time.Duration) (*Controller, *credstore.Store, *fakeInvalidator) {
	t.Helper()
	creds := credstore.New(storage.New(t.TempDir(), zap.NewNop()), zap.NewNop())
	inv := &fakeInvalidator{}
	mon := sessionmon.New(window, creds, zap.NewNop())
	return New(creds, inv, mon, zap.NewNop()), creds, inv
}

func TestLoginTransition(t *testing.T) {
	t.Parallel()
	c, creds, _ := newController(t, time.Hour)

	if c.IsAuthenticated() {
		t.Fatalf("authenticated before login")
	}

	c.Login("eyJtok", &model.User{Username: "a"})
	if !c.IsAuthenticated() {
		t.Fatalf("not authenticated after login")
	}
	if u := c.User(); u == nil || u.Username != "a" {
		t.Fatalf("user = %+v", u)
	}
	if tok, _ := creds.Load(); tok != "eyJtok" {
		t.Fatalf("credential store holds %q", tok)
	}
}

func TestLogoutClearsAndInvalidates(t *testing.T) {
	t.Parallel()
	c, creds, inv := newController(t, time.Hour)

	c.Login("eyJtok", &model.User{Username: "a"})
	c.Logout()

	if c.IsAuthenticated() || c.User() != nil {
		t.Fatalf("session survived logout")
	}
	if tok, user := creds.Load(); tok != "" || user != nil {
		t.Fatalf("credentials survived logout: %q %+v", tok, user)
	}
	if inv.calls.Load() == 0 {
		t.Fatalf("workspace not invalidated on logout")
	}
}

func TestBootstrap_FromValidStoredToken(t *testing.T) {
	t.Parallel()
	kv := storage.New(t.TempDir(), zap.NewNop())
	creds := credstore.New(kv, zap.NewNop())
	creds.Save(token(t, time.Now().Add(time.Hour)), &model.User{Username: "a"})

	c := New(creds, &fakeInvalidator{}, sessionmon.New(time.Hour, creds, zap.NewNop()), zap.NewNop())
	if !c.IsAuthenticated() {
		t.Fatalf("valid stored token must authenticate on bootstrap")
	}
	if u := c.User(); u == nil || u.Username != "a" {
		t.Fatalf("user = %+v", u)
	}
}

func TestBootstrap_ExpiredStoredTokenClears(t *testing.T) {
	t.Parallel()
	kv := storage.New(t.TempDir(), zap.NewNop())
	creds := credstore.New(kv, zap.NewNop())
	creds.Save(token(t, time.Now().Add(-time.Minute)), &model.User{Username: "a"})

	c := New(creds, &fakeInvalidator{}, sessionmon.New(time.Hour, creds, zap.NewNop()), zap.NewNop())
	if c.IsAuthenticated() {
		t.Fatalf("expired stored token must not authenticate")
	}
	if tok, _ := creds.Load(); tok != "" {
		t.Fatalf("expired token not cleared, got %q", tok)
	}
}

func TestBootstrap_TokenWithoutUserStillAuthenticates(t *testing.T) {
	t.Parallel()
	kv := storage.New(t.TempDir(), zap.NewNop())
	creds := credstore.New(kv, zap.NewNop())
	creds.Save(token(t, time.Now().Add(time.Hour)), nil)

	c := New(creds, &fakeInvalidator{}, sessionmon.New(time.Hour, creds, zap.NewNop()), zap.NewNop())
	if !c.IsAuthenticated() {
		t.Fatalf("token without cached user must still authenticate")
	}
	if c.User() != nil {
		t.Fatalf("user should be nil")
	}
}

func TestHandleAuthExpired(t *testing.T) {
	t.Parallel()
	c, _, inv := newController(t, time.Hour)

	c.Login("eyJtok", &model.User{Username: "a"})
	c.HandleAuthExpired()
	if c.IsAuthenticated() {
		t.Fatalf("session survived auth expiry")
	}
	if inv.calls.Load() == 0 {
		t.Fatalf("workspace not invalidated on auth expiry")
	}
}

func TestMonitorTimeoutLogsOut(t *testing.T) {
	t.Parallel()
	c, creds, _ := newController(t, 30*time.Millisecond)

	c.Login("eyJtok", &model.User{Username: "a"})

	var fired atomic.Int32
	cancel := c.StartMonitor(func() { fired.Add(1) })
	defer cancel()

	deadline := time.Now().Add(2 * time.Second)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if fired.Load() != 1 {
		t.Fatalf("timeout callback fired %d times", fired.Load())
	}
	if c.IsAuthenticated() {
		t.Fatalf("session survived inactivity timeout")
	}
	if tok, _ := creds.Load(); tok != "" {
		t.Fatalf("credentials survived inactivity timeout")
	}
}
