package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/golang-jwt/jwt/v5"

	"github.com/nhle/sprintsync/internal/credential"
	"github.com/nhle/sprintsync/internal/gateway"
	"github.com/nhle/sprintsync/internal/model"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return tok
}

func newPersister() *KeyringPersister {
	return NewKeyringPersister(credential.New(keyring.NewArrayKeyring(nil)))
}

func TestSetRejectsIncomplete(t *testing.T) {
	s := NewStore(nil)

	if err := s.Set(model.Session{Token: "abc"}); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	if err := s.Set(model.Session{User: model.User{Username: "ann"}}); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	if s.Active() {
		t.Error("expected no session after rejected Set")
	}
}

func TestClearNotifiesOnce(t *testing.T) {
	s := NewStore(nil)
	calls := 0
	s.OnClear(func() { calls++ })

	s.Clear()
	if calls != 0 {
		t.Fatalf("clearing an empty store should not notify, got %d", calls)
	}

	if err := s.Set(model.Session{User: model.User{Username: "ann"}, Token: "t"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.Clear()
	s.Clear()
	if calls != 1 {
		t.Errorf("expected 1 notification, got %d", calls)
	}
	if _, ok := s.Current(); ok {
		t.Error("expected session cleared")
	}
}

func TestOnClearUnsubscribe(t *testing.T) {
	s := NewStore(nil)
	calls := 0
	stop := s.OnClear(func() { calls++ })
	stop()

	_ = s.Set(model.Session{User: model.User{Username: "ann"}, Token: "t"})
	s.Clear()
	if calls != 0 {
		t.Errorf("listener ran after removal")
	}
}

func TestPersistAndRestore(t *testing.T) {
	p := newPersister()
	token := signed(t, jwt.MapClaims{"sub": "ann", "exp": time.Now().Add(time.Hour).Unix()})

	first := NewStore(p)
	if err := first.Set(model.Session{User: model.User{Username: "ann"}, Token: token}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	second := NewStore(p)
	if err := second.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got, ok := second.Current()
	if !ok || got.Token != token || got.User.Username != "ann" {
		t.Fatalf("restored session = %+v, %v", got, ok)
	}

	second.Clear()
	third := NewStore(p)
	if err := third.Restore(); err != nil {
		t.Fatalf("Restore after clear: %v", err)
	}
	if third.Active() {
		t.Error("cleared session should not be restored")
	}
}

func TestRestoreDropsExpired(t *testing.T) {
	p := newPersister()
	token := signed(t, jwt.MapClaims{"sub": "ann", "exp": time.Now().Add(-time.Hour).Unix()})
	if err := p.Save(model.Session{User: model.User{Username: "ann"}, Token: token}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s := NewStore(p)
	if err := s.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if s.Active() {
		t.Error("expired session should not be restored")
	}
	if _, err := p.Load(); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected stale session deleted, got %v", err)
	}
}

func TestUserFromToken(t *testing.T) {
	token := signed(t, jwt.MapClaims{
		"sub":      "ann",
		"user_id":  float64(42),
		"email":    "ann@example.com",
		"is_admin": true,
	})

	u := UserFromToken(token, "typed")
	if u.Username != "typed" {
		t.Errorf("Username = %q, want typed name kept when no username claim", u.Username)
	}
	if u.ID != "42" {
		t.Errorf("ID = %q, want 42", u.ID)
	}
	if u.Email != "ann@example.com" || !u.IsAdmin {
		t.Errorf("claims not applied: %+v", u)
	}

	opaque := UserFromToken("not-a-jwt", "bob")
	if opaque.Username != "bob" || opaque.ID != "" {
		t.Errorf("opaque token user = %+v", opaque)
	}
}

func TestValidateRegistration(t *testing.T) {
	valid := Registration{Username: "ann", Email: "ann@example.com", Password: "secret", ConfirmPassword: "secret"}

	tests := []struct {
		name   string
		modify func(*Registration)
		want   string
	}{
		{"ok", func(*Registration) {}, ""},
		{"short username", func(r *Registration) { r.Username = "an" }, "Username must be at least 3 characters"},
		{"bad email", func(r *Registration) { r.Email = "nope" }, "Please enter a valid email address"},
		{"short password", func(r *Registration) { r.Password, r.ConfirmPassword = "12345", "12345" }, "Password must be at least 6 characters"},
		{"mismatch", func(r *Registration) { r.ConfirmPassword = "other1" }, "Passwords do not match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.modify(&r)
			err := ValidateRegistration(r)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, gateway.ErrValidation) || err.Error() != tt.want {
				t.Errorf("got %v, want validation %q", err, tt.want)
			}
		})
	}
}

type fakeAuth struct {
	login    func(username, password string) (gateway.Token, error)
	register func(req gateway.RegisterRequest) (model.User, error)
}

func (f fakeAuth) Login(_ context.Context, username, password string) (gateway.Token, error) {
	return f.login(username, password)
}

func (f fakeAuth) Register(_ context.Context, req gateway.RegisterRequest) (model.User, error) {
	return f.register(req)
}

func TestLoginStoresSession(t *testing.T) {
	token := signed(t, jwt.MapClaims{"sub": "ann", "username": "ann"})
	auth := fakeAuth{login: func(u, p string) (gateway.Token, error) {
		if u != "ann" || p != "pw" {
			t.Errorf("login called with %q/%q", u, p)
		}
		return gateway.Token{AccessToken: token, TokenType: "bearer"}, nil
	}}

	s := NewStore(nil)
	sess, err := Login(context.Background(), auth, s, " ann ", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	got, ok := s.Current()
	if !ok || got.Token != token || sess.User.Username != "ann" {
		t.Errorf("stored session = %+v, %v", got, ok)
	}
}

func TestLoginFailureLeavesStoreEmpty(t *testing.T) {
	auth := fakeAuth{login: func(string, string) (gateway.Token, error) {
		return gateway.Token{}, gateway.Validation("Invalid username or password")
	}}

	s := NewStore(nil)
	if _, err := Login(context.Background(), auth, s, "ann", "bad"); err == nil {
		t.Fatal("expected error")
	}
	if s.Active() {
		t.Error("failed login must not set a session")
	}
}

func TestRegisterThenLogin(t *testing.T) {
	var registered gateway.RegisterRequest
	auth := fakeAuth{
		register: func(req gateway.RegisterRequest) (model.User, error) {
			registered = req
			return model.User{ID: "1", Username: req.Username}, nil
		},
		login: func(string, string) (gateway.Token, error) {
			return gateway.Token{AccessToken: "opaque"}, nil
		},
	}

	s := NewStore(nil)
	_, err := Register(context.Background(), auth, s, Registration{
		Username: "ann", Email: "ann@example.com", Password: "secret", ConfirmPassword: "secret",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if registered.Email != "ann@example.com" {
		t.Errorf("register request = %+v", registered)
	}
	if !s.Active() {
		t.Error("expected session after register")
	}
}
