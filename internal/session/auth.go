package session

import (
	"context"
	"net/mail"
	"strings"

	"github.com/nhle/sprintsync/internal/gateway"
	"github.com/nhle/sprintsync/internal/model"
)

// Authenticator is the part of the gateway used to obtain credentials.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (gateway.Token, error)
	Register(ctx context.Context, req gateway.RegisterRequest) (model.User, error)
}

// Registration is the input of the sign-up form.
type Registration struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// ValidateRegistration checks the sign-up form before anything is sent.
func ValidateRegistration(r Registration) error {
	switch {
	case len(strings.TrimSpace(r.Username)) < 3:
		return gateway.Validation("Username must be at least 3 characters")
	case !validEmail(r.Email):
		return gateway.Validation("Please enter a valid email address")
	case len(r.Password) < 6:
		return gateway.Validation("Password must be at least 6 characters")
	case r.Password != r.ConfirmPassword:
		return gateway.Validation("Passwords do not match")
	}
	return nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	return err == nil && addr.Address == strings.TrimSpace(s) && strings.Contains(addr.Address, "@")
}

// Login authenticates and stores the resulting session.
func Login(ctx context.Context, auth Authenticator, store *Store, username, password string) (model.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.Session{}, gateway.Validation("Please enter username and password")
	}

	tok, err := auth.Login(ctx, username, password)
	if err != nil {
		return model.Session{}, err
	}

	sess := model.Session{
		User:  UserFromToken(tok.AccessToken, username),
		Token: tok.AccessToken,
	}
	if err := store.Set(sess); err != nil {
		return sess, err
	}
	return sess, nil
}

// Register validates the form, creates the account and logs in with it.
func Register(ctx context.Context, auth Authenticator, store *Store, r Registration) (model.Session, error) {
	if err := ValidateRegistration(r); err != nil {
		return model.Session{}, err
	}

	if _, err := auth.Register(ctx, gateway.RegisterRequest{
		Username: strings.TrimSpace(r.Username),
		Email:    strings.TrimSpace(r.Email),
		Password: r.Password,
	}); err != nil {
		return model.Session{}, err
	}

	return Login(ctx, auth, store, r.Username, r.Password)
}
