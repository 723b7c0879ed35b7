package model

import "time"

// User is the authenticated account as known to the client.
type User struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	IsAdmin   bool       `json:"is_admin"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Session pairs the authenticated user with the bearer credential
// used to authorize API calls.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Complete reports whether both the user and the credential are set.
// A session that is not complete must never be stored.
func (s Session) Complete() bool {
	return s.Token != "" && s.User.Username != ""
}
