package session

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nhle/sprintsync/internal/model"
)

// UserFromToken builds the user record from the access token's claims.
// The signature is not verified; the server remains the authority and the
// claims only label the session. Missing claims fall back to username.
func UserFromToken(accessToken, username string) model.User {
	user := model.User{Username: username, CreatedAt: time.Now().UTC()}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return user
	}

	if v := claimString(claims, "username"); v != "" {
		user.Username = v
	} else if sub, err := claims.GetSubject(); err == nil && sub != "" && user.Username == "" {
		user.Username = sub
	}
	for _, key := range []string{"user_id", "id", "uid"} {
		if v := claimString(claims, key); v != "" {
			user.ID = v
			break
		}
	}
	if user.ID == "" {
		if sub, err := claims.GetSubject(); err == nil {
			user.ID = sub
		}
	}
	user.Email = claimString(claims, "email")
	if admin, ok := claims["is_admin"].(bool); ok {
		user.IsAdmin = admin
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		user.CreatedAt = iat.UTC()
	}
	return user
}

// TokenExpired reports whether the token carries an exp claim in the past.
// Tokens that are not JWTs never expire locally; the server decides.
func TokenExpired(accessToken string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}

func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
