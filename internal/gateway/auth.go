package gateway

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/nhle/sprintsync/internal/model"
)

// Login exchanges a username and password for an access token using the
// OAuth2 password grant on /auth/token.
func (c *Client) Login(ctx context.Context, username, password string) (Token, error) {
	cfg := oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.baseURL + "/auth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.anonClient)
	tok, err := cfg.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			switch status := re.Response.StatusCode; status {
			case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
				return Token{}, &Failure{
					Kind:    KindValidation,
					Status:  status,
					Message: "Invalid username or password",
				}
			default:
				return Token{}, classifyStatus(status, detailMessage(re.Body))
			}
		}
		return Token{}, classifyTransport(err)
	}

	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}
	return Token{AccessToken: tok.AccessToken, TokenType: tokenType}, nil
}

// Register creates a new account. It does not log in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (model.User, error) {
	var resp userResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/register",
		body:   req,
		result: &resp,
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return model.User{}, &Failure{
				Kind:    KindConflict,
				Status:  http.StatusConflict,
				Message: "Username or email already exists",
			}
		}
		return model.User{}, err
	}

	u, err := resp.toModel()
	if err != nil {
		return model.User{}, &Failure{Kind: KindServer, Message: "Unexpected response from server", Err: err}
	}
	return u, nil
}
