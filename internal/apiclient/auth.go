package apiclient

import (
	"context"
	"errors"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/park285/tictactoe-client/internal/session"
)

// Login authenticates and returns the resulting session. The client itself is not modified.
func (c *Client) Login(ctx context.Context, username, password string) (session.Session, error) {
	var resp AuthResponse
	req := LoginRequest{Username: strings.TrimSpace(username), Password: password}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/auth/login", req, &resp, false); err != nil {
		return session.Anonymous, err
	}
	return sessionFrom(resp)
}

func (c *Client) Register(ctx context.Context, username, email, password string) (session.Session, error) {
	var resp AuthResponse
	req := RegisterRequest{Username: strings.TrimSpace(username), Email: strings.TrimSpace(email), Password: password}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/auth/register", req, &resp, false); err != nil {
		return session.Anonymous, err
	}
	return sessionFrom(resp)
}

// Me returns the user behind the client's session.
func (c *Client) Me(ctx context.Context) (session.User, error) {
	var u session.User
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/auth/me", nil, &u, true); err != nil {
		return session.User{}, err
	}
	return u, nil
}

func sessionFrom(resp AuthResponse) (session.Session, error) {
	s := session.New(resp.AccessToken, resp.User)
	if !s.Authenticated() {
		return session.Anonymous, errors.New("auth response without access token")
	}
	return s, nil
}
