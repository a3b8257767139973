package api

import (
	"context"
	"net/http"

	"github.com/gridplay/ttrpg-client/pkg/types"
)

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      int    `json:"user_id"`
}

type loginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Fingerprint string `json:"fingerprint"`
}

type registerRequest struct {
	Nickname    string `json:"nickname"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Fingerprint string `json:"fingerprint"`
}

func (c *Client) Login(ctx context.Context, email, password, fingerprint string) (TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/login",
		loginRequest{Email: email, Password: password, Fingerprint: fingerprint}, &out)
	return out, err
}

func (c *Client) Register(ctx context.Context, nickname, email, password, fingerprint string) (TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/register",
		registerRequest{Nickname: nickname, Email: email, Password: password, Fingerprint: fingerprint}, &out)
	return out, err
}

// Me validates the stored token and returns the account behind it.
func (c *Client) Me(ctx context.Context) (types.User, error) {
	var out types.User
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out)
	return out, err
}
