package api

import (
	"context"
	"net/http"
	"net/url"
)

// Register provisions an account. Success carries no token; callers must log
// in afterwards.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Account, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	var account Account
	query := url.Values{"emailVerified": {"false"}}
	if err := c.do(ctx, http.MethodPost, "/users/user-signup", query, req, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyEmail submits an email verification token.
func (c *Client) VerifyEmail(ctx context.Context, token string) (*Message, error) {
	if token == "" {
		return nil, ErrInvalidInput
	}
	var msg Message
	query := url.Values{"token": {token}}
	if err := c.do(ctx, http.MethodGet, "/users/verify-email", query, nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
