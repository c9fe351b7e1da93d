package client

import (
	"context"

	"github.com/patrykmil/passy/internal/domain"
	"github.com/patrykmil/passy/internal/vault"
)

func (c *Client) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, "POST", "/auth/register", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login stores the returned tokens on the client.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.LoginResponse, error) {
	req := &domain.LoginRequest{Username: username, Password: password}

	var resp domain.LoginResponse
	if err := c.do(ctx, "POST", "/auth/login", req, &resp); err != nil {
		return nil, err
	}

	c.SetTokens(resp.AccessToken, resp.RefreshToken)
	return &resp, nil
}

func (c *Client) Refresh(ctx context.Context) error {
	_, refresh := c.Tokens()
	if refresh == "" {
		return ErrUnauthorized
	}

	var resp domain.TokenResponse
	req := &domain.RefreshTokenRequest{RefreshToken: refresh}
	if err := c.do(ctx, "POST", "/auth/refresh", req, &resp); err != nil {
		return err
	}

	c.SetTokens(resp.AccessToken, refresh)
	return nil
}

// Logout drops the tokens whether or not the server answered.
func (c *Client) Logout(ctx context.Context) error {
	if c.accessToken() == "" {
		return vault.ErrNotAuthenticated
	}
	defer c.SetTokens("", "")
	return c.do(ctx, "POST", "/auth/logout", nil, nil)
}

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, "GET", "/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
