// Package client talks to the passy server over HTTP. It implements the
// collaborator interfaces of the vault package, so everything it sends
// is already encrypted.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/patrykmil/passy/internal/vault"
	"github.com/patrykmil/passy/pkg/response"
)

var (
	ErrConflict     = vault.ErrConflict
	ErrUnauthorized = errors.New("not logged in or session expired")
	ErrNotFound     = errors.New("not found")
)

var (
	_ vault.SecretStore   = (*Client)(nil)
	_ vault.UserDirectory = (*Client)(nil)
	_ vault.TeamDirectory = (*Client)(nil)
	_ vault.Authenticator = (*Client)(nil)
)

// public paths never carry a token worth refreshing.
var public = map[string]bool{
	"/auth/register": true,
	"/auth/login":    true,
	"/auth/refresh":  true,
}

type Client struct {
	baseURL string
	http    *http.Client

	mu           sync.RWMutex
	token        string
	refreshToken string
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SetTokens installs tokens restored from a previous process.
func (c *Client) SetTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = access
	c.refreshToken = refresh
}

func (c *Client) Tokens() (access, refresh string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token, c.refreshToken
}

func (c *Client) accessToken() string {
	access, _ := c.Tokens()
	return access
}

// do sends one request and decodes the response envelope into out. An
// expired access token is refreshed once.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	err := c.send(ctx, method, path, payload, out)
	if !errors.Is(err, ErrUnauthorized) || public[path] {
		return err
	}

	if _, refresh := c.Tokens(); refresh == "" {
		return err
	}
	if rerr := c.Refresh(ctx); rerr != nil {
		return err
	}
	return c.send(ctx, method, path, payload, out)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, out interface{}) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.accessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %w", vault.ErrCollaboratorUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	return classify(response.Decode(resp.StatusCode, resp.Body, out))
}

// classify wraps status errors in the sentinel callers match on. The
// *response.StatusError stays in the chain.
func classify(err error) error {
	var statusErr *response.StatusError
	if !errors.As(err, &statusErr) {
		return err
	}

	switch {
	case statusErr.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", vault.ErrCollaboratorUnavailable, err)
	case statusErr.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case statusErr.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	case statusErr.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	default:
		return err
	}
}
