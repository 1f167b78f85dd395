package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"
)

// Client talks to the auth endpoints. The refresh cookie lives in the
// cookie jar, the access token in memory.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu          sync.RWMutex
	accessToken string
}

type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("auth: status %d: %s", e.StatusCode, e.Message)
}

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. A cookie jar is attached
// when hc has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient.Jar == nil {
		jar, _ := cookiejar.New(nil)
		c.httpClient.Jar = jar
	}
	return c
}

func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

func (c *Client) setAccess(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

func (c *Client) Register(ctx context.Context, email, password string) error {
	return c.credentials(ctx, "/auth/register", email, password)
}

func (c *Client) Login(ctx context.Context, email, password string) error {
	return c.credentials(ctx, "/auth/login", email, password)
}

func (c *Client) credentials(ctx context.Context, path, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, path, body, false, &out); err != nil {
		return err
	}
	c.setAccess(out.AccessToken)
	return nil
}

// Refresh exchanges the refresh cookie for a new access token.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, false, &out); err != nil {
		return "", err
	}
	c.setAccess(out.AccessToken)
	return out.AccessToken, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, true, nil); err != nil {
		return err
	}
	c.setAccess("")
	return nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.Do(ctx, http.MethodGet, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Do sends an authorized request. On 401 it refreshes the access token once
// and retries.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	err := c.do(ctx, method, path, body, true, out)
	se, ok := err.(*StatusError)
	if !ok || se.StatusCode != http.StatusUnauthorized {
		return err
	}
	if _, rerr := c.Refresh(ctx); rerr != nil {
		return err
	}
	return c.do(ctx, method, path, body, true, out)
}

func (c *Client) do(ctx context.Context, method, path string, body any, authorized bool, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		if tok := c.AccessToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&msg)
		return &StatusError{StatusCode: resp.StatusCode, Message: msg.Message}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
