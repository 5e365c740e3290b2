// identity — HTTP-клиент identity-сервиса: вход, обмен refresh-токена, отзыв.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pribylovaa/research-gateway/internal/clients/interceptors"
	"github.com/pribylovaa/research-gateway/internal/config"
	"github.com/pribylovaa/research-gateway/internal/credentials"
	"github.com/pribylovaa/research-gateway/internal/models"
)

const maxResponseBytes = 1 << 20

var (
	// ErrRejected — identity-сервис отверг учётные данные или refresh-токен (401/403).
	ErrRejected = errors.New("identity: rejected")
	// ErrUnexpectedStatus — любой иной не-2xx ответ.
	ErrUnexpectedStatus = errors.New("identity: unexpected status")
	// ErrBadResponse — тело ответа не разобралось или пара неполная.
	ErrBadResponse = errors.New("identity: bad response")
)

// Client реализует gateway.Identity поверх REST identity-сервиса.
type Client struct {
	httpClient *http.Client
	cfg        config.IdentityConfig
	userAgent  string
}

// Option настраивает Client.
type Option func(*Client)

// WithHTTPClient подменяет http.Client (таймауты, транспорт, тесты).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUserAgent задаёт User-Agent исходящих запросов.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func New(cfg config.IdentityConfig, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cfg:        cfg,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Login обменивает email/пароль на пару токенов. Возвращает пару и user_id.
func (c *Client) Login(ctx context.Context, email, password string) (credentials.Credential, string, error) {
	const op = "identity.Client.Login"

	var out models.AuthResponse
	in := models.LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := c.post(ctx, c.cfg.LoginPath, in, &out); err != nil {
		return credentials.Credential{}, "", fmt.Errorf("%s: %w", op, err)
	}

	cred := out.Credential()
	if !cred.Complete() {
		return credentials.Credential{}, "", fmt.Errorf("%s: %w: incomplete token pair", op, ErrBadResponse)
	}

	return cred, out.UserID, nil
}

// Refresh обменивает текущую пару на новую. Любая ошибка — провал обновления.
func (c *Client) Refresh(ctx context.Context, cur credentials.Credential) (credentials.Credential, error) {
	const op = "identity.Client.Refresh"

	var out models.AuthResponse
	if err := c.post(ctx, c.cfg.RefreshPath, models.RefreshFromCredential(cur), &out); err != nil {
		return credentials.Credential{}, fmt.Errorf("%s: %w", op, err)
	}

	next := out.Credential()
	if !next.Complete() {
		return credentials.Credential{}, fmt.Errorf("%s: %w: incomplete token pair", op, ErrBadResponse)
	}

	return next, nil
}

// Revoke отзывает refresh-токен.
func (c *Client) Revoke(ctx context.Context, refreshToken string) error {
	const op = "identity.Client.Revoke"

	var out models.RevokeResponse
	if err := c.post(ctx, c.cfg.RevokePath, models.RevokeRequest{RefreshToken: refreshToken}, &out); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !out.Ok {
		return fmt.Errorf("%s: %w: revoke not acknowledged", op, ErrBadResponse)
	}

	return nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if rid := interceptors.RequestID(ctx); rid != "" {
		req.Header.Set("X-Request-Id", rid)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return fmt.Errorf("%w: %s", ErrRejected, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	return nil
}
