// Package backend is the HTTP client for the Auth Backend REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/pkg/log"
	"github.com/layer-3/walletauth/ports"
)

var _ ports.AuthBackend = (*HTTPBackend)(nil)

const (
	defaultTimeout     = 15 * time.Second
	defaultMaxRetries  = 2
	defaultBackoffBase = 200 * time.Millisecond
	maxBodySize        = 1 << 20
)

// StatusError is a non-2xx response the client could not map to a value.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth backend returned %d", e.Code)
	}
	return fmt.Sprintf("auth backend returned %d: %s", e.Code, e.Message)
}

// HTTPBackend talks to the Auth Backend. The session cookie set by
// POST /auth/verify is kept in the client's cookie jar and sent with every
// later request.
type HTTPBackend struct {
	baseURL     *url.URL
	client      *http.Client
	logger      log.Logger
	maxRetries  uint64
	backoffBase time.Duration
}

// Option configures an HTTPBackend.
type Option func(*HTTPBackend)

// WithHTTPClient replaces the HTTP client. A cookie jar is added when the
// client has none.
func WithHTTPClient(c *http.Client) Option {
	return func(b *HTTPBackend) {
		if c != nil {
			b.client = c
		}
	}
}

func WithLogger(lg log.Logger) Option {
	return func(b *HTTPBackend) {
		if lg != nil {
			b.logger = lg
		}
	}
}

// WithMaxRetries sets how many times GET /me is retried after a network
// error or a 5xx response.
func WithMaxRetries(n uint64) Option {
	return func(b *HTTPBackend) { b.maxRetries = n }
}

func WithBackoffBase(d time.Duration) Option {
	return func(b *HTTPBackend) {
		if d > 0 {
			b.backoffBase = d
		}
	}
}

// NewHTTPBackend creates a client for the backend at baseURL.
func NewHTTPBackend(baseURL string, opts ...Option) (*HTTPBackend, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend url %q: scheme must be http or https", baseURL)
	}

	b := &HTTPBackend{
		baseURL:     u,
		client:      &http.Client{Timeout: defaultTimeout},
		logger:      log.NewNoopLogger(),
		maxRetries:  defaultMaxRetries,
		backoffBase: defaultBackoffBase,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.client.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		client := *b.client
		client.Jar = jar
		b.client = &client
	}
	b.logger = b.logger.WithName("auth-backend")
	return b, nil
}

func (b *HTTPBackend) RequestNonce(ctx context.Context, req core.NonceRequest) (*core.NonceResponse, error) {
	var out core.NonceResponse
	status, body, err := b.do(ctx, http.MethodPost, "/auth/nonce", req)
	if err != nil {
		return nil, err
	}
	if status/100 != 2 {
		return nil, &StatusError{Code: status, Message: errorMessage(body)}
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode nonce response: %w", err)
	}
	return &out, nil
}

// Verify returns the decoded body whenever the backend answered with the
// verify envelope, including {success:false} with a non-2xx status.
func (b *HTTPBackend) Verify(ctx context.Context, req core.VerifyRequest) (*core.VerifyResponse, error) {
	status, body, err := b.do(ctx, http.MethodPost, "/auth/verify", req)
	if err != nil {
		return nil, err
	}
	var out core.VerifyResponse
	decodeErr := json.Unmarshal(body, &out)
	if status/100 == 2 {
		if decodeErr != nil {
			return nil, fmt.Errorf("failed to decode verify response: %w", decodeErr)
		}
		return &out, nil
	}
	if decodeErr == nil && !out.Success && out.Error != nil {
		return &out, nil
	}
	return nil, &StatusError{Code: status, Message: errorMessage(body)}
}

// CurrentUser fetches GET /me. 401 and 403 map to core.ErrUnauthorized and
// are not retried.
func (b *HTTPBackend) CurrentUser(ctx context.Context) (*core.Profile, error) {
	var profile core.Profile
	backoff := retry.WithMaxRetries(b.maxRetries, retry.NewExponential(b.backoffBase))
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		status, body, err := b.do(ctx, http.MethodGet, "/me", nil)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			b.logger.Debug("profile request failed", "attempt", attempt, "err", err)
			return retry.RetryableError(err)
		}
		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return core.ErrUnauthorized
		case status >= 500:
			b.logger.Debug("profile request failed", "attempt", attempt, "status", status)
			return retry.RetryableError(&StatusError{Code: status, Message: errorMessage(body)})
		case status/100 != 2:
			return &StatusError{Code: status, Message: errorMessage(body)}
		}
		if err := json.Unmarshal(body, &profile); err != nil {
			return fmt.Errorf("failed to decode profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (b *HTTPBackend) Logout(ctx context.Context) error {
	status, body, err := b.do(ctx, http.MethodPost, "/logout", nil)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return &StatusError{Code: status, Message: errorMessage(body)}
	}
	return nil
}

func (b *HTTPBackend) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL.JoinPath(path).String(), reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: failed to read response: %w", method, path, err)
	}
	b.logger.Debug("auth backend call", "method", method, "path", path, "status", resp.StatusCode)
	return resp.StatusCode, body, nil
}

// errorMessage extracts {"error":"..."} or {"error":{"message":"..."}}.
func errorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return strings.TrimSpace(string(body))
	}
	var s string
	if err := json.Unmarshal(envelope.Error, &s); err == nil {
		return s
	}
	var apiErr core.APIError
	if err := json.Unmarshal(envelope.Error, &apiErr); err == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return string(envelope.Error)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
