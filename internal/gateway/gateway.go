// Package gateway is the single outbound chokepoint for backend HTTP calls.
// It attaches bearer tokens, refuses to dispatch with a stale token, and
// normalizes every failure into an *APIError wrapping a stable sentinel.
// Navigation concerns stay out of this layer: interested parties subscribe
// to auth expiry instead.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/nvoskan/equiterm/internal/authtoken"
	"github.com/nvoskan/equiterm/internal/config"
	"github.com/nvoskan/equiterm/internal/errs"
	"go.uber.org/zap"
)

// NetworkErrorMessage is the fixed user-facing text for connectivity
// failures where no response reached the client.
const NetworkErrorMessage = "Network error. Please check your connection."

// CredentialSource supplies the bearer token and clears it on auth expiry.
type CredentialSource interface {
	Token() string
	Clear()
}

// APIError is the normalized failure shape returned by the gateway. Message
// carries the backend-provided detail when present, else a transport-level
// description.
type APIError struct {
	Status  int
	Message string
	cause   error
}

func (e *APIError) Error() string { return e.Message }

// Unwrap exposes the classification sentinel for errors.Is checks.
func (e *APIError) Unwrap() error { return e.cause }

// Gateway issues requests against a single backend origin.
type Gateway struct {
	baseURL string
	client  *http.Client
	creds   CredentialSource
	log     *zap.Logger

	mu          sync.Mutex
	authExpired []func()
}

// New builds a gateway from the central configuration. No other component
// holds the backend base URL.
func New(cfg *config.Config, creds CredentialSource, log *zap.Logger) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.APITimeout},
		creds:   creds,
		log:     log,
	}
}

// OnAuthExpired registers fn to run whenever the gateway clears credentials,
// either pre-flight (stale token) or on a 401 response.
func (g *Gateway) OnAuthExpired(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authExpired = append(g.authExpired, fn)
}

// PostJSON sends body to path and decodes the 2xx response into out (out may
// be nil). A token, when present, is attached as a bearer header; a present
// but expired token aborts the call before it reaches the network.
func (g *Gateway) PostJSON(ctx context.Context, path string, body, out any) error {
	token := g.creds.Token()
	if token != "" && authtoken.IsExpired(token) {
		g.log.Warn("token expired, clearing auth data")
		g.creds.Clear()
		g.notifyAuthExpired()
		return &APIError{Message: "Token expired", cause: errs.ErrTokenExpired}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	g.log.Debug("api request", zap.String("path", path))
	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Error("network error", zap.String("path", path), zap.Error(err))
		return &APIError{Message: NetworkErrorMessage, cause: errs.ErrNetwork}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		g.log.Error("read response", zap.String("path", path), zap.Error(err))
		return &APIError{Message: NetworkErrorMessage, cause: errs.ErrNetwork}
	}

	g.log.Debug("api response", zap.String("path", path), zap.Int("status", resp.StatusCode))
	if resp.StatusCode >= 400 {
		return g.classify(path, resp.StatusCode, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// classify maps a failure status to its sentinel and pulls the backend
// detail message when one is present.
func (g *Gateway) classify(path string, status int, body []byte) error {
	var eb struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &eb)

	msg := eb.Detail
	if msg == "" {
		msg = eb.Message
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	var cause error
	switch {
	case status == http.StatusUnauthorized:
		g.log.Warn("unauthorized access", zap.String("path", path))
		g.creds.Clear()
		g.notifyAuthExpired()
		cause = errs.ErrUnauthorized
	case status == http.StatusForbidden:
		g.log.Warn("access forbidden", zap.String("path", path), zap.String("detail", msg))
		cause = errs.ErrForbidden
	case status == http.StatusNotFound:
		g.log.Warn("resource not found", zap.String("path", path))
		cause = errs.ErrNotFound
	case status == http.StatusTooManyRequests:
		g.log.Warn("rate limit exceeded", zap.String("path", path))
		cause = errs.ErrRateLimited
	case status >= 500:
		g.log.Error("server error", zap.String("path", path), zap.Int("status", status))
		cause = errs.ErrServer
	default:
		g.log.Error("api error", zap.String("path", path), zap.Int("status", status))
		cause = errs.ErrServer
	}
	return &APIError{Status: status, Message: msg, cause: cause}
}

func (g *Gateway) notifyAuthExpired() {
	g.mu.Lock()
	subs := append([]func(){}, g.authExpired...)
	g.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}
