// Package openrouter is a focused client for the OpenRouter chat-completions
// endpoint: streamed requests with bounded per-attempt timeout, retry with
// exponential backoff plus jitter, and rate-limit-aware retry suppression.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"profile-chat/internal/domain"
)

const (
	defaultBaseURL        = "https://openrouter.ai/api/v1"
	defaultAttemptTimeout = 25 * time.Second
	maxAttempts           = 3

	detailLimit    = 4096
	logDetailLimit = 500
)

// CredentialSource yields the bearer token for upstream requests. The key is
// resolved on the first call to StreamChat and cached for the lifetime of the
// process.
type CredentialSource interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticCredential wraps an already-known API key, e.g. from the environment.
type StaticCredential string

func (s StaticCredential) APIKey(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", errors.New("openrouter: API key is empty")
	}
	return string(s), nil
}

// chatRequest is the wire shape for the chat-completions endpoint.
type chatRequest struct {
	Model    string               `json:"model"`
	Stream   bool                 `json:"stream"`
	Messages []domain.ChatMessage `json:"messages"`
	Provider *providerOptions     `json:"provider,omitempty"`
	Models   []string             `json:"models,omitempty"`
}

type providerOptions struct {
	AllowFallbacks bool   `json:"allow_fallbacks"`
	Sort           string `json:"sort"`
}

// Request describes one logical streamed chat completion.
type Request struct {
	Model          string
	FallbackModels []string
	Messages       []domain.ChatMessage
}

// Stream is a successful upstream response. Closing Body releases the
// attempt's resources, so callers must always close it.
type Stream struct {
	Body     io.ReadCloser
	Attempts int
}

// Client issues streamed chat-completion requests against OpenRouter.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	creds          CredentialSource
	siteURL        string
	appTitle       string
	attemptTimeout time.Duration

	keyOnce sync.Once
	apiKey  string
	keyErr  error

	// injectable for deterministic tests
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAttribution sets the HTTP-Referer and X-Title headers OpenRouter uses
// to attribute traffic.
func WithAttribution(siteURL, appTitle string) Option {
	return func(c *Client) {
		c.siteURL = strings.TrimSpace(siteURL)
		c.appTitle = strings.TrimSpace(appTitle)
	}
}

func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.attemptTimeout = d
		}
	}
}

// NewClient creates a new Client backed by the given credential source. The
// returned client's HTTP client carries no overall timeout on purpose: the
// per-attempt timeout only bounds time to response headers, and a successful
// stream may be read for longer than any sensible request timeout.
func NewClient(creds CredentialSource, opts ...Option) (*Client, error) {
	if creds == nil {
		return nil, errors.New("openrouter: credential source must not be nil")
	}
	c := &Client{
		baseURL:        defaultBaseURL,
		httpClient:     &http.Client{},
		creds:          creds,
		attemptTimeout: defaultAttemptTimeout,
		sleep:          sleepContext,
		jitter:         randomJitter,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// resolveAPIKey fetches the bearer token on the first call and returns the
// cached result on every subsequent call within the same process lifetime.
func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyOnce.Do(func() {
		c.apiKey, c.keyErr = c.creds.APIKey(ctx)
	})
	return c.apiKey, c.keyErr
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// StreamChat issues the chat-completion request and returns the raw SSE body
// on success. On terminal failure the returned error is always a *Failure
// describing the last attempt; it never panics and no transport error escapes
// undressed. Attempts are sequential, never concurrent.
func (c *Client) StreamChat(ctx context.Context, req Request) (*Stream, error) {
	if req.Model == "" {
		return nil, errors.New("openrouter: model must not be empty")
	}

	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("openrouter: resolve credentials: %w", err)
	}

	payload, err := json.Marshal(chatRequest{
		Model:    req.Model,
		Stream:   true,
		Messages: req.Messages,
		Provider: &providerOptions{AllowFallbacks: true, Sort: "throughput"},
		Models:   req.FallbackModels,
	})
	if err != nil {
		return nil, fmt.Errorf("openrouter: marshal request: %w", err)
	}

	url := chatURL(c.baseURL)
	var failure Failure

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		failure.Attempts = attempt

		res, timedOut, doErr := c.doAttempt(ctx, url, apiKey, payload)
		if doErr != nil {
			failure = Failure{
				Attempts:     attempt,
				TimedOut:     timedOut,
				TransportErr: doErr.Error(),
			}
			if ctx.Err() != nil {
				// Caller is gone; retrying would only burn quota.
				break
			}
			if attempt < maxAttempts {
				if c.sleep(ctx, c.backoff(attempt, 0, false)) != nil {
					break
				}
				continue
			}
			break
		}

		if res.StatusCode >= 200 && res.StatusCode < 300 {
			return &Stream{Body: res.Body, Attempts: attempt}, nil
		}

		detail, _ := io.ReadAll(io.LimitReader(res.Body, detailLimit))
		_ = res.Body.Close()
		retryAfter, hasRetryAfter := parseRetryAfter(res.Header.Get("Retry-After"), time.Now())

		failure = Failure{
			Attempts:      attempt,
			Status:        res.StatusCode,
			Detail:        string(detail),
			RetryAfter:    retryAfter,
			HasRetryAfter: hasRetryAfter,
		}

		// A 429 is only worth one more try, and only when the provider's own
		// delay fits inside our backoff cap; otherwise a single user-facing
		// request would compound long provider-side backoffs.
		canRetryRateLimit := res.StatusCode != http.StatusTooManyRequests ||
			(attempt == 1 && (!hasRetryAfter || retryAfter <= retryMax))

		if attempt < maxAttempts && isRetryableStatus(res.StatusCode) && canRetryRateLimit {
			if c.sleep(ctx, c.backoff(attempt, retryAfter, hasRetryAfter)) != nil {
				break
			}
			continue
		}
		break
	}

	c.logFailure(&failure)
	return nil, &failure
}

// doAttempt performs one HTTP attempt. The timeout covers time to response
// headers only; once a response is returned the body is wrapped so closing it
// releases the attempt context, and reads are bounded by the caller's context
// instead.
func (c *Client) doAttempt(ctx context.Context, url, apiKey string, payload []byte) (*http.Response, bool, error) {
	attemptCtx, cancel := context.WithCancel(ctx)
	var timedOut atomic.Bool
	timer := time.AfterFunc(c.attemptTimeout, func() {
		timedOut.Store(true)
		cancel()
	})

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		timer.Stop()
		cancel()
		return nil, false, fmt.Errorf("openrouter: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	if c.siteURL != "" {
		req.Header.Set("HTTP-Referer", c.siteURL)
	}
	if c.appTitle != "" {
		req.Header.Set("X-Title", c.appTitle)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		timer.Stop()
		cancel()
		return nil, timedOut.Load(), err
	}

	timer.Stop()
	res.Body = &cancelOnClose{ReadCloser: res.Body, cancel: cancel}
	return res, false, nil
}

func (c *Client) logFailure(f *Failure) {
	detail := f.Detail
	if len(detail) > logDetailLimit {
		detail = detail[:logDetailLimit]
	}
	slog.Error("openrouter upstream failure",
		"status", f.Status,
		"attempts", f.Attempts,
		"timedOut", f.TimedOut,
		"retryAfterMs", f.RetryAfter.Milliseconds(),
		"transportErr", f.TransportErr,
		"detail", detail,
	)
}

// cancelOnClose ties an attempt's context to the response body lifetime.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
