package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pnerrors "github.com/lepinkainen/pricenest/internal/errors"
	"github.com/lepinkainen/pricenest/internal/ratelimit"
)

const (
	defaultMaxAttempts = 3
	defaultTimeout     = 10 * time.Second
	userAgent          = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
)

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Options configures a Transport. Adapters expose it through Option values.
type Options struct {
	BaseURL       string
	HTTPClient    HTTPDoer
	RateLimiter   *ratelimit.Limiter
	RetryAttempts int
}

// Option is a functional option shared by the catalog clients.
type Option func(*Options)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(o *Options) {
		if c != nil {
			o.HTTPClient = c
		}
	}
}

// WithBaseURL points the client at a different API root.
func WithBaseURL(base string) Option {
	return func(o *Options) {
		if base != "" {
			o.BaseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithRetryAttempts sets the number of attempts for transient failures.
func WithRetryAttempts(attempts int) Option {
	return func(o *Options) {
		if attempts > 0 {
			o.RetryAttempts = attempts
		}
	}
}

// WithRateLimiter sets the client-side throttle.
func WithRateLimiter(limiter *ratelimit.Limiter) Option {
	return func(o *Options) {
		if limiter != nil {
			o.RateLimiter = limiter
		}
	}
}

// WithTimeout replaces the default HTTP client with one using timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		if timeout > 0 {
			o.HTTPClient = &http.Client{Timeout: timeout}
		}
	}
}

// Transport performs throttled, retried GET requests for one catalog source.
type Transport struct {
	source  string
	opts    Options
	backoff func(attempt int) time.Duration
}

// NewTransport applies opts over defaults for source.
func NewTransport(source string, defaults Options, opts ...Option) *Transport {
	if defaults.HTTPClient == nil {
		defaults.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if defaults.RetryAttempts <= 0 {
		defaults.RetryAttempts = defaultMaxAttempts
	}
	for _, opt := range opts {
		opt(&defaults)
	}
	return &Transport{source: source, opts: defaults, backoff: backoffDelay}
}

// Source names the catalog this transport talks to.
func (t *Transport) Source() string {
	return t.source
}

// BaseURL returns the configured API root.
func (t *Transport) BaseURL() string {
	return t.opts.BaseURL
}

// Endpoint joins path and query onto the base URL.
func (t *Transport) Endpoint(path string, query url.Values) string {
	endpoint := t.opts.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return endpoint
}

// GetJSON decodes the response of endpoint into target.
func (t *Transport) GetJSON(ctx context.Context, endpoint string, target any) error {
	body, err := t.Get(ctx, endpoint)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", t.source, err)
	}
	return nil
}

// Get returns the response body of endpoint. Timeouts and dropped connections
// are retried; 403/429 become RateLimitError and other non-2xx answers
// UpstreamError.
func (t *Transport) Get(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= t.opts.RetryAttempts; attempt++ {
		body, err := t.do(ctx, endpoint)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == t.opts.RetryAttempts {
			return nil, err
		}
		slog.Debug("Retrying catalog request", "source", t.source, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(t.backoff(attempt)):
		}
	}
	return nil, lastErr
}

func (t *Transport) do(ctx context.Context, endpoint string) ([]byte, error) {
	if err := t.opts.RateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	slog.Debug("Catalog response", "source", t.source, "status", resp.StatusCode, "url", endpoint)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden:
		rlErr := pnerrors.NewRateLimitErrorWithRetry(
			fmt.Sprintf("rate limited by %s (status %d)", t.source, resp.StatusCode),
			parseRetryAfter(resp.Header.Get("Retry-After")))
		rlErr.Source = t.source
		return nil, rlErr
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, pnerrors.NewUpstreamError(t.source, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return io.ReadAll(resp.Body)
}

func parseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func isRetryable(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		// Network errors (connection resets etc.)
		if strings.Contains(urlErr.Error(), "connection") {
			return true
		}
	}
	return false
}

func backoffDelay(attempt int) time.Duration {
	// exponential backoff capped at 10 seconds
	delay := time.Duration(1<<uint(attempt-1)) * time.Second
	if delay > 10*time.Second {
		return 10 * time.Second
	}
	return delay
}
