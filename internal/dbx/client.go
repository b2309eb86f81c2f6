// Package dbx provides a rate-limited, retry-capable client for the
// Databricks REST API, plus namespace adapters for the DBFS and
// Workspace filesystem listing endpoints.
package dbx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/credentials"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/logging"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/metrics"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxRetries   = 5
	initialPaceInterval = 50 * time.Millisecond
	maxPaceInterval     = 1 * time.Second
	maxThrottleBackoff  = 32 * time.Second
	maxTransientBackoff = 16 * time.Second
)

// ClientConfig configures the API client.
type ClientConfig struct {
	Timeout    time.Duration
	MaxRetries int

	// Transport allows injecting a custom HTTP transport (for tests).
	Transport http.RoundTripper
}

// Client issues paced, retried requests against one workspace.
type Client struct {
	host       string
	token      string
	httpClient *http.Client
	maxRetries int

	limiter *rate.Limiter

	mu           sync.Mutex
	paceInterval time.Duration
	requestCount int64

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client for the workspace the credentials point at.
func NewClient(creds credentials.Credentials, cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	return &Client{
		host:  strings.TrimRight(creds.Host, "/"),
		token: creds.Token,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		maxRetries:   cfg.MaxRetries,
		limiter:      rate.NewLimiter(rate.Every(initialPaceInterval), 1),
		paceInterval: initialPaceInterval,
		sleep:        sleepCtx,
	}
}

// RequestCount returns the number of requests issued so far.
func (c *Client) RequestCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestCount
}

// HTTPError represents a non-2xx API response.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited returns true for 429 responses.
func (e *HTTPError) IsRateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }

// IsServerError returns true for 5xx responses.
func (e *HTTPError) IsServerError() bool { return e.StatusCode >= 500 }

// IsNotFound returns true for 404 responses.
func (e *HTTPError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

// GetJSON issues a paced GET with retry and decodes the response body.
// body, if non-nil, is sent as a JSON request body (the DBFS list
// endpoint takes its path argument that way).
func (c *Client) GetJSON(ctx context.Context, namespace, apiPath string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	data, err := c.do(ctx, namespace, http.MethodGet, apiPath, query, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do executes one logical request with pacing and bounded retry.
// Throttling (429) and transient failures (5xx, transport errors)
// keep independent attempt counters, each bounded by maxRetries.
func (c *Client) do(ctx context.Context, namespace, method, apiPath string, query url.Values, body []byte) ([]byte, error) {
	throttleAttempts := 0
	transientAttempts := 0

	var lastErr error
	for throttleAttempts < c.maxRetries && transientAttempts < c.maxRetries {
		if err := c.pace(ctx); err != nil {
			return nil, err
		}

		data, status, err := c.doOnce(ctx, namespace, method, apiPath, query, body)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		httpErr, ok := err.(*HTTPError)
		switch {
		case ok && httpErr.IsRateLimited():
			throttleAttempts++
			metrics.RecordThrottle(namespace)
			metrics.RecordRetry(namespace, "throttle")
			c.raiseBaseline()
			wait := backoff(throttleAttempts, maxThrottleBackoff)
			logging.Debug("rate limited, backing off",
				zap.String("namespace", namespace),
				zap.String("path", apiPath),
				zap.Duration("wait", wait),
				zap.Int("attempt", throttleAttempts))
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
		case ok && httpErr.IsServerError(), !ok && status == 0:
			// 5xx or transport failure
			transientAttempts++
			metrics.RecordRetry(namespace, "transient")
			wait := backoff(transientAttempts, maxTransientBackoff)
			logging.Debug("transient error, retrying",
				zap.String("namespace", namespace),
				zap.String("path", apiPath),
				zap.Duration("wait", wait),
				zap.Error(err))
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
		default:
			// 404 and other non-success responses are terminal.
			return nil, err
		}
	}

	return nil, lastErr
}

// doOnce issues a single HTTP request attempt. status is 0 when the
// request never produced a response.
func (c *Client) doOnce(ctx context.Context, namespace, method, apiPath string, query url.Values, body []byte) ([]byte, int, error) {
	fullURL := c.host + "/" + strings.TrimPrefix(apiPath, "/")
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read body: %w", err)
	}

	metrics.RecordAPIRequest(namespace, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(data)
		if len(msg) > 256 {
			msg = msg[:256]
		}
		return nil, resp.StatusCode, &HTTPError{StatusCode: resp.StatusCode, Message: msg}
	}

	return data, resp.StatusCode, nil
}

// pace sleeps for the current baseline interval before every request
// after the first, via the shared limiter.
func (c *Client) pace(ctx context.Context) error {
	c.mu.Lock()
	first := c.requestCount == 0
	c.requestCount++
	c.mu.Unlock()

	if first {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// raiseBaseline permanently increases the inter-request delay after a
// throttling event, capped at maxPaceInterval.
func (c *Client) raiseBaseline() {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := time.Duration(float64(c.paceInterval) * 1.5)
	if next > maxPaceInterval {
		next = maxPaceInterval
	}
	if next != c.paceInterval {
		c.paceInterval = next
		c.limiter.SetLimit(rate.Every(next))
	}
}

// backoff returns min(2^attempt, cap) seconds.
func backoff(attempt int, ceiling time.Duration) time.Duration {
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d > ceiling {
		d = ceiling
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
