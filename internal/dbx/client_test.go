package dbx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/credentials"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(credentials.Credentials{Host: srv.URL, Token: "test-token"}, ClientConfig{})

	// Record backoff waits instead of sleeping.
	var waits []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return c, &waits
}

func TestThrottleRetryCeiling(t *testing.T) {
	var requests int64
	c, waits := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	err := c.GetJSON(context.Background(), "dbfs", "/api/2.0/dbfs/list", nil, nil, nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || !httpErr.IsRateLimited() {
		t.Fatalf("expected rate limited error, got %v", err)
	}

	if got := atomic.LoadInt64(&requests); got != 5 {
		t.Errorf("expected 5 attempts, got %d", got)
	}

	// Waits double per attempt: 2+4+8+16+32 = 62s total.
	var total time.Duration
	for _, w := range *waits {
		total += w
	}
	if total != 62*time.Second {
		t.Errorf("expected 62s total backoff, got %v", total)
	}
	if (*waits)[len(*waits)-1] != 32*time.Second {
		t.Errorf("expected final wait of 32s, got %v", (*waits)[len(*waits)-1])
	}
}

func TestTransientRetryRecovers(t *testing.T) {
	var requests int64
	c, waits := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&requests, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok": true}`))
	}))

	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.GetJSON(context.Background(), "dbfs", "/api/2.0/dbfs/list", nil, nil, &out); err != nil {
		t.Fatalf("expected recovery after transient errors, got %v", err)
	}
	if !out.OK {
		t.Error("response not decoded")
	}

	if got := atomic.LoadInt64(&requests); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	// Transient backoff: 2s then 4s.
	if len(*waits) != 2 || (*waits)[0] != 2*time.Second || (*waits)[1] != 4*time.Second {
		t.Errorf("unexpected backoff sequence %v", *waits)
	}
}

func TestTransientBackoffCeiling(t *testing.T) {
	if got := backoff(5, maxTransientBackoff); got != 16*time.Second {
		t.Errorf("expected 16s cap, got %v", got)
	}
	if got := backoff(5, maxThrottleBackoff); got != 32*time.Second {
		t.Errorf("expected 32s cap, got %v", got)
	}
}

func TestNotFoundIsTerminal(t *testing.T) {
	var requests int64
	c, waits := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		http.Error(w, `{"error_code": "RESOURCE_DOES_NOT_EXIST"}`, http.StatusNotFound)
	}))

	err := c.GetJSON(context.Background(), "dbfs", "/api/2.0/dbfs/list", nil, nil, nil)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || !httpErr.IsNotFound() {
		t.Fatalf("expected 404 error, got %v", err)
	}

	if got := atomic.LoadInt64(&requests); got != 1 {
		t.Errorf("404 must not be retried, got %d attempts", got)
	}
	if len(*waits) != 0 {
		t.Errorf("404 must not back off, got %v", *waits)
	}
}

func TestAuthorizationHeader(t *testing.T) {
	var auth string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))

	if err := c.GetJSON(context.Background(), "dbfs", "/api/2.0/dbfs/list", nil, nil, nil); err != nil {
		t.Fatal(err)
	}
	if auth != "Bearer test-token" {
		t.Errorf("expected bearer token header, got %q", auth)
	}
}

func TestQueryEncoding(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Query().Get("path")
		w.Write([]byte(`{}`))
	}))

	q := url.Values{"path": {"/Users/someone@example.com"}}
	if err := c.GetJSON(context.Background(), "workspace", "/api/2.0/workspace/list", q, nil, nil); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/Users/someone@example.com" {
		t.Errorf("query round trip failed, got %q", gotPath)
	}
}

func TestFirstRequestIsNotPaced(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	start := time.Now()
	if err := c.GetJSON(context.Background(), "dbfs", "/api/2.0/dbfs/list", nil, nil, nil); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 40*time.Millisecond {
		t.Errorf("first request should skip pacing, took %v", elapsed)
	}
}

func TestBaselineRaiseCapped(t *testing.T) {
	c := NewClient(credentials.Credentials{Host: "http://example.invalid", Token: "t"}, ClientConfig{})

	if c.paceInterval != initialPaceInterval {
		t.Fatalf("expected initial interval %v, got %v", initialPaceInterval, c.paceInterval)
	}

	c.raiseBaseline()
	if c.paceInterval != 75*time.Millisecond {
		t.Errorf("expected 75ms after first raise, got %v", c.paceInterval)
	}

	for i := 0; i < 20; i++ {
		c.raiseBaseline()
	}
	if c.paceInterval != maxPaceInterval {
		t.Errorf("expected cap at %v, got %v", maxPaceInterval, c.paceInterval)
	}
}

func TestContextCancellationAborts(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.GetJSON(ctx, "dbfs", "/api/2.0/dbfs/list", nil, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
