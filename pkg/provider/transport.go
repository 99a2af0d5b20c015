package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

const (
	transportAttempts = 4
	transportBaseWait = 500 * time.Millisecond
	transportMaxWait  = 8 * time.Second
)

var httpClient = &http.Client{Timeout: 10 * time.Minute}

// transientStatus reports whether an HTTP status warrants a transport-level
// retry: 429, any 5xx, and 404 (a POST-then-poll race on providers that
// materialize responses asynchronously).
func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusNotFound || code >= 500
}

// postJSON sends body to url and returns the final status and response body.
// Network errors and transient statuses are retried with exponential backoff
// and jitter, bounded by transportAttempts.
func postJSON(ctx context.Context, url string, headers map[string]string, body []byte) (int, []byte, error) {
	var lastErr error
	wait := transportBaseWait

	for attempt := 1; attempt <= transportAttempts; attempt++ {
		if attempt > 1 {
			jittered := wait/2 + time.Duration(rand.Int63n(int64(wait/2)+1))
			select {
			case <-ctx.Done():
				return 0, nil, ctx.Err()
			case <-time.After(jittered):
			}
			if wait *= 2; wait > transportMaxWait {
				wait = transportMaxWait
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return 0, nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}
		if transientStatus(resp.StatusCode) {
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody, 200))
			continue
		}
		return resp.StatusCode, respBody, nil
	}
	return 0, nil, fmt.Errorf("transport exhausted after %d attempts: %w", transportAttempts, lastErr)
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
