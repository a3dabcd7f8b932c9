package remote

import (
	"context"
	"io"
	"net/http"
	"time"
)

// DefaultBackoff is the base delay between retries.
const DefaultBackoff = 600 * time.Millisecond

// MaxBackoff caps a single retry delay.
const MaxBackoff = 30 * time.Second

// IsRetryableStatus reports whether an idempotent GET answered with status
// should be attempted again.
func IsRetryableStatus(status int) bool {
	switch status {
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// RetryPolicy retries a request on transient server errors with
// exponential backoff. Transport errors are returned immediately.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
	Retryable  func(status int) bool
}

// NewRetryPolicy returns the default policy allowing retries extra attempts.
func NewRetryPolicy(retries int) RetryPolicy {
	if retries < 0 {
		retries = 0
	}
	return RetryPolicy{
		MaxRetries: retries,
		Backoff:    DefaultBackoff,
		Retryable:  IsRetryableStatus,
	}
}

// Delay returns the wait before retry number attempt (0-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.Backoff <= 0 {
		return 0
	}
	d := p.Backoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= MaxBackoff {
			return MaxBackoff
		}
	}
	return d
}

// Do calls send until it returns a non-retryable response, the retry budget
// is exhausted, or ctx is done. The last response is returned as-is so the
// caller can inspect its status.
func (p RetryPolicy) Do(ctx context.Context, send func() (*http.Response, error)) (*http.Response, error) {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryableStatus
	}

	for attempt := 0; ; attempt++ {
		resp, err := send()
		if err != nil {
			return nil, err
		}
		if !retryable(resp.StatusCode) || attempt >= p.MaxRetries {
			return resp, nil
		}

		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		timer := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
