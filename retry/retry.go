// Package retry implements the exponential backoff policy shared by the
// playlist create/list/insert and upload calls. Delays double per attempt up
// to a cap, with uniform random jitter added to every wait.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
)

// Policy bounds a retried operation.
type Policy struct {
	// MaxRetries is the number of retries beyond the first attempt.
	MaxRetries int
	// Initial is the delay before the first retry; doubled each attempt.
	Initial time.Duration
	// Max caps the delay (jitter included).
	Max time.Duration
}

// DefaultPolicy applies to playlist create/list/insert calls.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 5, Initial: 1 * time.Second, Max: 30 * time.Second}
}

// UploadPolicy applies to the video upload call, which is expensive enough to
// warrant a smaller budget.
func UploadPolicy() Policy {
	return Policy{MaxRetries: 3, Initial: 2 * time.Second, Max: 30 * time.Second}
}

// Retryable reports whether err is worth retrying. HTTP 429 and 5xx from the
// hosting API retry, as does 409 when the reported reason signals transient
// backend unavailability. Plain network errors retry; everything else is
// terminal for the operation.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 502, 503, 504:
			return true
		case 409:
			for _, e := range apiErr.Errors {
				if e.Reason == "backendError" {
					return true
				}
				msg := strings.ToLower(e.Message)
				if strings.Contains(msg, "unavailable") || strings.Contains(msg, "try again") {
					return true
				}
			}
			return false
		default:
			return false
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}

// Do runs fn, retrying per p when classify approves. A nil classify uses
// Retryable. Waits honor ctx cancellation; the terminal error is the last one
// fn returned.
func Do(ctx context.Context, p Policy, classify func(error) bool, fn func(context.Context) error) error {
	if classify == nil {
		classify = Retryable
	}
	delay := p.Initial
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt >= p.MaxRetries || !classify(lastErr) {
			return lastErr
		}
		wait := delay
		if p.Initial > 0 {
			wait += time.Duration(rand.Int63n(int64(p.Initial))) //nolint:gosec // jitter, not security
		}
		if wait > p.Max {
			wait = p.Max
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
		if delay > p.Max {
			delay = p.Max
		}
	}
}
