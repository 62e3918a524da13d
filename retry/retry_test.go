package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
)

func fastPolicy() Policy {
	return Policy{MaxRetries: 5, Initial: time.Millisecond, Max: 8 * time.Millisecond}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	// [503, 503, 200]: exactly two delayed retries before success.
	responses := []int{503, 503, 0}
	calls := 0
	var waits []time.Time
	start := time.Now()
	err := Do(context.Background(), fastPolicy(), nil, func(ctx context.Context) error {
		waits = append(waits, time.Now())
		code := responses[calls]
		calls++
		if code == 0 {
			return nil
		}
		return &googleapi.Error{Code: code}
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	// each retry waited at least the un-jittered base delay
	if waits[1].Sub(start) < time.Millisecond {
		t.Error("first retry did not wait")
	}
	if waits[2].Sub(waits[1]) < 2*time.Millisecond {
		t.Error("second retry delay should be at least doubled base")
	}
}

func TestDoStopsOnTerminalError(t *testing.T) {
	calls := 0
	terminal := &googleapi.Error{Code: 404}
	err := Do(context.Background(), fastPolicy(), nil, func(ctx context.Context) error {
		calls++
		return terminal
	})
	if !errors.Is(err, terminal) {
		t.Errorf("err = %v, want the 404", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries on 404)", calls)
	}
}

func TestDoExhaustsBudget(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), nil, func(ctx context.Context) error {
		calls++
		return &googleapi.Error{Code: 503}
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 6 {
		t.Errorf("calls = %d, want 6 (1 try + 5 retries)", calls)
	}
}

func TestDoHonorsContextDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxRetries: 5, Initial: time.Hour, Max: time.Hour}
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, p, nil, func(ctx context.Context) error {
			return &googleapi.Error{Code: 503}
		})
	}()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", &googleapi.Error{Code: 429}, true},
		{"500", &googleapi.Error{Code: 500}, true},
		{"502", &googleapi.Error{Code: 502}, true},
		{"503", &googleapi.Error{Code: 503}, true},
		{"504", &googleapi.Error{Code: 504}, true},
		{"409 backendError", &googleapi.Error{Code: 409, Errors: []googleapi.ErrorItem{{Reason: "backendError"}}}, true},
		{"409 unavailable message", &googleapi.Error{Code: 409, Errors: []googleapi.ErrorItem{{Reason: "conflict", Message: "Service temporarily unavailable"}}}, true},
		{"409 plain conflict", &googleapi.Error{Code: 409, Errors: []googleapi.ErrorItem{{Reason: "duplicate"}}}, false},
		{"403 quota", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "quotaExceeded"}}}, false},
		{"404", &googleapi.Error{Code: 404}, false},
		{"cancelled", context.Canceled, false},
		{"opaque error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
