package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	Init() // second call must not re-register and panic
	if ScrapesStarted == nil || InsertsFailed == nil || ActiveScrapesGauge == nil {
		t.Fatal("metrics not initialized")
	}
}

func TestTimeFunc(t *testing.T) {
	Init()
	d := TimeFunc(ScrapeDuration, func() { time.Sleep(5 * time.Millisecond) })
	if d < 5*time.Millisecond {
		t.Errorf("duration = %v, want >= 5ms", d)
	}
	// nil observer is allowed
	if d := TimeFunc(nil, func() {}); d < 0 {
		t.Error("negative duration")
	}
}

func TestCorrelation(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("GetCorrelation on empty ctx = %q", got)
	}
	ctx = WithCorrelation(ctx, "abc-123")
	if got := GetCorrelation(ctx); got != "abc-123" {
		t.Errorf("GetCorrelation = %q, want abc-123", got)
	}
	if LoggerWithCorr(ctx) == nil {
		t.Error("LoggerWithCorr returned nil")
	}
}
