// Package oauth provides background token refresh scheduling. It performs
// jittered checks and refreshes the cached credential when its expiry falls
// within a configured window, so interactive commands rarely pay the refresh
// round trip themselves.
package oauth

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// Refresher refreshes the cached credential when it is about to expire.
// Implemented by youtubeapi.Service.
type Refresher interface {
	RefreshIfExpiring(ctx context.Context, window time.Duration) error
}

// StartRefresher launches a goroutine that periodically checks the credential.
// interval: how often to wake up. window: refresh when remaining lifetime <= window.
func StartRefresher(ctx context.Context, r Refresher, interval, window time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if window <= 0 {
		window = 20 * time.Minute
	}
	// Randomize initial delay to spread load across instances.
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter
	initialJitter := time.Duration(rand.Int63n(int64(interval / 2)))
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(initialJitter):
		}
		for {
			// per-iteration jitter (±20% of interval) for scheduling diversity
			jitterRange := int64(interval / 5)
			//nolint:gosec // G404: math/rand is sufficient for scheduling jitter
			jitter := time.Duration(rand.Int63n(jitterRange*2) - jitterRange)
			nextSleep := interval + jitter
			if nextSleep < interval/2 {
				nextSleep = interval / 2
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(nextSleep):
			}
			rctx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := r.RefreshIfExpiring(rctx, window)
			cancel()
			if err != nil {
				slog.Warn("token refresh failed", slog.Any("err", err))
				continue
			}
		}
	}()
}
