package pipeline

import (
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"

	"playlistbot/youtubeapi"
)

// Whole-invocation failures. Per-item failures are collected as
// FailureRecords instead and never abort the batch.
var (
	// ErrPlaylistCreateFailed aborts the invocation: without a playlist id
	// there is nothing to insert into.
	ErrPlaylistCreateFailed = errors.New("playlist create failed")
	// ErrQuotaExceeded is the hosting API's usage-limit signal.
	ErrQuotaExceeded = errors.New("youtube api quota exceeded")
)

// FailureRecord captures one per-item failure for the user-facing summary.
// Never persisted beyond the single response message.
type FailureRecord struct {
	Link        string
	AttemptedID string
	Reason      string
}

// abortErr maps errors that must end the invocation to their returned form.
// Quota exhaustion fails every remaining call, and a dead credential fails
// them the same way; neither is worth burning the retry budget per item.
// Returns nil for per-item errors that become FailureRecords.
func abortErr(err error) error {
	if errors.Is(err, youtubeapi.ErrAuthenticationFailed) {
		return err
	}
	if IsQuotaError(err) {
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	}
	return nil
}

// IsQuotaError reports whether err is the API's usage-limit rejection.
func IsQuotaError(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code != 403 {
		return false
	}
	for _, e := range apiErr.Errors {
		switch e.Reason {
		case "quotaExceeded", "dailyLimitExceeded", "userRateLimitExceeded":
			return true
		}
	}
	return false
}
