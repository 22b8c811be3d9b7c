package source

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AuthError indicates that authentication has failed or expired for the
// remote sync function. It is returned when a 401 response is received.
type AuthError struct {
	Endpoint string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Endpoint, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// SkipReasonLocked is reported when another process holds the server-side
// sync lock.
const SkipReasonLocked = "locked"

// Summary describes a completed sync.
type Summary struct {
	ThreadsSynced  int      `json:"threads_synced"`
	MessagesSynced int      `json:"messages_synced"`
	Errors         []string `json:"errors,omitempty"`
}

// Outcome is the result of one remote sync call. Either Skipped is set
// with a reason, or Summary describes the completed work.
type Outcome struct {
	Summary

	Skipped     bool   `json:"skipped"`
	Reason      string `json:"reason,omitempty"`
	LockedUntil string `json:"locked_until,omitempty"`
}

// Locked reports whether the call was skipped because another process
// is already syncing.
func (o Outcome) Locked() bool {
	return o.Skipped && o.Reason == SkipReasonLocked
}

// LockedUntilTime parses LockedUntil, returning the zero time when it is
// absent or malformed.
func (o Outcome) LockedUntilTime() time.Time {
	ts, err := time.Parse(time.RFC3339Nano, o.LockedUntil)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// Syncer is the remote "pull new mail" operation. It takes no input and
// is safe to call repeatedly.
type Syncer interface {
	Sync(ctx context.Context) (*Outcome, error)
}
