package signaling

import (
	"fmt"
)

// Signaling operations, used in errors, logs and metrics.
const (
	OpPull   = "pull"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Error is returned when a signaling call fails, either because the request could not be
// delivered or because the media server rejected it.
type Error struct {
	// The operation that failed (`OpPull`, `OpUpdate` or `OpDelete`).
	Op string
	// HTTP status returned by the server, 0 if no response was received.
	StatusCode int
	// Body of the error response (truncated), if any.
	Message string
	// Underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("signaling %s failed with status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("signaling %s failed with status %d", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("signaling %s failed: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}
