package signaling

import (
	"context"
)

// Client abstracts the three signaling operations a subscriber needs from the media server.
// Implementations return `*Error` for transport and server failures and never retry on their own.
type Client interface {
	// Creates a subscription session for the given offer. Returns the answer and the location of
	// the new session. Called at most once per subscriber.
	Pull(ctx context.Context, request PullRequest) (*PullResponse, error)
	// Pushes the current mute flags of both kinds to the session at `location`. Idempotent.
	Update(ctx context.Context, token, location string, request UpdateRequest) error
	// Terminates the session at `location`.
	Delete(ctx context.Context, token, location string) error
}
