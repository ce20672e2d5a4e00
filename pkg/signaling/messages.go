package signaling

import (
	"errors"
	"fmt"

	"github.com/pion/sdp/v3"
)

var (
	ErrInvalidRequest  = errors.New("invalid signaling request")
	ErrInvalidResponse = errors.New("invalid signaling response")
)

// Body of the pull request. The field names are the ones the media server expects.
type PullRequest struct {
	AppID     string `json:"AppID"`
	StreamID  string `json:"StreamID"`
	Token     string `json:"-"`
	SessionID string `json:"SessionID"`
	SDP       string `json:"sdp"`
}

func (r PullRequest) Validate() error {
	switch {
	case r.AppID == "":
		return fmt.Errorf("%w: missing app ID", ErrInvalidRequest)
	case r.StreamID == "":
		return fmt.Errorf("%w: missing stream ID", ErrInvalidRequest)
	case r.Token == "":
		return fmt.Errorf("%w: missing token", ErrInvalidRequest)
	case r.SDP == "":
		return fmt.Errorf("%w: missing SDP offer", ErrInvalidRequest)
	}

	return nil
}

// Result of a successful pull.
type PullResponse struct {
	// SDP answer of the media server.
	SDP string `json:"sdp"`
	// Location of the session, used to address updates and the final delete.
	Location string `json:"location,omitempty"`
}

// Checks that the server gave us a session location and an answer we can apply.
func (r PullResponse) Validate() error {
	if r.Location == "" {
		return fmt.Errorf("%w: missing session location", ErrInvalidResponse)
	}

	var answer sdp.SessionDescription
	if err := answer.Unmarshal([]byte(r.SDP)); err != nil {
		return fmt.Errorf("%w: malformed SDP answer: %s", ErrInvalidResponse, err)
	}

	if len(answer.MediaDescriptions) == 0 {
		return fmt.Errorf("%w: SDP answer has no media", ErrInvalidResponse)
	}

	return nil
}

// Mute flags of a session. Both flags are always sent.
type UpdateRequest struct {
	MuteAudio bool `json:"MuteAudio"`
	MuteVideo bool `json:"MuteVideo"`
}
