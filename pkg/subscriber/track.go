package subscriber

import (
	"github.com/matrix-org/subscriber/pkg/webrtc_ext"
	"github.com/pion/webrtc/v3"
)

// A track received from the media server. The media resources belong to the peer connection,
// the subscriber only keeps a reference to the latest track of each kind.
type Track struct {
	Info     webrtc_ext.TrackInfo
	Remote   *webrtc.TrackRemote
	Receiver *webrtc.RTPReceiver
}

func (t *Track) Kind() webrtc.RTPCodecType {
	return t.Info.Kind
}

// Published to `OnTrackAdded` listeners whenever a track arrives.
type TrackAdded struct {
	Kind  webrtc.RTPCodecType
	Track *Track
}
