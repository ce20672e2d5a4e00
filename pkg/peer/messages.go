package peer

import (
	"github.com/matrix-org/subscriber/pkg/webrtc_ext"
	"github.com/pion/webrtc/v3"
)

// Due to the limitation of Go, we're using the `interface{}` to be able to use switch the actual
// type of the message on runtime. The underlying types do not necessary need to be structures.
type MessageContent = interface{}

// The connection state of the peer changed. Carries the raw pion state.
type ConnectionStateChanged struct {
	State webrtc.PeerConnectionState
}

// The media server started sending a track.
type TrackReceived struct {
	// Information about the track (ID, kind, codec).
	Info webrtc_ext.TrackInfo
	// The track itself. Owned by the peer connection, valid until the peer is terminated.
	Track *webrtc.TrackRemote
	// The receiver the track belongs to.
	Receiver *webrtc.RTPReceiver
}

type ICEGatheringComplete struct{}
