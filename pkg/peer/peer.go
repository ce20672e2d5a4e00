package peer

import (
	"errors"

	"github.com/matrix-org/subscriber/pkg/channel"
	"github.com/matrix-org/subscriber/pkg/webrtc_ext"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"
)

var (
	ErrCantCreatePeerConnection = errors.New("can't create peer connection")
	ErrCantAddTransceiver       = errors.New("can't add transceiver")
	ErrCantCreateOffer          = errors.New("can't create offer")
	ErrCantSetLocalDescription  = errors.New("can't set local description")
	ErrCantSetRemoteDescription = errors.New("can't set remote description")
	ErrCantClosePeerConnection  = errors.New("can't close peer connection")
)

// The kinds of media a subscriber receives, one transceiver each.
var receivedKinds = []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo}

// A wrapped representation of the receive-only peer connection of a subscriber.
// The owner drives the negotiation via public methods and learns about the things happening
// inside the peer (connection state changes, new tracks) from the messages posted to the sink.
type Peer[ID comparable] struct {
	logger         *logrus.Entry
	peerConnection *webrtc.PeerConnection
	sink           *channel.SinkWithSender[ID, MessageContent]
}

// Instantiates a new peer with one receive-only audio and one receive-only video transceiver.
// Nothing is negotiated yet, the connection state of the new peer is `new`.
func NewPeer[ID comparable](
	factory *webrtc_ext.PeerConnectionFactory,
	sink *channel.SinkWithSender[ID, MessageContent],
	logger *logrus.Entry,
) (*Peer[ID], error) {
	peerConnection, err := factory.CreatePeerConnection()
	if err != nil {
		logger.WithError(err).Error("failed to create peer connection")
		return nil, ErrCantCreatePeerConnection
	}

	for _, kind := range receivedKinds {
		init := webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly}
		if _, err := peerConnection.AddTransceiverFromKind(kind, init); err != nil {
			logger.WithError(err).WithField("kind", kind).Error("failed to add transceiver")
			_ = peerConnection.Close()
			return nil, ErrCantAddTransceiver
		}
	}

	peer := &Peer[ID]{
		logger:         logger,
		peerConnection: peerConnection,
		sink:           sink,
	}

	peerConnection.OnTrack(peer.onRtpTrackReceived)
	peerConnection.OnICECandidate(peer.onICECandidateGathered)
	peerConnection.OnICEConnectionStateChange(peer.onICEConnectionStateChanged)
	peerConnection.OnICEGatheringStateChange(peer.onICEGatheringStateChanged)
	peerConnection.OnConnectionStateChange(peer.onConnectionStateChanged)
	peerConnection.OnSignalingStateChange(peer.onSignalingStateChanged)

	return peer, nil
}

// Generates an SDP offer for the receive-only transceivers. The offer is not applied yet.
func (p *Peer[ID]) CreateSDPOffer() (string, error) {
	offer, err := p.peerConnection.CreateOffer(nil)
	if err != nil {
		p.logger.WithError(err).Error("failed to create offer")
		return "", ErrCantCreateOffer
	}

	return offer.SDP, nil
}

// Applies a previously created offer as the local description.
func (p *Peer[ID]) SetLocalDescription(sdpOffer string) error {
	err := p.peerConnection.SetLocalDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  sdpOffer,
	})
	if err != nil {
		p.logger.WithError(err).Error("failed to set local description")
		return ErrCantSetLocalDescription
	}

	return nil
}

// Processes the SDP answer received from the media server.
func (p *Peer[ID]) ProcessSDPAnswer(sdpAnswer string) error {
	err := p.peerConnection.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdpAnswer,
	})
	if err != nil {
		p.logger.WithError(err).Error("failed to set remote description")
		return ErrCantSetRemoteDescription
	}

	return nil
}

// The applied local description, empty if there is none yet.
func (p *Peer[ID]) LocalDescription() string {
	if description := p.peerConnection.LocalDescription(); description != nil {
		return description.SDP
	}

	return ""
}

// The applied remote description, empty if there is none yet.
func (p *Peer[ID]) RemoteDescription() string {
	if description := p.peerConnection.RemoteDescription(); description != nil {
		return description.SDP
	}

	return ""
}

func (p *Peer[ID]) ConnectionState() webrtc.PeerConnectionState {
	return p.peerConnection.ConnectionState()
}

// Asks the publisher of the given track for a keyframe.
func (p *Peer[ID]) RequestKeyFrame(track *webrtc.TrackRemote) error {
	packets := []rtcp.Packet{&rtcp.PictureLossIndication{MediaSSRC: uint32(track.SSRC())}}
	return p.peerConnection.WriteRTCP(packets)
}

// Closes the peer connection. From this moment on, no new messages will be sent from the peer.
func (p *Peer[ID]) Terminate() error {
	// Seal first so that the state change to `closed` triggered by `Close()` is not reported,
	// the owner is the one who closed us and knows about it.
	p.sink.Seal()

	if err := p.peerConnection.Close(); err != nil {
		p.logger.WithError(err).Error("failed to close peer connection")
		return ErrCantClosePeerConnection
	}

	return nil
}
