package webrtc_ext

import (
	"fmt"

	"github.com/pion/webrtc/v3"
)

// Peer connection factory is used to construct new (pre-configured) peer connections.
type PeerConnectionFactory struct {
	api           *webrtc.API
	configuration webrtc.Configuration
}

func NewPeerConnectionFactory(config Config) (*PeerConnectionFactory, error) {
	api, err := createWebRTCAPI(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create WebRTC API: %w", err)
	}

	return &PeerConnectionFactory{api, peerConnectionConfiguration(config)}, nil
}

// Creates a peer connection that uses unified plan, bundles everything on a single transport
// and multiplexes RTCP with RTP, which is what the media server expects from its subscribers.
func (f *PeerConnectionFactory) CreatePeerConnection() (*webrtc.PeerConnection, error) {
	return f.api.NewPeerConnection(f.configuration)
}

func peerConnectionConfiguration(config Config) webrtc.Configuration {
	iceServers := []webrtc.ICEServer{}
	if len(config.ICEServers) > 0 {
		iceServers = append(iceServers, webrtc.ICEServer{URLs: config.ICEServers})
	}

	return webrtc.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: webrtc.ICETransportPolicyAll,
		BundlePolicy:       webrtc.BundlePolicyMaxBundle,
		RTCPMuxPolicy:      webrtc.RTCPMuxPolicyRequire,
		SDPSemantics:       webrtc.SDPSemanticsUnifiedPlan,
	}
}
