package peer

import (
	"github.com/matrix-org/subscriber/pkg/webrtc_ext"
	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"
)

// A callback that is called once we receive first RTP packets from a track, i.e.
// we call this function each time a new track is received.
func (p *Peer[ID]) onRtpTrackReceived(remoteTrack *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
	trackInfo := webrtc_ext.TrackInfoFromTrack(remoteTrack)

	p.logger.WithFields(logrus.Fields{
		"kind":     trackInfo.Kind,
		"track_id": trackInfo.TrackID,
		"codec":    trackInfo.Codec.MimeType,
	}).Info("track received")

	// Don't wait for the next periodic keyframe, a viewer wants to see something right away.
	if trackInfo.Kind == webrtc.RTPCodecTypeVideo {
		if err := p.RequestKeyFrame(remoteTrack); err != nil {
			p.logger.WithError(err).Warn("failed to request a keyframe")
		}
	}

	p.sink.Send(TrackReceived{Info: trackInfo, Track: remoteTrack, Receiver: receiver})
}

// A callback that is called once we receive an ICE candidate for this peer connection.
// Candidates are not trickled, the media server learns them from connectivity checks.
func (p *Peer[ID]) onICECandidateGathered(candidate *webrtc.ICECandidate) {
	if candidate == nil {
		p.logger.Debug("ICE candidate gathering finished")
		p.sink.Send(ICEGatheringComplete{})
		return
	}

	p.logger.WithField("candidate", candidate).Debug("ICE candidate gathered")
}

func (p *Peer[ID]) onICEConnectionStateChanged(state webrtc.ICEConnectionState) {
	p.logger.WithField("state", state).Debug("ICE connection state changed")
}

func (p *Peer[ID]) onICEGatheringStateChanged(state webrtc.ICEGathererState) {
	p.logger.WithField("state", state).Debug("ICE gathering state changed")
}

func (p *Peer[ID]) onSignalingStateChanged(state webrtc.SignalingState) {
	p.logger.WithField("state", state).Debug("signaling state changed")
}

func (p *Peer[ID]) onConnectionStateChanged(state webrtc.PeerConnectionState) {
	p.logger.WithField("state", state).Info("connection state changed")
	p.sink.Send(ConnectionStateChanged{State: state})
}
