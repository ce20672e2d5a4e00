package webrtc_ext

import (
	"github.com/pion/webrtc/v3"
)

// Basic information about a track.
type TrackInfo struct {
	TrackID  string
	StreamID string
	Kind     webrtc.RTPCodecType
	Codec    webrtc.RTPCodecCapability
}

func TrackInfoFromTrack(track *webrtc.TrackRemote) TrackInfo {
	return TrackInfo{
		TrackID:  track.ID(),
		StreamID: track.StreamID(),
		Kind:     track.Kind(),
		Codec:    track.Codec().RTPCodecCapability,
	}
}

// Parses a media kind as it's used in signaling messages and on the command line ("audio" or "video").
// Returns 0 (an invalid codec type) for anything else.
func ParseKind(kind string) webrtc.RTPCodecType {
	switch kind {
	case webrtc.RTPCodecTypeAudio.String():
		return webrtc.RTPCodecTypeAudio
	case webrtc.RTPCodecTypeVideo.String():
		return webrtc.RTPCodecTypeVideo
	default:
		return 0
	}
}
