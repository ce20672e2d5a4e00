package subscriber

import (
	"github.com/matrix-org/subscriber/pkg/channel"
	"github.com/matrix-org/subscriber/pkg/metrics"
	"github.com/matrix-org/subscriber/pkg/peer"
	"github.com/pion/webrtc/v3"
)

// Listen on messages from the peer connection and process them.
// This is essentially the main loop of the subscriber. It returns once the subscriber is closed.
func (s *Subscriber) processMessages() {
	for {
		select {
		case msg := <-s.messages:
			s.processPeerMessage(msg)
		case <-s.done:
			return
		}
	}
}

func (s *Subscriber) processPeerMessage(message channel.Message[string, peer.MessageContent]) {
	if message.Sender != s.id {
		s.logger.WithField("sender", message.Sender).Warn("ignoring message from a foreign peer")
		return
	}

	// Since Go does not support ADTs, we have to use a switch statement to
	// determine the actual type of the message.
	switch msg := message.Content.(type) {
	case peer.ConnectionStateChanged:
		metrics.RecordConnectionState(msg.State.String())
		s.connectionStateChanges.Publish(msg.State)

	case peer.TrackReceived:
		track := &Track{Info: msg.Info, Remote: msg.Track, Receiver: msg.Receiver}
		metrics.RecordTrackReceived(track.Kind().String())

		s.mutex.Lock()
		switch track.Kind() {
		case webrtc.RTPCodecTypeAudio:
			s.audioTrack = track
		case webrtc.RTPCodecTypeVideo:
			s.videoTrack = track
		default:
			s.logger.WithField("track_id", track.Info.TrackID).Warn("track of unknown kind, not keeping it")
		}
		s.mutex.Unlock()

		s.trackAdditions.Publish(TrackAdded{Kind: track.Kind(), Track: track})

	case peer.ICEGatheringComplete:
		s.logger.Debug("ICE gathering complete")

	default:
		s.logger.Errorf("Unknown message type: %T", msg)
	}
}
