package peer_test

import (
	"testing"

	"github.com/matrix-org/subscriber/pkg/channel"
	"github.com/matrix-org/subscriber/pkg/peer"
	"github.com/matrix-org/subscriber/pkg/webrtc_ext"
	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPeer(t *testing.T) (*peer.Peer[string], *channel.SinkWithSender[string, peer.MessageContent]) {
	t.Helper()

	factory, err := webrtc_ext.NewPeerConnectionFactory(webrtc_ext.Config{})
	require.NoError(t, err)

	messages := make(chan channel.Message[string, peer.MessageContent], 16)
	sink := channel.NewSink[string, peer.MessageContent]("test", messages)

	p, err := peer.NewPeer(factory, sink, logrus.NewEntry(logrus.New()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Terminate() })

	return p, sink
}

// A media server stand-in: answers the offer with one audio and one video track.
func answerFromMediaServer(t *testing.T, offer string) string {
	t.Helper()

	server, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Close() })

	for _, codec := range []webrtc.RTPCodecCapability{
		{MimeType: webrtc.MimeTypeOpus},
		{MimeType: webrtc.MimeTypeVP8},
	} {
		track, err := webrtc.NewTrackLocalStaticSample(codec, codec.MimeType, "stream1")
		require.NoError(t, err)
		_, err = server.AddTrack(track)
		require.NoError(t, err)
	}

	require.NoError(t, server.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offer}))
	answer, err := server.CreateAnswer(nil)
	require.NoError(t, err)
	require.NoError(t, server.SetLocalDescription(answer))

	return answer.SDP
}

func TestPeer_NewPeerIsPristine(t *testing.T) {
	p, _ := newTestPeer(t)

	assert.Equal(t, webrtc.PeerConnectionStateNew, p.ConnectionState())
	assert.Empty(t, p.LocalDescription())
	assert.Empty(t, p.RemoteDescription())
}

func TestPeer_OfferIsReceiveOnly(t *testing.T) {
	p, _ := newTestPeer(t)

	offer, err := p.CreateSDPOffer()
	require.NoError(t, err)

	var parsed sdp.SessionDescription
	require.NoError(t, parsed.Unmarshal([]byte(offer)))
	require.Len(t, parsed.MediaDescriptions, 2)

	kinds := []string{}
	for _, media := range parsed.MediaDescriptions {
		kinds = append(kinds, media.MediaName.Media)

		_, recvonly := media.Attribute(sdp.AttrKeyRecvOnly)
		_, sendrecv := media.Attribute(sdp.AttrKeySendRecv)
		_, sendonly := media.Attribute(sdp.AttrKeySendOnly)
		assert.True(t, recvonly, "media section must be recvonly")
		assert.False(t, sendrecv || sendonly, "media section must not send")
	}
	assert.Equal(t, []string{"audio", "video"}, kinds)
}

func TestPeer_Negotiation(t *testing.T) {
	p, _ := newTestPeer(t)

	offer, err := p.CreateSDPOffer()
	require.NoError(t, err)
	require.NoError(t, p.SetLocalDescription(offer))
	assert.Equal(t, offer, p.LocalDescription())

	answer := answerFromMediaServer(t, offer)
	require.NoError(t, p.ProcessSDPAnswer(answer))
	assert.Equal(t, answer, p.RemoteDescription())
}

func TestPeer_AnswerWithoutOffer(t *testing.T) {
	p, _ := newTestPeer(t)

	other, _ := newTestPeer(t)
	offer, err := other.CreateSDPOffer()
	require.NoError(t, err)

	// There is no local offer, so an answer can't be applied.
	assert.ErrorIs(t, p.ProcessSDPAnswer(answerFromMediaServer(t, offer)), peer.ErrCantSetRemoteDescription)
}

func TestPeer_Terminate(t *testing.T) {
	p, sink := newTestPeer(t)

	require.NoError(t, p.Terminate())
	assert.Equal(t, webrtc.PeerConnectionStateClosed, p.ConnectionState())
	assert.ErrorIs(t, sink.Send(peer.ICEGatheringComplete{}), channel.ErrSinkSealed)

	_, err := p.CreateSDPOffer()
	assert.ErrorIs(t, err, peer.ErrCantCreateOffer)
}
