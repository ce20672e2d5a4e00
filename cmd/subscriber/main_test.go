package main

import (
	"testing"

	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKinds(t *testing.T) {
	cases := []struct {
		value    string
		expected []webrtc.RTPCodecType
	}{
		{"", nil},
		{"audio", []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio}},
		{"video", []webrtc.RTPCodecType{webrtc.RTPCodecTypeVideo}},
		{"audio,video", []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo}},
		{"video, audio,video", []webrtc.RTPCodecType{webrtc.RTPCodecTypeVideo, webrtc.RTPCodecTypeAudio}},
	}

	for _, c := range cases {
		kinds, err := parseKinds(c.value)
		require.NoError(t, err, c.value)
		assert.Equal(t, c.expected, kinds, c.value)
	}
}

func TestParseKinds_Unknown(t *testing.T) {
	for _, value := range []string{"data", "audio,", "Audio"} {
		_, err := parseKinds(value)
		assert.Error(t, err, value)
	}
}
