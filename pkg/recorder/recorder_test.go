package recorder_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matrix-org/subscriber/pkg/recorder"
	"github.com/matrix-org/subscriber/pkg/webrtc_ext"
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	packets []*rtp.Packet
	err     error
}

func (r *fakeReader) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	if len(r.packets) == 0 {
		return nil, nil, r.err
	}

	packet := r.packets[0]
	r.packets = r.packets[1:]
	return packet, nil, nil
}

type fakeWriter struct {
	written []uint16
	failAt  int
	closed  bool
}

func (w *fakeWriter) WriteRTP(packet *rtp.Packet) error {
	if w.failAt != 0 && len(w.written)+1 == w.failAt {
		return errors.New("disk full")
	}

	w.written = append(w.written, packet.SequenceNumber)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func packets(n int) []*rtp.Packet {
	result := make([]*rtp.Packet, 0, n)
	for i := 0; i < n; i++ {
		result = append(result, &rtp.Packet{
			Header:  rtp.Header{Version: 2, SequenceNumber: uint16(i + 1)},
			Payload: []byte{0x01},
		})
	}

	return result
}

func wait(t *testing.T, r *recorder.Recorder) {
	t.Helper()

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("recorder did not finish")
	}
}

func logger() *logrus.Entry {
	return logrus.NewEntry(logrus.New())
}

func TestRecord_UntilEOF(t *testing.T) {
	writer := &fakeWriter{}
	r := recorder.Record(&fakeReader{packets: packets(3), err: io.EOF}, writer, 0, logger())
	wait(t, r)

	require.NoError(t, r.Err())
	assert.Equal(t, []uint16{1, 2, 3}, writer.written)
	assert.Equal(t, uint64(3), r.Packets())
	assert.True(t, writer.closed)
}

func TestRecord_ReadError(t *testing.T) {
	boom := errors.New("boom")
	writer := &fakeWriter{}
	r := recorder.Record(&fakeReader{packets: packets(1), err: boom}, writer, 0, logger())
	wait(t, r)

	assert.ErrorIs(t, r.Err(), boom)
	assert.True(t, writer.closed)
}

func TestRecord_WriteError(t *testing.T) {
	writer := &fakeWriter{failAt: 2}
	r := recorder.Record(&fakeReader{packets: packets(5), err: io.EOF}, writer, 0, logger())
	wait(t, r)

	assert.Error(t, r.Err())
	assert.Equal(t, []uint16{1}, writer.written)
	assert.True(t, writer.closed)
}

func TestNewWriter(t *testing.T) {
	directory := t.TempDir()

	cases := []struct {
		name     string
		codec    webrtc.RTPCodecCapability
		expected string
	}{
		{"opus", webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}, "stream1-audio.ogg"},
		{"vp8", webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}, "stream1-video.ivf"},
		{"h264", webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264, ClockRate: 90000}, ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			kind := webrtc.RTPCodecTypeVideo
			trackID := "video"
			if c.codec.MimeType == webrtc.MimeTypeOpus {
				kind, trackID = webrtc.RTPCodecTypeAudio, "audio"
			}

			writer, path, err := recorder.NewWriter(directory, webrtc_ext.TrackInfo{
				TrackID:  trackID,
				StreamID: "stream1",
				Kind:     kind,
				Codec:    c.codec,
			})
			require.NoError(t, err)
			defer writer.Close()

			if c.expected == "" {
				assert.Empty(t, path)
				return
			}

			assert.Equal(t, filepath.Join(directory, c.expected), path)
			_, err = os.Stat(path)
			assert.NoError(t, err)
		})
	}
}

func TestFileName(t *testing.T) {
	name := recorder.FileName(webrtc_ext.TrackInfo{StreamID: "../stream", TrackID: "a/b"}, "ogg")
	assert.Equal(t, ".._stream-a_b.ogg", name)
}

// Delivers nothing until released.
type quietReader struct {
	release chan struct{}
}

func (r *quietReader) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	<-r.release
	return nil, nil, io.EOF
}

func TestRecord_Stall(t *testing.T) {
	reader := &quietReader{release: make(chan struct{})}
	r := recorder.Record(reader, &fakeWriter{}, 10*time.Millisecond, logger())

	assert.Eventually(t, func() bool { return r.Stalls() > 0 }, time.Second, 5*time.Millisecond)

	close(reader.release)
	wait(t, r)
	assert.NoError(t, r.Err())

	// The watchdog is gone once the recording is done.
	stalls := r.Stalls()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stalls, r.Stalls())
}
