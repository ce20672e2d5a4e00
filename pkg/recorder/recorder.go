package recorder

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/matrix-org/subscriber/pkg/webrtc_ext"
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media/ivfwriter"
	"github.com/pion/webrtc/v3/pkg/media/oggwriter"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// Directory to write the received media to. Nothing is recorded if empty.
	Directory string `yaml:"directory"`
	// Warn if a track delivered nothing for this long. Zero disables the check.
	StallTimeout time.Duration `yaml:"stallTimeout"`
}

func (c Config) Enabled() bool {
	return c.Directory != ""
}

// Source of RTP packets, usually a `*webrtc.TrackRemote`.
type PacketReader interface {
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// Destination of RTP packets, e.g. an ogg or ivf file.
type PacketWriter interface {
	WriteRTP(packet *rtp.Packet) error
	Close() error
}

// Swallows everything. Used for codecs we can't put into a file, the track still has to be
// read so that the interceptors keep working.
type discard struct{}

func (discard) WriteRTP(*rtp.Packet) error { return nil }
func (discard) Close() error               { return nil }

// Recorder copies the packets of a single track into a writer until the track ends.
type Recorder struct {
	logger  *logrus.Entry
	reader  PacketReader
	writer  PacketWriter
	packets atomic.Uint64
	stalls  atomic.Uint64
	done    chan struct{}
	err     error

	stallTimeout time.Duration
	notify       func() bool
}

// Starts recording a remote track into the configured directory.
func Start(config Config, track *webrtc.TrackRemote, logger *logrus.Entry) (*Recorder, error) {
	info := webrtc_ext.TrackInfoFromTrack(track)

	writer, path, err := NewWriter(config.Directory, info)
	if err != nil {
		return nil, err
	}

	logger = logger.WithFields(logrus.Fields{
		"track_id": info.TrackID,
		"codec":    info.Codec.MimeType,
		"path":     path,
	})

	return Record(track, writer, config.StallTimeout, logger), nil
}

// Creates a writer for the codec of the track. Returns an empty path for codecs that are only drained.
func NewWriter(directory string, info webrtc_ext.TrackInfo) (PacketWriter, string, error) {
	switch strings.ToLower(info.Codec.MimeType) {
	case strings.ToLower(webrtc.MimeTypeOpus):
		path := filepath.Join(directory, FileName(info, "ogg"))
		channels := info.Codec.Channels
		if channels == 0 {
			channels = 2
		}
		writer, err := oggwriter.New(path, info.Codec.ClockRate, channels)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create ogg writer: %w", err)
		}
		return writer, path, nil

	case strings.ToLower(webrtc.MimeTypeVP8):
		path := filepath.Join(directory, FileName(info, "ivf"))
		writer, err := ivfwriter.New(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create ivf writer: %w", err)
		}
		return writer, path, nil

	default:
		return discard{}, "", nil
	}
}

// Name of the file a track is recorded to.
func FileName(info webrtc_ext.TrackInfo, extension string) string {
	clean := func(r rune) rune {
		if r == '/' || r == '\\' || r == filepath.Separator {
			return '_'
		}
		return r
	}

	name := strings.Map(clean, info.StreamID) + "-" + strings.Map(clean, info.TrackID)
	return name + "." + extension
}

// Starts copying packets from `reader` to `writer` in the background.
// The writer is closed once the reader runs dry. A positive `stallTimeout` makes the recorder
// warn whenever the track goes quiet for that long.
func Record(reader PacketReader, writer PacketWriter, stallTimeout time.Duration, logger *logrus.Entry) *Recorder {
	recorder := &Recorder{
		logger:       logger,
		reader:       reader,
		writer:       writer,
		done:         make(chan struct{}),
		stallTimeout: stallTimeout,
		notify:       func() bool { return true },
	}

	go recorder.run()

	return recorder
}

// Closed once the recording is finished. No stall is reported after that.
func (r *Recorder) Done() <-chan struct{} {
	return r.done
}

// Why the recording stopped, nil if the track simply ended. Only valid after `Done()` is closed.
func (r *Recorder) Err() error {
	return r.err
}

// How many times the track went quiet for longer than the stall timeout.
func (r *Recorder) Stalls() uint64 {
	return r.stalls.Load()
}

// Number of packets written so far.
func (r *Recorder) Packets() uint64 {
	return r.packets.Load()
}

func (r *Recorder) run() {
	defer close(r.done)

	r.logger.Info("recording started")

	if r.stallTimeout > 0 {
		watchdog := NewWatchdog(r.stallTimeout, func() {
			r.stalls.Add(1)
			r.logger.WithField("timeout", r.stallTimeout).Warn("no media received")
		})
		terminated := watchdog.Start()
		defer func() {
			watchdog.Close()
			<-terminated
		}()

		r.notify = watchdog.Notify
	}

	for {
		packet, _, err := r.reader.ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.err = err
			}
			break
		}

		if err := r.writer.WriteRTP(packet); err != nil {
			r.err = fmt.Errorf("failed to write packet: %w", err)
			break
		}

		r.packets.Add(1)
		r.notify()
	}

	if err := r.writer.Close(); err != nil && r.err == nil {
		r.err = fmt.Errorf("failed to close writer: %w", err)
	}

	if r.err != nil {
		r.logger.WithError(r.err).Warn("recording stopped")
	} else {
		r.logger.WithField("packets", r.Packets()).Info("recording finished")
	}
}
