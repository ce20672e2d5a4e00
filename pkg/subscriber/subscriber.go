package subscriber

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/matrix-org/subscriber/pkg/channel"
	"github.com/matrix-org/subscriber/pkg/metrics"
	"github.com/matrix-org/subscriber/pkg/peer"
	"github.com/matrix-org/subscriber/pkg/signaling"
	"github.com/matrix-org/subscriber/pkg/telemetry"
	"github.com/matrix-org/subscriber/pkg/token"
	"github.com/matrix-org/subscriber/pkg/webrtc_ext"
	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// How many peer messages may be waiting for the subscriber before the peer blocks.
const messageBufferSize = 128

// Default size of each listener's queue.
const defaultListenerQueueSize = 64

// The sink a connection reports to. Messages are stamped with the subscriber ID.
type Sink = channel.SinkWithSender[string, peer.MessageContent]

// The peer connection as seen by the subscriber. `*peer.Peer` implements it on top of pion.
type Connection interface {
	CreateSDPOffer() (string, error)
	SetLocalDescription(sdpOffer string) error
	ProcessSDPAnswer(sdpAnswer string) error
	RemoteDescription() string
	ConnectionState() webrtc.PeerConnectionState
	Terminate() error
}

// Creates the connection of a new subscriber. The connection reports track arrivals and
// connection state changes to the sink.
type ConnectionFactory func(sink *Sink, logger *logrus.Entry) (Connection, error)

// A connection factory that creates receive-only pion peer connections.
func PeerConnectionFactory(factory *webrtc_ext.PeerConnectionFactory) ConnectionFactory {
	return func(sink *Sink, logger *logrus.Entry) (Connection, error) {
		p, err := peer.NewPeer(factory, sink, logger)
		if err != nil {
			return nil, err
		}

		return p, nil
	}
}

type Options struct {
	// Required.
	Signaling signaling.Client
	// Defaults to `PeerConnectionFactory` with the default WebRTC configuration.
	NewConnection ConnectionFactory
	// Defaults to `token.Decode`.
	DecodeToken token.Decoder
	// Defaults to the standard logrus logger.
	Logger *logrus.Entry
	// Number of events each listener may lag behind. Events published while a listener's queue
	// is full are dropped for that listener (with a warning), so a slow listener misses events.
	ListenerQueueSize int
}

// Subscriber receives a single stream from the media server over its own peer connection.
//
// `Subscribe`, `Mute` and `Unsubscribe` must not be called concurrently on the same subscriber.
// Observers (`State`, `Location`, `AudioTrack` etc) are safe to call at any time.
// A subscriber is good for a single subscription: once it failed to subscribe or got
// unsubscribed, a new one is needed.
type Subscriber struct {
	id         string
	appID      string
	streamID   string
	credential string

	logger     *logrus.Entry
	signaling  signaling.Client
	connection Connection

	messages     chan channel.Message[string, peer.MessageContent]
	done         chan struct{}
	shutdownOnce sync.Once

	connectionStateChanges *Notifier[webrtc.PeerConnectionState]
	trackAdditions         *Notifier[TrackAdded]

	// Guards the fields below. It does not serialize operations.
	mutex      sync.Mutex
	state      State
	location   string
	audioTrack *Track
	videoTrack *Track
	audioMuted bool
	videoMuted bool
}

// Creates a subscriber for the stream the credential grants access to. The peer connection is
// created right away, but nothing is negotiated until `Subscribe()` is called.
func New(credential string, options Options) (*Subscriber, error) {
	if options.Signaling == nil {
		return nil, ErrNoSignalingClient
	}

	decode := options.DecodeToken
	if decode == nil {
		decode = token.Decode
	}

	claims, err := decode(credential)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredential, err)
	}
	if claims == nil || claims.AppID == "" || claims.StreamID == "" {
		return nil, fmt.Errorf("%w: missing app or stream ID", ErrInvalidCredential)
	}

	logger := options.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	id := uuid.NewString()
	logger = logger.WithFields(logrus.Fields{
		"subscriber_id": id,
		"app_id":        claims.AppID,
		"stream_id":     claims.StreamID,
	})

	newConnection := options.NewConnection
	if newConnection == nil {
		factory, err := webrtc_ext.NewPeerConnectionFactory(webrtc_ext.Config{})
		if err != nil {
			return nil, err
		}
		newConnection = PeerConnectionFactory(factory)
	}

	queueSize := options.ListenerQueueSize
	if queueSize <= 0 {
		queueSize = defaultListenerQueueSize
	}

	messages := make(chan channel.Message[string, peer.MessageContent], messageBufferSize)
	connection, err := newConnection(channel.NewSink[string, peer.MessageContent](id, messages), logger)
	if err != nil {
		return nil, err
	}

	subscriber := &Subscriber{
		id:                     id,
		appID:                  claims.AppID,
		streamID:               claims.StreamID,
		credential:             credential,
		logger:                 logger,
		signaling:              options.Signaling,
		connection:             connection,
		messages:               messages,
		done:                   make(chan struct{}),
		connectionStateChanges: NewNotifier[webrtc.PeerConnectionState](queueSize, logger),
		trackAdditions:         NewNotifier[TrackAdded](queueSize, logger),
		state:                  StateCreated,
	}

	go subscriber.processMessages()

	return subscriber, nil
}

// Negotiates the subscription: creates and commits the offer, sends it to the media server and
// applies the answer. Only allowed on a fresh subscriber.
//
// If the media server rejects the offer, the subscriber is stuck with a committed offer and can't
// be used anymore; `Close()` it and create a new one.
func (s *Subscriber) Subscribe(ctx context.Context) error {
	s.mutex.Lock()
	if s.state != StateCreated || s.connection.ConnectionState() != webrtc.PeerConnectionStateNew {
		s.mutex.Unlock()
		return ErrAlreadySubscribed
	}
	s.state = StateOffering
	s.mutex.Unlock()

	span := s.newTelemetry(ctx, "subscribe")
	defer span.End()

	offer, err := s.connection.CreateSDPOffer()
	if err != nil {
		span.Fail(err)
		return err
	}

	if err := s.connection.SetLocalDescription(offer); err != nil {
		span.Fail(err)
		return err
	}
	span.AddEvent("offer committed")

	var answer *signaling.PullResponse
	err = s.signalingCall(span, signaling.OpPull, func(ctx context.Context) (err error) {
		answer, err = s.signaling.Pull(ctx, signaling.PullRequest{
			AppID:     s.appID,
			StreamID:  s.streamID,
			Token:     s.credential,
			SessionID: "",
			SDP:       offer,
		})
		return err
	})
	if err != nil {
		return err
	}

	// The session exists on the media server from now on, even if the answer turns out to be
	// unusable. Keep its location so that `Unsubscribe()` can still remove it.
	s.mutex.Lock()
	s.location = answer.Location
	s.mutex.Unlock()

	if err := s.connection.ProcessSDPAnswer(answer.SDP); err != nil {
		span.Fail(err)
		return err
	}

	s.mutex.Lock()
	s.state = StateSubscribed
	s.mutex.Unlock()

	s.logger.WithField("location", answer.Location).Info("subscribed")

	return nil
}

// Ends the session on the media server, then closes the peer connection.
// If the media server can't be reached, nothing changes locally and the call may be retried.
func (s *Subscriber) Unsubscribe(ctx context.Context) error {
	s.mutex.Lock()
	if s.state == StateClosed || s.connection.ConnectionState() == webrtc.PeerConnectionStateClosed {
		s.mutex.Unlock()
		return ErrAlreadyUnsubscribed
	}

	location := s.location
	s.mutex.Unlock()

	if location == "" {
		return ErrNotSubscribed
	}

	span := s.newTelemetry(ctx, "unsubscribe", attribute.String("location", location))
	defer span.End()

	err := s.signalingCall(span, signaling.OpDelete, func(ctx context.Context) error {
		return s.signaling.Delete(ctx, s.credential, location)
	})
	if err != nil {
		return err
	}

	s.mutex.Lock()
	s.location = ""
	s.state = StateClosed
	s.mutex.Unlock()

	s.logger.Info("unsubscribed")

	return s.shutdown()
}

// Mutes or unmutes the given kinds of media, or both kinds if none is given. The local flags
// change right away; the media server always gets both flags. If the media server can't be
// reached the local flags keep their new values, so calling `Mute()` again retries.
func (s *Subscriber) Mute(ctx context.Context, muted bool, kinds ...webrtc.RTPCodecType) error {
	for _, kind := range kinds {
		if kind != webrtc.RTPCodecTypeAudio && kind != webrtc.RTPCodecTypeVideo {
			return fmt.Errorf("%w: %v", ErrUnknownKind, kind)
		}
	}

	s.mutex.Lock()
	location := s.location
	if location == "" {
		s.mutex.Unlock()
		return ErrNotSubscribed
	}

	if len(kinds) == 0 {
		s.audioMuted, s.videoMuted = muted, muted
	}
	for _, kind := range kinds {
		switch kind {
		case webrtc.RTPCodecTypeAudio:
			s.audioMuted = muted
		case webrtc.RTPCodecTypeVideo:
			s.videoMuted = muted
		}
	}

	request := signaling.UpdateRequest{MuteAudio: s.audioMuted, MuteVideo: s.videoMuted}
	s.mutex.Unlock()

	span := s.newTelemetry(ctx, "mute",
		attribute.Bool("mute_audio", request.MuteAudio),
		attribute.Bool("mute_video", request.MuteVideo),
	)
	defer span.End()

	return s.signalingCall(span, signaling.OpUpdate, func(ctx context.Context) error {
		return s.signaling.Update(ctx, s.credential, location, request)
	})
}

// Releases the peer connection without talking to the media server. This is how a subscriber
// whose `Subscribe()` failed is discarded. If a remote session still exists, it is left behind
// and will only go away once the media server times it out, so prefer `Unsubscribe()` for that.
func (s *Subscriber) Close() error {
	s.mutex.Lock()
	if s.state == StateClosed {
		s.mutex.Unlock()
		return nil
	}

	if s.location != "" {
		s.logger.WithField("location", s.location).Warn("closing without ending the remote session")
		s.location = ""
	}
	s.state = StateClosed
	s.mutex.Unlock()

	return s.shutdown()
}

// Registers a listener for connection state changes. Returns a function that removes it.
// The listener gets the changes that happen after it's registered, in order, on its own goroutine.
// If it falls more than `Options.ListenerQueueSize` events behind, further changes are dropped
// for it until it catches up.
func (s *Subscriber) OnConnectionStateChange(listener func(webrtc.PeerConnectionState)) func() {
	return s.connectionStateChanges.Listen(listener)
}

// Registers a listener for new tracks. Returns a function that removes it.
// Same delivery rules as `OnConnectionStateChange()`: a listener that lags behind by more than
// `Options.ListenerQueueSize` events loses the tracks added in the meantime. `AudioTrack()` and
// `VideoTrack()` always hold the latest ones.
func (s *Subscriber) OnTrackAdded(listener func(TrackAdded)) func() {
	return s.trackAdditions.Listen(listener)
}

func (s *Subscriber) ID() string {
	return s.id
}

func (s *Subscriber) AppID() string {
	return s.appID
}

func (s *Subscriber) StreamID() string {
	return s.streamID
}

func (s *Subscriber) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.state
}

// The state of the peer connection, as reported by the connection itself.
func (s *Subscriber) ConnectionState() webrtc.PeerConnectionState {
	return s.connection.ConnectionState()
}

// The answer of the media server once it has been applied, empty before.
func (s *Subscriber) RemoteDescription() string {
	return s.connection.RemoteDescription()
}

// Location of the session on the media server, empty unless subscribed.
func (s *Subscriber) Location() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.location
}

// The latest audio track, nil if none arrived yet.
func (s *Subscriber) AudioTrack() *Track {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.audioTrack
}

// The latest video track, nil if none arrived yet.
func (s *Subscriber) VideoTrack() *Track {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.videoTrack
}

func (s *Subscriber) AudioMuted() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.audioMuted
}

func (s *Subscriber) VideoMuted() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.videoMuted
}

// Runs a signaling call in its own span and accounts for it in the metrics.
func (s *Subscriber) signalingCall(parent *telemetry.Telemetry, op string, call func(context.Context) error) error {
	span := parent.CreateChild(op)
	defer span.End()

	err := call(span.Context())
	metrics.RecordSignalingRequest(op, err)

	if err != nil {
		s.logger.WithError(err).WithField("op", op).Error("signaling request failed")
		span.Fail(err)
		parent.Fail(err)
	}

	return err
}

func (s *Subscriber) newTelemetry(ctx context.Context, name string, attributes ...attribute.KeyValue) *telemetry.Telemetry {
	attributes = append(attributes,
		attribute.String("subscriber_id", s.id),
		attribute.String("app_id", s.appID),
		attribute.String("stream_id", s.streamID),
	)

	return telemetry.NewTelemetry(ctx, name, attributes...)
}

// Closes the connection and stops delivering events. Runs once.
func (s *Subscriber) shutdown() error {
	var err error

	s.shutdownOnce.Do(func() {
		err = s.connection.Terminate()
		close(s.done)
		s.connectionStateChanges.Close()
		s.trackAdditions.Close()
	})

	return err
}
