package subscriber_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/matrix-org/subscriber/pkg/peer"
	"github.com/matrix-org/subscriber/pkg/signaling"
	"github.com/matrix-org/subscriber/pkg/subscriber"
	"github.com/matrix-org/subscriber/pkg/testutils"
	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const fakeOffer = "v=0\r\no=- 1 1 IN IP4 0.0.0.0\r\ns=-\r\nt=0 0\r\n"

// A connection that only records what it was asked to do.
type fakeConnection struct {
	sink *subscriber.Sink

	mutex             sync.Mutex
	state             webrtc.PeerConnectionState
	localDescription  string
	remoteDescription string
	terminated        int
	answerErr         error
}

func (c *fakeConnection) CreateSDPOffer() (string, error) {
	return fakeOffer, nil
}

func (c *fakeConnection) SetLocalDescription(sdpOffer string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.localDescription = sdpOffer
	return nil
}

func (c *fakeConnection) ProcessSDPAnswer(sdpAnswer string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.answerErr != nil {
		return c.answerErr
	}

	c.remoteDescription = sdpAnswer
	c.state = webrtc.PeerConnectionStateConnecting
	return nil
}

func (c *fakeConnection) RemoteDescription() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.remoteDescription
}

func (c *fakeConnection) ConnectionState() webrtc.PeerConnectionState {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.state
}

func (c *fakeConnection) Terminate() error {
	c.sink.Seal()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.terminated++
	c.state = webrtc.PeerConnectionStateClosed
	return nil
}

// Reports something the way the pion peer does.
func (c *fakeConnection) emit(t *testing.T, message peer.MessageContent) {
	t.Helper()
	require.NoError(t, c.sink.Send(message))
}

type updateCall struct {
	token    string
	location string
	request  signaling.UpdateRequest
}

type deleteCall struct {
	token    string
	location string
}

// A media server that answers every pull with the same response.
type fakeSignaling struct {
	mutex     sync.Mutex
	response  signaling.PullResponse
	pullErr   error
	updateErr error
	deleteErr error
	pulls     []signaling.PullRequest
	updates   []updateCall
	deletes   []deleteCall
}

func (f *fakeSignaling) Pull(_ context.Context, request signaling.PullRequest) (*signaling.PullResponse, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.pulls = append(f.pulls, request)
	if f.pullErr != nil {
		return nil, f.pullErr
	}

	response := f.response
	return &response, nil
}

func (f *fakeSignaling) Update(_ context.Context, token, location string, request signaling.UpdateRequest) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.updates = append(f.updates, updateCall{token, location, request})
	return f.updateErr
}

func (f *fakeSignaling) Delete(_ context.Context, token, location string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.deletes = append(f.deletes, deleteCall{token, location})
	return f.deleteErr
}

type fixture struct {
	credential string
	connection *fakeConnection
	signaling  *fakeSignaling
	subscriber *subscriber.Subscriber
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		credential: testutils.SignedToken(t, "app1", "stream1"),
		signaling: &fakeSignaling{response: signaling.PullResponse{
			SDP:      testutils.AnswerSDP,
			Location: "/sessions/abc",
		}},
	}

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	s, err := subscriber.New(f.credential, subscriber.Options{
		Signaling: f.signaling,
		NewConnection: func(sink *subscriber.Sink, _ *logrus.Entry) (subscriber.Connection, error) {
			f.connection = &fakeConnection{sink: sink, state: webrtc.PeerConnectionStateNew}
			return f.connection, nil
		},
		Logger: logrus.NewEntry(logger),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	f.subscriber = s
	return f
}

func (f *fixture) subscribe(t *testing.T) {
	t.Helper()
	require.NoError(t, f.subscriber.Subscribe(context.Background()))
}

var errUnreachable = &signaling.Error{Op: signaling.OpPull, Err: errors.New("connection refused")}
