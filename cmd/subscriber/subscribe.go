package main

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/matrix-org/subscriber/pkg/config"
	"github.com/matrix-org/subscriber/pkg/recorder"
	"github.com/matrix-org/subscriber/pkg/signaling"
	"github.com/matrix-org/subscriber/pkg/subscriber"
	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"
)

func newBackOff(config config.RetryConfig) backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	if config.MaxElapsedTime > 0 {
		policy.MaxElapsedTime = config.MaxElapsedTime
	}
	if config.MaxInterval > 0 {
		policy.MaxInterval = config.MaxInterval
	}

	return policy
}

// Subscribes until it works, the error is permanent or the policy gives up.
// A subscriber can only try once, so every attempt gets a fresh one from `create`.
func subscribeWithRetry(
	ctx context.Context,
	create func() (*subscriber.Subscriber, error),
	policy backoff.BackOff,
	logger *logrus.Entry,
) (*subscriber.Subscriber, error) {
	var subscribed *subscriber.Subscriber

	operation := func() error {
		s, err := create()
		if err != nil {
			if errors.Is(err, subscriber.ErrInvalidCredential) {
				return backoff.Permanent(err)
			}
			return err
		}

		if err := s.Subscribe(ctx); err != nil {
			discard(ctx, s, logger)
			if isPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}

		subscribed = s
		return nil
	}

	notify := func(err error, wait time.Duration) {
		logger.WithError(err).WithField("retry_in", wait).Warn("failed to subscribe")
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		return nil, err
	}

	return subscribed, nil
}

// Gets rid of a subscriber whose subscription failed. If the media server already created a
// session for it, the session is ended as well.
func discard(ctx context.Context, s *subscriber.Subscriber, logger *logrus.Entry) {
	if s.Location() != "" {
		if err := s.Unsubscribe(ctx); err == nil {
			return
		}
	}

	if err := s.Close(); err != nil {
		logger.WithError(err).Warn("failed to close the subscriber")
	}
}

// Client errors won't go away by trying again, except for timeouts and rate limiting.
func isPermanent(err error) bool {
	var signalingErr *signaling.Error
	if !errors.As(err, &signalingErr) {
		return false
	}

	switch signalingErr.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	default:
		return signalingErr.StatusCode >= 400 && signalingErr.StatusCode < 500
	}
}

// Logs what subscribers report and records the tracks they receive.
type recordings struct {
	config recorder.Config
	logger *logrus.Entry

	mutex     sync.Mutex
	recorders []*recorder.Recorder
}

func newRecordings(config recorder.Config, logger *logrus.Entry) *recordings {
	return &recordings{config: config, logger: logger}
}

func (r *recordings) watch(s *subscriber.Subscriber) {
	logger := r.logger.WithField("subscriber_id", s.ID())

	s.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		logger.WithField("state", state.String()).Info("connection state changed")
	})

	s.OnTrackAdded(func(event subscriber.TrackAdded) {
		logger := logger.WithFields(logrus.Fields{
			"kind":     event.Kind.String(),
			"track_id": event.Track.Info.TrackID,
			"codec":    event.Track.Info.Codec.MimeType,
		})
		logger.Info("track added")

		if !r.config.Enabled() || event.Track.Remote == nil {
			return
		}

		rec, err := recorder.Start(r.config, event.Track.Remote, logger)
		if err != nil {
			logger.WithError(err).Error("failed to start recording")
			return
		}

		r.mutex.Lock()
		r.recorders = append(r.recorders, rec)
		r.mutex.Unlock()
	})
}

// Waits for all recordings to be finalized. Tracks end when the peer connection is closed.
func (r *recordings) wait(ctx context.Context) {
	r.mutex.Lock()
	recorders := append([]*recorder.Recorder(nil), r.recorders...)
	r.mutex.Unlock()

	for _, rec := range recorders {
		select {
		case <-rec.Done():
		case <-ctx.Done():
			r.logger.Warn("recordings were not finalized in time")
			return
		}
	}
}
