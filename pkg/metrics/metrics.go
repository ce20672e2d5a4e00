package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "subscriber"

// Outcomes of a signaling request.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

type Config struct {
	// Address to serve `/metrics` on, e.g. `:9090`. Metrics are not served if empty.
	Address string `yaml:"address"`
}

var (
	signalingRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "signaling",
		Name:      "requests_total",
		Help:      "Signaling requests sent to the media server.",
	}, []string{"op", "result"})

	tracksReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tracks",
		Name:      "received_total",
		Help:      "Tracks received from the media server.",
	}, []string{"kind"})

	connectionStates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "connection",
		Name:      "state_changes_total",
		Help:      "Peer connection state changes.",
	}, []string{"state"})

	registerOnce sync.Once
)

// Registers the collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(signalingRequests, tracksReceived, connectionStates)
	})
}

func RecordSignalingRequest(op string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}

	signalingRequests.WithLabelValues(op, result).Inc()
}

func RecordTrackReceived(kind string) {
	tracksReceived.WithLabelValues(kind).Inc()
}

func RecordConnectionState(state string) {
	connectionStates.WithLabelValues(state).Inc()
}

// Serves the default registry on `/metrics` until the context is done.
func Serve(ctx context.Context, config Config, logger *logrus.Entry) error {
	Init()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              config.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("failed to shut down metrics server")
		}
	}()

	logger.WithField("address", config.Address).Info("serving metrics")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
