/*
Copyright 2022 The Matrix.org Foundation C.I.C.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/matrix-org/subscriber/pkg/config"
	"github.com/matrix-org/subscriber/pkg/metrics"
	"github.com/matrix-org/subscriber/pkg/profiling"
	"github.com/matrix-org/subscriber/pkg/signaling"
	"github.com/matrix-org/subscriber/pkg/subscriber"
	"github.com/matrix-org/subscriber/pkg/telemetry"
	"github.com/matrix-org/subscriber/pkg/webrtc_ext"
	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// How long to wait for the media server to acknowledge the end of the session on shutdown.
const shutdownTimeout = 10 * time.Second

type flags struct {
	configFilePath string
	cpuProfile     string
	memProfile     string
	token          string
	mute           string
}

func main() {
	// Parse command line flags.
	var f flags
	flag.StringVar(&f.configFilePath, "config", "config.yaml", "configuration file path")
	flag.StringVar(&f.cpuProfile, "cpuProfile", "", "write CPU profile to `file`")
	flag.StringVar(&f.memProfile, "memProfile", "", "write memory profile to `file`")
	flag.StringVar(&f.token, "token", "", "credential to subscribe with, overrides the one from the config")
	flag.StringVar(&f.mute, "mute", "", "comma-separated media kinds (`audio,video`) the media server should not send")
	flag.Parse()

	// Initialize logging subsystem (formatting, global logging framework etc).
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})

	if err := run(f); err != nil {
		logrus.WithError(err).Error("subscriber failed")
		os.Exit(1)
	}
}

func run(f flags) error {
	// Load the config file from the environment variable or path.
	config, err := config.LoadConfig(f.configFilePath)
	if err != nil {
		return err
	}

	token, err := config.Credential(f.token)
	if err != nil {
		return err
	}

	muted, err := parseKinds(f.mute)
	if err != nil {
		return err
	}

	switch config.LogLevel {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	case "fatal":
		logrus.SetLevel(logrus.FatalLevel)
	case "panic":
		logrus.SetLevel(logrus.PanicLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}

	logger := logrus.NewEntry(logrus.StandardLogger())

	// Functions that are called before exiting, e.g. to stop the profiler.
	defer profiling.InitCPUProfiling(f.cpuProfile, logger)()
	defer profiling.InitMemoryProfiling(f.memProfile, logger)()

	// Handle signal interruptions.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.Telemetry.Enabled() {
		provider, err := telemetry.SetupTelemetry(ctx, config.Telemetry)
		if err != nil {
			return err
		}
		defer func() {
			if err := provider.Shutdown(context.Background()); err != nil {
				logger.WithError(err).Warn("failed to flush telemetry")
			}
		}()
	}

	if config.Metrics.Address != "" {
		go func() {
			if err := metrics.Serve(ctx, config.Metrics, logger); err != nil {
				logger.WithError(err).Error("metrics server failed")
			}
		}()
	}

	client, err := signaling.NewHTTPClient(config.Signaling, logger)
	if err != nil {
		return err
	}

	factory, err := webrtc_ext.NewPeerConnectionFactory(config.WebRTC)
	if err != nil {
		return err
	}


	options := subscriber.Options{
		Signaling:     client,
		NewConnection: subscriber.PeerConnectionFactory(factory),
		Logger:        logger,
	}

	recordings := newRecordings(config.Recorder, logger)
	sub, err := subscribeWithRetry(ctx, func() (*subscriber.Subscriber, error) {
		s, err := subscriber.New(token, options)
		if err != nil {
			return nil, err
		}

		// Listeners only see what happens after they're registered, so do it before subscribing.
		recordings.watch(s)
		return s, nil
	}, newBackOff(config.Retry), logger)
	if err != nil {
		return err
	}

	if len(muted) > 0 {
		if err := sub.Mute(ctx, true, muted...); err != nil {
			logger.WithError(err).Warn("failed to mute")
		}
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := sub.Unsubscribe(shutdownCtx); err != nil && !errors.Is(err, subscriber.ErrAlreadyUnsubscribed) {
		logger.WithError(err).Warn("failed to unsubscribe, closing locally")
		if err := sub.Close(); err != nil {
			logger.WithError(err).Warn("failed to close the peer connection")
		}
	}

	recordings.wait(shutdownCtx)

	return nil
}

// Parses the value of the `-mute` flag, e.g. "audio,video". An empty value mutes nothing.
func parseKinds(value string) ([]webrtc.RTPCodecType, error) {
	var kinds []webrtc.RTPCodecType
	if value == "" {
		return kinds, nil
	}

	for _, name := range strings.Split(value, ",") {
		kind := webrtc_ext.ParseKind(strings.TrimSpace(name))
		if kind == 0 {
			return nil, fmt.Errorf("unknown media kind %q", name)
		}

		if !slices.Contains(kinds, kind) {
			kinds = append(kinds, kind)
		}
	}

	return kinds, nil
}
