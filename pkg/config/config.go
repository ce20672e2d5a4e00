package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/matrix-org/subscriber/pkg/metrics"
	"github.com/matrix-org/subscriber/pkg/recorder"
	"github.com/matrix-org/subscriber/pkg/signaling"
	"github.com/matrix-org/subscriber/pkg/telemetry"
	"github.com/matrix-org/subscriber/pkg/webrtc_ext"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// Subscriber configuration.
type Config struct {
	// Media server signaling configuration.
	Signaling signaling.Config `yaml:"signaling"`
	// WebRTC configuration (ICE servers, public IPs).
	WebRTC webrtc_ext.Config `yaml:"webrtc"`
	// Telemetry configuration.
	Telemetry telemetry.Config `yaml:"telemetry"`
	// Metrics configuration.
	Metrics metrics.Config `yaml:"metrics"`
	// Where to record received tracks to.
	Recorder recorder.Config `yaml:"recorder"`
	// How to retry a failed subscription.
	Retry RetryConfig `yaml:"retry"`
	// Credential issued by the application backend. May be left out if it's passed on the command line.
	Token string `yaml:"token"`
	// Starting from which level to log stuff.
	LogLevel string `yaml:"log"`
}

type RetryConfig struct {
	// Give up after this long. Zero means the default of the backoff (15 minutes).
	MaxElapsedTime time.Duration `yaml:"maxElapsedTime"`
	// Upper bound of the wait between two attempts. Zero means the default of the backoff.
	MaxInterval time.Duration `yaml:"maxInterval"`
}

var (
	// ErrNoConfigEnvVar is returned when the CONFIG environment variable is not set.
	ErrNoConfigEnvVar = errors.New("environment variable not set or invalid")
	ErrInvalidConfig  = errors.New("invalid config values")
)

var logLevels = []string{"", "debug", "info", "warn", "error", "fatal", "panic"}

// Tries to load a config from the `CONFIG` environment variable.
// If the environment variable is not set, tries to load a config from the
// provided path to the config file (YAML). Returns an error if the config could
// not be loaded.
func LoadConfig(path string) (*Config, error) {
	config, err := LoadConfigFromEnv()
	if err != nil {
		if !errors.Is(err, ErrNoConfigEnvVar) {
			return nil, err
		}

		return LoadConfigFromPath(path)
	}

	return config, nil
}

// Tries to load the config from environment variable (`CONFIG`).
func LoadConfigFromEnv() (*Config, error) {
	configEnv := os.Getenv("CONFIG")
	if configEnv == "" {
		return nil, ErrNoConfigEnvVar
	}

	return LoadConfigFromString(configEnv)
}

// Tries to load a config from the provided path.
func LoadConfigFromPath(path string) (*Config, error) {
	logrus.WithField("path", path).Info("loading config")

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return LoadConfigFromString(string(file))
}

// Load config from the provided string.
// Returns an error if the string is not a valid YAML or the values don't make sense.
func LoadConfigFromString(configString string) (*Config, error) {
	logrus.Info("loading config from string")

	var config Config
	if err := yaml.Unmarshal([]byte(configString), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Signaling.URL == "":
		return fmt.Errorf("%w: signaling URL is missing", ErrInvalidConfig)
	case c.Signaling.Timeout < 0:
		return fmt.Errorf("%w: negative signaling timeout", ErrInvalidConfig)
	case !slices.Contains(logLevels, c.LogLevel):
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
	}

	return nil
}

// The credential to subscribe with. A non-empty `override` wins over the configured token.
func (c *Config) Credential(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if c.Token == "" {
		return "", fmt.Errorf("%w: token is missing", ErrInvalidConfig)
	}

	return c.Token, nil
}
