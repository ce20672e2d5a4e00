package signaling

import "time"

// Configuration for the HTTP signaling client.
type Config struct {
	// Base URL of the media server's signaling API, e.g. `https://rtc.example.com/v1/sub`.
	URL string `yaml:"url"`
	// Per-request timeout. Zero means no timeout other than the caller's context.
	Timeout time.Duration `yaml:"timeout"`
}
