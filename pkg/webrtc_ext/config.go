package webrtc_ext

// Configuration of the WebRTC API used by the subscriber.
type Config struct {
	// STUN/TURN URLs. The media server is expected to be reachable without them,
	// so the list is empty by default.
	ICEServers []string `yaml:"iceServers"`
	// Public IP addresses of this host, advertised as host candidates (1:1 NAT).
	PublicIPs []string `yaml:"ipAddresses"`
}
