package subscriber

// State of the subscription protocol. The transport state is tracked by the peer connection
// and is available via `Subscriber.ConnectionState()`.
type State int

const (
	// Nothing negotiated yet. The only state from which `Subscribe()` is allowed.
	StateCreated State = iota
	// The local offer is being (or has been) committed, the media server has not answered
	// successfully. A subscriber that failed to subscribe stays here.
	StateOffering
	// The media server accepted the offer, a remote session exists.
	StateSubscribed
	// Torn down. Terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateOffering:
		return "offering"
	case StateSubscribed:
		return "subscribed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
