package recorder

import (
	"sync"
	"time"
)

// Watchdog executes `onTimeout` each time it has not been notified for `timeout`.
type Watchdog struct {
	timeout   time.Duration
	onTimeout func()

	incoming  chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

func NewWatchdog(timeout time.Duration, onTimeout func()) *Watchdog {
	return &Watchdog{
		timeout:   timeout,
		onTimeout: onTimeout,
		incoming:  make(chan struct{}, 1),
		closed:    make(chan struct{}),
	}
}

// Starts watching. The returned channel is closed once the watchdog is closed.
func (w *Watchdog) Start() <-chan struct{} {
	terminated := make(chan struct{})

	go func() {
		defer close(terminated)

		timer := time.NewTimer(w.timeout)
		defer timer.Stop()

		for {
			select {
			case <-w.incoming:
				if !timer.Stop() {
					<-timer.C
				}
			case <-timer.C:
				w.onTimeout()
			case <-w.closed:
				return
			}

			timer.Reset(w.timeout)
		}
	}()

	return terminated
}

// Tells the watchdog that something has been received. Never blocks.
// Returns `false` if the watchdog is closed.
func (w *Watchdog) Notify() bool {
	select {
	case <-w.closed:
		return false
	default:
	}

	select {
	case w.incoming <- struct{}{}:
	default:
		// A notification is already pending, that's as good.
	}

	return true
}

// Stops the watchdog. Safe to call more than once.
func (w *Watchdog) Close() {
	w.closeOnce.Do(func() {
		close(w.closed)
	})
}
