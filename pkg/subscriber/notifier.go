package subscriber

import (
	"sync"

	"github.com/matrix-org/subscriber/pkg/worker"
	"github.com/sirupsen/logrus"
)

// Notifier delivers events of one category to every registered listener.
// Each listener gets its own worker, so a slow listener only delays itself and the publisher
// never blocks. Events are not stored: a listener only sees what is published after it registered.
type Notifier[T any] struct {
	logger    *logrus.Entry
	queueSize int

	mutex     sync.Mutex
	nextID    uint64
	listeners map[uint64]*worker.Worker[T]
	closed    bool
}

func NewNotifier[T any](queueSize int, logger *logrus.Entry) *Notifier[T] {
	return &Notifier[T]{
		logger:    logger,
		queueSize: queueSize,
		listeners: make(map[uint64]*worker.Worker[T]),
	}
}

// Registers a listener. The returned function removes it again; events that are already queued
// for the listener are still delivered.
func (n *Notifier[T]) Listen(listener func(T)) (cancel func()) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if n.closed {
		return func() {}
	}

	id := n.nextID
	n.nextID++

	n.listeners[id] = worker.StartWorker(worker.Config[T]{
		ChannelSize: n.queueSize,
		OnTask:      listener,
	})

	return func() {
		n.mutex.Lock()
		defer n.mutex.Unlock()

		if w, ok := n.listeners[id]; ok {
			w.Stop()
			delete(n.listeners, id)
		}
	}
}

// Hands the event to all listeners without waiting for them.
func (n *Notifier[T]) Publish(event T) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	for id, listener := range n.listeners {
		if err := listener.Send(event); err != nil {
			n.logger.WithError(err).WithField("listener", id).Warn("dropping event for listener")
		}
	}
}

// Stops all listeners. Events that are already queued are still delivered; nothing published
// after this reaches anyone.
func (n *Notifier[T]) Close() {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	for id, listener := range n.listeners {
		listener.Stop()
		delete(n.listeners, id)
	}
	n.closed = true
}
