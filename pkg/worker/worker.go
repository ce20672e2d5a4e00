package worker

import (
	"errors"
	"sync"
	"time"
)

// Errors that may occur when sending tasks to a worker.
var (
	ErrWorkerClosed  = errors.New("worker is closed")
	ErrWorkerTooBusy = errors.New("worker is already overloaded")
)

// Configuration for the worker.
type Config[T any] struct {
	// The size of the bounded channel.
	ChannelSize int
	// Optional. If set, `OnTimeout` is called each time no task arrived for `Timeout`.
	Timeout time.Duration
	// A closure that is called once `Timeout` is reached.
	OnTimeout func()
	// A closure that is executed upon reception of a task.
	OnTask func(T)
}

// Worker executes tasks on its own goroutine, one at a time and in the order they were sent.
type Worker[T any] struct {
	channel chan<- T
	done    <-chan struct{}
	mutex   sync.Mutex
	closed  bool
}

// Starts a worker. The worker runs until `Stop()` is called and every task that was queued
// before that has been handled.
func StartWorker[T any](c Config[T]) *Worker[T] {
	incoming := make(chan T, c.ChannelSize)
	done := make(chan struct{})

	go func() {
		defer close(done)

		for {
			// A nil channel blocks forever, so there is no timeout unless configured.
			var timeout <-chan time.Time
			if c.Timeout > 0 {
				timeout = time.After(c.Timeout)
			}

			select {
			case task, ok := <-incoming:
				if !ok {
					return
				}
				c.OnTask(task)
			case <-timeout:
				if c.OnTimeout != nil {
					c.OnTimeout()
				}
			}
		}
	}()

	return &Worker[T]{channel: incoming, done: done}
}

// Sends a task to the worker without blocking. Fails with `ErrWorkerTooBusy` if the queue is full
// and with `ErrWorkerClosed` once the worker has been stopped.
func (w *Worker[T]) Send(task T) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return ErrWorkerClosed
	}

	select {
	case w.channel <- task:
		return nil
	default:
		return ErrWorkerTooBusy
	}
}

// Stops the worker unless already stopped. Tasks that are already queued are still handled.
func (w *Worker[T]) Stop() {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if !w.closed {
		close(w.channel)
		w.closed = true
	}
}

// Closed once the worker goroutine has returned.
func (w *Worker[T]) Done() <-chan struct{} {
	return w.done
}
