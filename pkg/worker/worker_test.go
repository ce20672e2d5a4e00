package worker_test

import (
	"testing"
	"time"

	"github.com/matrix-org/subscriber/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_HandlesTasksInOrder(t *testing.T) {
	var handled []int
	w := worker.StartWorker(worker.Config[int]{
		ChannelSize: 8,
		OnTask:      func(task int) { handled = append(handled, task) },
	})

	for i := 1; i <= 5; i++ {
		require.NoError(t, w.Send(i))
	}

	w.Stop()
	<-w.Done()

	assert.Equal(t, []int{1, 2, 3, 4, 5}, handled)
}

func TestWorker_TooBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	w := worker.StartWorker(worker.Config[int]{
		ChannelSize: 1,
		OnTask: func(int) {
			started <- struct{}{}
			<-release
		},
	})
	defer func() {
		close(release)
		w.Stop()
	}()

	// The first task occupies the worker, the second one fills the queue.
	require.NoError(t, w.Send(1))
	<-started
	require.NoError(t, w.Send(2))

	assert.ErrorIs(t, w.Send(3), worker.ErrWorkerTooBusy)
}

func TestWorker_SendAfterStop(t *testing.T) {
	w := worker.StartWorker(worker.Config[int]{ChannelSize: 1, OnTask: func(int) {}})

	w.Stop()
	w.Stop()

	assert.ErrorIs(t, w.Send(1), worker.ErrWorkerClosed)
	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("worker should finish after stop")
	}
}

func TestWorker_Timeout(t *testing.T) {
	timedOut := make(chan struct{}, 1)
	w := worker.StartWorker(worker.Config[int]{
		ChannelSize: 1,
		Timeout:     10 * time.Millisecond,
		OnTimeout: func() {
			select {
			case timedOut <- struct{}{}:
			default:
			}
		},
		OnTask: func(int) {},
	})
	defer w.Stop()

	select {
	case <-timedOut:
	case <-time.After(time.Second):
		t.Fatal("timeout callback was not called")
	}
}

func BenchmarkWorker(b *testing.B) {
	w := worker.StartWorker(worker.Config[struct{}]{
		ChannelSize: 1,
		OnTask:      func(struct{}) {},
	})

	for n := 0; n < b.N; n++ {
		_ = w.Send(struct{}{})
	}

	w.Stop()
}
