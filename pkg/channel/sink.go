package channel

import (
	"errors"
	"sync/atomic"
)

var ErrSinkSealed = errors.New("the sink is sealed")

// SinkWithSender stamps every message with a fixed sender before putting it on a shared channel.
// The peer connection adapter only ever gets a sink, never the channel itself, so it can't close
// the channel that belongs to its owner and it can't pretend to be someone else.
type SinkWithSender[SenderType comparable, MessageType any] struct {
	// The sender of the messages (e.g. the ID of the subscriber that owns the peer).
	sender SenderType
	// The channel that the owner of the sink reads from.
	messageSink chan<- Message[SenderType, MessageType]
	// Closed once the sink is sealed. Pending `Send()` calls unblock when this happens.
	sealed chan struct{}
	// Guards closing `sealed` more than once.
	alreadySealed atomic.Bool
}

// Creates a new sink. The sink is not responsible for closing `messageSink`, this is up to the
// owner of the channel.
func NewSink[S comparable, M any](sender S, messageSink chan<- Message[S, M]) *SinkWithSender[S, M] {
	return &SinkWithSender[S, M]{
		sender:      sender,
		messageSink: messageSink,
		sealed:      make(chan struct{}),
	}
}

// Sends a message to the owner of the sink. Blocks while the channel is full unless the sink
// gets sealed in the meantime.
func (s *SinkWithSender[S, M]) Send(message M) error {
	if s.alreadySealed.Load() {
		return ErrSinkSealed
	}

	select {
	case <-s.sealed:
		return ErrSinkSealed
	case s.messageSink <- Message[S, M]{Sender: s.sender, Content: message}:
		return nil
	}
}

// Seals the sink. Any `Send()` that starts after `Seal()` returns fails with `ErrSinkSealed`.
// A `Send()` that is already blocked either delivers its message or fails, whichever happens first.
func (s *SinkWithSender[S, M]) Seal() {
	if !s.alreadySealed.CompareAndSwap(false, true) {
		return
	}

	close(s.sealed)
}

// A message together with the sender that produced it.
type Message[SenderType comparable, MessageType any] struct {
	Sender  SenderType
	Content MessageType
}
