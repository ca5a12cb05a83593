package ws

import (
	"board-lab/contract"
	"board-lab/domain/event"
	"board-lab/errors"
	"context"
	"sync"
)

var _ contract.EventSink = (*Sink)(nil)

// Sink is the outbound queue of one connection, drained by its write pump.
type Sink struct {
	events chan event.DomainEvent
	done   chan struct{}
	once   sync.Once
}

func NewSink(bufferSize int) *Sink {
	return &Sink{events: make(chan event.DomainEvent, bufferSize), done: make(chan struct{})}
}

// Consume is called by fanout
// A full buffer drops the event instead of slowing down the whole room
func (s *Sink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case <-s.done:
		return errors.ErrSinkClosed
	default:
	}
	select {
	case s.events <- e:
		return nil
	case <-s.done:
		return errors.ErrSinkClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrSinkFull
	}
}

// Close stops the write pump. It is safe to call more than once.
func (s *Sink) Close() {
	s.once.Do(func() { close(s.done) })
}
