package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
)

var (
	// ErrIntakeFull is returned when the intake queue has no capacity left.
	ErrIntakeFull = errors.New("intake queue is full")
	// ErrIntakeClosed is returned on send after the queue has been closed.
	ErrIntakeClosed = errors.New("intake queue is closed")
)

// Intake is a bounded, single-consumer hand-off queue between producers
// (chat submissions) and the turn consumer loop.
type Intake[T any] struct {
	channel    chan T
	bufferSize int
	closed     atomic.Int32
}

func NewIntake[T any](bufferSize int) *Intake[T] {
	if bufferSize <= 0 {
		bufferSize = DefaultIntakeBuffer
	}
	return &Intake[T]{
		channel:    make(chan T, bufferSize),
		bufferSize: bufferSize,
	}
}

// TrySend enqueues without blocking. Producers must never stall on a slow
// consumer, so a full queue is reported instead of waited on.
func (q *Intake[T]) TrySend(item T) error {
	if q.IsClosed() {
		return ErrIntakeClosed
	}
	select {
	case q.channel <- item:
		return nil
	default:
		return ErrIntakeFull
	}
}

// Receive blocks until an item arrives, the queue is drained and closed,
// or ctx is cancelled.
func (q *Intake[T]) Receive(ctx context.Context) (T, error) {
	select {
	case item, ok := <-q.channel:
		if !ok {
			var zero T
			return zero, ErrIntakeClosed
		}
		return item, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (q *Intake[T]) Close() {
	if q.closed.CompareAndSwap(0, 1) {
		close(q.channel)
	}
}

func (q *Intake[T]) IsClosed() bool {
	return q.closed.Load() == 1
}

func (q *Intake[T]) BufferSize() int {
	return q.bufferSize
}

func (q *Intake[T]) QueueLength() int {
	return len(q.channel)
}
