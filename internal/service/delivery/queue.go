package delivery

import "sync"

// QueueChannel is a Channel backed by a buffered queue. A transport goroutine
// drains Events and writes them to the wire; Send never blocks.
type QueueChannel struct {
	events chan Event
	done   chan struct{}
	once   sync.Once
}

// NewQueueChannel returns a channel buffering up to size events.
func NewQueueChannel(size int) *QueueChannel {
	if size <= 0 {
		size = 64
	}
	return &QueueChannel{
		events: make(chan Event, size),
		done:   make(chan struct{}),
	}
}

// Send enqueues evt, failing when the channel is closed or its buffer is full.
func (q *QueueChannel) Send(evt Event) error {
	select {
	case <-q.done:
		return ErrChannelClosed
	default:
	}

	select {
	case q.events <- evt:
		return nil
	case <-q.done:
		return ErrChannelClosed
	default:
		return ErrChannelFull
	}
}

// Events is read by the single writer goroutine.
func (q *QueueChannel) Events() <-chan Event {
	return q.events
}

// Done is closed once Close has been called.
func (q *QueueChannel) Done() <-chan struct{} {
	return q.done
}

// Close stops accepting events. Safe to call more than once.
func (q *QueueChannel) Close() {
	q.once.Do(func() { close(q.done) })
}
