package notify

import (
	"sync"
	"time"
)

// Buffer buffers notifications and emits coalesced drain signals.
type Buffer struct {
	mu            sync.Mutex
	notifications []Notification
	signal        chan struct{}
}

var _ Sink = (*Buffer)(nil)

// NewBuffer constructs a buffer for async notification delivery.
func NewBuffer() *Buffer {
	return &Buffer{
		notifications: make([]Notification, 0),
		signal:        make(chan struct{}, 1),
	}
}

// Notify appends a notification and emits a non-blocking drain signal.
func (b *Buffer) Notify(n Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	b.mu.Lock()
	b.notifications = append(b.notifications, n)
	b.mu.Unlock()

	select {
	case b.signal <- struct{}{}:
	default:
	}
}

// Drain returns all buffered notifications and clears the buffer.
func (b *Buffer) Drain() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.notifications) == 0 {
		return nil
	}

	out := make([]Notification, len(b.notifications))
	copy(out, b.notifications)
	b.notifications = b.notifications[:0]
	return out
}

// Signal fires at least once after one or more Notify calls. A single
// receive may stand for many notifications; always Drain after it.
func (b *Buffer) Signal() <-chan struct{} {
	return b.signal
}
