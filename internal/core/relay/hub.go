package relay

import (
	"context"
	"sync"

	"github.com/hay-kot/postsync/internal/core/post"
)

// Hub is an in-memory broadcast primitive for tabs living in one process.
// Each endpoint owns an unbounded mailbox, so Send never blocks on a slow
// receiver and every receiver sees envelopes in send order.
type Hub struct {
	mu        sync.Mutex
	next      uint64
	endpoints map[string]map[uint64]*endpoint
}

var _ Dialer = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{endpoints: make(map[string]map[uint64]*endpoint)}
}

// Dial attaches a new endpoint to channel.
func (h *Hub) Dial(_ context.Context, channel string) (Transport, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	ep := newEndpoint(h, channel, h.next)

	if h.endpoints[channel] == nil {
		h.endpoints[channel] = make(map[uint64]*endpoint)
	}
	h.endpoints[channel][ep.id] = ep

	return ep, nil
}

// Endpoints returns how many endpoints are attached to channel.
func (h *Hub) Endpoints(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.endpoints[channel])
}

func (h *Hub) broadcast(from *endpoint, env post.Envelope) {
	h.mu.Lock()
	peers := make([]*endpoint, 0, len(h.endpoints[from.channel]))
	for id, ep := range h.endpoints[from.channel] {
		if id != from.id {
			peers = append(peers, ep)
		}
	}
	h.mu.Unlock()

	for _, ep := range peers {
		ep.enqueue(env)
	}
}

func (h *Hub) detach(ep *endpoint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.endpoints[ep.channel], ep.id)
	if len(h.endpoints[ep.channel]) == 0 {
		delete(h.endpoints, ep.channel)
	}
}

type endpoint struct {
	hub     *Hub
	channel string
	id      uint64

	mu     sync.Mutex
	queue  []post.Envelope
	closed bool

	signal chan struct{}
	stop   chan struct{}
	out    chan post.Envelope
	once   sync.Once
}

func newEndpoint(h *Hub, channel string, id uint64) *endpoint {
	ep := &endpoint{
		hub:     h,
		channel: channel,
		id:      id,
		signal:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
		out:     make(chan post.Envelope),
	}
	go ep.run()
	return ep
}

func (ep *endpoint) Send(_ context.Context, env post.Envelope) error {
	ep.mu.Lock()
	closed := ep.closed
	ep.mu.Unlock()

	if closed {
		return ErrClosed
	}

	ep.hub.broadcast(ep, env)
	return nil
}

func (ep *endpoint) Messages() <-chan post.Envelope { return ep.out }

func (ep *endpoint) Close() error {
	ep.once.Do(func() {
		ep.mu.Lock()
		ep.closed = true
		ep.queue = nil
		ep.mu.Unlock()

		ep.hub.detach(ep)
		close(ep.stop)
	})
	return nil
}

func (ep *endpoint) enqueue(env post.Envelope) {
	ep.mu.Lock()
	if ep.closed {
		ep.mu.Unlock()
		return
	}
	ep.queue = append(ep.queue, env)
	ep.mu.Unlock()

	select {
	case ep.signal <- struct{}{}:
	default:
	}
}

// run moves queued envelopes to out until the endpoint is closed.
func (ep *endpoint) run() {
	defer close(ep.out)

	for {
		select {
		case <-ep.stop:
			return
		case <-ep.signal:
		}

		for {
			ep.mu.Lock()
			if len(ep.queue) == 0 {
				ep.mu.Unlock()
				break
			}
			env := ep.queue[0]
			ep.queue = ep.queue[1:]
			ep.mu.Unlock()

			select {
			case ep.out <- env:
			case <-ep.stop:
				return
			}
		}
	}
}
