package eventbus

import (
	"fmt"
	"sync"

	"github.com/hay-kot/postsync/internal/core/post"
	"github.com/hay-kot/postsync/pkg/observer"
)

// EventBus dispatches events synchronously, in registration order, to the
// listeners registered at publish time. Each tab owns one bus; Close
// clears every listener.
type EventBus struct {
	hooks hooks

	mu     sync.RWMutex
	closed bool

	newPost     *observer.Subject[NewPostPayload]
	postUpdated *observer.Subject[PostUpdatedPayload]
}

// New creates an open bus with no listeners.
func New() *EventBus {
	return &EventBus{
		newPost:     observer.New[NewPostPayload](),
		postUpdated: observer.New[PostUpdatedPayload](),
	}
}

// SubscribeNewPost registers fn for EventNewPost.
func (bus *EventBus) SubscribeNewPost(fn func(NewPostPayload)) observer.Subscription {
	return subscribe(bus, bus.newPost, EventNewPost, fn)
}

// SubscribePostUpdated registers fn for EventPostUpdated.
func (bus *EventBus) SubscribePostUpdated(fn func(PostUpdatedPayload)) observer.Subscription {
	return subscribe(bus, bus.postUpdated, EventPostUpdated, fn)
}

// PublishNewPost delivers p to the current EventNewPost listeners.
func (bus *EventBus) PublishNewPost(p NewPostPayload) {
	publish(bus, bus.newPost, EventNewPost, p)
}

// PublishPostUpdated delivers p to the current EventPostUpdated listeners.
func (bus *EventBus) PublishPostUpdated(p PostUpdatedPayload) {
	publish(bus, bus.postUpdated, EventPostUpdated, p)
}

// On registers fn by event name. Only EventNewPost and EventPostUpdated
// exist; any other name returns ErrUnknownEvent.
func (bus *EventBus) On(event Event, fn func(post.Post)) (observer.Subscription, error) {
	switch event {
	case EventNewPost:
		return bus.SubscribeNewPost(func(p NewPostPayload) { fn(p.Post) }), nil
	case EventPostUpdated:
		return bus.SubscribePostUpdated(func(p PostUpdatedPayload) { fn(p.Post) }), nil
	default:
		return observer.Subscription{}, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
}

// Close removes every listener. Later publishes are dropped and reported
// through OnDrop.
func (bus *EventBus) Close() {
	bus.mu.Lock()
	bus.closed = true
	bus.mu.Unlock()

	bus.newPost.Clear()
	bus.postUpdated.Clear()
}

// Closed reports whether Close has been called.
func (bus *EventBus) Closed() bool {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return bus.closed
}

func subscribe[T any](bus *EventBus, s *observer.Subject[T], event Event, fn func(T)) observer.Subscription {
	sub := s.Subscribe(func(payload T) {
		defer func() {
			if r := recover(); r != nil {
				bus.runOnPanic(event, payload, r)
			}
		}()
		fn(payload)
	})
	bus.runOnSubscribe(event)
	return sub
}

func publish[T any](bus *EventBus, s *observer.Subject[T], event Event, payload T) {
	if bus.Closed() {
		bus.runOnDrop(event, payload)
		return
	}

	s.Publish(payload)
	bus.runOnPublish(event, payload)
}
