// Package testbus wraps a real EventBus and records what it publishes.
package testbus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hay-kot/postsync/internal/core/eventbus"
	"github.com/hay-kot/postsync/internal/core/post"
)

// Record is one published event and the post it carried.
type Record struct {
	Event eventbus.Event
	Post  post.Post
}

// Bus is an EventBus whose first listener records every event.
type Bus struct {
	*eventbus.EventBus

	mu      sync.Mutex
	records []Record
}

// New returns a recording bus that is closed when the test ends.
func New(t *testing.T) *Bus {
	t.Helper()

	tb := &Bus{EventBus: eventbus.New()}
	tb.SubscribeNewPost(func(p eventbus.NewPostPayload) {
		tb.add(eventbus.EventNewPost, p.Post)
	})
	tb.SubscribePostUpdated(func(p eventbus.PostUpdatedPayload) {
		tb.add(eventbus.EventPostUpdated, p.Post)
	})
	t.Cleanup(tb.Close)

	return tb
}

func (tb *Bus) add(event eventbus.Event, p post.Post) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.records = append(tb.records, Record{Event: event, Post: p})
}

// Events returns the records so far, oldest first.
func (tb *Bus) Events() []Record {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return append([]Record(nil), tb.records...)
}

// Posts returns the posts carried by event, in publish order.
func (tb *Bus) Posts(event eventbus.Event) []post.Post {
	var out []post.Post
	for _, r := range tb.Events() {
		if r.Event == event {
			out = append(out, r.Post)
		}
	}
	return out
}

// Count is len(Posts(event)).
func (tb *Bus) Count(event eventbus.Event) int {
	return len(tb.Posts(event))
}

func (tb *Bus) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.records = nil
}

// AssertPublished fails t unless event was published at least once.
// Dispatch is synchronous so there is nothing to wait for.
func (tb *Bus) AssertPublished(t *testing.T, event eventbus.Event) bool {
	t.Helper()
	return assert.NotZero(t, tb.Count(event), "expected %q to be published", event)
}

// AssertNotPublished fails t if event was published.
func (tb *Bus) AssertNotPublished(t *testing.T, event eventbus.Event) bool {
	t.Helper()
	return assert.Zero(t, tb.Count(event), "expected %q not to be published", event)
}
