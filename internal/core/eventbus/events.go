// Package eventbus provides the typed same-tab event source. It carries
// the echo a server would push to every connected client, the originating
// tab included, for new and updated posts. Deletes are not published.
package eventbus

import (
	"errors"

	"github.com/hay-kot/postsync/internal/core/post"
)

// Event names a same-tab event type.
type Event string

const (
	EventNewPost     Event = "new-post"
	EventPostUpdated Event = "post-updated"
)

// ErrUnknownEvent is returned by On for names outside Events.
var ErrUnknownEvent = errors.New("eventbus: unknown event")

// Events defines all event types and their payload structs.
var Events = map[Event]any{
	// Keep list sorted A-Z
	EventNewPost:     NewPostPayload{},
	EventPostUpdated: PostUpdatedPayload{},
}

// NewPostPayload is emitted after a post is created and stored.
type NewPostPayload struct {
	Post post.Post
}

// PostUpdatedPayload is emitted after a post update is stored.
type PostUpdatedPayload struct {
	Post post.Post
}
