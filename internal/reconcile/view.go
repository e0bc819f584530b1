// Package reconcile owns a tab's in-memory collection of posts and merges
// envelopes from every source into it with idempotent rules.
package reconcile

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hay-kot/postsync/internal/core/eventbus"
	"github.com/hay-kot/postsync/internal/core/post"
	"github.com/hay-kot/postsync/pkg/observer"
)

// State is the load state of a View.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Source identifies where an envelope came from.
type Source string

const (
	// SourceLocal is a change the tab applied itself right after a mutation.
	SourceLocal Source = "local"
	// SourceSameTab is the echo from the tab's own event bus.
	SourceSameTab Source = "same-tab"
	// SourceCrossTab is a change relayed from another tab.
	SourceCrossTab Source = "cross-tab"
)

// Change describes one envelope handed to Apply.
type Change struct {
	Envelope post.Envelope
	Source   Source
	// Applied is false when the envelope was a no-op for the collection.
	Applied bool
}

// SameTabSource is the subset of the event bus a View listens to.
type SameTabSource interface {
	SubscribeNewPost(fn func(eventbus.NewPostPayload)) observer.Subscription
	SubscribePostUpdated(fn func(eventbus.PostUpdatedPayload)) observer.Subscription
}

// CrossTabSource is the subset of the relay channel a View listens to.
type CrossTabSource interface {
	Subscribe(fn func(post.Envelope)) observer.Subscription
}

// View is the canonical collection for one tab. The store stays
// authoritative; the view is a cache kept current by envelopes.
//
// The same rules apply to every source:
//
//	new      append unless a post with the ID is present
//	updated  replace the post with the ID, otherwise no-op
//	deleted  remove the post with the ID, otherwise no-op
//
// Every rule is idempotent, so envelopes may arrive more than once and in
// any interleaving across sources.
type View struct {
	log zerolog.Logger

	mu      sync.RWMutex
	posts   []post.Post
	state   State
	err     error
	pending []post.Envelope

	changes *observer.Subject[Change]
}

// NewView creates an idle, empty view.
func NewView(logger zerolog.Logger) *View {
	v := &View{
		log:     logger,
		posts:   []post.Post{},
		state:   StateIdle,
		changes: observer.New[Change](),
	}
	v.changes.OnPanic(func(r any) {
		v.log.Error().Interface("panic", r).Msg("view change listener panicked")
	})
	return v
}

// Load replaces the collection with the store's content. Envelopes applied
// while the read is in flight are replayed on top of the result. On error
// the view enters StateFailed and keeps its previous collection; calling
// Load again is the only way out of StateFailed.
func (v *View) Load(ctx context.Context, store post.Store) error {
	v.mu.Lock()
	v.state = StateLoading
	v.err = nil
	v.pending = nil
	v.mu.Unlock()

	loaded, err := store.ReadAll(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()

	pending := v.pending
	v.pending = nil

	if err != nil {
		v.state = StateFailed
		v.err = err
		v.log.Warn().Err(err).Msg("failed to load posts")
		return err
	}

	posts := dedupe(loaded)
	for _, env := range pending {
		posts, _ = apply(posts, env)
	}

	v.posts = posts
	v.state = StateReady
	v.log.Debug().Int("count", len(posts)).Int("replayed", len(pending)).Msg("posts loaded")
	return nil
}

// Apply merges env into the collection and reports whether it changed.
func (v *View) Apply(env post.Envelope, src Source) bool {
	v.mu.Lock()
	if v.state == StateLoading {
		v.pending = append(v.pending, env)
	}
	next, changed := apply(v.posts, env)
	v.posts = next
	v.mu.Unlock()

	v.log.Debug().
		Stringer("envelope", env).
		Str("source", string(src)).
		Bool("applied", changed).
		Msg("envelope applied")

	v.changes.Publish(Change{Envelope: env, Source: src, Applied: changed})
	return changed
}

// Bind subscribes the view to both sources. A nil source is skipped. The
// returned function detaches every subscription.
func (v *View) Bind(bus SameTabSource, relay CrossTabSource) (detach func()) {
	var subs []observer.Subscription

	if bus != nil {
		subs = append(subs,
			bus.SubscribeNewPost(func(p eventbus.NewPostPayload) {
				v.Apply(post.NewEvent(p.Post), SourceSameTab)
			}),
			bus.SubscribePostUpdated(func(p eventbus.PostUpdatedPayload) {
				v.Apply(post.UpdatedEvent(p.Post), SourceSameTab)
			}),
		)
	}

	if relay != nil {
		subs = append(subs, relay.Subscribe(func(env post.Envelope) {
			v.Apply(env, SourceCrossTab)
		}))
	}

	return func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	}
}

// OnChange registers fn for every envelope passed to Apply, after the
// collection has been updated.
func (v *View) OnChange(fn func(Change)) observer.Subscription {
	return v.changes.Subscribe(fn)
}

// Posts returns a copy of the collection in arrival order.
func (v *View) Posts() []post.Post {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.posts)
}

// Get returns the post with id.
func (v *View) Get(id string) (post.Post, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if i := post.IndexOf(v.posts, id); i >= 0 {
		return v.posts[i], true
	}
	return post.Post{}, false
}

// Filter returns the posts matching f in arrival order.
func (v *View) Filter(f post.Filter) []post.Post {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return f.Apply(v.posts)
}

// Authors returns the unique authors in first-seen order.
func (v *View) Authors() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return post.Authors(v.posts)
}

// Len returns the number of posts.
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.posts)
}

// State returns the load state.
func (v *View) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// Err returns the error of the last failed load, or nil.
func (v *View) Err() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.err
}

// apply returns the collection after env. posts is never modified in place
// so callers holding a previous copy are unaffected.
func apply(posts []post.Post, env post.Envelope) ([]post.Post, bool) {
	id := env.TargetID()
	i := post.IndexOf(posts, id)

	switch env.Kind {
	case post.KindNew:
		if i >= 0 {
			return posts, false
		}
		next := make([]post.Post, len(posts), len(posts)+1)
		copy(next, posts)
		return append(next, env.Post), true

	case post.KindUpdated:
		if i < 0 {
			return posts, false
		}
		if samePost(posts[i], env.Post) {
			return posts, false
		}
		next := slices.Clone(posts)
		next[i] = env.Post
		return next, true

	case post.KindDeleted:
		if i < 0 {
			return posts, false
		}
		next := make([]post.Post, 0, len(posts)-1)
		next = append(next, posts[:i]...)
		return append(next, posts[i+1:]...), true
	}

	return posts, false
}

func samePost(a, b post.Post) bool {
	return a.ID == b.ID &&
		a.Title == b.Title &&
		a.Content == b.Content &&
		a.Author == b.Author &&
		a.Status == b.Status &&
		a.CreatedAt.Equal(b.CreatedAt) &&
		a.UpdatedAt.Equal(b.UpdatedAt)
}

// dedupe keeps the first post for each ID. The store never holds
// duplicates, but a hand-edited blob might.
func dedupe(posts []post.Post) []post.Post {
	seen := make(map[string]struct{}, len(posts))
	out := make([]post.Post, 0, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}
