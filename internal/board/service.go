// Package board wires a tab together: the mutation service, the same-tab
// event bus, the cross-tab relay and the reconciled view.
package board

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hay-kot/postsync/internal/core/eventbus"
	"github.com/hay-kot/postsync/internal/core/post"
)

// Service performs create, update and delete against the record store.
// Every mutation is a full read-modify-write of the stored collection.
//
// Create and Update publish on the tab's event bus once the write
// succeeds. Delete never publishes; callers update their own view and the
// relay directly.
type Service struct {
	store post.Store
	bus   *eventbus.EventBus
	log   zerolog.Logger
	now   func() time.Time

	// mu serializes mutations issued through this service. Writers in
	// other processes are not covered.
	mu sync.Mutex
}

// NewService creates a Service. bus may be nil, in which case nothing is
// published.
func NewService(store post.Store, bus *eventbus.EventBus, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		bus:   bus,
		log:   log.With().Str("component", "post-service").Logger(),
		now:   time.Now,
	}
}

// List returns the stored collection.
func (s *Service) List(ctx context.Context) ([]post.Post, error) {
	posts, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// Get returns the stored post with id or post.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (post.Post, error) {
	posts, err := s.store.ReadAll(ctx)
	if err != nil {
		return post.Post{}, fmt.Errorf("get post %s: %w", id, err)
	}

	i := post.IndexOf(posts, id)
	if i < 0 {
		return post.Post{}, fmt.Errorf("get post %s: %w", id, post.ErrNotFound)
	}
	return posts[i], nil
}

// Create stores a new post built from in. Input is not validated here.
func (s *Service) Create(ctx context.Context, in post.Input) (post.Post, error) {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.store.ReadAll(ctx)
	if err != nil {
		return post.Post{}, fmt.Errorf("create post: %w", err)
	}

	now := s.now().UTC()
	created := post.Post{
		ID:        uuid.NewString(),
		Title:     in.Title,
		Content:   in.Content,
		Author:    in.Author,
		Status:    in.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	posts = append(posts, created)
	if err := s.store.WriteAll(ctx, posts); err != nil {
		return post.Post{}, fmt.Errorf("create post: %w", err)
	}

	s.log.Debug().Ctx(ctx).Str("id", created.ID).Msg("post created")

	if s.bus != nil {
		s.bus.PublishNewPost(eventbus.NewPostPayload{Post: created})
	}
	return created, nil
}

// Update merges patch into the post with id. It returns false with a nil
// error when no such post exists.
func (s *Service) Update(ctx context.Context, id string, patch post.Patch) (post.Post, bool, error) {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.store.ReadAll(ctx)
	if err != nil {
		return post.Post{}, false, fmt.Errorf("update post %s: %w", id, err)
	}

	i := post.IndexOf(posts, id)
	if i < 0 {
		return post.Post{}, false, nil
	}

	prev := posts[i]
	updated := patch.Apply(prev)
	updated.ID = prev.ID
	updated.CreatedAt = prev.CreatedAt
	updated.UpdatedAt = s.advance(prev.UpdatedAt)

	posts = slices.Clone(posts)
	posts[i] = updated
	if err := s.store.WriteAll(ctx, posts); err != nil {
		return post.Post{}, false, fmt.Errorf("update post %s: %w", id, err)
	}

	s.log.Debug().Ctx(ctx).Str("id", id).Msg("post updated")

	if s.bus != nil {
		s.bus.PublishPostUpdated(eventbus.PostUpdatedPayload{Post: updated})
	}
	return updated, true, nil
}

// Delete removes the post with id. It returns false with a nil error when
// no such post exists. Nothing is published on the bus.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.store.ReadAll(ctx)
	if err != nil {
		return false, fmt.Errorf("delete post %s: %w", id, err)
	}

	i := post.IndexOf(posts, id)
	if i < 0 {
		return false, nil
	}

	posts = slices.Delete(slices.Clone(posts), i, i+1)
	if err := s.store.WriteAll(ctx, posts); err != nil {
		return false, fmt.Errorf("delete post %s: %w", id, err)
	}

	s.log.Debug().Ctx(ctx).Str("id", id).Msg("post deleted")
	return true, nil
}

// advance returns the current time, pushed past prev when the clock has
// not moved forward since the last write.
func (s *Service) advance(prev time.Time) time.Time {
	now := s.now().UTC()
	if !now.After(prev) {
		return prev.Add(time.Millisecond)
	}
	return now
}
