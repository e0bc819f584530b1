package stores

import (
	"context"
	"fmt"

	"github.com/hay-kot/postsync/internal/core/kv"
	"github.com/hay-kot/postsync/internal/core/post"
)

// PostStore implements post.Store as a single JSON blob, the whole
// collection, stored at "postsync:posts".
type PostStore struct {
	blob kv.Doc[[]post.Post]
}

var _ post.Store = (*PostStore)(nil)

// NewPostStore creates a record store on top of store.
func NewPostStore(store kv.KV) *PostStore {
	return &PostStore{blob: kv.NewDoc[[]post.Post](store, "postsync", "posts")}
}

// Key returns the KV key holding the collection.
func (s *PostStore) Key() string { return s.blob.Key() }

// ReadAll returns the stored collection. A missing blob is an empty
// collection; anything unreadable is post.ErrStoreUnavailable.
func (s *PostStore) ReadAll(ctx context.Context) ([]post.Post, error) {
	posts, _, err := s.blob.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read posts: %w", post.ErrStoreUnavailable, err)
	}
	if posts == nil {
		posts = []post.Post{}
	}
	return posts, nil
}

// WriteAll replaces the stored collection.
func (s *PostStore) WriteAll(ctx context.Context, posts []post.Post) error {
	if posts == nil {
		posts = []post.Post{}
	}
	if err := s.blob.Save(ctx, posts); err != nil {
		return fmt.Errorf("%w: write posts: %w", post.ErrStoreUnavailable, err)
	}
	return nil
}
