package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hay-kot/postsync/internal/core/post"
)

// SeedPosts returns the sample collection written to an empty store.
func SeedPosts(now time.Time) []post.Post {
	day := 24 * time.Hour
	yesterday := now.Add(-day)
	twoDaysAgo := now.Add(-2 * day)

	return []post.Post{
		{
			ID:        uuid.NewString(),
			Title:     "First test post",
			Content:   "This is the content of the first post. Hello world!",
			Author:    "Admin User",
			Status:    post.StatusPublished,
			CreatedAt: yesterday,
			UpdatedAt: yesterday,
		},
		{
			ID:        uuid.NewString(),
			Title:     "Another interesting post",
			Content:   "Here we talk about keeping several tabs in sync.",
			Author:    "Jane Doe",
			Status:    post.StatusDraft,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:        uuid.NewString(),
			Title:     "State management on the client",
			Content:   "Exploring different strategies for managing local state.",
			Author:    "Admin User",
			Status:    post.StatusArchived,
			CreatedAt: twoDaysAgo,
			UpdatedAt: twoDaysAgo,
		},
	}
}

// Seed writes SeedPosts when the store is empty and reports whether it did.
func Seed(ctx context.Context, store post.Store, now time.Time) (bool, error) {
	existing, err := store.ReadAll(ctx)
	if err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	if err := store.WriteAll(ctx, SeedPosts(now.UTC())); err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}
	return true, nil
}
