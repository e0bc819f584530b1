package stores

import (
	"context"
	"time"

	"github.com/hay-kot/postsync/internal/core/post"
)

// Latency is the artificial delay added to record store calls to mimic a
// network round trip.
type Latency struct {
	Read  time.Duration
	Write time.Duration
}

// DefaultLatency matches the delays of the hosted demo backend.
func DefaultLatency() Latency {
	return Latency{
		Read:  300 * time.Millisecond,
		Write: 200 * time.Millisecond,
	}
}

type latencyStore struct {
	next    post.Store
	latency Latency
}

// WithLatency wraps store so every call waits before touching it. A zero
// Latency returns store unchanged.
func WithLatency(store post.Store, latency Latency) post.Store {
	if latency.Read <= 0 && latency.Write <= 0 {
		return store
	}
	return &latencyStore{next: store, latency: latency}
}

func (s *latencyStore) ReadAll(ctx context.Context) ([]post.Post, error) {
	if err := wait(ctx, s.latency.Read); err != nil {
		return nil, err
	}
	return s.next.ReadAll(ctx)
}

func (s *latencyStore) WriteAll(ctx context.Context, posts []post.Post) error {
	if err := wait(ctx, s.latency.Write); err != nil {
		return err
	}
	return s.next.WriteAll(ctx, posts)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
