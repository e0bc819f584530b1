package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/postsync/internal/core/eventbus"
	"github.com/hay-kot/postsync/internal/core/eventbus/testbus"
	"github.com/hay-kot/postsync/internal/core/post"
	"github.com/hay-kot/postsync/internal/core/relay"
)

var baseTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func mkPost(id, author string, status post.Status) post.Post {
	return post.Post{
		ID:        id,
		Title:     "Title " + id,
		Content:   "Content for " + id,
		Author:    author,
		Status:    status,
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
}

func ids(posts []post.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

type memStore struct {
	posts []post.Post
	err   error
	gate  chan struct{}
}

func (m *memStore) ReadAll(ctx context.Context) ([]post.Post, error) {
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return append([]post.Post(nil), m.posts...), nil
}

func (m *memStore) WriteAll(_ context.Context, posts []post.Post) error {
	m.posts = posts
	return nil
}

func TestView_Idempotence(t *testing.T) {
	p := mkPost("p-1", "Ana", post.StatusDraft)
	updated := p
	updated.Title = "Changed"
	updated.UpdatedAt = baseTime.Add(time.Minute)

	tests := []struct {
		name  string
		setup []post.Envelope
		env   post.Envelope
	}{
		{"new", nil, post.NewEvent(p)},
		{"updated", []post.Envelope{post.NewEvent(p)}, post.UpdatedEvent(updated)},
		{"deleted", []post.Envelope{post.NewEvent(p)}, post.DeletedEvent(p.ID)},
		{"updated missing", nil, post.UpdatedEvent(updated)},
		{"deleted missing", nil, post.DeletedEvent("nope")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := NewView(zerolog.Nop())
			twice := NewView(zerolog.Nop())
			for _, env := range tt.setup {
				once.Apply(env, SourceLocal)
				twice.Apply(env, SourceLocal)
			}

			once.Apply(tt.env, SourceSameTab)
			twice.Apply(tt.env, SourceSameTab)
			second := twice.Apply(tt.env, SourceCrossTab)

			assert.False(t, second, "second application must be a no-op")
			assert.Equal(t, once.Posts(), twice.Posts())
		})
	}
}

func TestView_Rules(t *testing.T) {
	v := NewView(zerolog.Nop())
	a := mkPost("a", "Ana", post.StatusDraft)
	b := mkPost("b", "Bo", post.StatusPublished)

	assert.True(t, v.Apply(post.NewEvent(a), SourceLocal))
	assert.True(t, v.Apply(post.NewEvent(b), SourceCrossTab))
	assert.Equal(t, []string{"a", "b"}, ids(v.Posts()), "append-only arrival order")

	// new with an existing id never overwrites
	stale := a
	stale.Title = "stale"
	assert.False(t, v.Apply(post.NewEvent(stale), SourceSameTab))
	got, ok := v.Get("a")
	require.True(t, ok)
	assert.Equal(t, a.Title, got.Title)

	// updated replaces in place
	a2 := a
	a2.Title = "renamed"
	assert.True(t, v.Apply(post.UpdatedEvent(a2), SourceSameTab))
	assert.Equal(t, []string{"a", "b"}, ids(v.Posts()))
	got, _ = v.Get("a")
	assert.Equal(t, "renamed", got.Title)

	// updated for an unknown id does not insert
	assert.False(t, v.Apply(post.UpdatedEvent(mkPost("zz", "X", post.StatusDraft)), SourceCrossTab))
	assert.Equal(t, 2, v.Len())

	// deleted removes
	assert.True(t, v.Apply(post.DeletedEvent("a"), SourceLocal))
	assert.Equal(t, []string{"b"}, ids(v.Posts()))
}

func TestView_NoDuplicatesUnderInterleaving(t *testing.T) {
	sources := []Source{SourceLocal, SourceSameTab, SourceCrossTab}

	for seed := range uint64(25) {
		t.Run(fmt.Sprintf("seed-%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(seed, seed*7+1))
			v := NewView(zerolog.Nop())

			var envs []post.Envelope
			for i := range 10 {
				p := mkPost(fmt.Sprintf("p-%d", i), "Ana", post.StatusDraft)
				// each logical create can arrive up to three times
				for range 1 + rng.IntN(3) {
					envs = append(envs, post.NewEvent(p))
				}
			}
			rng.Shuffle(len(envs), func(i, j int) { envs[i], envs[j] = envs[j], envs[i] })

			for _, env := range envs {
				v.Apply(env, sources[rng.IntN(len(sources))])
			}

			seen := map[string]int{}
			for _, p := range v.Posts() {
				seen[p.ID]++
			}
			assert.Len(t, seen, 10)
			for id, n := range seen {
				assert.Equal(t, 1, n, "post %s duplicated", id)
			}
		})
	}
}

func TestView_PostsReturnsCopy(t *testing.T) {
	v := NewView(zerolog.Nop())
	v.Apply(post.NewEvent(mkPost("a", "Ana", post.StatusDraft)), SourceLocal)

	posts := v.Posts()
	posts[0].Title = "mutated"

	got, _ := v.Get("a")
	assert.NotEqual(t, "mutated", got.Title)
}

func TestView_LoadStateMachine(t *testing.T) {
	ctx := context.Background()
	v := NewView(zerolog.Nop())
	assert.Equal(t, StateIdle, v.State())

	store := &memStore{posts: []post.Post{mkPost("a", "Ana", post.StatusDraft)}}
	require.NoError(t, v.Load(ctx, store))
	assert.Equal(t, StateReady, v.State())
	assert.NoError(t, v.Err())
	assert.Equal(t, []string{"a"}, ids(v.Posts()))

	store.err = fmt.Errorf("%w: corrupt", post.ErrStoreUnavailable)
	err := v.Load(ctx, store)
	require.ErrorIs(t, err, post.ErrStoreUnavailable)
	assert.Equal(t, StateFailed, v.State())
	require.ErrorIs(t, v.Err(), post.ErrStoreUnavailable)
	assert.Equal(t, []string{"a"}, ids(v.Posts()), "failed load keeps the previous collection")

	// envelopes still apply while failed, but the state does not change
	v.Apply(post.NewEvent(mkPost("b", "Bo", post.StatusDraft)), SourceCrossTab)
	assert.Equal(t, StateFailed, v.State())

	store.err = nil
	require.NoError(t, v.Load(ctx, store))
	assert.Equal(t, StateReady, v.State())
	assert.NoError(t, v.Err())
	assert.Equal(t, []string{"a"}, ids(v.Posts()), "load replaces the collection")
}

func TestView_LoadDedupesStoredDuplicates(t *testing.T) {
	a := mkPost("a", "Ana", post.StatusDraft)
	store := &memStore{posts: []post.Post{a, mkPost("b", "Bo", post.StatusDraft), a}}

	v := NewView(zerolog.Nop())
	require.NoError(t, v.Load(context.Background(), store))
	assert.Equal(t, []string{"a", "b"}, ids(v.Posts()))
}

func TestView_LoadReplaysEnvelopesAppliedMidFlight(t *testing.T) {
	store := &memStore{
		posts: []post.Post{mkPost("a", "Ana", post.StatusDraft), mkPost("b", "Bo", post.StatusDraft)},
		gate:  make(chan struct{}),
	}
	v := NewView(zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- v.Load(context.Background(), store) }()

	require.Eventually(t, func() bool { return v.State() == StateLoading }, time.Second, time.Millisecond)

	v.Apply(post.NewEvent(mkPost("c", "Cy", post.StatusDraft)), SourceCrossTab)
	v.Apply(post.DeletedEvent("a"), SourceCrossTab)

	close(store.gate)
	require.NoError(t, <-done)

	assert.Equal(t, []string{"b", "c"}, ids(v.Posts()))
}

func TestView_LoadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := NewView(zerolog.Nop())
	err := v.Load(ctx, &memStore{gate: make(chan struct{})})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, v.State())
}

func TestView_FilterAndAuthors(t *testing.T) {
	v := NewView(zerolog.Nop())
	for _, p := range []post.Post{
		mkPost("1", "A", post.StatusPublished),
		mkPost("2", "A", post.StatusDraft),
		mkPost("3", "B", post.StatusPublished),
		mkPost("4", "A", post.StatusPublished),
	} {
		v.Apply(post.NewEvent(p), SourceLocal)
	}

	assert.Equal(t, []string{"1", "4"}, ids(v.Filter(post.Filter{Author: "A", Status: post.StatusPublished})))
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(v.Filter(post.Filter{})))
	assert.Equal(t, []string{"A", "B"}, v.Authors())
}

func TestView_OnChange(t *testing.T) {
	v := NewView(zerolog.Nop())

	var changes []Change
	sub := v.OnChange(func(c Change) { changes = append(changes, c) })

	p := mkPost("a", "Ana", post.StatusDraft)
	v.Apply(post.NewEvent(p), SourceLocal)
	v.Apply(post.NewEvent(p), SourceSameTab)

	require.Len(t, changes, 2)
	assert.Equal(t, Change{Envelope: post.NewEvent(p), Source: SourceLocal, Applied: true}, changes[0])
	assert.Equal(t, Change{Envelope: post.NewEvent(p), Source: SourceSameTab, Applied: false}, changes[1])

	sub.Unsubscribe()
	v.Apply(post.DeletedEvent("a"), SourceLocal)
	assert.Len(t, changes, 2)
}

func TestView_Bind(t *testing.T) {
	bus := testbus.New(t)
	hub := relay.NewHub()

	mine := relay.New(relay.DefaultChannel, hub, zerolog.Nop())
	other := relay.New(relay.DefaultChannel, hub, zerolog.Nop())
	require.NoError(t, mine.Connect(context.Background()))
	require.NoError(t, other.Connect(context.Background()))
	t.Cleanup(func() {
		_ = mine.Close()
		_ = other.Close()
	})

	v := NewView(zerolog.Nop())
	detach := v.Bind(bus, mine)

	var (
		mu      sync.Mutex
		sources []Source
	)
	v.OnChange(func(c Change) {
		mu.Lock()
		sources = append(sources, c.Source)
		mu.Unlock()
	})

	a := mkPost("a", "Ana", post.StatusDraft)
	bus.PublishNewPost(eventbus.NewPostPayload{Post: a})
	assert.Equal(t, []string{"a"}, ids(v.Posts()), "same-tab delivery is synchronous")

	require.NoError(t, other.Post(context.Background(), post.DeletedEvent("a")))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sources) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, v.Len())

	detach()
	bus.PublishNewPost(eventbus.NewPostPayload{Post: a})
	assert.Zero(t, v.Len())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Source{SourceSameTab, SourceCrossTab}, sources)
}

func TestView_BindWithoutRelay(t *testing.T) {
	bus := eventbus.New()
	v := NewView(zerolog.Nop())
	detach := v.Bind(bus, nil)
	defer detach()

	bus.PublishNewPost(eventbus.NewPostPayload{Post: mkPost("a", "Ana", post.StatusDraft)})
	assert.Equal(t, 1, v.Len())
}

func TestView_ConcurrentSources(t *testing.T) {
	v := NewView(zerolog.Nop())
	p := mkPost("a", "Ana", post.StatusDraft)

	errs := make(chan error, 2)
	for _, src := range []Source{SourceSameTab, SourceCrossTab} {
		go func(src Source) {
			for range 100 {
				v.Apply(post.NewEvent(p), src)
			}
			errs <- nil
		}(src)
	}
	for range 2 {
		require.NoError(t, <-errs)
	}

	assert.Equal(t, 1, v.Len())
	assert.False(t, errors.Is(v.Err(), post.ErrStoreUnavailable))
}
