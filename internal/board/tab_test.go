package board

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/postsync/internal/core/notify"
	"github.com/hay-kot/postsync/internal/core/post"
	"github.com/hay-kot/postsync/internal/core/relay"
	"github.com/hay-kot/postsync/internal/reconcile"
)

const waitFor = 2 * time.Second

type tabHarness struct {
	tab   *Tab
	notes *notify.Buffer
}

func openTab(t *testing.T, store post.Store, dialer relay.Dialer) tabHarness {
	t.Helper()

	notes := notify.NewBuffer()
	tab := NewTab(TabOptions{
		Store:         store,
		Dialer:        dialer,
		DefaultStatus: post.StatusDraft,
		Sink:          notes,
		Logger:        zerolog.Nop(),
	})
	t.Cleanup(func() { _ = tab.Close() })

	require.NoError(t, tab.Open(context.Background()))
	return tabHarness{tab: tab, notes: notes}
}

func countID(posts []post.Post, id string) int {
	n := 0
	for _, p := range posts {
		if p.ID == id {
			n++
		}
	}
	return n
}

func titles(ns []notify.Notification) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Title)
	}
	return out
}

func TestTab_CreateStoresOnePost(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	h := openTab(t, store, nil)

	created, err := h.tab.Create(ctx, post.Input{
		Title:   "Tee",
		Content: "Content long enough",
		Author:  "Al",
		Status:  post.StatusDraft,
	})
	require.NoError(t, err)

	stored, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, created.ID, stored[0].ID)
	assert.True(t, stored[0].CreatedAt.Equal(stored[0].UpdatedAt))

	assert.Equal(t, 1, countID(h.tab.Posts(post.Filter{}), created.ID))
	assert.Equal(t, []string{TitleCreated}, titles(h.notes.Drain()))
}

func TestTab_CreateReachesOtherTabsOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	hub := relay.NewHub()

	one := openTab(t, store, hub)
	two := openTab(t, store, hub)
	require.True(t, one.tab.Synced())

	created, err := one.tab.Create(ctx, validInput())
	require.NoError(t, err)

	assert.Equal(t, 1, countID(one.tab.Posts(post.Filter{}), created.ID))

	require.Eventually(t, func() bool {
		return countID(two.tab.Posts(post.Filter{}), created.ID) == 1
	}, waitFor, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(two.notes.Drain()) > 0
	}, waitFor, 5*time.Millisecond)

	// the sender never hears its own relay
	assert.Equal(t, []string{TitleCreated}, titles(one.notes.Drain()))
}

func TestTab_DeleteReachesOtherTabs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	hub := relay.NewHub()

	one := openTab(t, store, hub)
	two := openTab(t, store, hub)

	created, err := one.tab.Create(ctx, validInput())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return countID(two.tab.Posts(post.Filter{}), created.ID) == 1
	}, waitFor, 5*time.Millisecond)

	ok, err := one.tab.Delete(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Zero(t, countID(one.tab.Posts(post.Filter{}), created.ID))
	require.Eventually(t, func() bool {
		return countID(two.tab.Posts(post.Filter{}), created.ID) == 0
	}, waitFor, 5*time.Millisecond)
}

func TestTab_UpdateReachesOtherTabs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	hub := relay.NewHub()

	one := openTab(t, store, hub)
	two := openTab(t, store, hub)

	created, err := one.tab.Create(ctx, validInput())
	require.NoError(t, err)

	status := post.StatusPublished
	updated, ok, err := one.tab.Update(ctx, created.ID, post.Patch{Status: &status})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, post.StatusPublished, updated.Status)

	got, found := one.tab.Get(created.ID)
	require.True(t, found)
	assert.Equal(t, post.StatusPublished, got.Status)

	require.Eventually(t, func() bool {
		p, found := two.tab.Get(created.ID)
		return found && p.Status == post.StatusPublished
	}, waitFor, 5*time.Millisecond)
	assert.Len(t, two.tab.Posts(post.Filter{}), 1)
}

func TestTab_DeleteWithoutRelayIsNotSeenElsewhere(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	one := openTab(t, store, nil)

	created, err := one.tab.Create(ctx, validInput())
	require.NoError(t, err)

	two := openTab(t, store, nil)
	require.Equal(t, 1, countID(two.tab.Posts(post.Filter{}), created.ID))

	ok, err := one.tab.Delete(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)

	// Deletes are never published on the bus, so without the relay the
	// second tab keeps the stale post until it reloads.
	assert.Equal(t, 1, countID(two.tab.Posts(post.Filter{}), created.ID))

	require.NoError(t, two.tab.Refresh(ctx))
	assert.Zero(t, countID(two.tab.Posts(post.Filter{}), created.ID))
}

func TestTab_DegradedRelay(t *testing.T) {
	ctx := context.Background()
	dialer := relay.DialFunc(func(context.Context, string) (relay.Transport, error) {
		return nil, errors.New("broadcast not supported")
	})

	h := openTab(t, newTestStore(t), dialer)
	assert.False(t, h.tab.Synced())
	assert.Equal(t, reconcile.StateReady, h.tab.State())

	created, err := h.tab.Create(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, 1, countID(h.tab.Posts(post.Filter{}), created.ID))

	ok, err := h.tab.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, h.tab.Posts(post.Filter{}))
}

func TestTab_Filter(t *testing.T) {
	ctx := context.Background()
	h := openTab(t, newTestStore(t), nil)

	inputs := []post.Input{
		{Title: "One post", Content: "Content long enough", Author: "Ann", Status: post.StatusPublished},
		{Title: "Two post", Content: "Content long enough", Author: "Ann", Status: post.StatusDraft},
		{Title: "Six post", Content: "Content long enough", Author: "Bob", Status: post.StatusPublished},
	}
	for _, in := range inputs {
		_, err := h.tab.Create(ctx, in)
		require.NoError(t, err)
	}

	narrowed := h.tab.Posts(post.Filter{Author: "Ann", Status: post.StatusPublished})
	require.Len(t, narrowed, 1)
	assert.Equal(t, "One post", narrowed[0].Title)

	assert.Len(t, h.tab.Posts(post.Filter{}), 3)
	assert.Equal(t, []string{"Ann", "Bob"}, h.tab.Authors())
}

func TestTab_InvalidInput(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	h := openTab(t, store, nil)

	_, err := h.tab.Create(ctx, post.Input{Title: "x", Content: "short", Author: "A"})
	require.Error(t, err)

	stored, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Equal(t, []string{TitleInvalid}, titles(h.notes.Drain()))

	created, err := h.tab.Create(ctx, validInput())
	require.NoError(t, err)
	h.notes.Drain()

	empty := "  "
	_, _, err = h.tab.Update(ctx, created.ID, post.Patch{Title: &empty})
	require.Error(t, err)
	assert.Equal(t, []string{TitleInvalid}, titles(h.notes.Drain()))
}

func TestTab_DefaultStatus(t *testing.T) {
	h := openTab(t, newTestStore(t), nil)

	in := validInput()
	in.Status = ""
	created, err := h.tab.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, post.StatusDraft, created.Status)
}

func TestTab_NotFound(t *testing.T) {
	ctx := context.Background()
	h := openTab(t, newTestStore(t), nil)

	title := "Valid title"
	_, ok, err := h.tab.Update(ctx, "missing", post.Patch{Title: &title})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.tab.Delete(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{TitleNotFound, TitleNotFound}, titles(h.notes.Drain()))
}

func TestTab_LoadFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: newTestStore(t)}
	store.set(true, false)

	notes := notify.NewBuffer()
	tab := NewTab(TabOptions{Store: store, Sink: notes, Logger: zerolog.Nop()})
	t.Cleanup(func() { _ = tab.Close() })

	err := tab.Open(ctx)
	require.ErrorIs(t, err, post.ErrStoreUnavailable)
	assert.Equal(t, reconcile.StateFailed, tab.State())
	assert.Equal(t, []string{TitleLoadFail}, titles(notes.Drain()))

	store.set(false, false)
	require.NoError(t, tab.Refresh(ctx))
	assert.Equal(t, reconcile.StateReady, tab.State())
}

func TestTab_SaveFailureLeavesViewAlone(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: newTestStore(t)}

	notes := notify.NewBuffer()
	tab := NewTab(TabOptions{Store: store, Sink: notes, Logger: zerolog.Nop()})
	t.Cleanup(func() { _ = tab.Close() })
	require.NoError(t, tab.Open(ctx))

	store.set(false, true)
	_, err := tab.Create(ctx, validInput())
	require.ErrorIs(t, err, post.ErrStoreUnavailable)

	assert.Empty(t, tab.Posts(post.Filter{}))
	assert.Equal(t, []string{TitleSaveFail}, titles(notes.Drain()))
}

func TestTab_CrossTabNotifications(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	hub := relay.NewHub()

	one := openTab(t, store, hub)
	two := openTab(t, store, hub)

	created, err := one.tab.Create(ctx, validInput())
	require.NoError(t, err)

	var got []notify.Notification
	require.Eventually(t, func() bool {
		got = append(got, two.notes.Drain()...)
		return len(got) == 1
	}, waitFor, 5*time.Millisecond)
	assert.Equal(t, TitleSync, got[0].Title)
	assert.Contains(t, got[0].Message, created.Title)

	// a duplicate new envelope is not announced again
	two.tab.View().Apply(post.NewEvent(created), reconcile.SourceCrossTab)
	assert.Empty(t, two.notes.Drain())

	// updates and deletes are always announced
	two.tab.View().Apply(post.DeletedEvent("unknown"), reconcile.SourceCrossTab)
	assert.Equal(t, []string{TitleSync}, titles(two.notes.Drain()))
}
