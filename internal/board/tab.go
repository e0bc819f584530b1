package board

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hay-kot/postsync/internal/core/eventbus"
	"github.com/hay-kot/postsync/internal/core/logging"
	"github.com/hay-kot/postsync/internal/core/notify"
	"github.com/hay-kot/postsync/internal/core/post"
	"github.com/hay-kot/postsync/internal/core/relay"
	"github.com/hay-kot/postsync/internal/core/validate"
	"github.com/hay-kot/postsync/internal/reconcile"
	"github.com/hay-kot/postsync/pkg/observer"
)

// Notification titles emitted by a Tab.
const (
	TitleCreated  = "Post created"
	TitleUpdated  = "Post updated"
	TitleDeleted  = "Post deleted"
	TitleNotFound = "Post not found"
	TitleInvalid  = "Invalid post"
	TitleSaveFail = "Save failed"
	TitleLoadFail = "Load failed"
	TitleSync     = "Sync"
)

// TabOptions configures a Tab.
type TabOptions struct {
	// ID identifies the tab in logs. A random ID is used when empty.
	ID string
	// Store is the shared record store. Required.
	Store post.Store
	// Dialer opens the cross-tab transport. Without one the tab only sees
	// its own changes.
	Dialer relay.Dialer
	// Channel is the relay channel name; relay.DefaultChannel when empty.
	Channel string
	// DefaultStatus fills Input.Status when it is left empty.
	DefaultStatus post.Status
	// Sink receives user-facing notifications. Defaults to notify.Discard.
	Sink   notify.Sink
	Logger zerolog.Logger
}

// Tab is one browsing context: a view of the posts kept current by its own
// mutations, its event bus and the relay.
type Tab struct {
	id            string
	store         post.Store
	bus           *eventbus.EventBus
	relay         *relay.Channel
	view          *reconcile.View
	svc           *Service
	sink          notify.Sink
	log           zerolog.Logger
	defaultStatus post.Status

	detach  func()
	changes observer.Subscription
}

// NewTab builds a tab and binds its view to the bus and the relay. Call
// Open to connect the relay and load the posts.
func NewTab(opts TabOptions) *Tab {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()[:8]
	}

	sink := opts.Sink
	if sink == nil {
		sink = notify.Discard
	}

	log := opts.Logger.With().Str("tab", id).Logger()
	bus := eventbus.New()
	eventbus.RegisterDebugLogger(bus, log)

	t := &Tab{
		id:            id,
		store:         opts.Store,
		bus:           bus,
		relay:         relay.New(opts.Channel, opts.Dialer, log),
		view:          reconcile.NewView(log),
		svc:           NewService(opts.Store, bus, log),
		sink:          sink,
		log:           log,
		defaultStatus: opts.DefaultStatus,
	}

	t.detach = t.view.Bind(t.bus, t.relay)
	t.changes = t.view.OnChange(t.onChange)
	return t
}

// ID returns the tab ID.
func (t *Tab) ID() string { return t.id }

// Bus returns the tab's same-tab event bus.
func (t *Tab) Bus() *eventbus.EventBus { return t.bus }

// View returns the tab's reconciled view.
func (t *Tab) View() *reconcile.View { return t.view }

// Synced reports whether the cross-tab relay is connected.
func (t *Tab) Synced() bool { return t.relay.Connected() }

// Open connects the relay and loads the posts. A relay that cannot be
// opened leaves the tab working on its own; only a failed load is
// returned.
func (t *Tab) Open(ctx context.Context) error {
	ctx = t.ctx(ctx, "open")

	if err := t.relay.Connect(ctx); err != nil {
		t.log.Debug().Ctx(ctx).Err(err).Msg("tab running without cross-tab sync")
	}

	return t.Refresh(ctx)
}

// Refresh reloads the posts from the store.
func (t *Tab) Refresh(ctx context.Context) error {
	ctx = t.ctx(ctx, "refresh")

	if err := t.view.Load(ctx, t.store); err != nil {
		t.notify(notify.LevelError, TitleLoadFail, "Could not load the posts.")
		return fmt.Errorf("refresh: %w", err)
	}
	return nil
}

// Posts returns the posts matching f.
func (t *Tab) Posts(f post.Filter) []post.Post {
	return t.view.Filter(f)
}

// Get returns the post with id from the view.
func (t *Tab) Get(id string) (post.Post, bool) {
	return t.view.Get(id)
}

// Authors returns the unique authors in the view.
func (t *Tab) Authors() []string {
	return t.view.Authors()
}

// State returns the load state of the view.
func (t *Tab) State() reconcile.State {
	return t.view.State()
}

// Create validates in, stores it and propagates the new post.
func (t *Tab) Create(ctx context.Context, in post.Input) (post.Post, error) {
	ctx = t.ctx(ctx, "create")

	if in.Status == "" {
		in.Status = t.defaultStatus
	}

	if err := validate.Input(in); err != nil {
		t.notify(notify.LevelError, TitleInvalid, err.Error())
		return post.Post{}, err
	}

	created, err := t.svc.Create(ctx, in)
	if err != nil {
		t.log.Error().Ctx(ctx).Err(err).Msg("create failed")
		t.notify(notify.LevelError, TitleSaveFail, "Could not save the post.")
		return post.Post{}, err
	}

	t.propagate(ctx, post.NewEvent(created))
	t.notify(notify.LevelSuccess, TitleCreated, fmt.Sprintf("%q was created.", created.Title))
	return created, nil
}

// Update validates patch and applies it to the post with id. It returns
// false when the post does not exist.
func (t *Tab) Update(ctx context.Context, id string, patch post.Patch) (post.Post, bool, error) {
	ctx = logging.WithPost(t.ctx(ctx, "update"), id)

	if err := validate.Patch(patch); err != nil {
		t.notify(notify.LevelError, TitleInvalid, err.Error())
		return post.Post{}, false, err
	}

	updated, ok, err := t.svc.Update(ctx, id, patch)
	if err != nil {
		t.log.Error().Ctx(ctx).Err(err).Str("id", id).Msg("update failed")
		t.notify(notify.LevelError, TitleSaveFail, "Could not save the post.")
		return post.Post{}, false, err
	}

	if !ok {
		t.notify(notify.LevelWarning, TitleNotFound, fmt.Sprintf("Post %s does not exist.", id))
		return post.Post{}, false, nil
	}

	t.propagate(ctx, post.UpdatedEvent(updated))
	t.notify(notify.LevelInfo, TitleUpdated, fmt.Sprintf("%q was updated.", updated.Title))
	return updated, true, nil
}

// Delete removes the post with id. It returns false when the post does
// not exist.
func (t *Tab) Delete(ctx context.Context, id string) (bool, error) {
	ctx = logging.WithPost(t.ctx(ctx, "delete"), id)

	ok, err := t.svc.Delete(ctx, id)
	if err != nil {
		t.log.Error().Ctx(ctx).Err(err).Str("id", id).Msg("delete failed")
		t.notify(notify.LevelError, TitleSaveFail, "Could not delete the post.")
		return false, err
	}

	if !ok {
		t.notify(notify.LevelError, TitleNotFound, fmt.Sprintf("Post %s does not exist.", id))
		return false, nil
	}

	// Deletes never reach the bus, so the view learns of them here.
	t.propagate(ctx, post.DeletedEvent(id))
	t.notify(notify.LevelSuccess, TitleDeleted, "The post was deleted.")
	return true, nil
}

// Close detaches the view and releases the bus and the relay.
func (t *Tab) Close() error {
	t.detach()
	t.changes.Unsubscribe()
	t.bus.Close()
	return t.relay.Close()
}

// propagate applies env to the view and relays it to the other tabs.
// Creates and updates have already reached the view through the bus echo,
// which makes the local apply a no-op for them.
func (t *Tab) propagate(ctx context.Context, env post.Envelope) {
	t.view.Apply(env, reconcile.SourceLocal)

	if err := t.relay.Post(ctx, env); err != nil {
		t.log.Warn().Ctx(ctx).Err(err).Stringer("envelope", env).Msg("relay post failed")
	}
}

func (t *Tab) onChange(c reconcile.Change) {
	if c.Source != reconcile.SourceCrossTab {
		return
	}

	switch c.Envelope.Kind {
	case post.KindNew:
		if c.Applied {
			t.notify(notify.LevelInfo, TitleSync,
				fmt.Sprintf("New post %q added in another tab.", c.Envelope.Post.Title))
		}
	case post.KindUpdated:
		t.notify(notify.LevelInfo, TitleSync,
			fmt.Sprintf("Post %q updated in another tab.", c.Envelope.Post.Title))
	case post.KindDeleted:
		t.notify(notify.LevelInfo, TitleSync, "Post deleted in another tab.")
	}
}

func (t *Tab) notify(level notify.Level, title, msg string) {
	t.sink.Notify(notify.Notification{
		Level:     level,
		Title:     title,
		Message:   msg,
		CreatedAt: time.Now(),
	})
}

func (t *Tab) ctx(ctx context.Context, op string) context.Context {
	if logging.FromContext(ctx).Tab == "" {
		ctx = logging.WithTab(ctx, t.id)
	}
	return logging.WithOp(ctx, op)
}
