// Package relay implements the cross-tab channel: a named broadcast that
// reaches every other endpoint on the same channel and never the sender.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hay-kot/postsync/internal/core/post"
	"github.com/hay-kot/postsync/pkg/observer"
)

// DefaultChannel is the channel name every tab joins unless configured otherwise.
const DefaultChannel = "post_updates_channel"

// ErrClosed is returned by a Transport used after Close.
var ErrClosed = errors.New("relay: transport closed")

// Transport is one endpoint's connection to a broadcast primitive.
//
// Send must not deliver the envelope back to the same transport. Messages
// yields envelopes from other endpoints and is closed once the transport
// is closed.
type Transport interface {
	Send(ctx context.Context, env post.Envelope) error
	Messages() <-chan post.Envelope
	Close() error
}

// Dialer opens a Transport for a channel name.
type Dialer interface {
	Dial(ctx context.Context, channel string) (Transport, error)
}

// DialFunc adapts a function to Dialer.
type DialFunc func(ctx context.Context, channel string) (Transport, error)

func (f DialFunc) Dial(ctx context.Context, channel string) (Transport, error) {
	return f(ctx, channel)
}

// Channel is a tab's handle on the cross-tab relay. Subscriptions survive
// Close and Connect; while disconnected Post is a no-op.
type Channel struct {
	name    string
	dialer  Dialer
	log     zerolog.Logger
	subject *observer.Subject[post.Envelope]

	mu        sync.Mutex
	transport Transport
	pumpDone  chan struct{}
}

// New creates a disconnected channel. A nil dialer yields a channel that
// stays degraded forever.
func New(name string, dialer Dialer, logger zerolog.Logger) *Channel {
	if name == "" {
		name = DefaultChannel
	}

	c := &Channel{
		name:    name,
		dialer:  dialer,
		log:     logger.With().Str("channel", name).Logger(),
		subject: observer.New[post.Envelope](),
	}
	c.subject.OnPanic(func(r any) {
		c.log.Error().Interface("panic", r).Msg("relay subscriber panicked")
	})
	return c
}

// Name returns the channel name.
func (c *Channel) Name() string { return c.name }

// Connect dials the transport and starts delivering incoming envelopes to
// subscribers. On failure the channel stays degraded and the returned
// error wraps post.ErrChannelUnavailable.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.transport != nil {
		return nil
	}

	if c.dialer == nil {
		c.log.Warn().Msg("cross-tab relay not available, sync limited to this tab")
		return fmt.Errorf("%w: no transport", post.ErrChannelUnavailable)
	}

	t, err := c.dialer.Dial(ctx, c.name)
	if err != nil {
		c.log.Warn().Err(err).Msg("cross-tab relay not available, sync limited to this tab")
		return fmt.Errorf("%w: %w", post.ErrChannelUnavailable, err)
	}

	done := make(chan struct{})
	c.transport = t
	c.pumpDone = done

	go c.pump(t, done)

	c.log.Debug().Msg("relay connected")
	return nil
}

func (c *Channel) pump(t Transport, done chan struct{}) {
	defer close(done)
	for env := range t.Messages() {
		c.subject.Publish(env)
	}
}

// Connected reports whether a transport is attached.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport != nil
}

// Post sends env to every other endpoint on the channel. Delivery is
// asynchronous. A degraded or closed channel drops env silently.
func (c *Channel) Post(ctx context.Context, env post.Envelope) error {
	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()

	if t == nil {
		c.log.Debug().Stringer("envelope", env).Msg("relay disconnected, dropping envelope")
		return nil
	}

	if err := t.Send(ctx, env); err != nil {
		if errors.Is(err, ErrClosed) {
			return nil
		}
		return fmt.Errorf("relay post %s: %w", env.Kind, err)
	}
	return nil
}

// Subscribe registers fn for envelopes arriving from other endpoints.
func (c *Channel) Subscribe(fn func(post.Envelope)) observer.Subscription {
	return c.subject.Subscribe(fn)
}

// Close releases the transport and waits for in-flight deliveries to
// finish. It is safe to call repeatedly.
func (c *Channel) Close() error {
	c.mu.Lock()
	t := c.transport
	done := c.pumpDone
	c.transport = nil
	c.pumpDone = nil
	c.mu.Unlock()

	if t == nil {
		return nil
	}

	err := t.Close()
	<-done

	c.log.Debug().Msg("relay closed")
	return err
}
