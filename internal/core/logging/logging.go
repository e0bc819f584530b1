// Package logging carries per-operation log fields through a context and
// adds them to zerolog events that were given that context with Ctx.
package logging

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Scope is the set of fields attached to an operation's log lines.
type Scope struct {
	Tab  string
	Op   string
	Post string
}

type scopeKey struct{}

// FromContext returns the scope stored in ctx, or the zero Scope.
func FromContext(ctx context.Context) Scope {
	if ctx == nil {
		return Scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(Scope)
	return s
}

func with(ctx context.Context, fn func(*Scope)) context.Context {
	s := FromContext(ctx)
	fn(&s)
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithTab records the tab an operation runs in.
func WithTab(ctx context.Context, id string) context.Context {
	return with(ctx, func(s *Scope) { s.Tab = id })
}

// WithOp records the operation name (create, update, refresh...).
func WithOp(ctx context.Context, op string) context.Context {
	return with(ctx, func(s *Scope) { s.Op = op })
}

// WithPost records the post an operation targets.
func WithPost(ctx context.Context, id string) context.Context {
	return with(ctx, func(s *Scope) { s.Post = id })
}

// ContextHook copies the event context's Scope onto the event.
type ContextHook struct{}

func (ContextHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	s := FromContext(e.GetCtx())
	if s.Tab != "" {
		e.Str("tab", s.Tab)
	}
	if s.Op != "" {
		e.Str("op", s.Op)
	}
	if s.Post != "" {
		e.Str("post_id", s.Post)
	}
}

// Component returns the global logger tagged with cmp=name.
func Component(name string) zerolog.Logger {
	return log.With().Str("cmp", name).Logger()
}
