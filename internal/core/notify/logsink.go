package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogSink writes notifications to a zerolog logger.
type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) Notify(n Notification) {
	var ev *zerolog.Event
	switch n.Level {
	case LevelError:
		ev = s.Logger.Error()
	case LevelWarning:
		ev = s.Logger.Warn()
	default:
		ev = s.Logger.Info()
	}

	ev.Str("level_name", string(n.Level)).
		Str("title", n.Title).
		Msg(n.Message)
}

// StoreSink persists notifications, logging save failures instead of
// returning them.
type StoreSink struct {
	Store   Store
	Logger  zerolog.Logger
	Timeout time.Duration
}

func (s StoreSink) Notify(n Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if _, err := s.Store.Save(ctx, n); err != nil {
		s.Logger.Warn().Err(err).Str("title", n.Title).Msg("failed to persist notification")
	}
}
