// Package sweep prunes relay messages that every live tab has long since
// received.
package sweep

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Pruner removes relay messages older than retention and reports how many
// it removed.
type Pruner interface {
	Sweep(ctx context.Context, retention time.Duration) (int, error)
}

// Start runs an initial sweep and then one per interval. It blocks until
// the context is cancelled.
func Start(ctx context.Context, p Pruner, interval, retention time.Duration) {
	run(ctx, p, retention)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run(ctx, p, retention)
		}
	}
}

func run(ctx context.Context, p Pruner, retention time.Duration) {
	n, err := p.Sweep(ctx, retention)
	if err != nil {
		log.Debug().Err(err).Msg("relay sweep failed")
		return
	}
	if n > 0 {
		log.Debug().Int("removed", n).Msg("relay sweep")
	}
}
