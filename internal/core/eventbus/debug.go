package eventbus

import (
	"fmt"

	"github.com/rs/zerolog"
)

// RegisterDebugLogger logs bus activity on logger: publishes at debug,
// subscriptions at trace, drops after Close at warn and listener panics
// at error.
func RegisterDebugLogger(bus *EventBus, logger zerolog.Logger) {
	bus.OnPublish(func(event Event, payload any) {
		logger.Debug().
			Str("event", string(event)).
			Str("post_id", payloadID(payload)).
			Msg("bus event")
	})

	bus.OnDrop(func(event Event, payload any) {
		logger.Warn().
			Str("event", string(event)).
			Str("post_id", payloadID(payload)).
			Msg("bus closed, event dropped")
	})

	bus.OnSubscribe(func(event Event) {
		logger.Trace().Str("event", string(event)).Msg("bus listener added")
	})

	bus.OnPanic(func(event Event, payload any, recovered any) {
		logger.Error().
			Str("event", string(event)).
			Str("post_id", payloadID(payload)).
			Str("panic", fmt.Sprint(recovered)).
			Msg("bus listener panicked")
	})
}

func payloadID(payload any) string {
	switch p := payload.(type) {
	case NewPostPayload:
		return p.Post.ID
	case PostUpdatedPayload:
		return p.Post.ID
	default:
		return ""
	}
}
