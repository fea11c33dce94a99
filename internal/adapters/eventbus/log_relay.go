package eventbus

import (
	"PayoutGuard/internal/core/ports"
	"context"

	"github.com/rs/zerolog"
)

// NewLogRelay returns a handler that writes notifications to the log. It stands in
// for a real delivery channel in dev, where reading an OTP off the console is the
// point; secrets are only included when includeSecrets is set.
func NewLogRelay(baseLogger *zerolog.Logger, includeSecrets bool) ports.EventHandler {
	log := baseLogger.With().Str("component", "log_relay").Logger()
	return func(ctx context.Context, event ports.Event) error {
		n, ok := event.Data.(ports.Notification)
		if !ok {
			return nil
		}
		ev := log.Info().Str("event_type", n.EventType).Str("recipient", n.Recipient)
		for k, v := range n.Payload {
			if (k == "code" || k == "token") && !includeSecrets {
				v = "[redacted]"
			}
			ev = ev.Str(k, v)
		}
		ev.Msg("Notification")
		return nil
	}
}
