package eventbus

import (
	"PayoutGuard/internal/core/ports"
	"context"
	"maps"
)

// busNotifier implements ports.Notifier by publishing a ports.Notification on the
// topic named after the event type. Relays subscribe to the bus.
type busNotifier struct {
	bus ports.EventBus
}

var _ ports.Notifier = (*busNotifier)(nil)

func NewNotifier(bus ports.EventBus) ports.Notifier {
	return &busNotifier{bus: bus}
}

func (n *busNotifier) Notify(ctx context.Context, eventType, recipient string, payload map[string]string) error {
	return n.bus.Publish(ctx, eventType, ports.Notification{
		EventType: eventType,
		Recipient: recipient,
		Payload:   maps.Clone(payload),
	})
}
