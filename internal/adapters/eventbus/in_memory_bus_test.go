package eventbus

import (
	"PayoutGuard/internal/core/ports"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversToTopicAndWildcard(t *testing.T) {
	nopLogger := zerolog.Nop()
	bus := NewInMemoryEventBus(&nopLogger)

	var mu sync.Mutex
	var got []string
	record := func(name string) ports.EventHandler {
		return func(ctx context.Context, e ports.Event) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, name+":"+e.Topic)
			return nil
		}
	}
	bus.Subscribe(ports.NotifyPayoutCompleted, record("topic"))
	bus.Subscribe(ports.TopicAll, record("all"))

	require.NoError(t, bus.Publish(context.Background(), ports.NotifyPayoutCompleted, "x"))
	require.NoError(t, bus.Publish(context.Background(), ports.NotifyPayoutFailed, "y"))
	require.NoError(t, bus.Drain(context.Background()))

	assert.ElementsMatch(t, []string{
		"topic:" + ports.NotifyPayoutCompleted,
		"all:" + ports.NotifyPayoutCompleted,
		"all:" + ports.NotifyPayoutFailed,
	}, got)
}

func TestBus_HandlerErrorDoesNotReachPublisher(t *testing.T) {
	nopLogger := zerolog.Nop()
	bus := NewInMemoryEventBus(&nopLogger)
	bus.Subscribe("t", func(ctx context.Context, e ports.Event) error { return errors.New("relay down") })

	assert.NoError(t, bus.Publish(context.Background(), "t", nil))
	assert.NoError(t, bus.Drain(context.Background()))
}

func TestBus_HandlerSurvivesPublisherCancel(t *testing.T) {
	nopLogger := zerolog.Nop()
	bus := NewInMemoryEventBus(&nopLogger)

	result := make(chan error, 1)
	bus.Subscribe("t", func(ctx context.Context, e ports.Event) error {
		time.Sleep(10 * time.Millisecond)
		result <- ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Publish(ctx, "t", nil))
	cancel()
	require.NoError(t, bus.Drain(context.Background()))
	assert.NoError(t, <-result)
}

func TestBus_DrainTimesOut(t *testing.T) {
	nopLogger := zerolog.Nop()
	bus := NewInMemoryEventBus(&nopLogger)
	release := make(chan struct{})
	bus.Subscribe("t", func(ctx context.Context, e ports.Event) error {
		<-release
		return nil
	})
	require.NoError(t, bus.Publish(context.Background(), "t", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Drain(ctx), context.DeadlineExceeded)
	close(release)
	assert.NoError(t, bus.Drain(context.Background()))
}

func TestNotifier_PublishesNotification(t *testing.T) {
	nopLogger := zerolog.Nop()
	bus := NewInMemoryEventBus(&nopLogger)
	got := make(chan ports.Notification, 1)
	bus.Subscribe(ports.NotifyPayoutScheduled, func(ctx context.Context, e ports.Event) error {
		got <- e.Data.(ports.Notification)
		return nil
	})

	payload := map[string]string{"amount": "75000"}
	n := NewNotifier(bus)
	require.NoError(t, n.Notify(context.Background(), ports.NotifyPayoutScheduled, "user-1", payload))
	payload["amount"] = "mutated"
	require.NoError(t, bus.Drain(context.Background()))

	msg := <-got
	assert.Equal(t, "user-1", msg.Recipient)
	assert.Equal(t, "75000", msg.Payload["amount"], "payload is copied at publish time")
}

func TestLogRelay_RedactsUnlessAllowed(t *testing.T) {
	var buf strings.Builder
	logger := zerolog.New(&buf)
	n := ports.Notification{EventType: ports.NotifyOTPIssued, Recipient: "u-1", Payload: map[string]string{"code": "123456"}}

	require.NoError(t, NewLogRelay(&logger, false)(context.Background(), ports.Event{Data: n}))
	assert.NotContains(t, buf.String(), "123456")

	buf.Reset()
	require.NoError(t, NewLogRelay(&logger, true)(context.Background(), ports.Event{Data: n}))
	assert.Contains(t, buf.String(), "123456")
}
