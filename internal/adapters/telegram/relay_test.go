package telegram

import (
	"PayoutGuard/internal/core/ports"
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestRelay_Format(t *testing.T) {
	nopLogger := zerolog.Nop()
	r := NewRelay(&fakeSender{}, 42, &nopLogger)

	text := r.Format(ports.Notification{
		EventType: ports.NotifyPayoutApprovalRequired,
		Recipient: "u-1",
		Payload:   map[string]string{"currency": "NGN", "amount": "1250000.5"},
	})
	assert.Equal(t, "Payout Approval Required\nrecipient: u-1\namount: 1,250,000.50\ncurrency: NGN", text)
}

func TestRelay_RedactsSecrets(t *testing.T) {
	nopLogger := zerolog.Nop()
	r := NewRelay(&fakeSender{}, 42, &nopLogger)

	text := r.Format(ports.Notification{
		EventType: ports.NotifyOTPIssued,
		Recipient: "u-1",
		Payload:   map[string]string{"code": "123456", "token": "abc"},
	})
	assert.NotContains(t, text, "123456")
	assert.NotContains(t, text, "abc")
	assert.Contains(t, text, "code: [redacted]")
}

func TestRelay_Handle(t *testing.T) {
	nopLogger := zerolog.Nop()
	sender := &fakeSender{}
	r := NewRelay(sender, 42, &nopLogger)

	n := ports.Notification{EventType: ports.NotifyPayoutCompleted, Recipient: "u-1"}
	require.NoError(t, r.Handle(context.Background(), ports.Event{Topic: n.EventType, Data: n}))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(42), sender.sent[0].ChatID)

	require.NoError(t, r.Handle(context.Background(), ports.Event{Topic: "other", Data: "not a notification"}))
	assert.Len(t, sender.sent, 1)

	sender.err = errors.New("telegram down")
	assert.Error(t, r.Handle(context.Background(), ports.Event{Topic: n.EventType, Data: n}))
}
