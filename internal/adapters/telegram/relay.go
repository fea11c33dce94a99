package telegram

import (
	"PayoutGuard/internal/core/ports"
	"context"
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// secretKeys never leave the process through a shared ops chat.
var secretKeys = map[string]bool{
	"code":  true,
	"token": true,
}

// messageSender is the slice of *tgbotapi.BotAPI the relay uses.
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Relay forwards engine notifications to an operations chat.
type Relay struct {
	api     messageSender
	chatID  int64
	printer *message.Printer
	title   cases.Caser
	log     zerolog.Logger
}

// NewRelay creates a relay that posts into chatID.
func NewRelay(api messageSender, chatID int64, baseLogger *zerolog.Logger) *Relay {
	return &Relay{
		api:     api,
		chatID:  chatID,
		printer: message.NewPrinter(language.English),
		title:   cases.Title(language.English),
		log:     baseLogger.With().Str("component", "tg_relay").Logger(),
	}
}

// Handle is a ports.EventHandler for notification events.
func (r *Relay) Handle(ctx context.Context, event ports.Event) error {
	n, ok := event.Data.(ports.Notification)
	if !ok {
		r.log.Warn().Str("topic", event.Topic).Msg("Ignoring non-notification event")
		return nil
	}

	msg := tgbotapi.NewMessage(r.chatID, r.Format(n))
	msg.DisableWebPagePreview = true
	if _, err := r.api.Send(msg); err != nil {
		r.log.Error().Err(err).Int64("chat_id", r.chatID).Str("event_type", n.EventType).Msg("Failed to send message")
		return err
	}
	return nil
}

// Format renders a notification as plain text. Keys are sorted, amounts grouped,
// and secrets redacted.
func (r *Relay) Format(n ports.Notification) string {
	var b strings.Builder
	b.WriteString(r.title.String(strings.ReplaceAll(n.EventType, "_", " ")))
	b.WriteString("\nrecipient: ")
	b.WriteString(n.Recipient)

	keys := make([]string, 0, len(n.Payload))
	for k := range n.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := n.Payload[k]
		switch {
		case secretKeys[k]:
			v = "[redacted]"
		case k == "amount":
			v = r.formatAmount(v)
		}
		fmt.Fprintf(&b, "\n%s: %s", k, v)
	}
	return b.String()
}

func (r *Relay) formatAmount(raw string) string {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return raw
	}
	f, _ := d.Round(2).Float64()
	return r.printer.Sprintf("%.2f", f)
}
