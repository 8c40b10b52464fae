package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/your-org/fdalert/internal/models"
)

// Relay is the outbound messaging API used by ChatRelay.
type Relay interface {
	SendMessage(ctx context.Context, token, chatID, text string) error
	SendPhoto(ctx context.Context, token, chatID, photoURL, caption string) error
}

// ChatRelay forwards alerts to the owner's chat bot. Delivery is at most once:
// a failed send is reported, never retried.
type ChatRelay struct {
	relay Relay
}

func NewChatRelay(relay Relay) *ChatRelay {
	return &ChatRelay{relay: relay}
}

func (r *ChatRelay) Name() string { return ChannelChatRelay }

func (r *ChatRelay) Enabled(cfg *models.Configuration) bool {
	return cfg.ChatRelayEnabled
}

func (r *ChatRelay) Dispatch(ctx context.Context, alert *models.AlertNotification, cfg *models.Configuration) Outcome {
	if !cfg.ChatRelayConfigured() {
		return failed(ChannelChatRelay, ErrRelayNotConfigured)
	}

	if err := r.relay.SendMessage(ctx, cfg.ChatBotToken, cfg.ChatID, FormatChatMessage(alert)); err != nil {
		return failed(ChannelChatRelay, fmt.Errorf("send chat message: %w", err))
	}

	receipt := &models.ChatReceipt{ChatID: cfg.ChatID, MessageSent: true}
	if alert.Payload.EvidenceURL != "" {
		err := r.relay.SendPhoto(ctx, cfg.ChatBotToken, cfg.ChatID, alert.Payload.EvidenceURL, photoCaption(alert))
		if err != nil {
			slog.Warn("send chat photo", "alert_id", alert.ID, "error", err)
		} else {
			receipt.PhotoSent = true
		}
	}

	out := ok(ChannelChatRelay)
	out.Receipt = receipt
	return out
}
