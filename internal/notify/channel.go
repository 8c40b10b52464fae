// Package notify implements the alert delivery channels. Each channel is
// attempted independently; one channel's outcome never affects another's.
package notify

import (
	"context"
	"errors"

	"github.com/your-org/fdalert/internal/models"
	"github.com/your-org/fdalert/pkg/dto"
)

var (
	// ErrBusUnavailable means the live UI bus could not accept an event.
	ErrBusUnavailable = errors.New("alert bus unavailable")
	// ErrRelayNotConfigured means the chat relay is enabled without credentials.
	ErrRelayNotConfigured = errors.New("chat relay not configured")
)

const (
	ChannelVisual      = "visual"
	ChannelAudio       = "audio"
	ChannelBrowserPush = "browser_push"
	ChannelChatRelay   = "telegram"
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Outcome is the result of one channel dispatch.
type Outcome struct {
	Channel string
	Status  Status
	Err     error
	// Advisory outcomes are recorded but never decide the alert status.
	Advisory bool
	Receipt  *models.ChatReceipt
}

func ok(channel string) Outcome {
	return Outcome{Channel: channel, Status: StatusOK}
}

func failed(channel string, err error) Outcome {
	return Outcome{Channel: channel, Status: StatusFailed, Err: err}
}

func skipped(channel string) Outcome {
	return Outcome{Channel: channel, Status: StatusSkipped}
}

// Note converts the outcome into the record stored in the alert payload.
func (o Outcome) Note() models.ChannelNote {
	n := models.ChannelNote{Channel: o.Channel, Outcome: string(o.Status)}
	if o.Err != nil {
		n.Error = o.Err.Error()
	}
	return n
}

// Channel is one notification sink.
type Channel interface {
	Name() string
	// Enabled reports whether the configuration snapshot turns the channel on.
	// Disabled channels are not attempted.
	Enabled(cfg *models.Configuration) bool
	Dispatch(ctx context.Context, alert *models.AlertNotification, cfg *models.Configuration) Outcome
}

// Bus carries live events to connected dashboards.
type Bus interface {
	PublishAlert(ctx context.Context, event *dto.WSEvent) error
}
