package notify

import (
	"context"
	"fmt"

	"github.com/your-org/fdalert/internal/models"
	"github.com/your-org/fdalert/pkg/dto"
)

const pushTitle = "Security Alert"

// BrowserPush asks connected dashboards to raise an OS-level notification.
// It only fires once the owner granted permission; otherwise it is a no-op.
// Its outcome is advisory.
type BrowserPush struct {
	bus Bus
}

func NewBrowserPush(bus Bus) *BrowserPush {
	return &BrowserPush{bus: bus}
}

func (p *BrowserPush) Name() string { return ChannelBrowserPush }

func (p *BrowserPush) Enabled(cfg *models.Configuration) bool {
	return cfg.BrowserPushEnabled
}

func (p *BrowserPush) Dispatch(ctx context.Context, alert *models.AlertNotification, cfg *models.Configuration) Outcome {
	if cfg.PushPermission != models.PushPermissionGranted {
		out := skipped(ChannelBrowserPush)
		out.Advisory = true
		return out
	}

	out := ok(ChannelBrowserPush)
	if p.bus == nil {
		out = failed(ChannelBrowserPush, ErrBusUnavailable)
	} else if err := p.bus.PublishAlert(ctx, &dto.WSEvent{
		Type:         dto.WSEventNotification,
		Owner:        alert.Owner,
		CameraID:     alert.CameraID,
		Notification: BrowserNotification(alert),
	}); err != nil {
		out = failed(ChannelBrowserPush, fmt.Errorf("%w: %v", ErrBusUnavailable, err))
	}
	out.Advisory = true
	return out
}

// BrowserNotification builds the OS notification shown for an alert.
func BrowserNotification(alert *models.AlertNotification) *dto.BrowserNotification {
	return &dto.BrowserNotification{
		Title: pushTitle,
		Body:  fmt.Sprintf("%s at %s", alert.Message, alert.CameraName),
		Tag:   alert.CameraID,
	}
}
