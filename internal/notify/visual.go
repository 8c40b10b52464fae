package notify

import (
	"context"
	"fmt"

	"github.com/your-org/fdalert/internal/models"
	"github.com/your-org/fdalert/pkg/dto"
)

// Visual publishes the alert to the live dashboard bus.
type Visual struct {
	bus Bus
}

func NewVisual(bus Bus) *Visual {
	return &Visual{bus: bus}
}

func (v *Visual) Name() string { return ChannelVisual }

func (v *Visual) Enabled(cfg *models.Configuration) bool {
	return cfg.VisualAlertsEnabled
}

func (v *Visual) Dispatch(ctx context.Context, alert *models.AlertNotification, _ *models.Configuration) Outcome {
	if v.bus == nil {
		return failed(ChannelVisual, ErrBusUnavailable)
	}

	resp := alert.ToResponse()
	event := &dto.WSEvent{
		Type:     dto.WSEventAlert,
		Owner:    alert.Owner,
		CameraID: alert.CameraID,
		Alert:    &resp,
	}
	if err := v.bus.PublishAlert(ctx, event); err != nil {
		return failed(ChannelVisual, fmt.Errorf("%w: %v", ErrBusUnavailable, err))
	}
	return ok(ChannelVisual)
}
