package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/fdalert/internal/auth"
	"github.com/your-org/fdalert/internal/models"
	"github.com/your-org/fdalert/pkg/dto"
)

type ControlPublisher interface {
	PublishControl(cmd models.CameraCommand) error
}

type StatusPublisher interface {
	PublishAlert(ctx context.Context, event *dto.WSEvent) error
}

type CameraHandler struct {
	control ControlPublisher
	status  StatusPublisher
}

func NewCameraHandler(control ControlPublisher, status StatusPublisher) *CameraHandler {
	return &CameraHandler{control: control, status: status}
}

func (h *CameraHandler) Start(c *gin.Context) {
	var req dto.CameraRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	h.send(c, models.CameraCommand{
		Action:     models.CameraActionStart,
		Owner:      auth.Owner(c),
		CameraID:   c.Param("id"),
		CameraName: req.Name,
		StreamURL:  req.StreamURL,
	}, "starting")
}

func (h *CameraHandler) Stop(c *gin.Context) {
	h.send(c, models.CameraCommand{
		Action:   models.CameraActionStop,
		Owner:    auth.Owner(c),
		CameraID: c.Param("id"),
	}, "stopping")
}

func (h *CameraHandler) send(c *gin.Context, cmd models.CameraCommand, status string) {
	if err := h.control.PublishControl(cmd); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send command"})
		return
	}

	if h.status != nil {
		event := &dto.WSEvent{
			Type:     dto.WSEventCameraStatus,
			Owner:    cmd.Owner,
			CameraID: cmd.CameraID,
			Status:   status,
		}
		if err := h.status.PublishAlert(c.Request.Context(), event); err != nil {
			slog.Warn("publish camera status", "camera_id", cmd.CameraID, "error", err)
		}
	}

	c.JSON(http.StatusAccepted, dto.CameraResponse{CameraID: cmd.CameraID, Status: status})
}
