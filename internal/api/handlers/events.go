package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/fdalert/internal/alerting"
	"github.com/your-org/fdalert/internal/auth"
	"github.com/your-org/fdalert/internal/models"
	"github.com/your-org/fdalert/pkg/dto"
)

type EventLister interface {
	ListRecentEvents(ctx context.Context, owner uuid.UUID, cameraID string, limit int) ([]models.DetectionEvent, error)
}

type EventHandler struct {
	events EventLister
}

func NewEventHandler(events EventLister) *EventHandler {
	return &EventHandler{events: events}
}

// List returns the owner's most recent detection events, optionally for one camera.
func (h *EventHandler) List(c *gin.Context) {
	var q dto.EventQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := h.events.ListRecentEvents(c.Request.Context(), auth.Owner(c), q.CameraID, alerting.ClampLimit(q.Limit))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.EventResponse, 0, len(events))
	for i := range events {
		resp = append(resp, events[i].ToResponse())
	}

	c.JSON(http.StatusOK, dto.EventListResponse{Events: resp, Total: len(resp)})
}
