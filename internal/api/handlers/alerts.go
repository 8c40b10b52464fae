package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/fdalert/internal/alerting"
	"github.com/your-org/fdalert/internal/auth"
	"github.com/your-org/fdalert/internal/models"
	"github.com/your-org/fdalert/internal/storage"
	"github.com/your-org/fdalert/pkg/dto"
)

type AlertLedger interface {
	Acknowledge(ctx context.Context, owner, id uuid.UUID) error
	ListRecent(ctx context.Context, owner uuid.UUID, limit int) ([]models.AlertNotification, error)
}

type AlertHandler struct {
	ledger AlertLedger
}

func NewAlertHandler(ledger AlertLedger) *AlertHandler {
	return &AlertHandler{ledger: ledger}
}

func (h *AlertHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(alerting.DefaultRecentLimit)))

	alerts, err := h.ledger.ListRecent(c.Request.Context(), auth.Owner(c), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.AlertResponse, 0, len(alerts))
	for i := range alerts {
		resp = append(resp, alerts[i].ToResponse())
	}

	c.JSON(http.StatusOK, dto.AlertListResponse{Alerts: resp, Total: len(resp)})
}

func (h *AlertHandler) Acknowledge(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	err = h.ledger.Acknowledge(c.Request.Context(), auth.Owner(c), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.Status(http.StatusNoContent)
	}
}
