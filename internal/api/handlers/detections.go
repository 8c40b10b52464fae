package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/fdalert/internal/auth"
	"github.com/your-org/fdalert/internal/models"
	"github.com/your-org/fdalert/pkg/dto"
)

type DetectionPublisher interface {
	PublishDetection(ctx context.Context, msg *models.DetectionMessage) error
}

type DetectionHandler struct {
	producer DetectionPublisher
	now      func() time.Time
}

func NewDetectionHandler(producer DetectionPublisher) *DetectionHandler {
	return &DetectionHandler{producer: producer, now: time.Now}
}

// Create enqueues a detection result for the alert worker. Faces are
// validated one by one in the pipeline, so a bad face does not reject the batch.
func (h *DetectionHandler) Create(c *gin.Context) {
	var req dto.DetectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ts := h.now().UTC()
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339Nano, req.Timestamp)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timestamp, expected RFC3339"})
			return
		}
		ts = parsed
	}

	faces := make([]models.DetectedFace, 0, len(req.Faces))
	for _, f := range req.Faces {
		faces = append(faces, models.FaceFromRequest(f))
	}

	msg := &models.DetectionMessage{
		Owner:      auth.Owner(c),
		CameraName: req.CameraName,
		Result: models.FaceDetectionResult{
			Timestamp:  ts,
			CameraID:   req.CameraID,
			Faces:      faces,
			Screenshot: req.Screenshot,
		},
	}

	if err := h.producer.PublishDetection(c.Request.Context(), msg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue detection"})
		return
	}

	c.JSON(http.StatusAccepted, dto.DetectionAccepted{CameraID: req.CameraID, Faces: len(faces), Status: "queued"})
}
