package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/your-org/fdalert/internal/models"
	"github.com/your-org/fdalert/internal/storage"
)

// ConfigStore loads the per-owner configuration.
type ConfigStore interface {
	GetConfig(ctx context.Context, owner uuid.UUID) (*models.Configuration, error)
}

// Service binds the pipeline to configuration lookup. It is the handler the
// detection source calls for every result.
type Service struct {
	configs  ConfigStore
	pipeline *Pipeline
}

func NewService(configs ConfigStore, pipeline *Pipeline) *Service {
	return &Service{configs: configs, pipeline: pipeline}
}

// Handle snapshots the owner's configuration and processes the detection.
// An owner without configuration is skipped.
func (s *Service) Handle(ctx context.Context, msg *models.DetectionMessage) *Summary {
	// A detection taken off a lane is finished even during shutdown.
	ctx = context.WithoutCancel(ctx)
	lctx, cancel := context.WithTimeout(ctx, s.pipeline.opts.StoreTimeout)
	cfg, err := s.configs.GetConfig(lctx, msg.Owner)
	cancel()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		slog.Debug("no alert configuration, skipping detection", "owner", msg.Owner, "camera_id", msg.Result.CameraID)
		return s.pipeline.ProcessDetection(ctx, msg.Owner, &msg.Result, msg.CameraName, nil)
	case err != nil:
		sum := newSummary(msg.Owner, msg.Result.CameraID)
		sum.Faces = len(msg.Result.Faces)
		sum.Skipped = true
		sum.fail(StageConfig, fmt.Errorf("load configuration: %w", err))
		slog.Error("load alert configuration", "owner", msg.Owner, "error", err)
		return sum
	}

	snapshot := *cfg
	return s.pipeline.ProcessDetection(ctx, msg.Owner, &msg.Result, msg.CameraName, &snapshot)
}
