package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/fdalert/internal/cache"
	"github.com/your-org/fdalert/internal/classify"
	"github.com/your-org/fdalert/internal/models"
)

// Cooldown suppresses repeated alerts for the same camera, type and person
// inside a window. A zero window disables it.
type Cooldown struct {
	provider cache.Provider
	window   time.Duration
}

func NewCooldown(provider cache.Provider, window time.Duration) *Cooldown {
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	return &Cooldown{provider: provider, window: window}
}

// Allow claims the cooldown slot for the intent. It returns true when no alert
// of the same key was raised within the window. Provider errors fail open.
func (c *Cooldown) Allow(ctx context.Context, owner uuid.UUID, cameraID string, in classify.Intent, faces []models.DetectedFace) (bool, error) {
	if c == nil || c.window <= 0 {
		return true, nil
	}

	key := cooldownKey(owner, cameraID, in, faces)
	ok, err := c.provider.SetNX(ctx, key, []byte("1"), c.window)
	if err != nil {
		return true, fmt.Errorf("claim cooldown %s: %w", key, err)
	}
	return ok, nil
}

// Release gives back a slot claimed by Allow whose alert was never stored,
// so the next detection may alert again.
func (c *Cooldown) Release(ctx context.Context, owner uuid.UUID, cameraID string, in classify.Intent, faces []models.DetectedFace) error {
	if c == nil || c.window <= 0 {
		return nil
	}
	key := cooldownKey(owner, cameraID, in, faces)
	if err := c.provider.Delete(ctx, key); err != nil {
		return fmt.Errorf("release cooldown %s: %w", key, err)
	}
	return nil
}

func cooldownKey(owner uuid.UUID, cameraID string, in classify.Intent, faces []models.DetectedFace) string {
	key := fmt.Sprintf("fd:cooldown:%s:%s:%s", owner, cameraID, in.Type)
	if in.Type == models.NotificationKnownPerson {
		key += ":" + faces[in.Faces[0]].MatchedPerson.ID
	}
	return key
}
